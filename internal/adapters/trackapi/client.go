// Package trackapi fetches map leaderboards from the public tracking API.
//
// Pages are requested one at a time through a shared Pacer. Any failed page
// fails the whole map so a partial leaderboard is never returned.
package trackapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/mapboard/internal/domain/dedupe"
	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/pkg/logger"
	"github.com/okian/mapboard/pkg/metrics"
)

const maxBodyBytes = 16 << 20

// Fetcher retrieves the full leaderboard of one map.
type Fetcher interface {
	FetchLeaderboard(ctx context.Context, ref model.MapRef) (model.Snapshot, error)
}

// Client is the HTTP implementation of Fetcher.
type Client struct {
	http       *http.Client
	pacer      *Pacer
	userAgent  string
	pageSize   int
	maxRecords int
	timeout    time.Duration
	log        logger.Logger
}

// New creates a client with configuration options.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{},
		userAgent:  DefaultUserAgent,
		pageSize:   DefaultPageSize,
		maxRecords: DefaultMaxRecords,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pacer == nil {
		c.pacer = NewPacer(DefaultDelay, nil)
	}
	if c.log == nil {
		c.log = logger.Named("trackapi")
	}
	return c
}

type pageResponse struct {
	PlayerCount int         `json:"playercount"`
	Tops        *[]topEntry `json:"tops"`
}

type topEntry struct {
	Player struct {
		ID   string      `json:"id"`
		Name string      `json:"name"`
		Zone *model.Zone `json:"zone"`
	} `json:"player"`
	Time      int64  `json:"time"`
	Score     int64  `json:"score"`
	Timestamp string `json:"timestamp"`
}

// FetchLeaderboard pages through the leaderboard of ref. Paging stops on an
// empty or short page, when the reported player count is reached, or at the
// record cap. Entries without a player id, and ids already seen on an
// earlier page, are dropped. Ranks are assigned 1..n in response order.
func (c *Client) FetchLeaderboard(ctx context.Context, ref model.MapRef) (model.Snapshot, error) {
	snap := model.Snapshot{Map: ref}
	seen := dedupe.NewInMemoryDeduper()

	for offset := 0; ; {
		page, err := c.fetchPage(ctx, ref, offset)
		if err != nil {
			return model.Snapshot{}, err
		}
		if offset == 0 {
			if page.Tops == nil {
				return model.Snapshot{}, fmt.Errorf("%w: map %s: no tops in response", ErrMalformed, ref.UID)
			}
			snap.PlayerCount = page.PlayerCount
		}

		var tops []topEntry
		if page.Tops != nil {
			tops = *page.Tops
		}
		for _, t := range tops {
			if len(snap.Entries) >= c.maxRecords {
				break
			}
			if t.Player.ID == "" || seen.SeenAndRecord(ctx, t.Player.ID) {
				snap.Dropped++
				continue
			}
			snap.Entries = append(snap.Entries, toEntry(len(snap.Entries)+1, t))
		}
		metrics.RecordRecordsFetched(len(tops))

		if len(tops) < c.pageSize {
			break
		}
		offset += c.pageSize
		if snap.PlayerCount > 0 && offset >= snap.PlayerCount {
			break
		}
		if offset >= c.maxRecords || len(snap.Entries) >= c.maxRecords {
			c.log.Warn(ctx, "record cap reached",
				logger.String("map", ref.UID),
				logger.Int("max_records", c.maxRecords),
				logger.Int("playercount", snap.PlayerCount),
			)
			break
		}
	}

	metrics.RecordEntriesDropped(snap.Dropped)
	if snap.Dropped > 0 {
		c.log.Warn(ctx, "dropped leaderboard entries",
			logger.String("map", ref.UID),
			logger.Int("dropped", snap.Dropped),
		)
	}
	snap.FetchedAt = time.Now().UTC()
	return snap, nil
}

func toEntry(rank int, t topEntry) model.Entry {
	country, flag := t.Player.Zone.Country()
	e := model.Entry{
		Rank:       rank,
		PlayerID:   t.Player.ID,
		PlayerName: t.Player.Name,
		Country:    country,
		Flag:       flag,
		TimeMS:     t.Time,
		Score:      t.Score,
	}
	if ts, err := time.Parse(time.RFC3339, t.Timestamp); err == nil {
		e.SetAt = ts.UTC()
	}
	return e
}

func (c *Client) fetchPage(ctx context.Context, ref model.MapRef, offset int) (pageResponse, error) {
	var page pageResponse

	if err := c.pacer.Wait(ctx); err != nil {
		return page, err
	}
	pageURL, err := c.pageURL(ref.URL, offset)
	if err != nil {
		return page, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return page, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.log.Debug(ctx, "fetching page", logger.String("map", ref.UID), logger.Int("offset", offset))
	start := time.Now()
	resp, err := c.http.Do(req)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return page, ctxErr
		}
		metrics.RecordAPIRequest("transport_error", latency)
		return page, fmt.Errorf("%w: map %s offset %d: %w", ErrTransport, ref.UID, offset, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordAPIRequest("http_"+strconv.Itoa(resp.StatusCode), latency)
		return page, fmt.Errorf("%w: map %s offset %d: status %d", ErrTransport, ref.UID, offset, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&page); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return page, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordAPIRequest("transport_error", latency)
			return page, fmt.Errorf("%w: map %s offset %d: %w", ErrTransport, ref.UID, offset, err)
		}
		metrics.RecordAPIRequest("malformed", latency)
		return page, fmt.Errorf("%w: map %s offset %d: %w", ErrMalformed, ref.UID, offset, err)
	}
	metrics.RecordAPIRequest("ok", latency)
	return page, nil
}

// pageURL sets offset and length on the registry URL.
func (c *Client) pageURL(raw string, offset int) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("offset", strconv.Itoa(offset))
	q.Set("length", strconv.Itoa(c.pageSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
