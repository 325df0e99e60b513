// Package registry reads the list of tracked maps.
//
// The registry is a text file with one map per line:
//
//	<api url>|<display name>
//	<api url>
//
// Blank lines and lines starting with # are ignored.
package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/okian/mapboard/internal/domain/model"
)

const mapSegment = "/map/"

// Warning describes a registry line that was skipped.
type Warning struct {
	Line   int // 1-based
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}

// Registry is the parsed list of maps in fetch order.
type Registry struct {
	Maps     []model.MapRef
	Warnings []Warning
}

// Load reads and parses the registry at path.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRegistryNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrRegistryRead, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads registry lines from r. Malformed lines and duplicate UIDs are
// skipped and reported as warnings; the first occurrence of a UID wins.
func Parse(r io.Reader) (*Registry, error) {
	reg := &Registry{}
	seen := make(map[string]int)
	sc := bufio.NewScanner(r)
	for idx := 0; sc.Scan(); idx++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw, name, _ := strings.Cut(line, "|")
		raw, name = strings.TrimSpace(raw), strings.TrimSpace(name)

		base, uid, err := normalize(raw)
		if err != nil {
			reg.Warnings = append(reg.Warnings, Warning{Line: idx + 1, Reason: err.Error()})
			continue
		}
		if first, dup := seen[uid]; dup {
			reg.Warnings = append(reg.Warnings, Warning{
				Line:   idx + 1,
				Reason: fmt.Sprintf("duplicate map %s, first listed on line %d", uid, first),
			})
			continue
		}
		seen[uid] = idx + 1
		if name == "" {
			name = uid
		}
		reg.Maps = append(reg.Maps, model.MapRef{UID: uid, URL: base, Name: name, FetchOrder: idx})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistryRead, err)
	}
	if len(reg.Maps) == 0 {
		return reg, ErrRegistryEmpty
	}
	return reg, nil
}

// UID extracts the map identifier, the path segment after /map/.
func UID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	_, rest, ok := strings.Cut(u.Path, mapSegment)
	if !ok {
		return ""
	}
	uid, _, _ := strings.Cut(rest, "/")
	return uid
}

// normalize validates raw and strips any paging parameters.
func normalize(raw string) (string, string, error) {
	if raw == "" {
		return "", "", errors.New("missing url")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "", fmt.Errorf("invalid url %q", raw)
	}
	uid := UID(raw)
	if uid == "" {
		return "", "", fmt.Errorf("no map id in url %q", raw)
	}
	q := u.Query()
	q.Del("offset")
	q.Del("length")
	u.RawQuery = q.Encode()
	return u.String(), uid, nil
}
