// Command mapboard tracks map leaderboards and serves their aggregated views.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/mapboard/internal/adapters/console"
	"github.com/okian/mapboard/internal/adapters/http/api"
	"github.com/okian/mapboard/internal/adapters/http/site"
	"github.com/okian/mapboard/internal/adapters/http/swagger"
	"github.com/okian/mapboard/internal/adapters/repository"
	"github.com/okian/mapboard/internal/adapters/trackapi"
	service "github.com/okian/mapboard/internal/app"
	"github.com/okian/mapboard/internal/config"
	"github.com/okian/mapboard/internal/domain/points"
	"github.com/okian/mapboard/pkg/logger"
	"github.com/okian/mapboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 15 * time.Minute // POST /sync?wait=true holds the response for a whole sync
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	metricsInterval   = 10 * time.Second
)

const usage = `usage: mapboard [flags] <command> [args]

commands:
  sync                 fetch every registered map and update the database
  serve                start the HTTP API
  overview             headline counts and last sync
  maps                 tracked maps with their world records
  map <uid>            one map leaderboard
  overall [-limit N]   overall leaderboard by points
  player <id|name>     player profile, or matches of a name search
  whatsnew             changes flagged by the last sync
  countries            best player per country
  playtime             summed record times per map

flags:
`

// errUsage marks command-line mistakes.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "mapboard:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// globalFlags override configuration values when set.
type globalFlags struct {
	config   string
	db       string
	maps     string
	logLevel string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("mapboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	var gf globalFlags
	fs.StringVar(&gf.config, "config", "", "YAML config file (overrides MAPBOARD_CONFIG)")
	fs.StringVar(&gf.db, "db", "", "SQLite database path")
	fs.StringVar(&gf.maps, "maps", "", "map registry file")
	fs.StringVar(&gf.logLevel, "log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("%w: missing command", errUsage)
	}

	cfg, err := loadConfig(ctx, gf)
	if err != nil {
		return err
	}
	if err := logger.InitWithWriter(stderr, cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if !knownCommand(cmd) {
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if cmd == "serve" {
		return serve(ctx, cfg, svc)
	}
	return runView(ctx, svc, console.New(stdout), cmd, cmdArgs, stderr)
}

func knownCommand(cmd string) bool {
	switch cmd {
	case "sync", "serve", "overview", "maps", "map", "overall", "player", "whatsnew", "countries", "playtime":
		return true
	}
	return false
}

func loadConfig(ctx context.Context, gf globalFlags) (*config.Config, error) {
	if gf.config != "" {
		if err := os.Setenv("MAPBOARD_CONFIG", gf.config); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if gf.db != "" {
		cfg.DBPath = gf.db
	}
	if gf.maps != "" {
		cfg.MapsFile = gf.maps
	}
	if gf.logLevel != "" {
		cfg.LogLevel = strings.ToLower(gf.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func pointsTable(cfg *config.Config) (points.Table, error) {
	if cfg.PointsMode == config.PointsModeTable {
		lookup, err := points.NewLookup(cfg.PointsTable)
		if err != nil {
			return nil, err
		}
		return lookup, nil
	}
	return points.NewTiered(points.WithBase(cfg.PointsBase)), nil
}

func newService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	table, err := pointsTable(cfg)
	if err != nil {
		return nil, err
	}
	store, err := repository.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	fetcher := trackapi.New(
		trackapi.WithUserAgent(cfg.UserAgent),
		trackapi.WithPageSize(cfg.PageSize),
		trackapi.WithMaxRecords(cfg.MaxRecords),
		trackapi.WithTimeout(cfg.RequestTimeout()),
		trackapi.WithPacer(trackapi.NewPacer(cfg.RequestDelay(), nil)),
	)
	return service.New(
		service.WithStore(store),
		service.WithFetcher(fetcher),
		service.WithRegistryPath(cfg.MapsFile),
		service.WithPointsTable(table),
	), nil
}

func runView(ctx context.Context, svc *service.Service, out *console.Renderer, cmd string, args []string, stderr io.Writer) error {
	switch cmd {
	case "sync":
		report, err := svc.Sync(ctx)
		if err != nil {
			return err
		}
		return out.SyncReport(report)
	case "overview":
		ov, err := svc.Overview(ctx)
		if err != nil {
			return err
		}
		return out.Overview(ov)
	case "maps":
		rows, err := svc.Maps(ctx)
		if err != nil {
			return err
		}
		return out.Maps(rows)
	case "map":
		if len(args) != 1 {
			return fmt.Errorf("%w: map <uid>", errUsage)
		}
		lb, err := svc.MapLeaderboard(ctx, args[0])
		if err != nil {
			return err
		}
		return out.MapLeaderboard(lb)
	case "overall":
		fs := flag.NewFlagSet("overall", flag.ContinueOnError)
		fs.SetOutput(stderr)
		limit := fs.Int("limit", 50, "rows to show; 0 shows every player")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		rows, err := svc.Overall(ctx, *limit)
		if err != nil {
			return err
		}
		return out.Overall(rows)
	case "player":
		if len(args) == 0 {
			return fmt.Errorf("%w: player <id|name>", errUsage)
		}
		return showPlayer(ctx, svc, out, strings.Join(args, " "))
	case "whatsnew":
		wn, err := svc.WhatsNew(ctx)
		if err != nil {
			return err
		}
		return out.WhatsNew(wn)
	case "countries":
		rows, err := svc.Countries(ctx)
		if err != nil {
			return err
		}
		return out.Countries(rows)
	case "playtime":
		rows, err := svc.Playtime(ctx)
		if err != nil {
			return err
		}
		return out.Playtime(rows)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// showPlayer looks q up as a player id first, then as a name. A single name
// match shows that profile; several show the matching standings.
func showPlayer(ctx context.Context, svc *service.Service, out *console.Renderer, q string) error {
	prof, err := svc.PlayerProfile(ctx, q)
	if err == nil {
		return out.Player(prof)
	}
	if !errors.Is(err, service.ErrNotFound) {
		return err
	}

	matches, err := svc.SearchPlayers(ctx, q)
	if err != nil {
		return err
	}
	switch len(matches) {
	case 0:
		return fmt.Errorf("%w: no player matches %q", service.ErrNotFound, q)
	case 1:
		prof, err := svc.PlayerProfile(ctx, matches[0].PlayerID)
		if err != nil {
			return err
		}
		return out.Player(prof)
	}
	return out.Overall(matches)
}

// newHandler builds the HTTP handler served by `serve`.
func newHandler(ctx context.Context, cfg *config.Config, svc *service.Service) http.Handler {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	cacheBytes := 0
	if cfg.CacheEnabled {
		cacheBytes = cfg.CacheSizeMB * 1024 * 1024
	}
	api.NewServer(svc, api.WithCacheSize(cacheBytes)).Register(ctx, mux)
	return api.Handler(mux)
}

func serve(ctx context.Context, cfg *config.Config, svc *service.Service) error {
	log := logger.Named("serve")

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go startSystemMetricsUpdater(ctx)
	if interval := cfg.SyncInterval(); interval > 0 {
		log.Info(ctx, "periodic sync enabled", logger.Duration("interval", interval))
		go svc.RunPeriodic(ctx, interval)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater refreshes system gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.CollectSystem()
		}
	}
}
