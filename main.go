// Command clipbot watches a YouTube channel's live chat for !clip requests and
// posts a timestamped link for each one to a Discord webhook.
// It:
//   - Loads configuration and initializes structured logging.
//   - Builds one Data API client per credential behind a quota-aware rotator.
//   - Locates the channel's current live broadcast once; startup fails if there is none.
//   - Polls the live chat until SIGINT/SIGTERM, honoring !clip with a cooldown.
//   - Optionally records clips in Postgres (DB_DSN) and serves /healthz, /readyz,
//     /status, /clips and /metrics on HTTP_ADDR.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/clipbot/chat"
	"github.com/onnwee/clipbot/config"
	"github.com/onnwee/clipbot/db"
	"github.com/onnwee/clipbot/notify"
	"github.com/onnwee/clipbot/server"
	"github.com/onnwee/clipbot/telemetry"
	"github.com/onnwee/clipbot/youtubeapi"
)

func main() {
	// .env is a local dev convenience; production relies on real env
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing(context.Background(), telemetry.TracingOptions{
		ServiceName:    "clipbot",
		ServiceVersion: cfg.ServiceVersion,
		Endpoint:       cfg.OTLPEndpoint,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	flush := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", slog.Any("err", err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	flush()
	if err != nil {
		slog.Error("bot failed to start", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// run wires the components and blocks until ctx is cancelled.
// It returns an error only for startup failures; nothing after Locate ends it early.
func run(ctx context.Context, cfg *config.Config) error {
	yt, err := youtubeapi.NewFromConfig(ctx, cfg, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return err
	}

	var store *db.Store
	if cfg.DBDsn != "" {
		store, err = openLedger(ctx, cfg.DBDsn)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
	} else {
		slog.Info("clip ledger disabled (DB_DSN not set)")
	}

	session := chat.NewSession(cfg.PollInterval)
	if err := chat.NewLocator(yt, session).Locate(ctx, cfg.ChannelID); err != nil {
		return err
	}

	opts := chat.Options{Pad: cfg.ClipPad, Cooldown: cfg.ClipCooldown}
	if store != nil {
		opts.Recorder = store
	}
	poller := chat.NewPoller(session, yt, notify.NewWebhook(cfg.WebhookURL), opts)

	// status server failures are logged and never end the chat loop
	var g errgroup.Group
	g.Go(func() error { return poller.Run(ctx) })
	if cfg.HTTPAddr != "" {
		deps := server.Deps{Session: session, Credentials: yt}
		if store != nil {
			deps.Clips = store
		}
		g.Go(func() error {
			if err := server.Start(ctx, cfg.HTTPAddr, server.NewMux(ctx, deps)); err != nil {
				slog.Error("status server stopped; chat polling continues", slog.Any("err", err))
			}
			return nil
		})
	}
	return g.Wait()
}

// openLedger connects and migrates: versioned migrations first, embedded SQL as fallback.
func openLedger(ctx context.Context, dsn string) (*db.Store, error) {
	database, err := db.Connect(dsn)
	if err != nil {
		return nil, err
	}
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(ctx, database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return nil, err
		}
	}
	return db.NewStore(database), nil
}
