package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/seabattle-lobby/internal/api"
	"github.com/mcoot/seabattle-lobby/internal/dispatch"
	eventsnats "github.com/mcoot/seabattle-lobby/internal/events/nats"
	eventsredis "github.com/mcoot/seabattle-lobby/internal/events/redis"
	"github.com/mcoot/seabattle-lobby/internal/factory"
	"github.com/mcoot/seabattle-lobby/internal/janitor"
	"github.com/mcoot/seabattle-lobby/internal/protocol"
	"github.com/mcoot/seabattle-lobby/internal/server"
)

// options holds every command-line setting of the server
type options struct {
	host      string
	port      int
	httpPort  int
	logLevel  string
	eventSink string
	redisURL  string
	natsURL   string
	config    string

	maxFrameSize int
	writeTimeout time.Duration
	idleTimeout  time.Duration
	origins      []string

	sweepInterval    time.Duration
	finishedTTL      time.Duration
	replyOnMalformed bool
	requireName      bool
	maxNameLength    int
	maxSends         int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	srvDefaults := server.DefaultConfig()
	janDefaults := janitor.DefaultConfig()
	protoDefaults := protocol.DefaultConfig()

	opts := options{
		host:             getEnvOrDefault("SEABATTLE_HOST", srvDefaults.Host),
		port:             getEnvIntOrDefault("SEABATTLE_PORT", srvDefaults.Port),
		httpPort:         getEnvIntOrDefault("SEABATTLE_HTTP_PORT", api.DefaultServerConfig().Port),
		logLevel:         getEnvOrDefault("SEABATTLE_LOG_LEVEL", "info"),
		eventSink:        getEnvOrDefault("SEABATTLE_EVENT_SINK", factory.SinkTypeMemory),
		redisURL:         os.Getenv("REDIS_URL"),
		natsURL:          os.Getenv("NATS_URL"),
		config:           os.Getenv("SEABATTLE_CONFIG"),
		maxFrameSize:     srvDefaults.Transport.MaxFrameSize,
		writeTimeout:     srvDefaults.Transport.WriteTimeout,
		idleTimeout:      srvDefaults.Transport.IdleTimeout,
		sweepInterval:    janDefaults.Interval,
		finishedTTL:      janDefaults.FinishedGameTTL,
		replyOnMalformed: protoDefaults.ReplyOnMalformed,
		requireName:      protoDefaults.RequireName,
		maxNameLength:    protoDefaults.MaxNameLength,
		maxSends:         dispatch.DefaultConfig().MaxConcurrentSends,
	}

	cmd := &cobra.Command{
		Use:   "seabattle-server",
		Short: "Sea battle lobby server",
		Long: `seabattle-server accepts player connections over TCP and WebSocket,
manages the lobby of game rooms and serves an admin HTTP API.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.config != "" {
				fc, err := loadConfigFile(opts.config)
				if err != nil {
					return err
				}
				fc.apply(&opts, explicitlySet(cmd))
			}
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.config, "config", "c", opts.config, "YAML config file; flags and env override it (env: SEABATTLE_CONFIG)")
	f.StringVar(&opts.host, "host", opts.host, "Interface to bind (env: SEABATTLE_HOST)")
	f.IntVar(&opts.port, "port", opts.port, "TCP lobby port (env: SEABATTLE_PORT)")
	f.IntVar(&opts.httpPort, "http-port", opts.httpPort, "Admin API and WebSocket port, 0 disables (env: SEABATTLE_HTTP_PORT)")
	f.StringVar(&opts.logLevel, "log-level", opts.logLevel, "debug, info, warn or error (env: SEABATTLE_LOG_LEVEL)")
	f.StringVar(&opts.eventSink, "event-sink", opts.eventSink, "memory, redis, nats or none (env: SEABATTLE_EVENT_SINK)")
	f.StringVar(&opts.redisURL, "redis-url", opts.redisURL, "Redis URL for the redis event sink (env: REDIS_URL)")
	f.StringVar(&opts.natsURL, "nats-url", opts.natsURL, "NATS URL for the nats event sink (env: NATS_URL)")
	f.IntVar(&opts.maxFrameSize, "max-frame-size", opts.maxFrameSize, "Largest accepted inbound frame in bytes")
	f.DurationVar(&opts.writeTimeout, "write-timeout", opts.writeTimeout, "Per-frame write deadline, 0 disables")
	f.DurationVar(&opts.idleTimeout, "idle-timeout", opts.idleTimeout, "Disconnect players silent for this long, 0 disables")
	f.StringSliceVar(&opts.origins, "allowed-origins", opts.origins, "Origins allowed to open WebSocket connections (default all)")
	f.DurationVar(&opts.sweepInterval, "sweep-interval", opts.sweepInterval, "Janitor interval, 0 disables")
	f.DurationVar(&opts.finishedTTL, "finished-ttl", opts.finishedTTL, "How long finished games are kept")
	f.BoolVar(&opts.replyOnMalformed, "reply-on-malformed", opts.replyOnMalformed, "Answer malformed frames with an error message")
	f.BoolVar(&opts.requireName, "require-name", opts.requireName, "Trim player names and reject empty ones")
	f.IntVar(&opts.maxNameLength, "max-name-length", opts.maxNameLength, "Longest accepted player name in characters, 0 for unlimited")
	f.IntVar(&opts.maxSends, "max-concurrent-sends", opts.maxSends, "Broadcast fan-out limit, 0 for unbounded")

	return cmd
}

// explicitlySet reports whether an option came from a flag or its env var
func explicitlySet(cmd *cobra.Command) func(string) bool {
	return func(flag string) bool {
		if cmd.Flags().Changed(flag) {
			return true
		}
		env, ok := flagEnv[flag]
		return ok && os.Getenv(env) != ""
	}
}

func run(ctx context.Context, opts options) error {
	level, err := parseLevel(opts.logLevel)
	if err != nil {
		return err
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := buildConfig(opts, logger)
	if err != nil {
		return err
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close event sink", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Supervisor.ListenAndServe(ctx)
	})

	g.Go(func() error {
		app.Janitor.Run(ctx)
		return nil
	})

	if opts.httpPort > 0 {
		httpCfg := api.DefaultServerConfig()
		httpCfg.Host = opts.host
		httpCfg.Port = opts.httpPort
		httpServer := api.NewServer(app.HTTPHandler(), httpCfg, logger)

		g.Go(func() error {
			return httpServer.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return app.Supervisor.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}

// buildConfig turns command-line options into the factory configuration
func buildConfig(opts options, logger *slog.Logger) (factory.Config, error) {
	srvCfg := server.DefaultConfig()
	srvCfg.Host = opts.host
	srvCfg.Port = opts.port
	srvCfg.Transport.MaxFrameSize = opts.maxFrameSize
	srvCfg.Transport.WriteTimeout = opts.writeTimeout
	srvCfg.Transport.IdleTimeout = opts.idleTimeout
	srvCfg.AllowedOrigins = opts.origins

	janCfg := janitor.Config{
		Interval:        opts.sweepInterval,
		FinishedGameTTL: opts.finishedTTL,
	}

	protoCfg := protocol.DefaultConfig()
	protoCfg.ReplyOnMalformed = opts.replyOnMalformed
	protoCfg.RequireName = opts.requireName
	protoCfg.MaxNameLength = opts.maxNameLength

	cfg := factory.Config{
		Logger:   logger,
		SinkType: opts.eventSink,
		Server:   &srvCfg,
		Janitor:  &janCfg,
		Protocol: &protoCfg,
		Dispatch: &dispatch.Config{MaxConcurrentSends: opts.maxSends},
	}

	// Configure Redis if the event sink is redis
	if cfg.SinkType == factory.SinkTypeRedis {
		if opts.redisURL == "" {
			return factory.Config{}, errors.New("REDIS_URL or --redis-url required when the event sink is redis")
		}
		redisCfg := eventsredis.DefaultConfig()
		redisCfg.URL = opts.redisURL
		cfg.RedisConfig = &redisCfg
	}

	if cfg.SinkType == factory.SinkTypeNATS {
		if opts.natsURL == "" {
			return factory.Config{}, errors.New("NATS_URL or --nats-url required when the event sink is nats")
		}
		natsCfg := eventsnats.DefaultConfig()
		natsCfg.URL = opts.natsURL
		cfg.NATSConfig = &natsCfg
	}

	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
