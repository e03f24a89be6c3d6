package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"matrix-routing-client/internal/adapters/cache"
	"matrix-routing-client/internal/adapters/transport"
	"matrix-routing-client/internal/config"
	"matrix-routing-client/internal/domain"
	"matrix-routing-client/internal/matrix"
	"matrix-routing-client/internal/platform/db"
	"matrix-routing-client/internal/platform/obs"
	"matrix-routing-client/internal/ports"
	"matrix-routing-client/internal/services"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// main is the composition root. It reads a matrix request, routes it through
// the configured protocol and prints the response as JSON.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found (using environment variables)")
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if points := domain.PointErrors(err); len(points) > 0 {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(map[string]any{"errors": points})
		}
		os.Exit(1)
	}
}

func run() error {
	in := flag.String("in", "-", "request JSON file, - for stdin")
	mode := flag.String("mode", "", "override MATRIX_MODE (sync or batch)")
	order := flag.Bool("order", false, "print a nearest-neighbour visiting order from the times matrix")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		return err
	}
	if *mode != "" {
		cfg.Mode = config.Mode(*mode)
		if !cfg.Mode.IsValid() {
			return fmt.Errorf("invalid -mode %q (must be 'sync' or 'batch')", *mode)
		}
	}

	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = obs.WithRequestID(ctx, uuid.NewString())

	req, err := readRequest(*in)
	if err != nil {
		return err
	}
	if *order && !slices.Contains(req.Outputs(), domain.OutTimes) {
		req.OutArrays = append(req.Outputs(), domain.OutTimes)
	}

	requester, closeFn, err := newRequester(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	client := matrix.NewClient(requester)
	if cfg.APIKey != "" {
		if err := client.SetKey(cfg.APIKey); err != nil {
			return err
		}
	}

	res, err := client.Route(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	if *order && !res.HasErrors() {
		tour, err := services.NearestNeighborOrder(res.Times, 0, false)
		if err != nil {
			return fmt.Errorf("visiting order: %w", err)
		}
		if err := enc.Encode(tour); err != nil {
			return fmt.Errorf("write order: %w", err)
		}
	}
	return nil
}

func newLogger(env config.Env) *slog.Logger {
	level := slog.LevelInfo
	if env == config.EnvDev {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func readRequest(path string) (domain.MatrixRequest, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return domain.MatrixRequest{}, fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req domain.MatrixRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return domain.MatrixRequest{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// newRequester wires transport, protocol and optional response cache. The
// returned func releases cache connections.
func newRequester(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.Requester, func(), error) {
	t := transport.NewHTTPTransport(transport.Options{
		Timeout:         cfg.HTTPTimeout,
		RateLimit:       cfg.RateLimit,
		RateBurst:       cfg.RateBurst,
		BreakerFailures: transport.DefaultOptions().BreakerFailures,
		BreakerCooldown: transport.DefaultOptions().BreakerCooldown,
		Logger:          logger,
	})

	var (
		requester ports.Requester
		err       error
	)
	switch cfg.Mode {
	case config.ModeBatch:
		requester, err = matrix.NewBatchRequester(t, cfg.ServiceURL, matrix.BatchOptions{
			Backoff: matrix.Backoff{
				Initial: cfg.PollInitial,
				Max:     cfg.PollMax,
				Factor:  cfg.PollFactor,
			},
			MaxWait:            cfg.PollMaxWait,
			MaxPolls:           cfg.PollMaxPolls,
			MaxTransientErrors: cfg.PollMaxTransient,
			Clock:              matrix.RealClock{},
			Logger:             logger,
		})
	default:
		requester, err = matrix.NewSyncRequester(t, cfg.ServiceURL, logger)
	}
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Cache {
	case config.CachePostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		c := cache.NewSQLMatrixCache(conn, cfg.CacheTTL)
		c.Logger = logger
		return matrix.NewCachingRequester(requester, c, logger), closer(conn), nil

	case config.CacheRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		c := cache.NewRedisMatrixCache(rdb, cfg.CacheTTL)
		return matrix.NewCachingRequester(requester, c, logger), closer(rdb), nil
	}

	return requester, func() {}, nil
}

func closer(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			slog.Warn("close cache connection", "err", err)
		}
	}
}
