package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/layer-3/dvarapala/adapters/events"
	"github.com/layer-3/dvarapala/adapters/store"
	"github.com/layer-3/dvarapala/adapters/tokenizer"
	"github.com/layer-3/dvarapala/adapters/verifier"
	"github.com/layer-3/dvarapala/internal/config"
	"github.com/layer-3/dvarapala/ports"
	"github.com/layer-3/dvarapala/service"
	transporthttp "github.com/layer-3/dvarapala/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Generate a new ECDSA key pair (you would normally load this from
	// somewhere secure)
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Error("failed to generate signing key", "error", err)
		os.Exit(1)
	}

	var (
		nonces    ports.NonceStore
		wallets   ports.WalletStore
		tokens    ports.TokenStore
		publisher message.Publisher
	)

	switch cfg.Store.Backend {
	case config.BackendMemory:
		mem := store.NewMemoryStore()
		nonces, wallets, tokens = mem, mem, mem
		publisher = gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(log))

	case config.BackendRedis, config.BackendPostgres:
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		redisStore := store.NewRedisStore(redisClient)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewSlogLogger(log),
		)
		if err != nil {
			log.Error("failed to create redis publisher", "error", err)
			os.Exit(1)
		}

		nonces, wallets, tokens = redisStore, redisStore, redisStore

		if cfg.Store.Backend == config.BackendPostgres {
			db, err := store.OpenPostgres(cfg.DB.URL, cfg.DB.MaxOpenConns, cfg.DB.MaxIdleConns, cfg.DB.ConnMaxLifetime)
			if err != nil {
				log.Error("failed to open postgres", "error", err)
				os.Exit(1)
			}
			defer db.Close()

			pg := store.NewPostgresStore(db)
			if err := pg.Migrate(ctx); err != nil {
				log.Error("failed to migrate postgres schema", "error", err)
				os.Exit(1)
			}
			// Records live in Postgres; Redis keeps serving token invalidation.
			nonces, wallets = pg, pg
		}
	}

	authService := service.NewAuthService(
		nonces,
		wallets,
		tokens,
		verifier.NewEd25519Verifier(),
		tokenizer.NewJWTTokenizer(signKey),
		events.NewWatermillPublisher(publisher),
		log,
		service.Config{
			Domain:       cfg.SIWS.Domain,
			URI:          cfg.SIWS.URI,
			Statement:    cfg.SIWS.Statement,
			Version:      cfg.SIWS.Version,
			ChainID:      cfg.SIWS.ChainID,
			ChallengeTTL: cfg.SIWS.ChallengeTTL,
			AccessTTL:    cfg.Token.AccessTTL,
			RefreshTTL:   cfg.Token.RefreshTTL,
		},
	)

	router := transporthttp.SetupRouter(authService)
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Server.Addr, "backend", string(cfg.Store.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
