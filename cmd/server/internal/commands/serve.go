package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"socialhub-backend/internal/auth"
	"socialhub-backend/internal/cache"
	"socialhub-backend/internal/config"
	"socialhub-backend/internal/events"
	"socialhub-backend/internal/handlers"
	"socialhub-backend/internal/logger"
	"socialhub-backend/internal/media"
	"socialhub-backend/internal/notify"
	"socialhub-backend/internal/storage"
	"socialhub-backend/internal/storage/memory"
	"socialhub-backend/internal/telemetry"
	"socialhub-backend/internal/workers"
)

const serviceName = "socialhub-backend"

var (
	connectDB = storage.Connect
	migrateDB = storage.Migrate
)

type ServeCmd struct {
	Listen string `help:"HTTP listen address; overrides HTTP_ADDR" default:""`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, l, err := setup(globals)
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.HTTPAddr = c.Listen
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint, cfg.OTLPInsecure)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var limiter cache.Client
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		limiter = rc
	} else {
		log.Warn().Msg("REDIS_URL not set; auth rate limiting disabled")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(events.Options{
			URL:      cfg.NATSURL,
			NKeySeed: cfg.NATSNKeySeed,
			UserJWT:  cfg.NATSUserJWT,
		})
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer nc.Close()
		publisher = nc
	} else {
		log.Warn().Msg("NATS_URL not set; post events are not published")
	}
	if cfg.SlackWebhookURL != "" {
		publisher = events.Fanout{publisher, notify.NewSlackNotifier(cfg.SlackWebhookURL)}
	}

	uploads, err := media.NewStore(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("uploads: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL(), cfg.InvitationTTL())
	if err != nil {
		return err
	}

	h := handlers.New(handlers.Deps{
		Store:       store,
		Tokens:      tokens,
		Hasher:      auth.NewHasher(cfg.BcryptCost),
		Media:       uploads,
		Events:      publisher,
		Limiter:     limiter,
		FrontendURL: cfg.FrontendURL,
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(logger.Requests(l)...)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOriginList(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)
	h.RegisterRoutes(r)

	workers.NewPublishScheduler(store, publisher, cfg.PublishEvery()).Start(ctx)

	srv := configureHTTPServer(cfg.HTTPAddr, telemetry.Handler(r, serviceName))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("version", globals.Version).Str("store", cfg.StoreType).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// openStore returns the configured store and a func releasing its resources.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	if cfg.StoreType == config.StoreTypeMemory {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	// Connect retries until the database answers; migrations run after it.
	db, err := connectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("db close")
		}
	}

	if cfg.AutoMigrate {
		if err := migrateDB(cfg.DatabaseURL, "up"); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("migrations applied")
	}
	return storage.NewStorage(db), closeDB, nil
}
