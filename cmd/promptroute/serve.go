package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/zen-systems/promptroute/pkg/cache"
	"github.com/zen-systems/promptroute/pkg/classifier"
	"github.com/zen-systems/promptroute/pkg/config"
	"github.com/zen-systems/promptroute/pkg/dispatch"
	"github.com/zen-systems/promptroute/pkg/feedback"
	"github.com/zen-systems/promptroute/pkg/gateway"
	"github.com/zen-systems/promptroute/pkg/handlers"
	"github.com/zen-systems/promptroute/pkg/preference"
	"github.com/zen-systems/promptroute/pkg/router"
	"github.com/zen-systems/promptroute/pkg/store"
)

const memoryCacheSweepInterval = 10 * time.Minute

func serveCmd() *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the routing HTTP service",
		Long: `Starts the HTTP service that classifies, adjusts, caches, and
	dispatches user requests. Backends (preference store, result cache,
	inference gateway) are selected by the config file and environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if addrFlag != "" {
				cfg.Server.Addr = addrFlag
			}
			return runServer(cfg)
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides config)")

	return cmd
}

// stores bundles the persistence backends so serve and stats share one
// construction path.
type stores struct {
	Preferences preference.Store
	Samples     feedback.SampleStore
	closers     []func() error
}

func (s *stores) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Warn("store close failed", "error", err)
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		s, err := store.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return &stores{Preferences: s, Samples: s, closers: []func() error{s.Close}}, nil
	case config.BackendMongo:
		s, err := store.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		return &stores{Preferences: s, Samples: s, closers: []func() error{
			func() error { return s.Close(context.Background()) },
		}}, nil
	default:
		s := store.NewMemoryStore()
		return &stores{Preferences: s, Samples: s}, nil
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Store, func() error, error) {
	if cfg.Cache.Backend == config.BackendRedis {
		s, err := cache.NewRedisStore(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return s, s.Close, nil
	}
	return cache.NewMemoryStore(memoryCacheSweepInterval), nil, nil
}

func createGateway(cfg *config.Config) (gateway.Client, error) {
	switch cfg.Gateway.Provider {
	case "anthropic":
		return gateway.NewAnthropicClient(cfg.Gateway.AnthropicAPIKey)
	case "openai":
		return gateway.NewOpenAIClient(cfg.Gateway.OpenAIAPIKey)
	case "google":
		return gateway.NewGoogleClient(cfg.Gateway.GoogleAPIKey)
	default:
		return gateway.NewMockClient(), nil
	}
}

func buildEngine(ctx context.Context, cfg *config.Config) (*router.Engine, *stores, func(), error) {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	cacheStore, cacheClose, err := openCache(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	if cacheClose != nil {
		st.closers = append(st.closers, cacheClose)
	}

	client, err := createGateway(cfg)
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("failed to create gateway client: %w", err)
	}

	handlerSet := handlers.All(client, handlers.ModelSet{
		DirectEdit:   cfg.Gateway.Models.DirectEdit,
		FeatureBuild: cfg.Gateway.Models.FeatureBuild,
		MetaChat:     cfg.Gateway.Models.MetaChat,
		Refactor:     cfg.Gateway.Models.Refactor,
	})

	engine := router.NewEngine(
		st.Preferences,
		preference.NewAdapter(cfg.Routing.Thresholds),
		cache.New(cacheStore, cfg.Routing.CacheTTL, cache.WithMetrics(cache.NewMetrics(nil))),
		dispatch.New(handlerSet, dispatch.WithTimeout(cfg.Routing.DispatchTimeout)),
		feedback.NewRecorder(st.Preferences, st.Samples, feedback.WithMetrics(feedback.NewMetrics(nil))),
	)

	cleanup := func() { st.Close() }
	return engine, st, cleanup, nil
}

func runServer(cfg *config.Config) error {
	ctx := context.Background()

	engine, st, cleanup, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	app := fiber.New(fiber.Config{
		AppName:      "promptroute",
		ReadTimeout:  15 * time.Minute,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  15 * time.Minute,
	})

	app.Use(recover.New())

	prometheus := fiberprometheus.New("promptroute")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	registerRoutes(app, engine, st)

	shutdownDone := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		slog.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
		close(shutdownDone)
	}()

	slog.Info("listening", "addr", cfg.Server.Addr, "store", cfg.Store.Backend,
		"cache", cfg.Cache.Backend, "provider", cfg.Gateway.Provider)
	if err := app.Listen(cfg.Server.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	<-shutdownDone
	return nil
}

type routeRequest struct {
	Text      string         `json:"text"`
	UserID    string         `json:"user_id"`
	ProjectID string         `json:"project_id"`
	Context   map[string]any `json:"context"`
}

func registerRoutes(app *fiber.App, engine *router.Engine, st *stores) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	api.Post("/route", func(c *fiber.Ctx) error {
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		resp, err := engine.Handle(c.Context(), dispatch.Request{
			Text:      req.Text,
			UserID:    req.UserID,
			ProjectID: req.ProjectID,
			Context:   req.Context,
		})
		if err != nil {
			status := fiber.StatusBadRequest
			if err != classifier.ErrEmptyRequest && err != router.ErrMissingUser {
				status = fiber.StatusInternalServerError
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(resp)
	})

	api.Post("/classify", func(c *fiber.Ctx) error {
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		decision, err := classifier.Classify(req.Text)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(decision)
	})

	api.Get("/users/:id/preferences", func(c *fiber.Ctx) error {
		prefs, err := st.Preferences.LoadPreferences(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"user_id": c.Params("id"), "preferences": prefs})
	})
}
