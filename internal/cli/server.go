package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizhost-session-service/internal/config"
	"quizhost-session-service/internal/domain"
	"quizhost-session-service/internal/engine"
	"quizhost-session-service/internal/infra/memory"
	pgloader "quizhost-session-service/internal/infra/postgres"
	redisinfra "quizhost-session-service/internal/infra/redis"
	transport "quizhost-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 12*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.GameLoader = memory.NewStaticGameLoader(sampleGames())
	if pool != nil {
		loader = pgloader.NewGameLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog engine.GameCatalog
	if redisClient != nil {
		catalog = redisinfra.NewGameCatalog(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewGameCatalog(loader, catalogTTL)
	}

	var store engine.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore()
	}
	sessionEngine := engine.New(store, catalog)
	handler := transport.NewHandler(sessionEngine)
	observer := transport.NewObserver(sessionEngine)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("GET /admin/sessions/{sessionID}/watch", observer.ServeWatch)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleGames provides a minimal demo catalog; swap the loader for the
// Postgres-backed one in production.
func sampleGames() map[string]domain.Game {
	return map[string]domain.Game{
		"game-1": {
			ID:      "game-1",
			OwnerID: "admin-1",
			Name:    "Warmup trivia",
			Questions: []domain.Question{
				{
					Text:            "What is 2 + 2?",
					Kind:            domain.KindSingle,
					DurationSeconds: 30,
					Points:          10,
					Options: []domain.AnswerOption{
						{Text: "3", Correct: false},
						{Text: "4", Correct: true},
						{Text: "5", Correct: false},
					},
				},
				{
					Text:            "The sky is blue.",
					Kind:            domain.KindJudgement,
					DurationSeconds: 15,
					Points:          5,
					Options: []domain.AnswerOption{
						{Text: "True", Correct: true},
						{Text: "False", Correct: false},
					},
				},
			},
		},
	}
}
