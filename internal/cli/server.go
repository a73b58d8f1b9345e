package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"phish-party-service/internal/app"
	"phish-party-service/internal/config"
	"phish-party-service/internal/content"
	"phish-party-service/internal/game"
	"phish-party-service/internal/infra/memory"
	"phish-party-service/internal/infra/postgres"
	redisstore "phish-party-service/internal/infra/redis"
	transport "phish-party-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	catalog, err := content.Default()
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionSetLoader = memory.NewStaticQuestionSetLoader(catalog.QuestionSets())
	if pool != nil {
		loader = postgres.NewQuestionSetLoader(pool)
	}

	contentTTL := config.Duration(cfg.Content.TTL, 10*time.Minute)
	var sets app.QuestionSetRepository
	if redisClient != nil {
		sets = redisstore.NewQuestionSetRepository(redisClient, loader, contentTTL)
	} else {
		sets = memory.NewQuestionSetRepository(loader, contentTTL)
	}

	var rooms app.RoomRepository
	if redisClient != nil {
		rooms = redisstore.NewRoomStore(redisClient, redisTTL)
	} else {
		rooms = memory.NewRoomStore()
	}

	roomService := app.NewRoomService(rooms, sets, settingsFromConfig(cfg.Game))
	contentService := app.NewContentService(catalog, cfg.Game.HintPenalty())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", transport.NewWSHandler(roomService).ServeWS)
	transport.NewAPIHandler(roomService, contentService).Register(mux)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", finalPort).Bool("redis", redisClient != nil).Bool("postgres", pool != nil).Msg("starting phish party service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		roomService.RunReaper(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// settingsFromConfig maps the game section onto engine settings, keeping the
// engine defaults for anything left unset.
func settingsFromConfig(c config.Game) app.Settings {
	s := app.DefaultSettings()
	if c.QuestionTimeLimit > 0 {
		s.QuestionTimeLimit = c.QuestionTimeLimit
	}
	if c.BasePoints > 0 {
		s.Rules.BasePoints = c.BasePoints
	}
	s.Timing.PollInterval = config.Duration(c.PollInterval, game.DefaultPollInterval)
	s.Timing.AutoAdvance = config.Duration(c.AutoAdvance, s.Timing.AutoAdvance)
	s.Timing.ExplanationDelay = config.Duration(c.ExplanationDelay, s.Timing.ExplanationDelay)
	s.Timing.CluesDelay = config.Duration(c.CluesDelay, s.Timing.CluesDelay)
	s.RoomIdleTimeout = config.Duration(c.RoomIdleTimeout, s.RoomIdleTimeout)
	if c.RevealWhenAllAnswered != nil {
		s.Timing.RevealWhenAllAnswered = *c.RevealWhenAllAnswered
	}
	return s
}
