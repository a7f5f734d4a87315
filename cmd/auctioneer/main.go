package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/draftworks/auctioneer/internal/auction"
	"github.com/draftworks/auctioneer/internal/broadcast"
	"github.com/draftworks/auctioneer/internal/commands"
	"github.com/draftworks/auctioneer/internal/config"
	"github.com/draftworks/auctioneer/internal/pickstore"
	"github.com/draftworks/auctioneer/internal/players"
	"github.com/draftworks/auctioneer/internal/snapshot"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	nc, err := broadcast.Connect(cfg.NatsURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	log.Info().
		Str("database", cfg.DB.Database).
		Str("nats_url", cfg.NatsURL).
		Msg("starting auction engine")

	manager := auction.NewManager(
		auction.Deps{
			Snapshots: snapshot.NewStore(rdb),
			Picks:     pickstore.NewRepository(pool),
			Players:   players.NewRepository(pool),
			Broadcast: broadcast.NewNATSPublisher(nc),
		},
		auction.Config{
			BidWindow:          cfg.Timings.BidWindow(),
			NominationWindow:   cfg.Timings.NominationWindow(),
			AutoBidMinDelay:    cfg.Timings.AutoBidMinDelay(),
			AutoBidMaxDelay:    cfg.Timings.AutoBidMaxDelay(),
			NominationPoolSize: cfg.Timings.PoolSize(),
		},
		clockwork.NewRealClock(),
	)

	consumer := commands.NewConsumer(nc, manager)
	if err := consumer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start command consumer")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	consumer.Stop()
	manager.Shutdown()
	log.Info().Msg("shutdown complete")
}
