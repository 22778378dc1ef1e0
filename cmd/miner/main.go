package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"azubimine/internal/artifacts"
	"azubimine/internal/companysite"
	"azubimine/internal/config"
	"azubimine/internal/events"
	"azubimine/internal/extraction"
	"azubimine/internal/miner"
	"azubimine/internal/salary"
	"azubimine/internal/scraper"
	"azubimine/internal/store"
	"azubimine/internal/telemetry"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return zap.NewProduction()
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func newJobStore(cfg *config.Config, logger *zap.Logger) (store.JobStore, error) {
	return store.Open(cfg.PostgresDSN, logger)
}

func newSalaryResolver(cfg *config.Config, cache *redis.Client, logger *zap.Logger) *salary.Resolver {
	return salary.NewResolver(companysite.New(cfg, cache, logger), logger)
}

func newExtractionClient(cfg *config.Config, resolver *salary.Resolver, logger *zap.Logger) *extraction.Client {
	return extraction.NewClient(
		cfg.GeminiAPIKeys,
		cfg.GeminiModel,
		cfg.ExtractionTimeout,
		extraction.NewReplyNormalizer(resolver, logger),
		extraction.NewHeuristicParser(logger),
		logger,
	)
}

func newMiner(
	sc scraper.Scraper,
	client *extraction.Client,
	resolver *salary.Resolver,
	jobs store.JobStore,
	art *artifacts.Store,
	pub events.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *miner.Miner {
	return miner.New(sc, client, resolver, jobs, art, pub, cfg, logger)
}

func main() {
	sweep := flag.Bool("sweep", false, "run the verification sweep instead of a mining run")
	flag.Parse()
	if os.Getenv("MODE") == "sweep" {
		*sweep = true
	}

	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newRedisClient,
			newJobStore,
			scraper.New,
			newSalaryResolver,
			newExtractionClient,
			artifacts.NewStore,
			events.NewPublisher,
			newMiner,
		),
		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, m *miner.Miner, pub events.Publisher, cfg *config.Config, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					cleanup, err := telemetry.InitTracer(ctx, "azubimine", cfg.OTLPCollectorURL)
					if err != nil {
						return err
					}

					go func() {
						defer cleanup()
						defer pub.Close()

						runCtx := context.Background()
						if *sweep {
							stats, err := m.VerificationSweep(runCtx)
							if err != nil {
								logger.Error("verification sweep failed", zap.Error(err))
							} else {
								logger.Info("verification sweep finished",
									zap.Int("checked", stats.Checked),
									zap.Int("updated", stats.Updated),
									zap.Int("marked_inactive", stats.MarkedInactive))
							}
						} else {
							stats, err := m.Run(runCtx)
							if err != nil {
								logger.Error("mining run failed", zap.Error(err))
							} else {
								logger.Info("mining run finished",
									zap.Int("discovered", stats.Discovered),
									zap.Int("inserted", stats.Inserted),
									zap.Int("marked_inactive", stats.MarkedInactive))
							}
						}
						_ = shutdowner.Shutdown()
					}()
					return nil
				},
			})
		}),
	)

	app.Run()
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
}
