package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/medstats/postop-followup/internal/config"
	"github.com/medstats/postop-followup/internal/database"
	"github.com/medstats/postop-followup/internal/handler"
	"github.com/medstats/postop-followup/internal/metric"
	"github.com/medstats/postop-followup/internal/middleware"
	"github.com/medstats/postop-followup/internal/queue"
	"github.com/medstats/postop-followup/internal/repository"
	"github.com/medstats/postop-followup/internal/router"
	queue_publisher "github.com/medstats/postop-followup/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env vars directly

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db, cfg.DBName); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	// Redis-backed rate limiting and GET caching. A nil client disables both.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache and rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	// Entry audit queue. No AMQP_URL means no publisher and no consumer;
	// handlers skip event delivery on a nil publish func. The consumer
	// reconnects on its own, so a broker outage never blocks startup.
	var publish handler.PublishFunc
	if cfg.AMQPURL != "" {
		publish = queue_publisher.New(cfg.AMQPURL).PublishEntryEvent
		go func() {
			if err := queue.StartEntryConsumer(cfg.AMQPURL); err != nil {
				log.Printf("entry-consumer stopped: %v", err)
			}
		}()
	} else {
		log.Printf("AMQP_URL not set; entry audit queue disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	auth := router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterRoutes(e)

	metricHandlers := make([]*handler.MetricHandler, 0, len(metric.All))
	for _, s := range metric.All {
		if err := s.Validate(); err != nil {
			log.Fatalf("schema: %v", err)
		}
		repo := repository.NewMetricRepo(db, s)
		metricHandlers = append(metricHandlers, handler.NewMetricHandler(s, repo, publish))
	}
	router.RegisterMetrics(auth, metricHandlers)
	router.RegisterJoined(auth, handler.NewJoinedHandler(repository.NewJoinedRepo(db)))
	router.RegisterRecords(auth, handler.NewRecordHandler(repository.NewRecordRepo(db), publish))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
