package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/versefeed/versefeed/internal/auth"
	"github.com/versefeed/versefeed/internal/config"
	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/handler"
	"github.com/versefeed/versefeed/internal/middleware"
	"github.com/versefeed/versefeed/internal/moderation"
	"github.com/versefeed/versefeed/internal/queue"
	"github.com/versefeed/versefeed/internal/repository"
	"github.com/versefeed/versefeed/internal/router"
	"github.com/versefeed/versefeed/internal/scheduler"
	"github.com/versefeed/versefeed/internal/service"
)

func main() {
	_ = godotenv.Load() // best effort; real deployments set env directly

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	verses := repository.NewVerseRepo(db)
	bans := repository.NewBanRepo(db)
	comments := repository.NewCommentRepo(db)
	interactions := repository.NewInteractionRepo(db)
	announcements := repository.NewAnnouncementRepo(db)
	settings := repository.NewSettingRepo(db)
	auditRepo := repository.NewAuditRepo(db)
	stats := repository.NewStatsRepo(db)

	// Domain services.
	engine := moderation.NewEngine(users, bans, cfg.BanCacheTTL)

	sched := scheduler.New(verses, settings, nil, cfg.VerseSourceTimeout, cfg.VerseCacheTTL)
	sched.Start()

	announcer := service.NewAnnouncer(announcements, auditRepo, settings)
	announcer.Start(ctx)

	// Broker consumers keep their own reconnect loops for the life of the
	// process.
	go func() {
		if err := queue.StartAnnouncementConsumer(); err != nil {
			log.Printf("announcement consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartModerationConsumer(); err != nil {
			log.Printf("moderation consumer stopped: %v", err)
		}
	}()

	// Optional Redis-backed middleware; both degrade to pass-through when
	// Redis is unreachable.
	rdb := config.NewRedisClient()
	mw := router.Middlewares{
		JWTSecret:   cfg.JWTSecret,
		Maintenance: middleware.Maintenance(cfg.Maintenance, settings),
		BanGate:     middleware.BanGate(engine),
	}
	if rdb != nil {
		mw.RateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		mw.Cache = middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	}

	provider := auth.NewProvider(cfg)
	h := router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, provider, users, engine, stats),
		Verses:        handler.NewVerseHandler(sched, verses, interactions, stats),
		Comments:      handler.NewCommentHandler(comments, engine, stats),
		Admin:         handler.NewAdminHandler(users, comments, auditRepo, stats, engine),
		Audit:         handler.NewAuditHandler(auditRepo),
		Announcements: handler.NewAnnouncementHandler(announcements, auditRepo),
		Settings:      handler.NewSettingsHandler(settings, auditRepo, sched),
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, h)
	router.RegisterAPI(e, h, mw)
	router.RegisterAdmin(e, h, mw)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, db.Kind)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
