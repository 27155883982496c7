package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/mediocregopher/radix/v3"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Skotchmaster/teslix_shop/internal/httpserver"
	"github.com/Skotchmaster/teslix_shop/internal/pricefeed"
	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/internal/search"
	"github.com/Skotchmaster/teslix_shop/internal/service"
	"github.com/Skotchmaster/teslix_shop/pkg/config"
	pkgdb "github.com/Skotchmaster/teslix_shop/pkg/db"
	"github.com/Skotchmaster/teslix_shop/pkg/events"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
	loggingmw "github.com/Skotchmaster/teslix_shop/pkg/middleware/logging"
	"github.com/Skotchmaster/teslix_shop/pkg/notify"
)

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	if err := repo.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}
	cancel()

	r := &repo.GormRepo{DB: db}

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		publisher = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var index service.ProductIndex
	if cfg.ESURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ix, err := search.NewESIndex(ctx, search.Config{
			URL:      cfg.ESURL,
			Username: cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		cancel()
		if err != nil {
			logger.Warn("search_index_disabled", "reason", "elasticsearch unreachable", "error", err)
		} else {
			index = ix
		}
	}

	var cache pricefeed.Cache = pricefeed.NewMemoryCache()
	var pool *radix.Pool
	if cfg.RedisAddr != "" {
		pool, err = radix.NewPool("tcp", cfg.RedisAddr, 10)
		if err != nil {
			log.Fatalf("redis pool: %v", err)
		}
		cache = pricefeed.NewRedisCache(pool)
	}
	feed := &pricefeed.CachedFeed{
		Next:   pricefeed.NewClient(cfg.PriceFeed.URL, cfg.PriceFeed.Currency, cfg.PriceFeed.Timeout),
		Cache:  cache,
		TTL:    cfg.PriceFeed.CacheTTL,
		Logger: logger,
	}

	var mailer notify.Mailer = notify.LogMailer{Logger: logger}
	if cfg.Mail.Host != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}

	authSvc := &service.AuthService{
		Repo:          r,
		JWTSecret:     cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Mailer:        mailer,
		PublicURL:     cfg.PublicURL,
		Events:        publisher,
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := authSvc.EnsureAdmin(logging.IntoContext(ctx, logger), cfg.AdminEmail, cfg.AdminPassword)
		cancel()
		if err != nil {
			log.Fatalf("ensure admin: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpserver.NewValidator()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.PublicURL},
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderContentType, httpserver.CSRFHeader},
	}))
	e.Use(echomw.Secure())

	httpserver.Register(e, &httpserver.Deps{
		Auth:    &httpserver.AuthHTTP{Svc: authSvc},
		Account: &httpserver.AccountHTTP{Svc: &service.AccountService{Repo: r, Events: publisher}},
		Catalog: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: r, Index: index, Events: publisher}},
		Cart:    &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Events: publisher}},
		Order: &httpserver.OrderHTTP{Svc: &service.OrderService{
			Repo:     r,
			Feed:     feed,
			Asset:    cfg.PriceFeed.Asset,
			Currency: cfg.PriceFeed.Currency,
			Events:   publisher,
		}},
		Payment: &httpserver.PaymentHTTP{
			Svc:    &service.PaymentService{Repo: r, Events: publisher},
			Secret: cfg.PaymentWebhookSecret,
		},
		JWTSecret: cfg.JWTAccessSecret,
		Refresher: authSvc,
		Ready:     func(ctx context.Context) error { return pkgdb.Ping(ctx, db) },
		RateLimit: rate.Limit(cfg.RateLimit),
		RateBurst: cfg.RateBurst,
		CSRF:      cfg.CSRFEnabled,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_error", "error", err)
	}
	closeAll(logger, db, producer, pool)
	logger.Info("storefront_stopped")
}

func closeAll(l *slog.Logger, db *gorm.DB, producer *events.Producer, pool *radix.Pool) {
	if producer != nil {
		if err := producer.Close(); err != nil {
			l.Error("kafka_close_error", "error", err)
		}
	}
	if pool != nil {
		if err := pool.Close(); err != nil {
			l.Error("redis_close_error", "error", err)
		}
	}
	if err := pkgdb.Close(db); err != nil {
		l.Error("db_close_error", "error", err)
	}
}
