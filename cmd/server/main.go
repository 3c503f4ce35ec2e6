package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/zyncjobs/backend/internal/ai"
	"github.com/zyncjobs/backend/internal/config"
	"github.com/zyncjobs/backend/internal/es"
	"github.com/zyncjobs/backend/internal/handlers"
	"github.com/zyncjobs/backend/internal/logging"
	"github.com/zyncjobs/backend/internal/mail"
	authmw "github.com/zyncjobs/backend/internal/middleware/auth"
	"github.com/zyncjobs/backend/internal/mykafka"
	"github.com/zyncjobs/backend/internal/rate"
	"github.com/zyncjobs/backend/internal/service"
	httpserver "github.com/zyncjobs/backend/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		logging.New("info").Error("config error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		logger.Error("db init failed", "error", err)
		os.Exit(1)
	}

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			logger.Warn("kafka unavailable, events disabled", "error", err)
			producer = nil
		}
	}

	tokens := &service.TokenService{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
		Degraded:      configuration.Degraded(),
	}

	var mailer mail.Sender
	if configuration.SMTP_SERVER != "" {
		smtp, err := mail.NewSMTPMailer(configuration.SMTP_SERVER, configuration.SMTP_PORT, configuration.SMTP_EMAIL, configuration.SMTP_PASSWORD)
		if err != nil {
			logger.Warn("smtp config invalid, mail disabled", "error", err)
			mailer = &mail.LogSender{Logger: logger}
		} else {
			mailer = smtp
		}
	} else {
		mailer = &mail.LogSender{Logger: logger}
	}

	resetSvc := &service.ResetService{
		DB:          db,
		Mailer:      mailer,
		Tokens:      tokens,
		FrontendURL: configuration.FRONTEND_URL,
	}

	var limiter *rate.Limiter
	if configuration.REDIS_ADDR != "" {
		rdb := redis.NewClient(&redis.Options{Addr: configuration.REDIS_ADDR})
		limiter = rate.New(rdb, rate.DefaultConfig())
	}

	var generator ai.Generator
	if configuration.AI_API_KEY != "" {
		generator = ai.NewClient(configuration.AI_API_URL, configuration.AI_API_KEY, configuration.AI_MODEL)
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := logger.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))
			return next(c)
		}
	})

	guard := &authmw.Guard{DB: db, JWTSecret: []byte(configuration.JWT_SECRET)}

	deps := httpserver.Deps{
		DB:                 db,
		Guard:              guard,
		AuthHandler:        &handlers.AuthHandler{DB: db, Tokens: tokens, Reset: resetSvc, Producer: producerOrNil(producer), Limiter: limiter},
		ApplicationHandler: &handlers.ApplicationHandler{DB: db, Producer: producerOrNil(producer)},
		CompanyHandler:     &handlers.CompanyHandler{DB: db},
		ChatHandler:        &handlers.ChatHandler{AI: generator},
		ResumeHandler:      &handlers.ResumeHandler{AI: generator},
	}

	jobHandler := &handlers.JobHandler{DB: db, Producer: producerOrNil(producer)}
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		} else {
			jobHandler.ES = esClient
			deps.SearchHandler = &handlers.SearchHandler{ES: esClient, Index: es.JobIndex}
		}
	}
	if deps.SearchHandler == nil {
		deps.SearchHandler = &handlers.SearchHandler{}
	}
	deps.JobHandler = jobHandler

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("server started", "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// producerOrNil keeps a typed nil *Producer out of the Publisher interface.
func producerOrNil(p *mykafka.Producer) mykafka.Publisher {
	if p == nil {
		return nil
	}
	return p
}
