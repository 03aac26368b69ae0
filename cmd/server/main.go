package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/auth"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/booking"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/config"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/handlers"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/router"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/search"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/service"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/session"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/ws"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()
	cfg := config.Load(log)

	pool, err := database.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	store := database.NewStore(pool)
	engine := booking.NewEngine(booking.PgxStore{DB: store}, log)

	hub := ws.NewHub(log)
	go hub.Run()

	svc := service.NewReservationService(
		booking.PgxStore{DB: store},
		auth.NewService(pool),
		search.NewService(pool),
		engine,
		session.NewManager(),
		hub,
		service.Config{BookRetryAttempts: cfg.BookRetryAttempts},
		log,
	)

	h := handlers.NewHandler(svc)
	r := router.SetupRouter(h, hub)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
