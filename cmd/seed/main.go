// Command seed prepares a database for the reservation server: it
// applies the schema, backfills missing seat capacities, and optionally
// creates a customer account.
package main

import (
	"context"
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/auth"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/config"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
)

func main() {
	username := flag.String("username", "", "customer account to create or update")
	password := flag.String("password", "", "password for the customer account")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()
	cfg := config.Load(log)

	pool, err := database.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	if err := database.ApplySchema(ctx, pool); err != nil {
		log.WithError(err).Fatal("failed to apply schema")
	}
	log.Info("schema applied")

	tag, err := pool.Exec(ctx,
		`UPDATE flights SET capacity = $1 WHERE capacity <= 0`,
		cfg.DefaultCapacity,
	)
	if err != nil {
		log.WithError(err).Fatal("failed to backfill capacities")
	}
	if n := tag.RowsAffected(); n > 0 {
		log.WithFields(logrus.Fields{
			"flights":  n,
			"capacity": cfg.DefaultCapacity,
		}).Info("capacities backfilled")
	}

	if *username == "" {
		return
	}
	if *password == "" {
		log.Fatal("-password is required with -username")
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.WithError(err).Fatal("failed to hash password")
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO customers (username, password_hash) VALUES ($1, $2)
		 ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash`,
		*username, hash,
	)
	if err != nil {
		log.WithError(err).Fatal("failed to upsert customer")
	}
	log.WithField("username", *username).Info("customer ready")
}
