package main

import (
	"context"
	"log"
	"os"

	"campus/internal/account"
	"campus/internal/auth"
	"campus/internal/config"
	"campus/internal/notify"
	"campus/internal/store"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.NewDB(cfg.DatabaseURL, store.Options{MaxOpenConns: 2, MaxIdleConns: 1})
	errAndDie(err)
	defer db.Close()

	tokens := auth.NewTokens(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	refresh := auth.NewPostgresRefreshStore(db.Client)

	cli := commandLine{
		db:       db,
		accounts: account.NewService(account.NewPostgresRepository(db.Client), tokens, refresh),
		refresh:  refresh,
		gateway:  newGateway(ctx, cfg),
		out:      os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newGateway(ctx context.Context, cfg config.App) notify.Gateway {
	gw, err := notify.NewGateway(ctx, cfg.PushBackend, cfg.FirebaseCredentialsFile)
	if err != nil {
		logger.Printf("fcm unavailable, pushes will only be logged: %v", err)
		return notify.LogGateway{}
	}
	return gw
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
