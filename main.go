// Kasupel — chess matchmaking and play server.
//
//	@title			Kasupel API
//	@description	Chess matchmaking and play server.
//	@license.name	MIT
package main

import (
	"context"
	"database/sql"
	_ "embed"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	_ "kasupel/internal/docs"
	"kasupel/internal/accounts"
	"kasupel/internal/config"
	"kasupel/internal/db"
	"kasupel/internal/envelope"
	"kasupel/internal/gamestore"
	"kasupel/internal/hub"
	"kasupel/internal/httpapi"
	"kasupel/internal/matchmaker"
	"kasupel/internal/notify"
	"kasupel/internal/session"
	"kasupel/internal/sweeper"
)

//go:embed schema.sql
var databaseSchema string

func main() {
	cmd := config.NewCommand(run)
	if err := cmd.Execute(); err != nil {
		slog.Error("kasupel: fatal", "error", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	ctx := context.Background()

	conn, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, databaseSchema); err != nil {
		return err
	}

	sweepInterval, err := time.ParseDuration(cfg.SweepInterval)
	if err != nil {
		return err
	}

	queries := db.New(conn)
	keyPair, err := envelope.LoadKeyPair(cfg.RSAKeyPath)
	if err != nil {
		return err
	}

	sessions := session.New(queries)
	notifications := notify.New(queries)
	h := hub.New()
	notifications.SetLiveDeliverer(h)

	games := gamestore.New(queries, h, notifications)
	mm := matchmaker.New(games, notifications)
	accts := accounts.New(queries, sessions, notifications, nil, nil)

	srv := httpapi.New(httpapi.Server{
		Accounts:   accts,
		Sessions:   sessions,
		Matchmaker: mm,
		Games:      games,
		DB:         queries,
		Notify:     notifications,
		Envelope:   keyPair,
	})

	sw := sweeper.New(h, sessions, sweepInterval)
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go sw.Run(sweepCtx)

	slog.Info("kasupel: listening", "bind", cfg.Bind, "port", cfg.Port)
	return srv.Start(cfg.Bind + ":" + strconv.Itoa(cfg.Port))
}
