package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/small-engineer/go-web-serv/account/internal/adapter/httpadapter"
	"github.com/small-engineer/go-web-serv/account/internal/config"
	"github.com/small-engineer/go-web-serv/account/internal/logging"
	"github.com/small-engineer/go-web-serv/account/internal/usecase/auth"
)

const shutdownTimeout = 10 * time.Second

var configFile string

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account-server",
		Short: "Account service: register, login and session identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.Flags(), config.Default())

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.Setup(cfg.Log.Format, cfg.Log.Level, os.Stderr)

	users, closeUsers, err := openUsers(ctx, cfg)
	if err != nil {
		log.Error("open user store", "store", cfg.Store.Users, "err", err)
		return err
	}
	defer closeUsers()

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		log.Error("open session store", "store", cfg.Store.Sessions, "err", err)
		return err
	}
	defer closeSessions()

	svc := auth.NewService(users, auth.NewArgon2Hasher(cfg.Argon2), log)
	s, err := httpadapter.NewServer(svc, sessions, httpadapter.Options{
		Secret:          []byte(cfg.Session.Secret),
		CookieName:      cfg.Session.CookieName,
		SessionTTL:      cfg.Session.TTL,
		SecureCookie:    cfg.Session.Secure,
		RequireCallerID: cfg.Auth.RequireCallerID,
		Logger:          log,
	})
	if err != nil {
		return err
	}

	hs := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("start server", "addr", cfg.HTTP.Addr, "users", cfg.Store.Users, "sessions", cfg.Store.Sessions)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Error("server stopped", "err", err)
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return hs.Shutdown(sctx)
}
