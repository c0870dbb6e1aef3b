package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mx-space/comments/internal/app"
	"github.com/mx-space/comments/internal/config"
	"github.com/mx-space/comments/internal/database"
	"github.com/mx-space/comments/internal/pkg/jwt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// env is the state shared by all subcommands, set up before any of them runs.
type env struct {
	configPath string
	verbose    bool

	cfg    *config.AppConfig
	db     *gorm.DB
	svc    *app.Services
	logger *zap.Logger
}

func rootCommand() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:          "commentctl",
		Short:        "Comments maintenance CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&e.configPath, "config", "c", config.DefaultConfigPath, "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Log service activity to stderr")

	rootCmd.AddCommand(
		purgeCommand(e),
		publishCommand(e),
		memberCommand(e),
		issueTokenCommand(e),
		webhookCommand(e),
	)
	return rootCmd
}

func (e *env) setup() error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	e.cfg = cfg
	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		jwt.SetSecret(secret)
	}

	e.logger = zap.NewNop()
	if e.verbose {
		if e.logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	e.db = db
	// visitor state is only needed by the HTTP server
	e.svc = app.NewServices(cfg, db, nil, e.logger)
	return nil
}

// close waits for webhook deliveries started by the command and releases
// the database.
func (e *env) close() error {
	var errs []error
	if e.svc != nil {
		e.svc.Webhooks.Wait()
	}
	if e.db != nil {
		if sqlDB, err := e.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	return errors.Join(errs...)
}
