// Command koopctl runs the koop maintenance tasks: data export and import,
// weekly resets and order deadline upkeep. Schedule the periodic ones with cron.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"koop-backend/internal/cache"
	"koop-backend/internal/config"
	"koop-backend/internal/cycle"
	"koop-backend/internal/database"
	"koop-backend/internal/jobs"
	"koop-backend/internal/logger"
	"koop-backend/internal/mail"
	"koop-backend/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// env is what every command works on, built once before the command runs.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *gorm.DB
	cycle  *cycle.Cycle
	svc    *server.Services
	runner *jobs.Runner
}

func (e *env) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := database.Init(cfg, log); err != nil {
		return err
	}
	settings, err := cycle.SettingsFromConfig(cfg)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c := cycle.New(settings, nil)
	svc := server.NewServices(server.Deps{
		DB:          database.DB,
		Cycle:       c,
		Cache:       cache.Open(pingCtx, cfg.Redis, log),
		Log:         log,
		DefaultFund: cfg.DefaultUserFund,
	})

	*e = env{
		cfg:   cfg,
		log:   log,
		db:    database.DB,
		cycle: c,
		svc:   svc,
		runner: jobs.New(jobs.Deps{
			DB:      database.DB,
			Cycle:   c,
			Orders:  svc.Orders,
			Mailer:  mail.New(cfg.Email, log),
			Catalog: svc.Catalog,
			Log:     log,
		}),
	}
	return nil
}

func main() {
	e := &env{}
	root := &cobra.Command{
		Use:           "koopctl",
		Short:         "Maintenance tasks for the koop ordering service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return e.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}

	root.AddCommand(
		exportCmd(e),
		importCmd(e),
		resetDeliveredCmd(e),
		setDeadlineCmd(e),
		advanceDeadlinesCmd(e),
		sendSummariesCmd(e),
		seedWeightSchemesCmd(e),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "koopctl:", err)
		os.Exit(1)
	}
}
