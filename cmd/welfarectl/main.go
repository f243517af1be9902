package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"welfare/internal/app"
	"welfare/internal/config"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "welfarectl",
		Short:         "Operator tool for the welfare fund backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(staffCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(reportCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is an open database (and optionally Redis) for one command run.
type env struct {
	cfg   *config.Config
	db    *sql.DB
	redis *redis.Client
}

func (e *env) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	_ = e.db.Close()
}

// openEnv loads configuration and connects to PostgreSQL, and to Redis when
// withRedis is set.
func openEnv(ctx context.Context, withRedis bool) (*env, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := app.NewDatabase(connectCtx, cfg.Database, nil)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, db: db}
	if withRedis {
		client, err := app.NewRedisClient(connectCtx, cfg.Redis, nil)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		e.redis = client
	}
	return e, nil
}

func (e *env) services() *app.Services {
	return app.NewServices(e.db, e.redis, nil, e.cfg, app.NewLogger())
}
