package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/caremgr/caremgr/internal/config"
	"github.com/caremgr/caremgr/internal/domain/account"
	"github.com/caremgr/caremgr/internal/platform/db"
	"github.com/caremgr/caremgr/internal/platform/metrics"
	"github.com/caremgr/caremgr/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "caremgr-server",
		Short: "Care management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(memberCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run PostgreSQL migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator, schema string) error {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator, schema string) error {
				statuses, err := m.Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(statusCmd)
	return cmd
}

func withMigrator(fn func(ctx context.Context, m *db.Migrator, schema string) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.DriverPostgres {
		return fmt.Errorf("migrations only apply to STORE_DRIVER=%s", config.DriverPostgres)
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBSchema)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, migrations.FS), cfg.DBSchema)
}

func memberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage login members",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a login member",
		RunE: func(cmd *cobra.Command, args []string) error {
			login, _ := cmd.Flags().GetString("login")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			if login == "" || password == "" {
				return fmt.Errorf("--login and --password are required")
			}
			return withAccounts(func(ctx context.Context, svc *account.Service) error {
				m, err := svc.CreateMember(ctx, &account.NewMember{Login: login, Password: password, Role: role})
				if err != nil {
					return err
				}
				fmt.Printf("Created member %s (%s) with id %d\n", m.Login, m.Role, m.ID)
				return nil
			})
		},
	}
	createCmd.Flags().String("login", "", "Login name")
	createCmd.Flags().String("password", "", "Password (8 to 72 characters)")
	createCmd.Flags().String("role", account.RoleMember, "Role: member or admin")
	cmd.AddCommand(createCmd)

	for _, active := range []bool{false, true} {
		use, verb, short := "disable", "Disabled", "Stop a member from logging in"
		if active {
			use, verb, short = "enable", "Enabled", "Let a disabled member log in again"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use + " LOGIN",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAccounts(func(ctx context.Context, svc *account.Service) error {
					if err := svc.SetMemberActive(ctx, args[0], active); err != nil {
						return err
					}
					fmt.Printf("%s member %s\n", verb, args[0])
					return nil
				})
			},
		})
	}
	return cmd
}

// withAccounts opens the configured store for a one-off account command.
func withAccounts(fn func(ctx context.Context, svc *account.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver == config.DriverMemory {
		return fmt.Errorf("changes to the memory store do not outlive this command")
	}
	logger := newLogger(cfg)
	ctx := context.Background()
	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	a, err := newApp(cfg, backend, logger, nil)
	if err != nil {
		return err
	}
	return fn(ctx, a.accounts)
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeBackend()

	reg := newRegistry()
	a, err := newApp(cfg, backend, logger, metrics.New(reg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}
	if err := a.seed(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed admin")
	}

	return serve(newServer(cfg, backend, a, reg, logger), ":"+cfg.Port, logger)
}

// serve runs e until SIGINT or SIGTERM, then drains in-flight requests.
func serve(e *echo.Echo, addr string, logger zerolog.Logger) error {
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
