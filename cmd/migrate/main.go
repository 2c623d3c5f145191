package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Tiempo-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Tiempo-api/pkg/config"
	"github.com/jhoicas/Tiempo-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	// withMigrator abre el pool y ejecuta fn con el migrador embebido.
	withMigrator := func(ctx context.Context, fn func(*postgres.Migrator) error) error {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()
		m, err := postgres.NewMigrator(pool, log.Zerolog())
		if err != nil {
			return err
		}
		return fn(m)
	}

	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Migraciones de esquema de Tiempo API",
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Aplica las migraciones pendientes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *postgres.Migrator) error { return m.Up(cmd.Context()) })
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Muestra migraciones aplicadas y pendientes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *postgres.Migrator) error { return m.Status(cmd.Context()) })
		},
	}

	var target int64
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revierte la última migración o hasta --target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *postgres.Migrator) error { return m.Down(cmd.Context(), target) })
		},
	}
	downCmd.Flags().Int64Var(&target, "target", 0, "versión destino (0 revierte solo la última)")

	rootCmd.AddCommand(upCmd, statusCmd, downCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("migración fallida")
		os.Exit(1)
	}
}
