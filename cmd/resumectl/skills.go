package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resume-insights/internal/shared/config"
	"resume-insights/internal/shared/storage/db"
	"resume-insights/internal/skillgap"
)

type skillsOptions struct {
	sqlitePath  string
	useDatabase bool
	file        string
}

func newSkillsCmd(root *rootOptions) *cobra.Command {
	opts := &skillsOptions{}
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Manage the skill-gap catalogue",
	}
	cmd.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "SQLite catalogue path (default SQLITE_PATH)")
	cmd.PersistentFlags().BoolVar(&opts.useDatabase, "postgres", false, "use DATABASE_URL instead of SQLite")

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load the catalogue into the store, replacing existing courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSkillsRepo(cmd.Context(), root, opts, func(ctx context.Context, repo *skillgap.SQLRepo) error {
				catalog, err := loadCatalog(opts.file)
				if err != nil {
					return err
				}
				if err := repo.Seed(ctx, catalog); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d skills\n", len(catalog))
				return nil
			})
		},
	}
	seed.Flags().StringVarP(&opts.file, "file", "f", "", "YAML catalogue to load instead of the built-in one")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the stored catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSkillsRepo(cmd.Context(), root, opts, func(ctx context.Context, repo *skillgap.SQLRepo) error {
				skills, err := repo.Skills(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCatalogue(skills))
				return nil
			})
		},
	}

	cmd.AddCommand(seed, list)
	return cmd
}

func loadCatalog(path string) ([]skillgap.Skill, error) {
	if path == "" {
		return skillgap.DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	return skillgap.ParseCatalog(data)
}

func withSkillsRepo(ctx context.Context, root *rootOptions, opts *skillsOptions, fn func(context.Context, *skillgap.SQLRepo) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := root.load()
	if err != nil {
		return err
	}
	conn, repo, err := openSkillsRepo(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, repo)
}

func openSkillsRepo(ctx context.Context, cfg config.Config, opts *skillsOptions) (*sql.DB, *skillgap.SQLRepo, error) {
	if opts.useDatabase {
		dbOpts := db.OptionsFromEnv(db.DefaultMigrateOptions())
		dbOpts.Driver = cfg.DBDriver
		conn, err := db.Connect(ctx, cfg.DatabaseURL, dbOpts)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return conn, skillgap.NewSQLRepo(conn, skillgap.DialectPostgres), nil
	}

	path := opts.sqlitePath
	if path == "" {
		path = cfg.SQLitePath
	}
	conn, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	repo := skillgap.NewSQLRepo(conn, skillgap.DialectSQLite)
	if err := repo.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, repo, nil
}
