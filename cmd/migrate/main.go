package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"pioerp/config"
	"pioerp/internal/pkg/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Aviso: arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema: %v", err)
	}

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Migrações do banco do PIOERP (goose)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "./sql", "diretório com os arquivos de migração")

	cmd.AddCommand(
		gooseCmd("up [versão]", "Aplica as migrações pendentes (até a versão, se informada)", cobra.MaximumNArgs(1), &dir,
			func(db *sql.DB, dir string, args []string) error {
				if len(args) == 1 {
					v, err := strconv.ParseInt(args[0], 10, 64)
					if err != nil {
						return fmt.Errorf("versão inválida %q: %w", args[0], err)
					}
					return goose.UpTo(db, dir, v)
				}
				return goose.Up(db, dir)
			}),
		gooseCmd("down", "Reverte a última migração", cobra.NoArgs, &dir,
			func(db *sql.DB, dir string, _ []string) error { return goose.Down(db, dir) }),
		gooseCmd("status", "Lista as migrações e seu estado", cobra.NoArgs, &dir,
			func(db *sql.DB, dir string, _ []string) error { return goose.Status(db, dir) }),
		gooseCmd("version", "Mostra a versão atual do schema", cobra.NoArgs, &dir,
			func(db *sql.DB, dir string, _ []string) error { return goose.Version(db, dir) }),
		gooseCmd("reset", "Reverte todas as migrações", cobra.NoArgs, &dir,
			func(db *sql.DB, dir string, _ []string) error { return goose.Reset(db, dir) }),
	)
	return cmd
}

func gooseCmd(use, short string, nargs cobra.PositionalArgs, dir *string, fn func(*sql.DB, string, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  nargs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			db, err := database.NewPostgresDB(database.PoolConfig{
				DSN:            cfg.DatabaseURL,
				MaxOpenConns:   2,
				ConnectTimeout: cfg.DBConnectTimeout,
			})
			if err != nil {
				return fmt.Errorf("goose: falha ao conectar ao DB: %w", err)
			}
			defer db.Close()

			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}
			if err := fn(db, *dir, args); err != nil {
				return fmt.Errorf("goose %s: %w", cmd.Name(), err)
			}
			fmt.Printf("goose %s: ok\n", cmd.Name())
			return nil
		},
	}
}
