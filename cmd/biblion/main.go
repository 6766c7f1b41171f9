package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/internal/config"
	"github.com/totegamma/biblion/internal/infra/database"
)

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:          "biblion",
		Short:        "biblion publication record node",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/biblion/config.yaml", "path to the config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	load := func() (config.Config, error) {
		return config.Load(configPath)
	}

	cmd.AddCommand(newServeCommand(load))
	cmd.AddCommand(newMigrateCommand(load))
	cmd.AddCommand(newAddressCommand(load))

	return cmd
}

type loader func() (config.Config, error)

func newMigrateCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := load()
			if err != nil {
				return err
			}

			db, err := database.NewPostgres(conf.Server.PostgresDsn)
			if err != nil {
				return fmt.Errorf("failed to connect database: %w", err)
			}

			err = database.MigratePostgres(db)
			if err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			slog.Info("migration finished", slog.String("module", "main"))
			return nil
		},
	}
}

func newAddressCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "print the account and node address of the configured key",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := load()
			if err != nil {
				return err
			}

			account, err := biblion.PrivKeyToAddr(conf.NodeInfo.PrivateKey, biblion.AccountPrefix)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "account: %s\nnode:    %s\nadmin:   %s\n", account, conf.NodeInfo.NodeID, conf.NodeInfo.AdminAddress)
			return nil
		},
	}
}
