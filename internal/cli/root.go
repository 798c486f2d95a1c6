// Package cli wires the cobra command tree. Commands resolve their
// collaborators (api client, stores, auth machine) from the dig
// container after configuration is loaded.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"querydesk/config"
	"querydesk/internal/auth"
	"querydesk/internal/di"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "querydesk",
	Short: "Terminal client for the QueryDesk platform",
	Long: `Ask questions of your databases in plain language.

querydesk talks to a QueryDesk platform backend: register data sources,
chat with them in natural language, and annotate discovered schemas so
the generated SQL gets better.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		applyOverrides()
		di.Initialize()
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.querydesk.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "Base URL of the QueryDesk backend")
	rootCmd.PersistentFlags().String("storage-backend", "", "Local storage backend: file, redis or memory")

	viper.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("storage.backend", rootCmd.PersistentFlags().Lookup("storage-backend"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".querydesk")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("QUERYDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// applyOverrides lets flags and the config file win over the
// environment defaults loaded by config.LoadEnv.
func applyOverrides() {
	if url := viper.GetString("api.url"); url != "" {
		config.Env.APIBaseURL = url
	}
	if backend := viper.GetString("storage.backend"); backend != "" {
		config.Env.StorageBackend = backend
	}
	if dir := viper.GetString("storage.dir"); dir != "" {
		config.Env.StorageDir = dir
	}
	if passphrase := viper.GetString("storage.passphrase"); passphrase != "" {
		config.Env.StoragePassphrase = passphrase
	}
}

// requireAuth restores the session and fails when no valid token is
// available.
func requireAuth(ctx context.Context, app di.App) error {
	if app.Auth.State() == auth.StateAuthenticated {
		return nil
	}
	if app.Auth.Restore(ctx) != auth.StateAuthenticated {
		return errors.New("not logged in, run `querydesk login` first")
	}
	return nil
}
