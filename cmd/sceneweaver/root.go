package main

import (
	"fmt"
	"os"

	"github.com/aretw0/sceneweaver/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sceneweaver",
	Short: "Sceneweaver edits branching scenarios",
	Long: `Sceneweaver authors branching scenarios: steps joined by labelled choices.
It serves the editor API for a canvas front end, exposes the same editing
operations as MCP tools, and moves scenario documents between files, a local
library and the remote scenario store.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default sceneweaver.yaml)")
	rootCmd.PersistentFlags().String("store", "", "Scenario store: remote or library")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// bootstrap resolves the persistent flags into a ready App. Callers close it.
func bootstrap(cmd *cobra.Command) (*cli.App, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	store, _ := flags.GetString("store")
	level, _ := flags.GetString("log-level")
	format, _ := flags.GetString("log-format")
	return cli.Bootstrap(cli.Options{
		ConfigPath: configPath,
		Store:      store,
		LogLevel:   level,
		LogFormat:  format,
	})
}

// withApp runs fn with a bootstrapped App and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(app *cli.App) error) error {
	app, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("failed to close stores", "error", err)
		}
	}()
	return fn(app)
}
