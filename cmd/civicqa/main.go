// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the civicqa CLI. It answers locality
// questions from the terminal (ask), over HTTP (serve), and loads fixture
// records into the local store (seed).
package main

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/civicqa/internal/logging"
	"github.com/pdiddy/civicqa/internal/secrets"
	"github.com/pdiddy/civicqa/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Process-wide state filled in by PersistentPreRunE.
var (
	appConfig     types.AppConfig
	logger        *log.Logger
	loadedSecrets secrets.Secrets
)

// rootCmd is the base command for the civicqa CLI.
var rootCmd = &cobra.Command{
	Use:   "civicqa",
	Short: "Grounded question answering for local communities",
	Long: `civicqa answers free-text questions about a named locality. It gathers
candidate facts from encyclopedia, government, report, safety and community
sources, ranks them, and produces a grounded answer with follow-up questions.
When the generative backend is unavailable it falls back to deterministic
canned answers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		logger = logging.New(cfg.Log, os.Stderr)
		if configFileUsed != "" {
			logger.Debug("using config file", "path", configFileUsed)
		}

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug("loaded secrets", "keys", s.Names())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./civicqa.yaml or ~/.config/civicqa/civicqa.yaml)")
	rootCmd.PersistentFlags().String("log-level", types.DefaultAppConfig().Log.Level, "log level: debug, info, warn, error")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("civicqa")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "civicqa"))
		}
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		configFileUsed = viper.ConfigFileUsed()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
