// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"

	"github.com/luxfi/envelope/capability"
	"github.com/luxfi/envelope/provider"
)

var (
	cfgFile  string
	debug    bool
	logLevel slog.LevelVar

	cfg Config
	reg *capability.Registry
)

var rootCmd = &cobra.Command{
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Use:   "envelopectl",
	Short: "Inspect and drive CMS-style envelopes, certificate chains, and crypto capabilities",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		if debug {
			logLevel.Set(slog.LevelDebug)
		}
		reg = capability.NewDefaultRegistry()
		return nil
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{
		Level: &logLevel,
	})))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./envelopectl.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("cipher", "aes", "default bulk cipher (aes, des, 3des)")
	rootCmd.PersistentFlags().String("mode", "cbc", "default cipher mode (cbc, cfb, ofb, ecb)")
	rootCmd.PersistentFlags().String("hash", "sha256", "default digest algorithm")
	rootCmd.PersistentFlags().StringSlice("trust-anchor", nil, "path to a trust-anchor certificate (repeatable)")
	rootCmd.PersistentFlags().Int("kdf-iterations-max", provider.DefaultPBKDF2IterationCap, "maximum PBKDF2 iteration count DeriveKey will accept")
	rootCmd.PersistentFlags().Bool("use-device", false, "route capability operations to a PKCS #11 device instead of the software provider (stubbed, see DESIGN.md)")

	_ = viper.BindPFlag("cipher", rootCmd.PersistentFlags().Lookup("cipher"))
	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("hash", rootCmd.PersistentFlags().Lookup("hash"))
	_ = viper.BindPFlag("trust_anchors", rootCmd.PersistentFlags().Lookup("trust-anchor"))
	_ = viper.BindPFlag("kdf_iterations_max", rootCmd.PersistentFlags().Lookup("kdf-iterations-max"))
	_ = viper.BindPFlag("use_device", rootCmd.PersistentFlags().Lookup("use-device"))

	viper.SetEnvPrefix("ENVELOPECTL")
	viper.AutomaticEnv()
}
