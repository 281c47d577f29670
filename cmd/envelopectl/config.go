// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is envelopectl's merged file/env/flag configuration, per
// SPEC_FULL §10.4: default cipher/mode/hash, trust-anchor paths, a KDF
// iteration cap, and a (stubbed) device-capability toggle.
type Config struct {
	Cipher           string   `mapstructure:"cipher"`
	Mode             string   `mapstructure:"mode"`
	Hash             string   `mapstructure:"hash"`
	TrustAnchors     []string `mapstructure:"trust_anchors"`
	KDFIterationsMax int      `mapstructure:"kdf_iterations_max"`
	UseDevice        bool     `mapstructure:"use_device"`
}

// loadConfig reads envelopectl.yaml (or --config) if present, then merges
// flags and environment on top, and unmarshals the result into cfg.
func loadConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("envelopectl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && cfgFile != "" {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}
