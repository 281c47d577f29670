// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	keygenAlgo    string
	keygenPrivOut string
	keygenPubOut  string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a fresh keypair asynchronously and write it to disk",
	Long: `Starts key generation on a background goroutine via
capability.Registry.GenerateKeyAsync and polls until it completes,
mirroring the worker-thread keygen flow an interactive caller drives
through Poll/Cancel/Wait.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		algo, err := parseAlgorithm(keygenAlgo)
		if err != nil {
			return err
		}

		task, err := reg.GenerateKeyAsync(algo, 0)
		if err != nil {
			return fmt.Errorf("starting key generation: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		priv, pub, err := task.Wait(ctx)
		if err != nil {
			return fmt.Errorf("key generation failed: %w", err)
		}

		if keygenPrivOut != "" {
			if err := os.WriteFile(keygenPrivOut, priv, 0o600); err != nil {
				return fmt.Errorf("writing private key: %w", err)
			}
		}
		if keygenPubOut != "" {
			if err := os.WriteFile(keygenPubOut, pub, 0o644); err != nil {
				return fmt.Errorf("writing public key: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "generated %s keypair: %d private bytes, %d public bytes\n",
			keygenAlgo, len(priv), len(pub))
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenAlgo, "algo", "rsa", "key algorithm: rsa, mlkem, mldsa, hpke")
	keygenCmd.Flags().StringVar(&keygenPrivOut, "priv-out", "", "path to write the private key bytes")
	keygenCmd.Flags().StringVar(&keygenPubOut, "pub-out", "", "path to write the public key bytes")
	rootCmd.AddCommand(keygenCmd)
}
