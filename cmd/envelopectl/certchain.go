// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/envelope/certchain"
)

var certchainCmd = &cobra.Command{
	Use:   "certchain",
	Short: "Inspect certificate chains",
}

var certchainVerifyCmd = &cobra.Command{
	Use:   "verify --bundle <pem-file> [--leaf <pem-file>]",
	Short: "Reconstruct and constraint-check a certificate chain from a PEM bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		bundlePath, _ := cmd.Flags().GetString("bundle")
		leafPath, _ := cmd.Flags().GetString("leaf")
		if bundlePath == "" {
			return fmt.Errorf("--bundle is required")
		}

		bag, err := readPEMCertBag(bundlePath)
		if err != nil {
			return err
		}

		var leaf *x509.Certificate
		if leafPath != "" {
			leafBag, err := readPEMCertBag(leafPath)
			if err != nil {
				return err
			}
			if len(leafBag) != 1 {
				return fmt.Errorf("--leaf must name a file containing exactly one certificate")
			}
			leaf = leafBag[0]
			bag = append(bag, leaf)
		}

		chain, err := certchain.BuildChain(bag, leaf)
		if err != nil {
			return fmt.Errorf("building chain: %w", err)
		}

		for i, cert := range chain.Certs {
			role := "intermediate"
			switch {
			case i == 0:
				role = "leaf"
			case certchain.IsSelfSigned(cert):
				role = "root"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %-12s %s\n", i, role, cert.Subject.String())
		}

		if err := certchain.CheckConstraints(chain); err != nil {
			return fmt.Errorf("constraint check failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "chain constraints satisfied")
		return nil
	},
}

func readPEMCertBag(path string) ([]*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var bag []*x509.Certificate
	rest := raw
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate in %s: %w", path, err)
		}
		bag = append(bag, cert)
	}
	if len(bag) == 0 {
		return nil, fmt.Errorf("%s contains no PEM certificates", path)
	}
	return bag, nil
}

func init() {
	certchainVerifyCmd.Flags().String("bundle", "", "PEM file with the unordered certificate bag")
	certchainVerifyCmd.Flags().String("leaf", "", "PEM file with the end-entity certificate, if known")
	certchainCmd.AddCommand(certchainVerifyCmd)
	rootCmd.AddCommand(certchainCmd)
}
