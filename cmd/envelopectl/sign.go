// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/asn1"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/envelope/cms"
	"github.com/luxfi/envelope/codec"
	"github.com/luxfi/envelope/provider"
)

var (
	signIn           string
	signOut          string
	signPrivKeyFile  string
	signPrivKeyOut   string
	signKeyID        string
	signLabelPolicy  string
	signLabelClass   string
	verifyIn         string
	verifyPubKeyFile string
)

var securityClassificationByName = map[string]cms.SecurityClassification{
	"unmarked":     cms.ClassificationUnmarked,
	"unclassified": cms.ClassificationUnclassified,
	"restricted":   cms.ClassificationRestricted,
	"confidential": cms.ClassificationConfidential,
	"secret":       cms.ClassificationSecret,
	"top-secret":   cms.ClassificationTopSecret,
}

var signCmdRun = &cobra.Command{
	Use:   "sign",
	Short: "Sign a file's content into a CMS SignedData message",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(signIn)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		signCtx, err := rsaSigningContext()
		if err != nil {
			return err
		}

		digestAlgID, err := plainAlgorithmIdentifier(codec.AlgoSHA256, codec.ModeNone)
		if err != nil {
			return err
		}
		sigAlgID, err := plainAlgorithmIdentifier(codec.AlgoRSA, codec.ModePKC)
		if err != nil {
			return err
		}

		hashCtx, err := reg.CreateContext(codec.AlgoSHA256, codec.ModeNone)
		if err != nil {
			return err
		}
		hashFn := func(data []byte) ([]byte, error) { return reg.Hash(hashCtx, data, true) }
		signFn := func(digest []byte) ([]byte, error) { return reg.Sign(signCtx, digest) }

		var extraAttrs cms.Attributes
		if signLabelPolicy != "" {
			policyOID, err := parseOID(signLabelPolicy)
			if err != nil {
				return fmt.Errorf("parsing --security-label-policy: %w", err)
			}
			classification, ok := securityClassificationByName[signLabelClass]
			if !ok {
				return fmt.Errorf("unknown --security-label-classification %q", signLabelClass)
			}
			labelAttr, err := cms.NewSecurityLabelAttribute(cms.SecurityLabel{Policy: policyOID, Classification: classification})
			if err != nil {
				return err
			}
			extraAttrs = append(extraAttrs, labelAttr)
		}

		sid := cms.SignerIdentifier{Kind: cms.SignerBySubjectKeyIdentifier, SubjectKeyIdentifier: []byte(signKeyID)}
		si, err := cms.SignContent(cms.OIDData, content, digestAlgID, sigAlgID, sid, time.Now(), hashFn, signFn, extraAttrs)
		if err != nil {
			return fmt.Errorf("signing content: %w", err)
		}

		eci, err := cms.NewDataEncapsulatedContentInfo(content)
		if err != nil {
			return fmt.Errorf("building encapsulated content: %w", err)
		}
		sd := cms.NewSignedData(eci, []asn1.RawValue{digestAlgID}, []cms.SignerInfo{si}, nil)
		ci, err := sd.ContentInfo()
		if err != nil {
			return fmt.Errorf("building content-info: %w", err)
		}
		der, err := ci.Marshal()
		if err != nil {
			return fmt.Errorf("marshaling signed-data: %w", err)
		}
		if err := os.WriteFile(signOut, der, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "signed %d bytes into %s (%d bytes DER)\n", len(content), signOut, len(der))
		return nil
	},
}

var verifyCmdRun = &cobra.Command{
	Use:   "verify",
	Short: "Verify a CMS SignedData message's signature and default attributes",
	RunE: func(cmd *cobra.Command, args []string) error {
		der, err := os.ReadFile(verifyIn)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		pub, err := os.ReadFile(verifyPubKeyFile)
		if err != nil {
			return fmt.Errorf("reading public key: %w", err)
		}

		ci, err := cms.ParseContentInfo(der)
		if err != nil {
			return fmt.Errorf("parsing content-info: %w", err)
		}
		sd, err := ci.SignedDataContent()
		if err != nil {
			return fmt.Errorf("parsing signed-data: %w", err)
		}
		content, err := sd.EncapContentInfo.EContentValue()
		if err != nil {
			return fmt.Errorf("reading encapsulated content: %w", err)
		}
		if len(sd.SignerInfos) == 0 {
			return fmt.Errorf("signed-data has no signer infos")
		}
		si := sd.SignerInfos[0]

		verifyCtx, err := reg.CreateContext(codec.AlgoRSA, codec.ModePKC)
		if err != nil {
			return err
		}
		if err := reg.ImportKey(verifyCtx, pub); err != nil {
			return fmt.Errorf("importing public key: %w", err)
		}
		hashCtx, err := reg.CreateContext(codec.AlgoSHA256, codec.ModeNone)
		if err != nil {
			return err
		}
		hashFn := func(data []byte) ([]byte, error) { return reg.Hash(hashCtx, data, true) }
		verifyFn := func(digest, signature []byte) error { return reg.Verify(verifyCtx, digest, signature) }

		if err := cms.VerifyContent(si, sd.EncapContentInfo.EContentType, content, hashFn, verifyFn); err != nil {
			return fmt.Errorf("verifying signature: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Ok: %d bytes verified\n", len(content))
		if label, err := si.SignedAttrs.GetSecurityLabel(); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "security label: policy=%s classification=%d\n", label.Policy, label.Classification)
		}
		return nil
	},
}

// rsaSigningContext returns an RSA signing context loaded with
// signPrivKeyFile's key, or a freshly generated one (written to
// signPrivKeyOut if set) when no key file was supplied.
func rsaSigningContext() (*provider.Context, error) {
	if signPrivKeyFile != "" {
		priv, err := os.ReadFile(signPrivKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading private key: %w", err)
		}
		ctx, err := reg.CreateContext(codec.AlgoRSA, codec.ModePKC)
		if err != nil {
			return nil, err
		}
		if err := reg.ImportKey(ctx, priv); err != nil {
			return nil, fmt.Errorf("importing private key: %w", err)
		}
		return ctx, nil
	}

	task, err := reg.GenerateKeyAsync(codec.AlgoRSA, codec.ModePKC)
	if err != nil {
		return nil, fmt.Errorf("starting key generation: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	priv, _, err := task.Wait(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	if signPrivKeyOut != "" {
		if err := os.WriteFile(signPrivKeyOut, priv, 0o600); err != nil {
			return nil, fmt.Errorf("writing private key: %w", err)
		}
	}
	ctx, err := reg.CreateContext(codec.AlgoRSA, codec.ModePKC)
	if err != nil {
		return nil, err
	}
	if err := reg.ImportKey(ctx, priv); err != nil {
		return nil, fmt.Errorf("importing generated private key: %w", err)
	}
	return ctx, nil
}

func parseOID(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(s, ".")
	oid := make(asn1.ObjectIdentifier, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid OID component %q", part)
		}
		oid = append(oid, v)
	}
	return oid, nil
}

func init() {
	signCmdRun.Flags().StringVar(&signIn, "in", "", "plaintext input file")
	signCmdRun.Flags().StringVar(&signOut, "out", "", "DER-encoded SignedData ContentInfo output file")
	signCmdRun.Flags().StringVar(&signPrivKeyFile, "priv-key", "", "PKCS#1 RSA private key file; a fresh key is generated if unset")
	signCmdRun.Flags().StringVar(&signPrivKeyOut, "priv-key-out", "", "where to write a freshly generated private key")
	signCmdRun.Flags().StringVar(&signKeyID, "key-id", "default", "signer identifier recorded as the SignerInfo's subjectKeyIdentifier")
	signCmdRun.Flags().StringVar(&signLabelPolicy, "security-label-policy", "", "dotted OID of an ESS security-label policy to attach (e.g. 1.3.6.1.4.1.9999.1)")
	signCmdRun.Flags().StringVar(&signLabelClass, "security-label-classification", "secret", "ESS security-label classification: unmarked, unclassified, restricted, confidential, secret, top-secret")

	verifyCmdRun.Flags().StringVar(&verifyIn, "in", "", "DER-encoded SignedData ContentInfo input file")
	verifyCmdRun.Flags().StringVar(&verifyPubKeyFile, "pub-key", "", "PKCS#1 RSA public key file matching the signer")

	rootCmd.AddCommand(signCmdRun, verifyCmdRun)
}
