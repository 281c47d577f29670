// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"crypto/rand"
	"encoding/asn1"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/envelope/cms"
	"github.com/luxfi/envelope/codec"
	"github.com/luxfi/envelope/provider"
)

var envelopeCmd = &cobra.Command{
	Use:   "envelope",
	Short: "Seal and open CMS EnvelopedData messages under a pre-shared or password-derived key-encryption key",
}

var (
	envIn       string
	envOut      string
	envKEKFile  string
	envKEKID    string
	envPassword string
)

// resolveSealKEK returns the KEK seal should wrap the CEK under, plus the
// KeyDerivation block (nil for a pre-shared KEK) a password-derived
// recipient must carry alongside it (spec §4.2).
func resolveSealKEK() ([]byte, *cms.KeyDerivationAlgorithmIdentifier, error) {
	if envPassword != "" && envKEKFile != "" {
		return nil, nil, fmt.Errorf("--kek-file and --password are mutually exclusive")
	}
	if envPassword != "" {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, err
		}
		iterations := cfg.KDFIterationsMax
		if iterations <= 0 {
			iterations = provider.DefaultPBKDF2IterationCap
		}
		kek, err := derivePasswordKEK(envPassword, salt, iterations)
		if err != nil {
			return nil, nil, fmt.Errorf("deriving password KEK: %w", err)
		}
		return kek, &cms.KeyDerivationAlgorithmIdentifier{
			Algorithm:      cms.OIDPBKDF2,
			Salt:           salt,
			IterationCount: iterations,
		}, nil
	}
	if envKEKFile == "" {
		return nil, nil, fmt.Errorf("one of --kek-file or --password is required")
	}
	kek, err := os.ReadFile(envKEKFile)
	if err != nil {
		return nil, nil, fmt.Errorf("reading KEK: %w", err)
	}
	if len(kek) != 32 {
		return nil, nil, fmt.Errorf("KEK must be 32 bytes (AES-256), got %d", len(kek))
	}
	return kek, nil, nil
}

// resolveOpenKEK derives or reads the KEK needed to unwrap recipient's
// EncryptedKey, following whichever of the two recipient shapes the wire
// data actually carries.
func resolveOpenKEK(recipient cms.KEKRecipientInfo) ([]byte, error) {
	if recipient.KeyDerivation != nil {
		if envPassword == "" {
			return nil, fmt.Errorf("envelope was password-sealed; pass --password")
		}
		return derivePasswordKEK(envPassword, recipient.KeyDerivation.Salt, recipient.KeyDerivation.IterationCount)
	}
	if envKEKFile == "" {
		return nil, fmt.Errorf("--kek-file is required for a pre-shared-KEK envelope")
	}
	return os.ReadFile(envKEKFile)
}

// derivePasswordKEK runs PBKDF2 over password through the registry's
// software provider, using cfg.Hash as the PRF digest, and exports the
// resulting AES-256 key bytes.
func derivePasswordKEK(password string, salt []byte, iterations int) ([]byte, error) {
	digest, err := parseAlgorithm(cfg.Hash)
	if err != nil {
		return nil, err
	}
	ctx, err := reg.CreateContext(codec.AlgoAES, codec.ModeCBC)
	if err != nil {
		return nil, err
	}
	if err := reg.DeriveKey(ctx, []byte(password), provider.KDFParams{
		Algorithm:  digest,
		Iterations: iterations,
		Salt:       salt,
	}); err != nil {
		return nil, err
	}
	return reg.ExportKey(ctx)
}

var envelopeSealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Wrap a file's content under a fresh CEK, itself wrapped under a KEK (CMS KEKRecipientInfo)",
	RunE: func(cmd *cobra.Command, args []string) error {
		plaintext, err := os.ReadFile(envIn)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		kek, keyDerivation, err := resolveSealKEK()
		if err != nil {
			return err
		}

		cek := make([]byte, 32)
		if _, err := rand.Read(cek); err != nil {
			return err
		}

		ciphertext, contentIV, err := aesCBCEncryptPadded(cek, plaintext)
		if err != nil {
			return fmt.Errorf("encrypting content: %w", err)
		}
		wrappedKey, wrapIV, err := aesCBCEncryptPadded(kek, cek)
		if err != nil {
			return fmt.Errorf("wrapping key: %w", err)
		}

		contentAlgID, err := aesCBCAlgorithmIdentifier(contentIV)
		if err != nil {
			return err
		}
		keyAlgID, err := aesCBCAlgorithmIdentifier(wrapIV)
		if err != nil {
			return err
		}

		eci := cms.EncryptedContentInfo{
			ContentType:                cms.OIDData,
			ContentEncryptionAlgorithm: contentAlgID,
			EncryptedContent:           ciphertext,
		}
		recipient := cms.RecipientInfo{
			Kind: cms.RecipientKEK,
			KEK: cms.KEKRecipientInfo{
				Version:                4,
				Kekid:                  cms.KEKIdentifier{KeyIdentifier: []byte(envKEKID)},
				KeyDerivation:          keyDerivation,
				KeyEncryptionAlgorithm: keyAlgID,
				EncryptedKey:           append(append([]byte(nil), wrapIV...), wrappedKey...),
			},
		}

		ed := cms.NewEnvelopedData([]cms.RecipientInfo{recipient}, eci)
		ci, err := ed.ContentInfo()
		if err != nil {
			return fmt.Errorf("building content-info: %w", err)
		}
		der, err := ci.Marshal()
		if err != nil {
			return fmt.Errorf("marshaling envelope: %w", err)
		}
		if err := os.WriteFile(envOut, der, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sealed %d bytes into %s (%d bytes DER)\n", len(plaintext), envOut, len(der))
		return nil
	},
}

var envelopeOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Unwrap a CMS EnvelopedData message sealed by envelope seal",
	RunE: func(cmd *cobra.Command, args []string) error {
		der, err := os.ReadFile(envIn)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		ci, err := cms.ParseContentInfo(der)
		if err != nil {
			return fmt.Errorf("parsing content-info: %w", err)
		}
		ed, err := ci.EnvelopedDataContent()
		if err != nil {
			return fmt.Errorf("parsing enveloped-data: %w", err)
		}
		if len(ed.RecipientInfos) == 0 || ed.RecipientInfos[0].Kind != cms.RecipientKEK {
			return fmt.Errorf("envelope has no KEKRecipientInfo recipient")
		}
		kek, err := resolveOpenKEK(ed.RecipientInfos[0].KEK)
		if err != nil {
			return fmt.Errorf("resolving KEK: %w", err)
		}
		wrapped := ed.RecipientInfos[0].KEK.EncryptedKey
		if len(wrapped) < 16 {
			return fmt.Errorf("wrapped key too short")
		}
		wrapIV, wrappedKey := wrapped[:16], wrapped[16:]

		cek, err := aesCBCDecryptPadded(kek, wrapIV, wrappedKey)
		if err != nil {
			return fmt.Errorf("unwrapping key: %w", err)
		}

		algID, _, err := codec.ParseAlgorithmIdentifier(ed.EncryptedContentInfo.ContentEncryptionAlgorithm.FullBytes)
		if err != nil {
			return fmt.Errorf("parsing content encryption algorithm: %w", err)
		}
		params, err := codec.ParseEncryptionParams(codec.AlgoAES, codec.ModeCBC, algID.Parameters)
		if err != nil {
			return fmt.Errorf("parsing content IV: %w", err)
		}

		plaintext, err := aesCBCDecryptPadded(cek, params.IV, ed.EncryptedContentInfo.EncryptedContent)
		if err != nil {
			return fmt.Errorf("decrypting content: %w", err)
		}

		if err := os.WriteFile(envOut, plaintext, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "opened %s into %d bytes\n", envIn, len(plaintext))
		return nil
	},
}

// plainAlgorithmIdentifier builds the DER AlgorithmIdentifier RawValue for
// an algorithm that carries NULL parameters (digest and RSA-signature
// algorithms, unlike AES-CBC's IV-bearing one below).
func plainAlgorithmIdentifier(algo codec.AlgorithmID, mode codec.Mode) (asn1.RawValue, error) {
	oid, err := codec.Lookup(algo, mode, codec.SubNone)
	if err != nil {
		return asn1.RawValue{}, err
	}
	algID := codec.AlgorithmIdentifier{Algorithm: oid, Mode: mode}
	der, err := algID.Marshal()
	if err != nil {
		return asn1.RawValue{}, err
	}
	var rv asn1.RawValue
	if _, err := asn1.Unmarshal(der, &rv); err != nil {
		return asn1.RawValue{}, err
	}
	return rv, nil
}

// aesCBCAlgorithmIdentifier builds the DER AlgorithmIdentifier RawValue
// for AES-CBC with iv as its parameters, the shape both
// ContentEncryptionAlgorithm and KeyEncryptionAlgorithm carry.
func aesCBCAlgorithmIdentifier(iv []byte) (asn1.RawValue, error) {
	oid, err := codec.Lookup(codec.AlgoAES, codec.ModeCBC, codec.SubNone)
	if err != nil {
		return asn1.RawValue{}, err
	}
	paramsDER, err := codec.MarshalEncryptionParams(codec.AlgoAES, codec.ModeCBC, codec.EncryptionAlgorithmParams{IV: iv})
	if err != nil {
		return asn1.RawValue{}, err
	}
	algID := codec.AlgorithmIdentifier{Algorithm: oid, Mode: codec.ModeCBC, Parameters: paramsDER}
	der, err := algID.Marshal()
	if err != nil {
		return asn1.RawValue{}, err
	}
	var rv asn1.RawValue
	if _, err := asn1.Unmarshal(der, &rv); err != nil {
		return asn1.RawValue{}, err
	}
	return rv, nil
}

func init() {
	envelopeSealCmd.Flags().StringVar(&envIn, "in", "", "plaintext input file")
	envelopeSealCmd.Flags().StringVar(&envOut, "out", "", "DER-encoded ContentInfo output file")
	envelopeSealCmd.Flags().StringVar(&envKEKFile, "kek-file", "", "32-byte AES-256 key-encryption key")
	envelopeSealCmd.Flags().StringVar(&envKEKID, "kek-id", "default", "key identifier recorded in the KEKRecipientInfo")
	envelopeSealCmd.Flags().StringVar(&envPassword, "password", "", "derive the KEK from a password via PBKDF2 instead of --kek-file")

	envelopeOpenCmd.Flags().StringVar(&envIn, "in", "", "DER-encoded ContentInfo input file")
	envelopeOpenCmd.Flags().StringVar(&envOut, "out", "", "plaintext output file")
	envelopeOpenCmd.Flags().StringVar(&envKEKFile, "kek-file", "", "32-byte AES-256 key-encryption key")
	envelopeOpenCmd.Flags().StringVar(&envPassword, "password", "", "password the envelope was sealed under, if it used a password-derived KEK")

	envelopeCmd.AddCommand(envelopeSealCmd, envelopeOpenCmd)
	rootCmd.AddCommand(envelopeCmd)
}
