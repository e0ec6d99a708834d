package commands

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pinch/internal/crypto"
	"pinch/internal/domain"
)

// Cross-implementation harness: both commands read one JSON object on
// standard input, with Ed25519 seeds and payloads in hex.

type crosstestInput struct {
	SenderSeed    string `json:"ed25519_seed_sender"`
	RecipientSeed string `json:"ed25519_seed_recipient"`
	Plaintext     string `json:"plaintext,omitempty"`
	Sealed        string `json:"sealed,omitempty"`
}

type sealedResult struct {
	Sealed string `json:"sealed"`
}

type plaintextResult struct {
	Plaintext string `json:"plaintext"`
}

func crosstestEncryptCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:    "crosstest-encrypt",
		Short:  "Seal hex plaintext from stdin for interoperability tests",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, sender, recipient, in, err := readCrosstest(o)
			if err != nil {
				return err
			}
			plaintext, err := hex.DecodeString(in.Plaintext)
			if err != nil {
				return fmt.Errorf("invalid plaintext hex: %w", err)
			}
			sealed, err := suite.Seal(plaintext, recipient.Public, sender.Private)
			if err != nil {
				return err
			}
			writeJSON(cmd.OutOrStdout(), sealedResult{Sealed: hex.EncodeToString(sealed)})
			return nil
		},
	}
}

func crosstestDecryptCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:    "crosstest-decrypt",
		Short:  "Open a hex sealed box from stdin for interoperability tests",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, sender, recipient, in, err := readCrosstest(o)
			if err != nil {
				return err
			}
			sealed, err := hex.DecodeString(in.Sealed)
			if err != nil {
				return fmt.Errorf("invalid sealed hex: %w", err)
			}
			plaintext, err := suite.Open(sealed, sender.Public, recipient.Private)
			if err != nil {
				return err
			}
			writeJSON(cmd.OutOrStdout(), plaintextResult{Plaintext: hex.EncodeToString(plaintext)})
			return nil
		},
	}
}

func readCrosstest(o *options) (
	suite *crypto.Suite,
	sender, recipient crypto.ConvertedKeypair,
	in crosstestInput,
	err error,
) {
	if err = json.NewDecoder(o.stdin).Decode(&in); err != nil {
		return nil, sender, recipient, in, fmt.Errorf("failed to decode input: %w", err)
	}
	if suite, err = crypto.Init(); err != nil {
		return nil, sender, recipient, in, err
	}
	if sender, err = keypairFromSeed(suite, in.SenderSeed); err != nil {
		return nil, sender, recipient, in, fmt.Errorf("sender seed: %w", err)
	}
	if recipient, err = keypairFromSeed(suite, in.RecipientSeed); err != nil {
		return nil, sender, recipient, in, fmt.Errorf("recipient seed: %w", err)
	}
	return suite, sender, recipient, in, nil
}

func keypairFromSeed(suite *crypto.Suite, seedHex string) (crypto.ConvertedKeypair, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return crypto.ConvertedKeypair{}, fmt.Errorf("%w: %v", crypto.ErrInvalidKeyFormat, err)
	}
	if len(seed) != ed25519.SeedSize {
		return crypto.ConvertedKeypair{}, fmt.Errorf("%w: seed is %d bytes, want %d",
			crypto.ErrInvalidKeyFormat, len(seed), ed25519.SeedSize)
	}
	var priv domain.Ed25519Private
	copy(priv[:], ed25519.NewKeyFromSeed(seed))
	return suite.ConvertIdentity(priv)
}
