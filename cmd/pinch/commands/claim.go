package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pinch/internal/app"
	"pinch/internal/relay"
)

// claim approves a pending agent registration on the relay. It is an
// operator tool and takes its settings from the environment only.
func claimCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "claim <CLAIM_CODE>",
		Short:       "Approve a pending agent registration (relay operator)",
		Annotations: textErrorsAnnotation(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || args[0] == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "Usage: pinch-claim <CLAIM_CODE>")
				return errReported
			}
			relayURL := os.Getenv(app.EnvRelayURL)
			if relayURL == "" {
				return errors.New(app.EnvRelayURL + " environment variable is required")
			}
			secret := os.Getenv(app.EnvRelayAdminSecret)
			if secret == "" {
				return errors.New(app.EnvRelayAdminSecret + " environment variable is required")
			}

			addr, err := relay.NewHTTP(relayURL).Claim(cmd.Context(), args[0], secret)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Approved: %s\n", addr)
			return nil
		},
	}
}
