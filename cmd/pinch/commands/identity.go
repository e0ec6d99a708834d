package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Generate the identity key and store it securely",
		Args:        cobra.NoArgs,
		Annotations: textErrorsAnnotation(),
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase, err := o.requireSecret()
			if err != nil {
				return err
			}
			w, err := o.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			if w.IdentityStore.Exists() {
				return fmt.Errorf("identity already exists in %s", w.Config.Home)
			}
			id, fp, err := w.Identity.GenerateIdentity(passphrase, w.Config.RelayHost())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity created.\nAddress: %s\nFingerprint: %s\n", id.Address, fp)
			return nil
		},
	}
}

func whoamiCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:         "whoami",
		Short:       "Print the local address and key fingerprint",
		Args:        cobra.NoArgs,
		Annotations: textErrorsAnnotation(),
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase, err := o.requireSecret()
			if err != nil {
				return err
			}
			w, err := o.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			id, err := w.Identity.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			fp, err := w.Identity.FingerprintIdentity(passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Address: %s\nFingerprint: %s\n", id.Address, fp)
			return nil
		},
	}
}
