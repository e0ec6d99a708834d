package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"pinch/internal/domain"
)

type connectionResult struct {
	Status     string `json:"status"`
	Connection string `json:"connection"`
}

type contactResult struct {
	Address   string `json:"address"`
	State     string `json:"state"`
	Message   string `json:"message,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

func connectCmd(o *options) *cobra.Command {
	var to, message string
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Ask a peer to connect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return errors.New("--to is required")
			}
			passphrase, err := o.requireSecret()
			if err != nil {
				return err
			}
			w, err := o.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			c, err := w.Connections.Request(cmd.Context(), passphrase, domain.Address(to), message)
			if err != nil {
				return err
			}
			writeJSON(cmd.OutOrStdout(), connectionResult{Status: c.State.String(), Connection: to})
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "peer address")
	cmd.Flags().StringVar(&message, "message", "", "note shown to the peer with the request")
	return cmd
}

func acceptCmd(o *options) *cobra.Command {
	var peer string
	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Approve a pending connection request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if peer == "" {
				return errors.New("--connection is required")
			}
			passphrase, err := o.requireSecret()
			if err != nil {
				return err
			}
			w, err := o.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			if _, err := w.Connections.Approve(cmd.Context(), passphrase, domain.Address(peer)); err != nil {
				return err
			}
			writeJSON(cmd.OutOrStdout(), connectionResult{Status: "accepted", Connection: peer})
			return nil
		},
	}
	cmd.Flags().StringVar(&peer, "connection", "", "address of the requesting peer")
	return cmd
}

func rejectCmd(o *options) *cobra.Command {
	var peer string
	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Decline a pending connection request without telling the peer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if peer == "" {
				return errors.New("--connection is required")
			}
			w, err := o.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			if _, err := w.Connections.Reject(cmd.Context(), domain.Address(peer)); err != nil {
				return err
			}
			writeJSON(cmd.OutOrStdout(), connectionResult{Status: "rejected", Connection: peer})
			return nil
		},
	}
	cmd.Flags().StringVar(&peer, "connection", "", "address of the requesting peer")
	return cmd
}

func contactsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List connections, one JSON object per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := o.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			cs, err := w.Connections.List()
			if err != nil {
				return err
			}
			for _, c := range cs {
				writeJSON(cmd.OutOrStdout(), contactResult{
					Address:   string(c.PeerAddress),
					State:     c.State.String(),
					Message:   c.Message,
					UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339Nano),
				})
			}
			return nil
		},
	}
}
