package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"pinch/internal/domain"
)

const defaultContentType = "text/plain"

type statusResult struct {
	MessageID     string  `json:"message_id"`
	State         string  `json:"state"`
	FailureReason *string `json:"failure_reason"`
	UpdatedAt     string  `json:"updated_at"`
}

func newStatusResult(m domain.Message) statusResult {
	r := statusResult{
		MessageID: string(m.ID),
		State:     m.State.String(),
		UpdatedAt: m.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if m.FailureReason != "" {
		reason := m.FailureReason
		r.FailureReason = &reason
	}
	return r
}

type historyResult struct {
	MessageID   string `json:"message_id"`
	Direction   string `json:"direction"`
	Peer        string `json:"peer"`
	State       string `json:"state"`
	Sequence    uint64 `json:"sequence"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content"`
}

func sendCmd(o *options) *cobra.Command {
	var to, text, contentType string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Encrypt and send a message to a connected peer",
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

			m, err := w.Messages.Send(cmd.Context(), passphrase, domain.Address(to), []byte(text), contentType)
			if err != nil {
				return err
			}
			writeJSON(cmd.OutOrStdout(), newStatusResult(m))
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "peer address")
	cmd.Flags().StringVar(&text, "text", "", "message body")
	cmd.Flags().StringVar(&contentType, "content-type", defaultContentType, "content type of the body")
	return cmd
}

func statusCmd(o *options) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the delivery state of a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			w, err := o.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			m, err := w.Messages.Get(domain.MessageID(id))
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(cmd.OutOrStdout(), errorResult{Error: "message not found"})
				return errReported
			}
			if err != nil {
				return err
			}
			writeJSON(cmd.OutOrStdout(), newStatusResult(m))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "message id")
	return cmd
}

func historyCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List stored messages, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := o.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			ms, err := w.Messages.List()
			if err != nil {
				return err
			}
			for _, m := range ms {
				writeJSON(cmd.OutOrStdout(), historyResult{
					MessageID:   string(m.ID),
					Direction:   string(m.Direction),
					Peer:        string(m.PeerAddress),
					State:       m.State.String(),
					Sequence:    m.Sequence,
					ContentType: m.ContentType,
					Content:     string(m.Content),
				})
			}
			return nil
		},
	}
}
