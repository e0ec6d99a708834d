package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

type listenResult struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Dropped   int    `json:"dropped"`
}

// listen holds a relay session open and feeds every inbound envelope to the
// router. Envelopes that fail to decode or authenticate are logged and
// dropped; the session stays up.
func listenCmd(o *options) *cobra.Command {
	var d time.Duration
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Process inbound envelopes until interrupted or --for elapses",
		Args:  cobra.NoArgs,
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

			ctx := cmd.Context()
			if d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			id, err := w.Identity.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			session, err := w.Transport.Session(ctx)
			if err != nil {
				return err
			}
			r := w.Router(id.Address)

			res := listenResult{Status: "stopped"}
			for {
				raw, err := session.Receive(ctx)
				if err != nil {
					if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
						writeJSON(cmd.OutOrStdout(), res)
						return nil
					}
					return err
				}
				// Replies go out on the session even after ctx ends.
				if err := r.Dispatch(context.WithoutCancel(ctx), passphrase, raw); err != nil {
					res.Dropped++
					continue
				}
				res.Processed++
			}
		},
	}
	cmd.Flags().DurationVar(&d, "for", 0, "stop after this long (default: until interrupted)")
	return cmd
}
