package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pinch/internal/app"
)

const (
	toolPrefix = "pinch-"

	// errorStyleKey selects how a command's failure is reported.
	errorStyleKey = "error-style"
	textErrors    = "text"
)

// errReported marks a failure the command has already written out.
var errReported = errors.New("reported")

// options holds the persistent flags shared by every command.
type options struct {
	home       string
	passphrase string
	relayURL   string

	stdin io.Reader
}

// Execute runs the CLI for argv and returns the process exit code.
func Execute(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdin)
	root.SetArgs(toolArgs(argv))
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	switch {
	case errors.Is(err, errReported):
	case cmd != nil && cmd.Annotations[errorStyleKey] == textErrors:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	default:
		writeJSON(stderr, errorResult{Error: err.Error()})
	}
	return 1
}

// toolArgs maps an invocation as pinch-<name> onto the <name> subcommand.
func toolArgs(argv []string) []string {
	if len(argv) == 0 {
		return nil
	}
	name := filepath.Base(argv[0])
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if sub, ok := strings.CutPrefix(name, toolPrefix); ok && sub != "" {
		return append([]string{sub}, argv[1:]...)
	}
	return argv[1:]
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	o := &options{stdin: stdin}
	root := &cobra.Command{
		Use:           "pinch",
		Short:         "Secure agent-to-agent messaging over a Pinch relay",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&o.home, "home", "", "config dir (default ~/.pinch)")
	root.PersistentFlags().StringVarP(&o.passphrase, "passphrase", "p", "",
		"passphrase protecting the identity (default $"+app.EnvPassphrase+")")
	root.PersistentFlags().StringVar(&o.relayURL, "relay", "",
		"relay WebSocket URL (default $"+app.EnvRelayURL+", then config.toml)")

	root.AddCommand(
		initCmd(o),
		whoamiCmd(o),
		connectCmd(o),
		acceptCmd(o),
		rejectCmd(o),
		contactsCmd(o),
		sendCmd(o),
		statusCmd(o),
		historyCmd(o),
		listenCmd(o),
		claimCmd(),
		crosstestEncryptCmd(o),
		crosstestDecryptCmd(o),
	)
	return root
}

// wire loads configuration and builds the dependency graph. Callers must
// Close the result.
func (o *options) wire() (*app.Wire, error) {
	home := o.home
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		home = filepath.Join(dir, ".pinch")
	}
	cfg, err := app.LoadConfig(home)
	if err != nil {
		return nil, err
	}
	if o.relayURL != "" {
		cfg.RelayURL = o.relayURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return app.NewWire(cfg, o.secret())
}

func (o *options) secret() string {
	if o.passphrase != "" {
		return o.passphrase
	}
	return os.Getenv(app.EnvPassphrase)
}

func (o *options) requireSecret() (string, error) {
	p := o.secret()
	if p == "" {
		return "", fmt.Errorf("passphrase required (-p or $%s)", app.EnvPassphrase)
	}
	return p, nil
}

func textErrorsAnnotation() map[string]string {
	return map[string]string{errorStyleKey: textErrors}
}

type errorResult struct {
	Error string `json:"error"`
}

func writeJSON(w io.Writer, v any) {
	// Encode appends the newline that ends the record.
	_ = json.NewEncoder(w).Encode(v)
}
