// Package commands implements the b2c2-cli command tree.
package commands

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/gaborage/b2c2-cli/config"
)

// Streams are the process streams commands read from and write to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	env        string
	apiToken   string
	configFile string
	logLevel   string
	yes        bool
}

// app carries state shared by the command tree for one invocation.
type app struct {
	version string
	flags   globalFlags
	sess    *session
}

// NewRootCommand creates the b2c2-cli root command with every subcommand attached.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "b2c2-cli",
		Short: "Trade on B2C2 from the command line",
		Long: `Command-line client for the B2C2 trading API.

Request quotes, place orders and inspect balances and account limits.
Transient failures (connection errors, timeouts and 5xx responses) are
retried before the command gives up.`,
		Version:       a.version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.env, "env", config.EnvSandbox, "API environment (sandbox or production)")
	pf.StringVar(&a.flags.apiToken, "api-token", "", "API token (defaults to the API_TOKEN env var)")
	pf.StringVar(&a.flags.configFile, "config", "", "YAML configuration file (default ./"+config.DefaultFile+" if present)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.BoolVarP(&a.flags.yes, "yes", "y", false, "Skip confirmation prompts")

	root.AddCommand(
		a.newRFQCommand(),
		a.newOrderCommand(),
		a.newInstrumentsCommand(),
		a.newBalanceCommand(),
		a.newAccountInfoCommand(),
		a.newOverviewCommand(),
		NewVersionCommand(a.version),
	)
	return root
}

// Execute runs the command tree with args and returns the process exit code.
// Failures are reported on streams.Err.
func Execute(ctx context.Context, version string, args []string, streams Streams) int {
	a := &app{version: version}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		presentError(streams.Err, err)
		return 1
	}
	return 0
}

// errAborted is returned when the user declines a confirmation.
var errAborted = errors.New("aborted")
