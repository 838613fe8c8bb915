package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/experimental/logging"

	"github.com/dayofthepenguin/vulcan"
	"github.com/dayofthepenguin/vulcan/binding"
	"github.com/dayofthepenguin/vulcan/internal/guest"
	"github.com/dayofthepenguin/vulcan/internal/version"
)

func main() {
	doMain(os.Args[1:], os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	rootCmd := newRootCmd(stdOut, stdErr)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stdErr, "error: %v\n", err)
		exit(1)
		return
	}
	exit(0)
}

func newRootCmd(stdOut io.Writer, stdErr logging.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vulcan",
		Short: "vulcan CLI",
		Long:  `Formats the sum of two unsigned integers, directly or through the "vulcan" WebAssembly host module.`,
		// doMain reports errors once, without usage noise.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.SetOut(stdOut)
	rootCmd.SetErr(stdErr)

	rootCmd.AddCommand(newSumCmd(stdErr), newVersionCmd())
	return rootCmd
}

func newSumCmd(stdErr logging.Writer) *cobra.Command {
	var host, interp, hostlogging bool

	sumCmd := &cobra.Command{
		Use:   "sum <a> <b>",
		Short: "Print the sum of two unsigned 64-bit integers",
		Long: `Prints the decimal sum of two unsigned 64-bit integers.

Fails instead of wrapping around when the sum does not fit in 64 bits.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !host && (interp || hostlogging) {
				return errors.New("--interp and --hostlogging require --host")
			}

			a, err := parseOperand(args[0])
			if err != nil {
				return err
			}
			b, err := parseOperand(args[1])
			if err != nil {
				return err
			}

			var s string
			if host {
				ctx := cmd.Context()
				if hostlogging {
					ctx = context.WithValue(ctx, experimental.FunctionListenerFactoryKey{},
						logging.NewHostLoggingListenerFactory(stdErr, logging.LogScopeAll))
				}
				s, err = sumViaHost(ctx, a, b, interp)
			} else {
				s, err = vulcan.SumAsString(a, b)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}

	flags := sumCmd.Flags()
	flags.BoolVar(&host, "host", false,
		"call through the \"vulcan\" host module from a WebAssembly guest")
	flags.BoolVar(&interp, "interp", false, "force interpreter")
	flags.BoolVar(&hostlogging, "hostlogging", false, "log host function calls to stderr")
	return sumCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersion())
		},
	}
}

// parseOperand parses a non-negative decimal integer that fits in 64 bits.
func parseOperand(arg string) (uint64, error) {
	v, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid operand %q: must be an unsigned 64-bit integer", arg)
	}
	return v, nil
}

// sumViaHost calls vulcan.SumAsString from a guest instantiated in a new
// runtime, the same way a compiled guest would.
func sumViaHost(ctx context.Context, a, b uint64, interp bool) (string, error) {
	var rtc wazero.RuntimeConfig
	if interp {
		rtc = wazero.NewRuntimeConfigInterpreter()
	} else {
		rtc = wazero.NewRuntimeConfig()
	}

	r := wazero.NewRuntimeWithConfig(ctx, rtc)
	defer r.Close(ctx)

	if _, err := binding.Instantiate(ctx, r); err != nil {
		return "", fmt.Errorf("error instantiating %s: %w", binding.ModuleName, err)
	}

	c, err := guest.Instantiate(ctx, r)
	if err != nil {
		return "", err
	}
	defer c.Close(ctx)

	return c.SumAsString(ctx, a, b)
}
