// Package cli holds what the dubcc binaries share: argument
// normalization, the top-level error handler, buffered output and the
// debug dumper.
package cli

import (
	"bytes"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/k0kubun/pp/v3"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	dubcc "dubcc/shared"
)

// NormalizeArgs rewrites the single-dash long options in long (given
// without dashes) to the double-dash form cobra parses. "-place=x" and
// "-place x" both become "--place...".
func NormalizeArgs(args []string, long ...string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") {
			name, _, _ := strings.Cut(arg[1:], "=")
			for _, l := range long {
				if name == l {
					arg = "-" + arg
					break
				}
			}
		}
		out = append(out, arg)
	}
	return out
}

// Execute runs cmd with the process arguments and exits non-zero after
// reporting the first error.
func Execute(cmd *cobra.Command, long ...string) {
	// glog writes files by default
	flag.Set("logtostderr", "true")
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.Flags().AddGoFlagSet(flag.CommandLine)
	cmd.SetArgs(NormalizeArgs(os.Args[1:], long...))
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &dubcc.Error{Kind: dubcc.ErrUsage, Name: c.UseLine(), Err: err}
	})

	if err := cmd.Execute(); err != nil {
		glog.Errorf("%s: %v", cmd.Name(), err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Flush()
}

// Args wraps a cobra positional validator so that its failures are
// usage errors.
func Args(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &dubcc.Error{Kind: dubcc.ErrUsage, Name: cmd.UseLine(), Err: err}
		}
		return nil
	}
}

// WriteOutput renders everything into memory first, so a failure never
// leaves a partial file behind.
func WriteOutput(path string, render func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Dumper returns a pretty printer for --debug output on stderr, coloured
// only on terminals.
func Dumper() *pp.PrettyPrinter {
	printer := pp.New()
	printer.SetColoringEnabled(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	printer.SetOutput(colorable.NewColorableStderr())
	return printer
}
