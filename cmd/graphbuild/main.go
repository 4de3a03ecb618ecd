// Command graphbuild drives pkg/builder over a JSON method fixture,
// the way kristofer-smog's cmd/smog drives its own VM over .smog/.sg
// files — except this command's subcommands build and dump, not run:
// the graph builder produces an SSA graph for a later JIT stage to
// consume, it does not execute anything itself.
package main

import (
	"fmt"
	"os"

	"github.com/kristofer/graphbuilder/pkg/builder"
	"github.com/kristofer/graphbuilder/pkg/graphprint"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var verbose bool

func main() {
	root := &cobra.Command{
		Use:   "graphbuild",
		Short: "Compile a method fixture's bytecode into an SSA graph",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print a full cause chain and stack trace on error")

	root.AddCommand(newBuildCmd(), newDumpCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		printErr(err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the graphbuild version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "graphbuild version %s\n", version)
			return nil
		},
	}
}

func newBuildCmd() *cobra.Command {
	var maxNodeCount int
	var useAssumptions bool
	var resolveBeforeStatic bool

	cmd := &cobra.Command{
		Use:   "build <fixture.json>",
		Short: "Compile a fixture and print the resulting graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, opts, err := load(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-node-count") {
				opts.MaxNodeCount = maxNodeCount
			}
			if cmd.Flags().Changed("use-assumptions") {
				opts.UseAssumptions = useAssumptions
			}
			if cmd.Flags().Changed("resolve-class-before-static-invoke") {
				opts.ResolveClassBeforeStaticInvoke = resolveBeforeStatic
			}

			result, err := builder.Build(in, opts)
			if err != nil {
				return errors.Wrap(err, "build")
			}
			fmt.Fprint(cmd.OutOrStdout(), graphprint.Dump(result.Graph))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxNodeCount, "max-node-count", 0, "bound the graph arena; 0 is unbounded")
	cmd.Flags().BoolVar(&useAssumptions, "use-assumptions", false, "enable speculative optimizations backed by the runtime descriptor")
	cmd.Flags().BoolVar(&resolveBeforeStatic, "resolve-class-before-static-invoke", false, "require a static callee's class to be resolved before binding directly")
	return cmd
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <fixture.json>",
		Short: "Print a fixture's handler table and exception-dispatch edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, opts, err := load(args[0])
			if err != nil {
				return err
			}

			handlers := make([]builder.HandlerSpec, len(in.Handlers))
			copy(handlers, in.Handlers)

			result, err := builder.Build(in, opts)
			if err != nil {
				return errors.Wrap(err, "build")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d handler(s) declared:\n", len(handlers))
			for i, h := range handlers {
				catch := "any"
				if !h.CatchType.Resolved {
					catch = "unresolved"
				} else if h.CatchType.Name != "" {
					catch = h.CatchType.Name
				}
				fmt.Fprintf(out, "  [%d] bci [%d,%d) handler@%d catch=%s\n", i, h.StartBCI, h.EndBCI, h.HandlerBCI, catch)
			}
			fmt.Fprintln(out, graphprint.DumpExceptionEdges(result.Graph))
			return nil
		},
	}
}

func printErr(err error) {
	if verbose {
		fmt.Fprintf(os.Stderr, "graphbuild: %+v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "graphbuild: %v\n", err)
}
