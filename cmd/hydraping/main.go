package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hydraping/hydraping/internal/apperr"
)

var version = "dev"

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)

	var kinded apperr.Kinded
	if errors.As(err, &kinded) {
		os.Exit(exitCodeForKind(kinded.ErrorKind()))
	}
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hydraping",
		Short:         "Multi-protocol reachability monitor with a live terminal dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := bindRunFlags(root)
	root.Args = cobra.ArbitraryArgs
	root.RunE = func(cmd *cobra.Command, args []string) error {
		execRun(cmd, flags, args)
		return nil
	}

	root.AddCommand(newRunCmd(), newInitCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hydraping version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
