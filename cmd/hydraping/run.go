package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hydraping/hydraping/internal/apperr"
	"github.com/hydraping/hydraping/internal/config"
	"github.com/hydraping/hydraping/internal/runtime"
)

// Exit codes from the external interfaces contract: 0 ok, 2 config
// error, 3 terminal error, 130 on interrupt.
const (
	exitOK            = 0
	exitConfigError   = 2
	exitTerminalError = 3
	exitInterrupted   = 130
)

type runFlags struct {
	configPath  string
	interval    float64
	timeout     float64
	disableDNS  bool
	disableICMP bool
	debugAddr   string
	debug       bool
}

func bindRunFlags(cmd *cobra.Command) *runFlags {
	f := &runFlags{}
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to settings.toml (default ~/.config/hydraping/settings.toml)")
	cmd.Flags().Float64Var(&f.interval, "interval", 0, "override checks.interval_seconds for this run")
	cmd.Flags().Float64Var(&f.timeout, "timeout", 0, "override checks.timeout_seconds for this run")
	cmd.Flags().BoolVar(&f.disableDNS, "no-dns", false, "disable DNS checks for this run")
	cmd.Flags().BoolVar(&f.disableICMP, "no-icmp", false, "disable ICMP checks for this run")
	cmd.Flags().StringVar(&f.debugAddr, "debug-addr", "", "bind an introspection HTTP server (loopback only), e.g. 127.0.0.1:9091")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "enable debug-level logging")
	return f
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [endpoints...]",
		Short: "Run the monitor with a live dashboard (also the default when no subcommand is given)",
		Args:  cobra.ArbitraryArgs,
	}
	flags := bindRunFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		execRun(cmd, flags, args)
		return nil
	}
	return cmd
}

// execRun never returns normally: it calls os.Exit with the code the
// external interfaces contract specifies for each outcome. Positional
// endpoint arguments override the config file's targets entirely, the
// same as the original CLI's bare `hydraping 8.8.8.8 1.1.1.1:53`.
func execRun(cmd *cobra.Command, flags *runFlags, endpoints []string) {
	path := flags.configPath
	if path == "" {
		path = config.DefaultPath()
	}

	opts := runtime.Options{
		ConfigPath:  path,
		DisableDNS:  flags.disableDNS,
		DisableICMP: flags.disableICMP,
		DebugAddr:   flags.debugAddr,
		Debug:       flags.debug,
		Stdout:      os.Stdout,
		Endpoints:   endpoints,
	}
	if flags.interval > 0 {
		opts.Interval = time.Duration(flags.interval * float64(time.Second))
	}
	if flags.timeout > 0 {
		opts.Timeout = time.Duration(flags.timeout * float64(time.Second))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := runtime.Run(ctx, opts)
	if err == nil {
		if ctx.Err() != nil {
			os.Exit(exitInterrupted)
		}
		os.Exit(exitOK)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())

	var kinded apperr.Kinded
	if errors.As(err, &kinded) {
		os.Exit(exitCodeForKind(kinded.ErrorKind()))
	}
	os.Exit(exitTerminalError)
}

func exitCodeForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindConfig:
		return exitConfigError
	case apperr.KindTerminal:
		return exitTerminalError
	default:
		return exitTerminalError
	}
}
