package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aerohand/xios/klog"
)

var (
	configPath string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xioshost",
		Short: "Host runner for the xios kernel",
		Long: "xioshost boots the xios kernel (internal/kernel) against a real\n" +
			"window and audio device, or a headless terminal, and offers a few\n" +
			"diagnostic subcommands over the filesystem image it boots against.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML boot config (defaults baked in if omitted)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "trace-level kernel logging")

	root.AddCommand(newBootCmd())
	root.AddCommand(newFsckCmd())
	root.AddCommand(newPSCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func applyVerbosity() {
	if verbose {
		klog.SetLevel(klog.LevelTrace)
	}
}
