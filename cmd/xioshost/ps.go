// ps boots the kernel against a given (or synthesized) filesystem
// image far enough to run its boot sequence (spec.md §2's C1-C9
// control flow, ending in the top-level shell spawn loop), without
// starting the steady-state Run loop, then prints the resulting
// process table. It exists purely as a diagnostic over the process
// table's pid-allocation and parent/terminal bookkeeping, the same
// inspection a process-listing tool gives on a real kernel.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerohand/xios/internal/elf"
	"github.com/aerohand/xios/internal/fsimage"
	"github.com/aerohand/xios/internal/hal"
	"github.com/aerohand/xios/internal/kernel"
	"github.com/aerohand/xios/internal/screen"
)

func newPSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "Boot the kernel and print its process table",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyVerbosity()
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			image, err := imageForConfig(cfg)
			if err != nil {
				return err
			}

			k := kernel.New(kernel.Deps{
				Floppy:           hal.MemoryFloppy{Image: image},
				PIC:              hal.NewLogPIC(),
				PIT:              hal.NewFixedPIT(cfg.TickHz),
				Clock:            hal.NewSimpleRTC(),
				Sound:            hal.NullSoundCard{},
				Mouse:            hal.NoMouse{},
				ExceptionPrinter: &hal.LogExceptionPrinter{},
				Formatter:        hal.StdFormatter{},
				Screen:           screen.NewDriver(),
			}, kernel.Config{NumTerminals: cfg.NumTerminals, Shells: cfg.Shells, TickHz: cfg.TickHz})

			if err := k.Boot(context.Background()); err != nil {
				return fmt.Errorf("xioshost ps: %w", err)
			}

			fmt.Printf("%-5s %-8s %-5s %-10s %-8s %s\n", "PID", "PARENT", "LEVEL", "PROGRAM", "TERM", "ARGS")
			for _, p := range k.Procs.Live() {
				term := "-"
				if t, ok := p.Terminal.(interface{ Index() int }); ok {
					term = fmt.Sprintf("%d", t.Index())
				}
				fmt.Printf("%-5d %-8d %-5d %-10s %-8s %s\n", p.PID, p.ParentPID, p.Level, p.Program, term, p.Args)
			}
			return nil
		},
	}
	return cmd
}

// imageForConfig loads cfg.FSImage from disk when it names a real
// file; otherwise it synthesizes a one-file image containing a
// minimal valid ELF-headed "shell" stub, so `ps`/`boot` work out of
// the box without requiring the caller to hand-build an image first.
func imageForConfig(cfg BootConfig) ([]byte, error) {
	if raw, err := readFileIfExists(cfg.FSImage); err == nil && raw != nil {
		return raw, nil
	}
	b := fsimage.NewBuilder()
	stub := make([]byte, elf.MinHeaderSize)
	copy(stub[0:4], elf.Magic[:])
	for _, name := range uniqueNames(cfg.Shells) {
		b.AddFile(name, fsimage.TypeFile, stub)
	}
	b.AddFile("rtc", fsimage.TypeRTC, nil)
	return b.Build(), nil
}

func uniqueNames(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
