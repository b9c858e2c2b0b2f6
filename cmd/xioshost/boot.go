package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aerohand/xios/hostaudio"
	"github.com/aerohand/xios/hostdisplay"
	"github.com/aerohand/xios/internal/fsimage"
	"github.com/aerohand/xios/internal/hal"
	"github.com/aerohand/xios/internal/kernel"
	"github.com/aerohand/xios/internal/screen"
	"github.com/aerohand/xios/internal/terminal"
)

func newBootCmd() *cobra.Command {
	var headless bool
	var terminals int
	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Boot the kernel and run it until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyVerbosity()
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if headless {
				cfg.Video = "headless"
			}
			if terminals > 0 {
				cfg.NumTerminals = terminals
			}
			return runBoot(cfg)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "run against the terminal instead of a window")
	cmd.Flags().IntVar(&terminals, "terminals", 0, "override the number of top-level shells to spawn (1-10)")
	return cmd
}

func runBoot(cfg BootConfig) error {
	image, err := imageForConfig(cfg)
	if err != nil {
		return err
	}

	sound, err := soundCardForConfig(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closer, ok := sound.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	scr := screen.NewDriver()

	var clip terminal.ClipboardReader
	if cfg.Video == "gui" {
		clip = hostdisplay.NewClipboardReader()
	}

	k := kernel.New(kernel.Deps{
		Floppy:           hal.MemoryFloppy{Image: image},
		PIC:              hal.NewLogPIC(),
		PIT:              hal.NewFixedPIT(cfg.TickHz),
		Clock:            hal.NewSimpleRTC(),
		Sound:            sound,
		Mouse:            hal.NoMouse{},
		ExceptionPrinter: &hal.LogExceptionPrinter{},
		Formatter:        hal.StdFormatter{},
		Screen:           scr,
		Clipboard:        clip,
		ExecutableNames:  executableNamesFromImage(image),
	}, kernel.Config{NumTerminals: cfg.NumTerminals, Shells: cfg.Shells, TickHz: cfg.TickHz})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := k.Boot(ctx); err != nil {
		return fmt.Errorf("xioshost boot: %w", err)
	}

	runErrCh := make(chan error, 1)
	go func() {
		reason, err := k.Run(ctx)
		if err != nil {
			runErrCh <- err
			return
		}
		if reason != "" {
			fmt.Printf("xios shutdown: %s\n", reason)
		}
		runErrCh <- nil
	}()

	switch cfg.Video {
	case "headless":
		runHeadless(ctx, k, scr)
	default:
		game := hostdisplay.NewGame(scr, k.HandleKey, func() {
			k.Terms.PasteFromClipboard()
		}, func(segment int) {
			if segment == 0 {
				return
			}
			k.Terms.SwitchFocus(segment - 1)
		})
		if err := hostdisplay.Run("xios", game); err != nil {
			return fmt.Errorf("xioshost boot: %w", err)
		}
		cancel()
	}

	return <-runErrCh
}

func soundCardForConfig(cfg BootConfig) (hal.SoundCard, error) {
	if cfg.Audio == "none" {
		return hal.NullSoundCard{}, nil
	}
	card, err := hostaudio.New()
	if err != nil {
		return nil, fmt.Errorf("xioshost: audio device unavailable (set audio: none to run without sound): %w", err)
	}
	return card, nil
}

func executableNamesFromImage(image []byte) func() []string {
	img, err := fsimage.Parse(image)
	if err != nil {
		return func() []string { return nil }
	}
	return func() []string {
		var names []string
		for i := 0; i < img.NumDentries(); i++ {
			d, ok := img.ReadDentryByIndex(i)
			if ok && d.Type == fsimage.TypeFile {
				names = append(names, d.Name)
			}
		}
		return names
	}
}
