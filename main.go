// voxnote is a hotkey-driven dictation tool: record speech, have a
// cloud model transcribe and clean it up, and deliver the text to the
// clipboard, the cursor position or an in-app consumer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"voxnote/announce"
	"voxnote/audio"
	"voxnote/config"
	"voxnote/history"
	"voxnote/hotkey"
	"voxnote/log"
	"voxnote/output"
	"voxnote/process"
	"voxnote/session"
	"voxnote/transcriber"
)

var version = "dev"

func main() {
	var (
		configDir   = flag.String("config", "", "config directory (default: $XDG_CONFIG_HOME/voxnote)")
		logPath     = flag.String("logpath", "", "log directory override")
		deviceName  = flag.String("device", "", "capture device name substring")
		outputMode  = flag.String("output", "", "output mode: clipboard, cursor, inapp")
		listDevices = flag.Bool("listdevices", false, "list capture devices and exit")
		diag        = flag.Bool("diag", false, "print hotkey diagnostics and exit")
		noSound     = flag.Bool("nosound", false, "disable feedback cues")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("voxnote", version)
		return
	}
	if *diag {
		report, err := hotkey.Diagnose()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(report)
		return
	}

	if err := run(*configDir, *logPath, *deviceName, *outputMode, *listDevices, *noSound); err != nil {
		fmt.Fprintln(os.Stderr, "voxnote:", err)
		os.Exit(1)
	}
}

func run(configDir, logPath, deviceName, outputMode string, listDevices, noSound bool) error {
	logDir, err := log.ResolveDir(logPath)
	if err != nil {
		return err
	}
	log.SetDir(logDir)
	if err := log.Init(); err != nil {
		return err
	}
	defer log.Close()

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if outputMode != "" {
		cfg.Output = outputMode
	}
	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		return err
	}
	setupOutput(mode, os.Stdout)
	if err := cfg.Validate(); err != nil {
		return err
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	defer audioCtx.Close()

	if listDevices {
		devices, err := audioCtx.Devices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			fmt.Println(d.Name)
		}
		return nil
	}

	device, err := pickDevice(audioCtx, deviceName)
	if err != nil {
		return err
	}

	if noSound {
		announce.Disable()
	}
	announce.Init()
	announce.LoadCueDir(cfg.CueDir)

	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.Open(cfg.HistoryPath)
		if err != nil {
			log.Warnf("history disabled: %v", err)
		} else {
			defer store.Close()
		}
	}

	chain := []transcriber.Attempt{{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey(cfg.Provider),
	}}
	if cfg.Failover.Enabled {
		chain = append(chain, transcriber.Attempt{
			Provider: cfg.Failover.Provider,
			Model:    cfg.Failover.Model,
			APIKey:   cfg.APIKey(cfg.Failover.Provider),
		})
	}

	archiveDir := ""
	if cfg.Archive.Enabled {
		archiveDir = cfg.Archive.Dir
	}

	orch := transcriber.New(transcriber.Options{
		Timeout:  cfg.Timeout(),
		Failover: cfg.Failover.Enabled,
		Preprocess: process.Config{
			VAD:     cfg.VAD,
			Archive: cfg.Archive.Enabled,
		},
	})

	orch.Prime(chain)

	keys := hotkey.New()
	if err := keys.Register(); err != nil {
		return fmt.Errorf("hotkeys: %w", err)
	}
	defer keys.Unregister()

	ctrl := session.NewController(audioCtx, device, keys, orch, store, session.Config{
		Instruction:  cfg.Instruction,
		Chain:        chain,
		Output:       mode,
		ArchiveDir:   archiveDir,
		Capture:      audio.CaptureConfig{Gain: cfg.Gain},
		SilenceWarn:  time.Duration(cfg.Silence.WarnSeconds) * time.Second,
		SilenceClose: time.Duration(cfg.Silence.CloseSeconds) * time.Second,
	})

	log.SessionStart(cfg.Provider, cfg.Model)
	if device != nil {
		log.Info("capture device: " + device.Name)
	} else {
		log.Info("capture device: system default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = ctrl.Run(ctx)
	log.SessionEnd(ctrl.Completed())
	return err
}

// setupOutput registers the in-app consumer for the binary: delivered
// text goes to w, one transcript per line.
func setupOutput(mode output.Mode, w io.Writer) {
	if mode != output.ModeInApp {
		return
	}
	output.SetHandler(func(text string) {
		fmt.Fprintln(w, text)
	})
}

func pickDevice(ctx audio.Context, name string) (*audio.DeviceInfo, error) {
	if name == "" {
		return nil, nil // system default
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), strings.ToLower(name)) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("no capture device matching %q", name)
}
