package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/mrhelmut/LeBoy/leboy"
	"github.com/mrhelmut/LeBoy/leboy/backend"
	"github.com/mrhelmut/LeBoy/leboy/backend/headless"
	"github.com/mrhelmut/LeBoy/leboy/backend/player"
	"github.com/mrhelmut/LeBoy/leboy/backend/terminal"
	"github.com/mrhelmut/LeBoy/leboy/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "LeBoy"
	app.Description = "A Game Boy (DMG) emulator"
	app.Usage = "leboy [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Output backend: terminal, sdl2 or headless",
			Value: "terminal",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "dump-frame",
			Usage: "Write the final frame as a shade map to this path (headless)",
		},
		cli.BoolFlag{
			Name:  "no-audio",
			Usage: "Disable audio output",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window pixel scale (sdl2 backend)",
			Value: 3,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	emu, err := leboy.NewWithFile(romPath)
	if err != nil {
		return err
	}

	cart := emu.GetMMU().Cartridge()
	slog.Info("ROM loaded",
		"title", cart.Title(),
		"controller", cart.Type().String(),
		"romBanks", cart.ROMBanks(),
		"ramBanks", cart.RAMBanks())

	config := backend.Config{
		Title:     "LeBoy - " + cart.Title(),
		Frames:    c.Int("frames"),
		DumpPath:  c.String("dump-frame"),
		Audio:     !c.Bool("no-audio"),
		PixelSize: c.Int("scale"),
	}

	var out backend.Backend
	var limiter timing.Limiter

	switch c.String("backend") {
	case "headless":
		if config.Frames <= 0 {
			return errors.New("headless mode requires --frames with a positive value")
		}
		out = headless.New()
		limiter = timing.NewNoOpLimiter()
		config.Audio = false
	case "sdl2":
		out = backend.NewSDL2Backend()
		limiter = timing.NewTickerLimiter()
	case "terminal":
		out = terminal.New()
		limiter = timing.NewTickerLimiter()
	default:
		return errors.New("unknown backend: " + c.String("backend"))
	}

	if err := out.Init(config); err != nil {
		return err
	}
	defer out.Close()

	var audioOut *player.Player
	if config.Audio {
		audioOut, err = player.New()
		if err != nil {
			slog.Error("Audio unavailable, continuing silent", "error", err)
			audioOut = nil
		} else {
			defer audioOut.Close()
		}
	}

	for {
		emu.RunUntilFrame()

		if err := out.RenderFrame(emu.GetCurrentFrame()); err != nil {
			return err
		}
		if audioOut != nil {
			audioOut.Pump(emu)
		}
		if !out.PollInput(emu) {
			return nil
		}

		limiter.WaitForNextFrame()
	}
}
