// ABOUTME: Entry point for the resonate-ao player
// ABOUTME: Plays a file or test tone through the configured output drivers
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-ao/internal/config"
	"github.com/Resonate-Protocol/resonate-ao/internal/ui"
	"github.com/Resonate-Protocol/resonate-ao/internal/version"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/chmap"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/output"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/audio/output/pipewire"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/source"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/miniaudio"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/null"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/oto"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/pulse"
)

const (
	defaultLogFile = "resonate-ao.log"
	// frames read from the source per write
	chunkFrames = 1024
)

var (
	configPath   = flag.String("config", "config.yaml", "Config file path")
	driver       = flag.String("driver", "", "Output driver list, e.g. pipewire/pulse,pipewire/null")
	engine       = flag.String("engine", "", "Default engine for drivers that take one")
	format       = flag.String("format", "", "Output sample format (u8, s16, s32, float, double, planar variants)")
	channels     = flag.String("channels", "", "Channel layout of the source, e.g. stereo or 5.1")
	sampleRate   = flag.Int("rate", 0, "Resample the source to this rate (0 keeps the source rate)")
	bufferDur    = flag.Duration("buffer", 0, "Audio queued ahead of the device")
	latency      = flag.String("latency", "", "Node latency hint, e.g. 1024/48000")
	volume       = flag.Int("volume", -1, "Initial volume (0-100)")
	loop         = flag.Bool("loop", false, "Restart the file at its end")
	toneDuration = flag.Duration("tone-duration", 0, "Length of the test tone (0 plays until stopped)")
	rawRate      = flag.Int("raw-rate", 48000, "Sample rate of .raw/.pcm input")
	rawChannels  = flag.Int("raw-channels", 2, "Channel count of .raw/.pcm input")
	rawBits      = flag.Int("raw-bits", 16, "Bit depth of .raw/.pcm input (16 or 24)")
	logLevel     = flag.String("log-level", "", "Log level (none, error, warn, info, debug)")
	logFile      = flag.String("log-file", "", "Log file path")
	noTUI        = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [file]\n\nPlays file, or a test tone when no file is given.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "resonate-ao: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// TUI mode: log only to file
	if cfg.TUI && cfg.LogFile == "" {
		cfg.LogFile = defaultLogFile
	}
	logFilePointer, err := config.ConfigureLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting player", "version", version.Version, "drivers", cfg.Driver)

	src, err := source.Open(path, source.Options{
		Raw:    source.RawFormat{SampleRate: *rawRate, Channels: *rawChannels, BitDepth: *rawBits},
		Loop:   cfg.Loop,
		Tone:   source.ToneConfig{Duration: *toneDuration},
		Logger: slog.Default(),
	})
	if err != nil {
		return err
	}
	defer src.Close()
	if cfg.SampleRate > 0 {
		src = source.Resample(src, cfg.SampleRate)
	}

	layout, err := sourceLayout(cfg, src.Channels())
	if err != nil {
		return err
	}
	sampleFormat, err := cfg.SampleFormat()
	if err != nil {
		return err
	}

	player := output.NewPlayer(output.PlayerConfig{
		Drivers: cfg.Driver,
		Format:  sampleFormat,
		Options: cfg.DriverOptions(),
		Buffer:  cfg.Buffer,
		Logger:  slog.Default(),
	})
	defer player.Close()
	player.SetVolume(cfg.Volume)

	if err := player.OpenLayout(src.SampleRate(), layout); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- play(ctx, src, player)
	}()

	if !cfg.TUI {
		go logStats(ctx, player)
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			slog.Info("Shutdown signal received")
			return nil
		}
	}
	return runTUI(ctx, cfg, src, player, done)
}

// applyFlags copies explicitly set flags over the loaded config
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = *driver
		case "engine":
			cfg.Engine = *engine
		case "format":
			cfg.Format = *format
		case "channels":
			cfg.Channels = *channels
		case "rate":
			cfg.SampleRate = *sampleRate
		case "buffer":
			cfg.Buffer = *bufferDur
		case "latency":
			cfg.Latency = *latency
		case "volume":
			cfg.Volume = *volume
		case "loop":
			cfg.Loop = *loop
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-file":
			cfg.LogFile = *logFile
		case "no-tui":
			cfg.TUI = !*noTUI
		}
	})
}

// sourceLayout returns the configured layout, or the default for n channels
func sourceLayout(cfg *config.Config, n int) (chmap.Map, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	if layout == nil {
		layout = chmap.DefaultLayout(n)
	}
	if layout == nil || layout.Len() != n {
		return nil, fmt.Errorf("channel layout %q does not fit %d source channels", cfg.Channels, n)
	}
	return layout, nil
}

// play copies the source into the player until EOF or cancellation
func play(ctx context.Context, src source.Reader, player *output.Player) error {
	buf := make([]int32, chunkFrames*src.Channels())
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := player.WriteContext(ctx, buf[:n]); werr != nil {
				if ctx.Err() != nil || errors.Is(werr, output.ErrClosed) {
					return nil
				}
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			slog.Info("Source finished, draining output")
			if err := player.Drain(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, output.ErrClosed) {
				return err
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
	}
}

func runTUI(ctx context.Context, cfg *config.Config, src source.Reader, player *output.Player, done <-chan error) error {
	volumeCtrl := ui.NewVolumeControl()
	prog := ui.Run(volumeCtrl, cfg.Volume)

	tuiDone := make(chan error, 1)
	go func() {
		_, err := prog.Run()
		tuiDone <- err
	}()

	if dev := player.Device(); dev != nil {
		ao := dev.AO()
		title, artist, album := src.Metadata()
		go prog.Send(ui.StatusMsg{
			Driver:     dev.Driver().Name,
			Engine:     ao.Option("engine", ""),
			Format:     ao.Format.String(),
			SampleRate: ao.SampleRate,
			Channels:   ao.Channels.String(),
			Title:      title,
			Artist:     artist,
			Album:      album,
		})
	}

	go handleVolumeControl(ctx, player, volumeCtrl)
	go statsUpdateLoop(ctx, player, prog)

	var err error
	select {
	case <-volumeCtrl.Quit:
		slog.Info("Received quit signal from TUI")
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err = <-done:
		slog.Info("Playback finished")
	case err = <-tuiDone:
		return err
	}

	prog.Quit()
	if tuiErr := <-tuiDone; tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
		slog.Warn("TUI exited with error", "error", tuiErr)
	}
	return err
}

// handleVolumeControl processes volume changes from TUI
func handleVolumeControl(ctx context.Context, player *output.Player, volumeCtrl *ui.VolumeControl) {
	for {
		select {
		case vol := <-volumeCtrl.Changes:
			slog.Debug("Volume change", "volume", vol.Volume, "muted", vol.Muted)
			player.SetVolume(vol.Volume)
			player.SetMuted(vol.Muted)
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically updates TUI with playback statistics
func statsUpdateLoop(ctx context.Context, player *output.Player, prog *tea.Program) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	// Use a slower ticker for expensive runtime stats to avoid GC pauses
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	var lastGoroutines int
	var lastMemAlloc uint64

	for {
		select {
		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			lastGoroutines = runtime.NumGoroutine()
			lastMemAlloc = m.Alloc

		case <-ticker.C:
			stats := player.Stats()
			prog.Send(ui.StatusMsg{
				Written:    stats.Written,
				Played:     stats.Played,
				Underruns:  stats.Underruns,
				Buffered:   stats.Buffered,
				Latency:    stats.Latency,
				Goroutines: lastGoroutines,
				MemAlloc:   lastMemAlloc,
			})

		case <-ctx.Done():
			return
		}
	}
}

// logStats reports playback progress when running without the TUI
func logStats(ctx context.Context, player *output.Player) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := player.Stats()
			slog.Info("Playback stats",
				"written", stats.Written,
				"played", stats.Played,
				"underruns", stats.Underruns,
				"buffered", stats.Buffered,
				"latency", stats.Latency)
		case <-ctx.Done():
			return
		}
	}
}
