// ABOUTME: Test app to verify output timing
// ABOUTME: Plays a tone and reports latency and underruns once per second
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/output"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/audio/output/pipewire"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/source"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/miniaudio"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/null"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/oto"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/pulse"
)

var (
	drivers  = flag.String("driver", "pipewire/null", "Output driver list")
	duration = flag.Duration("duration", 5*time.Second, "How long to play")
	rate     = flag.Int("rate", 48000, "Sample rate")
	latency  = flag.String("latency", "", "Node latency hint, e.g. 256/48000")
	buffer   = flag.Duration("buffer", 100*time.Millisecond, "Audio queued ahead of the device")
	debug    = flag.Bool("debug", false, "Debug logging")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)
	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fmt.Println("=== Output Timing Test ===")
	fmt.Printf("Playing a %s tone at %dHz through %q\n\n", *duration, *rate, *drivers)

	options := map[string]string{}
	if *latency != "" {
		options["latency"] = *latency
	}
	player := output.NewPlayer(output.PlayerConfig{
		Drivers: *drivers,
		Format:  audio.FormatS16,
		Options: options,
		Buffer:  *buffer,
		Logger:  logger,
	})
	defer player.Close()

	tone := source.NewTone(source.ToneConfig{SampleRate: *rate, Duration: *duration})
	if err := player.Open(tone.SampleRate(), tone.Channels()); err != nil {
		log.Fatalf("Failed to open output: %v", err)
	}
	dev := player.Device()
	log.Printf("Opened %s (engine %s)", dev.Driver().Name, dev.AO().Option("engine", "-"))

	ctx, cancel := context.WithTimeout(context.Background(), *duration+5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- feed(ctx, tone, player)
	}()

	report := newReport()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	lastPrint := time.Now()

	for {
		select {
		case err := <-done:
			report.add(player.Stats())
			report.print()
			if err != nil {
				log.Fatalf("Test failed: %v", err)
			}
			log.Printf("Test complete")
			return
		case <-ticker.C:
			stats := player.Stats()
			report.add(stats)
			if time.Since(lastPrint) >= time.Second {
				lastPrint = time.Now()
				log.Printf("played=%d buffered=%d underruns=%d latency=%s",
					stats.Played, stats.Buffered, stats.Underruns, stats.Latency.Round(time.Microsecond))
			}
		}
	}
}

func feed(ctx context.Context, src source.Reader, player *output.Player) error {
	buf := make([]int32, 480*src.Channels())
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := player.WriteContext(ctx, buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return player.Drain(ctx)
		}
		if err != nil {
			return err
		}
	}
}

// report tracks the latency range seen while playing
type report struct {
	samples  int
	min, max time.Duration
	last     output.Stats
}

func newReport() *report {
	return &report{min: time.Duration(1<<63 - 1)}
}

func (r *report) add(s output.Stats) {
	r.last = s
	if s.Played == 0 {
		return
	}
	r.samples++
	r.min = min(r.min, s.Latency)
	r.max = max(r.max, s.Latency)
}

func (r *report) print() {
	fmt.Println()
	fmt.Printf("Frames written:  %d\n", r.last.Written)
	fmt.Printf("Frames played:   %d\n", r.last.Played)
	fmt.Printf("Underruns:       %d\n", r.last.Underruns)
	if r.samples > 0 {
		fmt.Printf("Latency range:   %s .. %s\n", r.min.Round(time.Microsecond), r.max.Round(time.Microsecond))
	}
}
