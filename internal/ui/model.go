// ABOUTME: Bubbletea model for the playback TUI
// ABOUTME: Shows output device, track, volume and buffer statistics
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().Faint(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// Model represents the TUI state
type Model struct {
	// Output
	driver     string
	engine     string
	format     string
	sampleRate int
	channels   string

	// Metadata
	title  string
	artist string
	album  string

	// Playback
	volume int
	muted  bool

	// Stats
	written   uint64
	played    uint64
	underruns uint64
	buffered  int
	latency   time.Duration

	// Debug
	showDebug  bool
	goroutines int
	memAlloc   uint64

	volumeCtrl *VolumeControl
	quitting   bool

	// Dimensions
	width  int
	height int
}

// StatusMsg updates TUI state. Zero fields leave the current value.
type StatusMsg struct {
	Driver     string
	Engine     string
	Format     string
	SampleRate int
	Channels   string

	Title  string
	Artist string
	Album  string

	Volume *int
	Muted  *bool

	Written   uint64
	Played    uint64
	Underruns uint64
	Buffered  int
	Latency   time.Duration

	Goroutines int
	MemAlloc   uint64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping playback...\n"
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Resonate AO"))
	b.WriteString("\n\n")
	b.WriteString(m.renderOutput())
	b.WriteString(m.renderTrack())
	b.WriteString(m.renderControls())
	b.WriteString(m.renderStats())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓:Volume  m:Mute  d:Debug  q:Quit"))

	return boxStyle.Render(b.String()) + "\n"
}

func field(name, value string) string {
	return headerStyle.Render(fmt.Sprintf("%-9s", name+":")) + valueStyle.Render(value) + "\n"
}

// renderOutput renders the negotiated device format
func (m Model) renderOutput() string {
	if m.driver == "" {
		return field("Output", "not open")
	}

	driver := m.driver
	if m.engine != "" {
		driver += "/" + m.engine
	}
	return field("Output", driver) +
		field("Format", fmt.Sprintf("%s %dHz %s", m.format, m.sampleRate, m.channels))
}

// renderTrack renders current metadata
func (m Model) renderTrack() string {
	if m.title == "" {
		return field("Track", "(No metadata)")
	}
	return field("Track", truncate(m.title, 42)) +
		field("Artist", truncate(m.artist, 42)) +
		field("Album", truncate(m.album, 42))
}

// renderControls renders volume and buffer status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " 🔇"
	}

	return "\n" +
		field("Volume", fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon)) +
		field("Buffer", fmt.Sprintf("%d frames, %s ahead", m.buffered, m.latency.Round(time.Millisecond)))
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	stats := fmt.Sprintf("Written: %d  Played: %d  Underruns: %d", m.written, m.played, m.underruns)
	if m.underruns > 0 {
		return headerStyle.Render("Stats:   ") + warnStyle.Render(stats) + "\n"
	}
	return field("Stats", stats)
}

// renderDebug renders runtime information
func (m Model) renderDebug() string {
	return "\n" + field("Debug", fmt.Sprintf("goroutines: %d  heap: %.1fMB",
		m.goroutines, float64(m.memAlloc)/(1024*1024)))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume = min(m.volume+5, 100)
		m.sendVolume()
	case "down":
		m.volume = max(m.volume-5, 0)
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// sendVolume notifies the player without blocking the UI
func (m Model) sendVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Driver != "" {
		m.driver = msg.Driver
		m.engine = msg.Engine
	}
	if msg.Format != "" {
		m.format = msg.Format
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
	}
	if msg.Title != "" {
		m.title = msg.Title
		m.artist = msg.Artist
		m.album = msg.Album
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Muted != nil {
		m.muted = *msg.Muted
	}
	if msg.Written != 0 || msg.Played != 0 {
		m.written = msg.Written
		m.played = msg.Played
		m.underruns = msg.Underruns
		m.buffered = msg.Buffered
		m.latency = msg.Latency
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
