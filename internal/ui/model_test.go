// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and rendering
package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil, 80) // VolumeControl is optional for testing

	if model.driver != "" {
		t.Error("expected no driver initially")
	}

	if model.volume != 80 {
		t.Errorf("expected volume 80, got %d", model.volume)
	}

	if model.muted {
		t.Error("expected muted to be false initially")
	}

	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
}

func TestStatusMsgOutput(t *testing.T) {
	model := NewModel(nil, 100)

	model.applyStatus(StatusMsg{
		Driver:     "pipewire",
		Engine:     "pulse",
		Format:     "float",
		SampleRate: 48000,
		Channels:   "stereo",
	})

	if model.driver != "pipewire" || model.engine != "pulse" {
		t.Errorf("expected pipewire/pulse, got %s/%s", model.driver, model.engine)
	}

	if model.format != "float" || model.sampleRate != 48000 || model.channels != "stereo" {
		t.Errorf("unexpected format %s %d %s", model.format, model.sampleRate, model.channels)
	}
}

func TestStatusMsgMetadata(t *testing.T) {
	model := NewModel(nil, 100)

	model.applyStatus(StatusMsg{
		Title:  "Test Song",
		Artist: "Test Artist",
		Album:  "Test Album",
	})

	if model.title != "Test Song" {
		t.Errorf("expected title 'Test Song', got '%s'", model.title)
	}

	if model.artist != "Test Artist" {
		t.Errorf("expected artist 'Test Artist', got '%s'", model.artist)
	}

	if model.album != "Test Album" {
		t.Errorf("expected album 'Test Album', got '%s'", model.album)
	}
}

func TestStatusMsgVolume(t *testing.T) {
	model := NewModel(nil, 100)

	volume := 0
	muted := true
	model.applyStatus(StatusMsg{Volume: &volume, Muted: &muted})

	if model.volume != 0 {
		t.Errorf("expected volume 0, got %d", model.volume)
	}

	if !model.muted {
		t.Error("expected muted after status update")
	}
}

func TestStatusMsgStats(t *testing.T) {
	model := NewModel(nil, 100)

	model.applyStatus(StatusMsg{
		Written:   48000,
		Played:    24000,
		Underruns: 2,
		Buffered:  24000,
		Latency:   20 * time.Millisecond,
	})

	if model.written != 48000 || model.played != 24000 {
		t.Errorf("expected 48000/24000, got %d/%d", model.written, model.played)
	}

	if model.underruns != 2 {
		t.Errorf("expected underruns 2, got %d", model.underruns)
	}

	if model.buffered != 24000 {
		t.Errorf("expected buffered 24000, got %d", model.buffered)
	}

	if model.latency != 20*time.Millisecond {
		t.Errorf("expected latency 20ms, got %s", model.latency)
	}
}

func TestStatusMsgRuntimeStats(t *testing.T) {
	model := NewModel(nil, 100)

	model.applyStatus(StatusMsg{
		Goroutines: 42,
		MemAlloc:   1024 * 1024,
	})

	if model.goroutines != 42 {
		t.Errorf("expected goroutines 42, got %d", model.goroutines)
	}

	if model.memAlloc != 1024*1024 {
		t.Errorf("expected memAlloc %d, got %d", 1024*1024, model.memAlloc)
	}
}

func TestStatusMsgZeroValues(t *testing.T) {
	model := NewModel(nil, 75)
	model.applyStatus(StatusMsg{Driver: "pipewire", Title: "Song", Played: 10})

	// An empty message must not clear anything
	model.applyStatus(StatusMsg{})

	if model.volume != 75 {
		t.Errorf("expected volume 75 retained, got %d", model.volume)
	}

	if model.driver != "pipewire" || model.title != "Song" || model.played != 10 {
		t.Error("expected previous values to be retained")
	}
}

func TestKeyVolume(t *testing.T) {
	ctrl := NewVolumeControl()
	var m tea.Model = NewModel(ctrl, 98)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := m.(Model).volume; got != 100 {
		t.Errorf("expected volume clamped to 100, got %d", got)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})

	want := []VolumeChangeMsg{{100, false}, {95, false}, {95, true}}
	for i, w := range want {
		select {
		case got := <-ctrl.Changes:
			if got != w {
				t.Errorf("change %d: expected %+v, got %+v", i, w, got)
			}
		default:
			t.Fatalf("change %d: nothing sent", i)
		}
	}
}

func TestKeyVolumeFloor(t *testing.T) {
	var m tea.Model = NewModel(nil, 3)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := m.(Model).volume; got != 0 {
		t.Errorf("expected volume clamped to 0, got %d", got)
	}
}

func TestKeyQuit(t *testing.T) {
	ctrl := NewVolumeControl()
	var m tea.Model = NewModel(ctrl, 100)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}

	select {
	case <-ctrl.Quit:
	default:
		t.Error("expected quit signal")
	}

	if !strings.Contains(m.View(), "Stopping") {
		t.Error("expected stopping view after quit")
	}
}

func TestKeyDebugToggle(t *testing.T) {
	var m tea.Model = NewModel(nil, 100)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !m.(Model).showDebug {
		t.Error("expected debug shown")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if m.(Model).showDebug {
		t.Error("expected debug hidden")
	}
}

func TestViewBeforeResize(t *testing.T) {
	model := NewModel(nil, 100)
	if model.View() != "Loading..." {
		t.Errorf("expected loading view, got %q", model.View())
	}
}

func TestViewRendersStatus(t *testing.T) {
	var m tea.Model = NewModel(nil, 50)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = m.Update(StatusMsg{
		Driver:     "pipewire",
		Engine:     "null",
		Format:     "s16",
		SampleRate: 44100,
		Channels:   "5.1",
		Title:      "Test Tone",
		Written:    100,
		Played:     50,
		Underruns:  1,
	})

	view := m.View()
	for _, want := range []string{"pipewire/null", "s16 44100Hz 5.1", "Test Tone", "50%", "Underruns: 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		length   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a very long string", 10, "this is..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.length)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q", tt.input, tt.length, result, tt.expected)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(50, 100, 10); got != "█████░░░░░" {
		t.Errorf("unexpected bar %q", got)
	}
	if got := renderBar(0, 100, 4); got != "░░░░" {
		t.Errorf("unexpected bar %q", got)
	}
}
