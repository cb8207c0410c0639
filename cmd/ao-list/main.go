// ABOUTME: Lists registered output drivers and engines
// ABOUTME: Shows each driver's options with their defaults
package main

import (
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/output"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/audio/output/pipewire"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/miniaudio"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/null"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/oto"
	_ "github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine/pulse"
)

var showOptions = flag.Bool("options", true, "Show driver options")

func main() {
	flag.Parse()
	list(os.Stdout, output.Drivers(), pw.Engines(), *showOptions)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func list(out io.Writer, drivers []output.Driver, engines []string, options bool) {
	dt := newTable("NAME", "DESCRIPTION")
	for _, d := range drivers {
		dt.Row(d.Name, d.Description)
		if !options {
			continue
		}
		for _, key := range slices.Sorted(maps.Keys(d.Options)) {
			def := d.Options[key]
			if def == "" {
				def = "(unset)"
			}
			dt.Row("  "+key, def)
		}
	}
	fmt.Fprintln(out, "Drivers:")
	fmt.Fprintln(out, dt)

	et := newTable("NAME", "")
	for _, name := range engines {
		marker := ""
		if name == pw.DefaultEngine {
			marker = "(default)"
		}
		et.Row(name, marker)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Engines:")
	fmt.Fprintln(out, et)
}
