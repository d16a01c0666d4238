package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the flowengine banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`   __ _                               _            `, "#818cf8"},
		{`  / _| | _____      __   ___ _ __   __ _(_)_ __   ___ `, "#a78bfa"},
		{` | |_| |/ _ \ \ /\ / /  / _ \ '_ \ / _' | | '_ \ / _ \`, "#c084fc"},
		{` |  _| | (_) \ V  V /  |  __/ | | | (_| | | | | |  __/`, "#e879f9"},
		{` |_| |_|\___/ \_/\_/    \___|_| |_|\__, |_|_| |_|\___|`, "#f472b6"},
		{`                                   |___/ `, "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  version "+version).Faint())
	fmt.Fprintln(w)
}
