package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	rfbridge "github.com/nerrad567/gray-logic-rf433/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf433/internal/discovery"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// Color palette for sniff and replay output.
var (
	accentColor  = lipgloss.Color("#7D56F4") // frames
	successColor = lipgloss.Color("#43BF6D") // one
	warningColor = lipgloss.Color("#FFA500") // sync
	errorColor   = lipgloss.Color("#FF5555") // noise, errors
	mutedColor   = lipgloss.Color("#626262") // zero, secondary info
)

// styles holds the renderers for one output stream. Plain styles are
// used when the stream is not a terminal so dumps stay parseable.
type styles struct {
	frame lipgloss.Style
	label lipgloss.Style
	zero  lipgloss.Style
	one   lipgloss.Style
	sync  lipgloss.Style
	noise lipgloss.Style
	bad   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	plain := lipgloss.NewStyle()
	if !isTerminal(w) {
		return styles{frame: plain, label: plain, zero: plain, one: plain, sync: plain, noise: plain, bad: plain}
	}
	return styles{
		frame: lipgloss.NewStyle().Foreground(accentColor).Bold(true),
		label: lipgloss.NewStyle().Foreground(mutedColor),
		zero:  lipgloss.NewStyle().Foreground(mutedColor),
		one:   lipgloss.NewStyle().Foreground(successColor),
		sync:  lipgloss.NewStyle().Foreground(warningColor).Bold(true),
		noise: lipgloss.NewStyle().Foreground(errorColor),
		bad:   lipgloss.NewStyle().Foreground(errorColor).Bold(true),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// formatInterval renders one sniffed interval. The first field is always
// the bare microsecond value so the dump can be fed back to replay.
func (s styles) formatInterval(iv uint32, sym rf433.Symbol, annotate bool) string {
	if !annotate {
		return fmt.Sprintf("%d", iv)
	}
	var st lipgloss.Style
	switch sym {
	case rf433.SymbolZero:
		st = s.zero
	case rf433.SymbolOne:
		st = s.one
	case rf433.SymbolSync:
		st = s.sync
	default:
		st = s.noise
	}
	return fmt.Sprintf("%-6d %s", iv, st.Render(sym.String()))
}

// formatFrame renders a decoded frame on one line, prefixed with '#' so
// replay skips it when reading a sniff dump.
func (s styles) formatFrame(f rf433.Frame) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(s.frame.Render(rfbridge.Address(f)))

	switch f.Variant {
	case rf433.VariantSwitch:
		state := "off"
		if f.Switch.On() {
			state = "on"
		}
		fmt.Fprintf(&b, " %s %s %s %s", s.label.Render("state"), state,
			s.label.Render("pattern"), f.Switch.Pattern())
	case rf433.VariantSensor:
		r := f.Sensor.Reading()
		if r.HasTemperature {
			fmt.Fprintf(&b, " %s %.1fC %s %d%%", s.label.Render("temp"), r.TemperatureC,
				s.label.Render("humidity"), r.Humidity)
		}
		if r.HasWind {
			fmt.Fprintf(&b, " %s %.1fkm/h", s.label.Render("wind"), r.WindKPH)
		}
		if r.BatteryLow {
			b.WriteString(" " + s.bad.Render("battery low"))
		}
	}
	return b.String()
}

// formatReplaySummary renders the counters of an offline decode.
func (s styles) formatReplaySummary(res rf433.ReplayResult) string {
	return fmt.Sprintf("# %s %d %s %d %s %d %s %d %s %d %s %d %s %d",
		s.label.Render("intervals"), res.Intervals,
		s.label.Render("frames"), len(res.Frames),
		s.label.Render("encoding_errors"), res.EncodingErrors,
		s.label.Render("validation_errors"), res.ValidationErrors,
		s.label.Render("duplicates"), res.Duplicates,
		s.label.Render("desyncs"), res.Desyncs,
		s.label.Render("truncated"), res.Truncated,
	)
}

// formatBridge renders one discovered bridge.
func (s styles) formatBridge(b discovery.Bridge) string {
	line := fmt.Sprintf("%s %s:%d", s.frame.Render(b.Instance), b.IP, b.Port)
	keys := []string{"version", "site", "protocol", "pin"}
	for _, k := range keys {
		if v, ok := b.Metadata[k]; ok {
			line += fmt.Sprintf(" %s=%s", s.label.Render(k), v)
		}
	}
	return line
}
