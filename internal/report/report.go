// Package report prints the latest reading of every probe to the console after each poll cycle,
// coloured by class, with a sparkline of the recent readings.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/piger/ferm-probe/internal/probe"
)

const (
	historySize    = 30
	timestampValue = "Mon, Jan 02, 2006 03:04:05 PM"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ClassColor returns the colour used for a class; it mirrors the LED colours.
func ClassColor(c probe.Class) lipgloss.Color {
	switch c {
	case probe.Above:
		return lipgloss.Color("255") // white
	case probe.Within:
		return lipgloss.Color("78") // soft green
	case probe.Below:
		return lipgloss.Color("33") // blue
	case probe.Error:
		return lipgloss.Color("196") // red
	default:
		return lipgloss.Color("240") // grey
	}
}

// Console writes a report to w after each poll cycle.
type Console struct {
	w       io.Writer
	history map[string][]float64
}

// NewConsole returns a report writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, history: make(map[string][]float64)}
}

func (c *Console) Name() string { return "console" }

// Write prints the snapshots of a poll cycle.
func (c *Console) Write(_ context.Context, _ time.Time, snaps []probe.Snapshot) error {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 10) + "\n")
	for _, s := range snaps {
		c.push(s)
		b.WriteString(c.render(s))
		b.WriteString(strings.Repeat("-", 5) + "\n")
	}
	b.WriteString(strings.Repeat("=", 10) + "\n")

	_, err := io.WriteString(c.w, b.String())
	return err
}

func (c *Console) Close() error { return nil }

func (c *Console) push(s probe.Snapshot) {
	key := s.ID
	h := append(c.history[key], s.Latest.Value())
	if len(h) > historySize {
		h = h[len(h)-historySize:]
	}
	c.history[key] = h
}

func (c *Console) render(s probe.Snapshot) string {
	var b strings.Builder
	temp := lipgloss.NewStyle().Foreground(ClassColor(s.Class))

	if s.Err != nil {
		fmt.Fprintf(&b, "%s\n", errorStyle.Render("!! ERROR: "+s.ErrorLabel()))
	}
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("NAME:"), s.Name)
	fmt.Fprintf(&b, "%s %d\n", titleStyle.Render("POSITION:"), s.Position)
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("LATEST TIMESTAMP:"), s.Latest.Time.Format(timestampValue))
	fmt.Fprintf(&b, "%s %s %s\n", titleStyle.Render("LATEST TEMP (F):"),
		temp.Render(fmt.Sprintf("%.2f", s.Latest.Value())),
		dimStyle.Render(fmt.Sprintf("[%s, target %s]", s.Class, s.Target)))

	pct := s.Percentages
	fmt.Fprintf(&b, "%s above %.2f%% / within %.2f%% / below %.2f%% / error %.2f%%\n",
		titleStyle.Render("TIME SPENT:"), pct.Above, pct.Within, pct.Below, pct.Error)
	fmt.Fprintf(&b, "%s\n", Sparkline(c.history[s.ID], s.Target))

	return b.String()
}

// Sparkline renders values as a line of blocks scaled between their minimum and maximum, each
// coloured by its class. Failed readings (0.0) are drawn as a red cross.
func Sparkline(values []float64, target probe.TargetRange) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := 0.0, 0.0
	first := true
	for _, v := range values {
		if v == 0 {
			continue
		}
		if first || v < lo {
			lo = v
		}
		if first || v > hi {
			hi = v
		}
		first = false
	}

	var b strings.Builder
	for _, v := range values {
		if v == 0 {
			b.WriteString(errorStyle.Render("x"))
			continue
		}

		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		class := probe.Classify(probe.Success(time.Time{}, v), target)
		style := lipgloss.NewStyle().Foreground(ClassColor(class))
		b.WriteString(style.Render(string(sparkBlocks[idx])))
	}
	return b.String()
}
