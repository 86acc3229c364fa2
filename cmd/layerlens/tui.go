package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/mkendall/layerlens/pkg/extract"
)

const tuiFPS = 30

// reportLines flattens a report into display lines: a header per file, one
// line per name, and a summary footer.
func reportLines(rep *extract.Report) []string {
	const (
		reset    = "\x1b[0m"
		bold     = "\x1b[1m"
		fgGreen  = "\x1b[92m"
		fgRed    = "\x1b[91m"
		fgCyan   = "\x1b[96m"
		fgYellow = "\x1b[93m"
	)

	var lines []string
	for _, r := range rep.Results {
		if !r.OK() {
			lines = append(lines, fmt.Sprintf("%s%s✗ %s [%s]%s", bold, fgRed, r.Filename, r.Kind, reset))
			lines = append(lines, fmt.Sprintf("    %s%s%s", fgRed, r.ErrorDetail, reset))
		} else {
			lines = append(lines, fmt.Sprintf("%s%s✓ %s [%s]%s", bold, fgGreen, r.Filename, r.Kind, reset))
			if len(r.Names) == 0 {
				lines = append(lines, "    (no names found)")
			}
			for _, n := range r.Names {
				lines = append(lines, fmt.Sprintf("    %s•%s %s", fgCyan, reset, n))
			}
		}
		lines = append(lines, "")
	}
	lines = append(lines, fmt.Sprintf("%s%d file(s): %d ok, %d failed, %d unique name(s)%s",
		fgYellow, rep.Files, rep.Succeeded, rep.Failed, len(rep.UniqueNames), reset))
	if len(rep.UniqueNames) > 0 {
		lines = append(lines, fmt.Sprintf("%sUnique:%s %s", fgYellow, reset, strings.Join(rep.UniqueNames, ", ")))
	}
	return lines
}

// runTUI displays the report in an alt-screen browser.
// Up/Down or j/k scroll, PgUp/PgDn page, g/G jump, q or Esc quits.
func runTUI(rep *extract.Report) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	cleanup := func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	lines := reportLines(rep)

	// Scroll position animated with a critically damped spring, same idea
	// as the viewer's rotation decay.
	spring := harmonica.NewSpring(harmonica.FPS(tuiFPS), 8.0, 1.0)
	var offset, velocity float64
	target := 0.0

	maxTarget := func() float64 {
		m := float64(len(lines) - (height - 1))
		return math.Max(m, 0)
	}
	clampTarget := func() {
		target = math.Max(0, math.Min(target, maxTarget()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				clampTarget()

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape"), ev.MatchString("q"), ev.MatchString("ctrl+c"):
					cancel()
					return
				case ev.MatchString("down", "j"):
					target++
				case ev.MatchString("up", "k"):
					target--
				case ev.MatchString("pgdown"):
					target += float64(height - 1)
				case ev.MatchString("pgup"):
					target -= float64(height - 1)
				case ev.MatchString("g"):
					target = 0
				case ev.MatchString("G", "shift+g"):
					target = maxTarget()
				}
				clampTarget()

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					target--
				case uv.MouseWheelDown:
					target++
				}
				clampTarget()
			}
		}
	}()

	frame := time.Second / tuiFPS
	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		offset, velocity = spring.Update(offset, velocity, target)
		drawLines(lines, int(math.Round(offset)), width, height)
		time.Sleep(frame)
	}
}

// drawLines paints the visible window of lines plus a key-hint footer.
func drawLines(lines []string, offset, width, height int) {
	const (
		reset     = "\x1b[0m"
		dim       = "\x1b[2m"
		clearLine = "\x1b[2K"
	)
	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	var sb strings.Builder
	rows := height - 1
	for row := 0; row < rows; row++ {
		sb.WriteString(moveTo(row+1, 1))
		sb.WriteString(clearLine)
		idx := offset + row
		if idx >= 0 && idx < len(lines) {
			sb.WriteString(lines[idx])
		}
	}
	sb.WriteString(moveTo(height, 1))
	sb.WriteString(clearLine)
	sb.WriteString(dim + " ↑/↓ scroll  PgUp/PgDn page  g/G top/bottom  q quit " + reset)
	fmt.Fprint(os.Stdout, sb.String())
}
