package report

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/rileyhilliard/vitals/internal/util"
)

// Mode selects how successive report blocks reach the terminal.
type Mode int

const (
	// ModeReposition moves the cursor up over the previous block before
	// each print, producing an in-place refreshing dashboard.
	ModeReposition Mode = iota
	// ModeScroll appends each block; nothing is ever repositioned.
	ModeScroll
)

// DetectMode picks the refresh mode once at startup: reposition when stdout
// is an interactive terminal on a platform that supports cursor movement,
// scroll otherwise. forceScroll overrides everything.
func DetectMode(forceScroll bool) Mode {
	if forceScroll {
		return ModeScroll
	}
	if runtime.GOOS == "windows" {
		return ModeScroll
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return ModeScroll
	}
	return ModeReposition
}

// Screen writes report blocks to an output in the selected mode. It is used
// from the dispatch flow only.
type Screen struct {
	w       io.Writer
	out     *termenv.Output
	mode    Mode
	printed bool
	lines   int
}

// NewScreen creates a screen writing to w.
func NewScreen(w io.Writer, mode Mode) *Screen {
	return &Screen{
		w:    w,
		out:  termenv.NewOutput(w),
		mode: mode,
	}
}

// Mode returns the screen's refresh mode.
func (s *Screen) Mode() Mode { return s.mode }

// Print writes the next block. In reposition mode every print after the
// first is preceded by a cursor-up sequence sized to the previous block's
// line count. A blank line is appended after each block so scrolled blocks
// stay visually separated.
func (s *Screen) Print(block string) error {
	if s.mode == ModeReposition && s.printed {
		s.out.CursorUp(s.lines)
	}
	if _, err := fmt.Fprint(s.w, block); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(s.w); err != nil {
		return err
	}
	s.lines = util.CountLines(block) + 1
	s.printed = true
	return nil
}
