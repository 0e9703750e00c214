package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Status lines written when the alert indicator changes.
const (
	AlertOnLine  = "[connection degraded]"
	AlertOffLine = "[connection ok]"
)

// clearScreen homes the cursor and erases the terminal.
const clearScreen = "\x1b[H\x1b[2J"

// View renders the device log and console notices on a terminal.
type View struct {
	mu          sync.Mutex
	out         io.Writer
	ansi        bool
	alert       bool
	atLineStart bool
}

// NewView creates a View writing to out. With ansi set, Clear erases the
// terminal; otherwise it prints a separator.
func NewView(out io.Writer, ansi bool) *View {
	return &View{
		out:         out,
		ansi:        ansi,
		atLineStart: true,
	}
}

// AppendLog writes device output exactly as received.
func (v *View) AppendLog(text string) {
	if text == "" {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	io.WriteString(v.out, text)
	v.atLineStart = strings.HasSuffix(text, "\n")
}

// SetAlert shows or hides the degraded-connection indicator. Only changes
// are rendered.
func (v *View) SetAlert(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if on == v.alert {
		return
	}
	v.alert = on
	if on {
		v.writeLine(AlertOnLine)
	} else {
		v.writeLine(AlertOffLine)
	}
}

// Alert reports whether the indicator is shown.
func (v *View) Alert() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.alert
}

// Notice prints a console message on its own line.
func (v *View) Notice(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.writeLine("-- " + fmt.Sprintf(format, args...))
}

// Clear empties the local log.
func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ansi {
		io.WriteString(v.out, clearScreen)
		v.atLineStart = true
		return
	}
	v.writeLine("-- log cleared --")
}

// writeLine must be called with mu held.
func (v *View) writeLine(line string) {
	if !v.atLineStart {
		io.WriteString(v.out, "\n")
	}
	io.WriteString(v.out, line+"\n")
	v.atLineStart = true
}
