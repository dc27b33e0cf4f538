package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Reporter renders a single rewriting status line while a broadcast
// fan-out is in flight, the Go rendition of the source CLI's suppressible
// spinner (no terminal-animation dependency in the corpus, so a plain
// \r-rewriting line stands in for it).
type Reporter struct {
	out     io.Writer
	enabled bool
}

// NewReporter builds a Reporter bound to f. Progress is suppressed when
// noProgress is set or f is not a terminal (e.g. piped output in CI).
func NewReporter(f *os.File, noProgress bool) *Reporter {
	enabled := !noProgress && f != nil && isatty.IsTerminal(f.Fd())
	var out io.Writer = io.Discard
	if f != nil {
		out = f
	}
	return &Reporter{out: out, enabled: enabled}
}

// Update rewrites the current status line. A no-op when progress is
// disabled.
func (r *Reporter) Update(format string, args ...any) {
	if r == nil || !r.enabled {
		return
	}
	fmt.Fprintf(r.out, "\r\033[K"+format, args...)
}

// Done clears the status line (if any was shown) and prints a final,
// permanent line.
func (r *Reporter) Done(format string, args ...any) {
	if r == nil {
		return
	}
	if r.enabled {
		fmt.Fprintf(r.out, "\r\033[K"+format+"\n", args...)
		return
	}
	fmt.Fprintf(r.out, format+"\n", args...)
}
