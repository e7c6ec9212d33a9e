// Package present implements the Status Presenter (C11): three
// renderers (CLI one-line, TUI full redraw, and a silent no-op)
// over the same RepoInfo snapshot. Coloring and symbol choice follow
// re-cinq-detergent's internal/cli.stateDisplay table, remapped onto
// repoinfo.Status instead of the teacher's engine state strings.
package present

import (
	"fmt"
	"io"
	"sort"

	"github.com/autogitpull/autogitpull/internal/repoinfo"
)

const (
	ansiGreen  = "\033[32m"
	ansiCyan   = "\033[36m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiDim    = "\033[2m"
	ansiReset  = "\033[0m"
)

// symbolFor returns the glyph and color associated with a status, the
// same (symbol, color) pairing shape as the teacher's stateDisplay.
func symbolFor(s repoinfo.Status) (symbol, color string) {
	switch s {
	case repoinfo.PullOk, repoinfo.PkgLockFixed, repoinfo.UpToDate:
		return "✓", ansiGreen
	case repoinfo.Pulling, repoinfo.Checking:
		return "⟳", ansiYellow
	case repoinfo.RemoteAhead:
		return "↑", ansiCyan
	case repoinfo.Dirty, repoinfo.HeadProblem:
		return "⚠", ansiYellow
	case repoinfo.Error, repoinfo.Timeout, repoinfo.RateLimit, repoinfo.TempFail:
		return "✗", ansiRed
	case repoinfo.Skipped, repoinfo.NotGit:
		return "⊘", ansiDim
	case repoinfo.Pending:
		return "◯", ansiDim
	default:
		return "·", ansiReset
	}
}

// sortedPaths returns snapshot's keys sorted, so repeated renders produce
// a stable row order.
func sortedPaths(snapshot map[string]repoinfo.Entry) []string {
	paths := make([]string, 0, len(snapshot))
	for p := range snapshot {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// CLIRenderer writes a single status line per tick, the shape spec.md
// §4.8 describes as "a one-line status block at most once per
// refresh_ms".
type CLIRenderer struct {
	Out io.Writer
}

func (r *CLIRenderer) Render(snapshot map[string]repoinfo.Entry, action string) {
	counts := map[repoinfo.Status]int{}
	for _, e := range snapshot {
		counts[e.Status]++
	}
	fmt.Fprintf(r.Out, "%s[%s]%s %d repos — ok:%d pulling:%d err:%d skip:%d\n",
		ansiCyan, action, ansiReset,
		len(snapshot), counts[repoinfo.PullOk]+counts[repoinfo.UpToDate],
		counts[repoinfo.Pulling]+counts[repoinfo.Checking],
		counts[repoinfo.Error]+counts[repoinfo.Timeout]+counts[repoinfo.RateLimit],
		counts[repoinfo.Skipped]+counts[repoinfo.NotGit])
}

// TUIRenderer does a full redraw of every repo's row, clearing the
// screen first. It is deliberately simple ANSI — a fully interactive
// terminal UI (mouse, scroll regions, resizing) is out of scope; see
// DESIGN.md.
type TUIRenderer struct {
	Out io.Writer
}

func (r *TUIRenderer) Render(snapshot map[string]repoinfo.Entry, action string) {
	fmt.Fprint(r.Out, "\033[2J\033[H")
	fmt.Fprintf(r.Out, "%s%s%s\n\n", ansiCyan, action, ansiReset)
	for _, p := range sortedPaths(snapshot) {
		e := snapshot[p]
		symbol, color := symbolFor(e.Status)
		authTag := ""
		if e.AuthFailed {
			authTag = ansiRed + " [AUTH]" + ansiReset
		}
		fmt.Fprintf(r.Out, "%s%s%s %-40s %-8s %-7s %s%s\n",
			color, symbol, ansiReset, p, e.Status, e.Commit, e.Message, authTag)
	}
}

// SilentRenderer implements Renderer as a no-op, for --silent.
type SilentRenderer struct{}

func (SilentRenderer) Render(map[string]repoinfo.Entry, string) {}
