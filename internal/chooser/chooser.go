// Package chooser defines the candidate selection contract used during
// fresh lookups, plus the automatic and terminal implementations.
package chooser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"tonearm/internal/meta"
)

// ErrAborted signals a user-initiated abort. It halts the whole run, unlike
// a skip which only affects the current source.
var ErrAborted = errors.New("aborted by user")

// Action is the outcome kind of a selection.
type Action int

const (
	// ActionAccept applies the chosen candidate.
	ActionAccept Action = iota
	// ActionSkip leaves the source unresolved for this album.
	ActionSkip
	// ActionAsIs keeps the album untouched, treated like a skip.
	ActionAsIs
)

// Candidate is one ranked match offered for selection.
type Candidate struct {
	Info     *meta.AlbumInfo
	Distance float64
}

// Request carries the context a chooser needs to present candidates.
type Request struct {
	Artist     string
	Title      string
	Source     string
	Candidates []Candidate
}

// Selection is the chooser's decision. A nil Candidate with ActionAccept is
// treated as no selection by the caller.
type Selection struct {
	Action    Action
	Candidate *Candidate
}

// Chooser decides which candidate, if any, to apply for one album/source
// pair. Implementations return ErrAborted to halt the run.
type Chooser interface {
	Choose(ctx context.Context, req Request) (*Selection, error)
}

// AutoChooser accepts the best candidate without interaction.
type AutoChooser struct{}

// Choose returns the first (best) candidate, or a skip when there are none.
func (AutoChooser) Choose(_ context.Context, req Request) (*Selection, error) {
	if len(req.Candidates) == 0 {
		return &Selection{Action: ActionSkip}, nil
	}
	best := req.Candidates[0]
	return &Selection{Action: ActionAccept, Candidate: &best}, nil
}

// TerminalChooser prompts on the terminal, rendering a candidate table.
// When stdin is not a TTY it degrades to AutoChooser behavior.
type TerminalChooser struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalChooser wires the chooser to the process terminal.
func NewTerminalChooser() *TerminalChooser {
	return &TerminalChooser{In: os.Stdin, Out: os.Stdout}
}

// Choose renders the candidates and reads a selection. Accepted inputs are a
// candidate number, "s" (skip), "u" (use as-is), or "a" (abort).
func (c *TerminalChooser) Choose(ctx context.Context, req Request) (*Selection, error) {
	if len(req.Candidates) == 0 {
		return &Selection{Action: ActionSkip}, nil
	}
	if !c.interactive() {
		return AutoChooser{}.Choose(ctx, req)
	}

	c.render(req)
	reader := bufio.NewReader(c.In)
	for {
		fmt.Fprintf(c.Out, "[%s] choice (1-%d, s=skip, u=as-is, a=abort): ",
			req.Source, len(req.Candidates))
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return &Selection{Action: ActionSkip}, nil
			}
			return nil, fmt.Errorf("read selection: %w", err)
		}
		switch answer := strings.ToLower(strings.TrimSpace(line)); answer {
		case "s", "skip":
			return &Selection{Action: ActionSkip}, nil
		case "u", "as-is":
			return &Selection{Action: ActionAsIs}, nil
		case "a", "abort", "q":
			return nil, ErrAborted
		case "":
			answer = "1"
			fallthrough
		default:
			index, err := strconv.Atoi(answer)
			if err != nil || index < 1 || index > len(req.Candidates) {
				fmt.Fprintln(c.Out, "invalid choice")
				continue
			}
			candidate := req.Candidates[index-1]
			return &Selection{Action: ActionAccept, Candidate: &candidate}, nil
		}
	}
}

func (c *TerminalChooser) interactive() bool {
	file, ok := c.In.(*os.File)
	if !ok {
		return true
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

func (c *TerminalChooser) render(req Request) {
	writer := table.NewWriter()
	writer.SetOutputMirror(c.Out)
	writer.SetStyle(table.StyleLight)
	writer.AppendHeader(table.Row{"#", "Artist", "Album", "Year", "Tracks", "Distance"})
	for i, candidate := range req.Candidates {
		info := candidate.Info
		writer.AppendRow(table.Row{
			i + 1, info.Artist, info.Album, info.Year, len(info.Tracks),
			fmt.Sprintf("%.2f", candidate.Distance),
		})
	}
	fmt.Fprintf(c.Out, "%s / %s via %s:\n", req.Artist, req.Title, req.Source)
	writer.Render()
}
