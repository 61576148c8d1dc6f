package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/ethwallet/ethwallet/internal/session"
)

// LineUI is a plain line-oriented prompter for pipes and dumb terminals.
// End of input aborts the session; a lone "-" backs out of a prompt.
// Lines are read by a background goroutine so a cancelled context
// interrupts a prompt even while the input stays open.
type LineUI struct {
	scanner *bufio.Scanner
	out     io.Writer

	start sync.Once
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewLineUI returns a LineUI reading answers from in.
func NewLineUI(in io.Reader, out io.Writer) *LineUI {
	return &LineUI{scanner: bufio.NewScanner(in), out: out, lines: make(chan lineResult, 1)}
}

// readAll feeds lines until the input ends. It holds at most one line ahead.
func (u *LineUI) readAll() {
	defer close(u.lines)
	for u.scanner.Scan() {
		u.lines <- lineResult{text: u.scanner.Text()}
	}
	if err := u.scanner.Err(); err != nil {
		u.lines <- lineResult{err: err}
	}
}

// Choose implements session.Prompter. Options may be picked by number or key.
func (u *LineUI) Choose(ctx context.Context, title string, options []session.Option) (string, error) {
	if len(options) == 0 {
		return "", errors.New("menu has no options")
	}

	for {
		fmt.Fprintf(u.out, "\n%s\n", title)
		for i, o := range options {
			fmt.Fprintf(u.out, "  %d) %s\n", i+1, o.Title)
		}

		line, err := u.readLine(ctx, "> ")
		if err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
			return options[n-1].Key, nil
		}
		for _, o := range options {
			if strings.EqualFold(line, o.Key) {
				return o.Key, nil
			}
		}
		fmt.Fprintf(u.out, "unknown choice %q\n", line)
	}
}

// Input implements session.Prompter.
func (u *LineUI) Input(ctx context.Context, prompt, placeholder string) (string, error) {
	if placeholder != "" {
		prompt += " (" + placeholder + ")"
	}
	return u.readLine(ctx, prompt+": ")
}

// Confirm implements session.Prompter. Anything but y or yes is a no.
func (u *LineUI) Confirm(ctx context.Context, prompt string) (bool, error) {
	line, err := u.readLine(ctx, prompt+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Info implements session.Prompter.
func (u *LineUI) Info(text string) {
	fmt.Fprintln(u.out, text)
}

// Error implements session.Prompter.
func (u *LineUI) Error(text string) {
	fmt.Fprintln(u.out, "Error: "+text)
}

func (u *LineUI) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", session.ErrAborted, err)
	}

	fmt.Fprint(u.out, prompt)
	u.start.Do(func() { go u.readAll() })

	var r lineResult
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", session.ErrAborted, ctx.Err())
	case res, ok := <-u.lines:
		if !ok {
			return "", session.ErrAborted
		}
		r = res
	}
	if r.err != nil {
		return "", fmt.Errorf("failed to read input: %w", r.err)
	}

	line := strings.TrimSpace(r.text)
	if line == "-" {
		return "", session.ErrCancelled
	}
	return line, nil
}
