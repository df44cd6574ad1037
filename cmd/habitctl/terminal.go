package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// terminal asks its questions on a line-based console.
type terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out}
}

func (t *terminal) readLine(ctx context.Context, message string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	fmt.Fprint(t.out, message+" ")
	line, err := t.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			// Ctrl-D cancels
			return "", false, nil
		}
		if err != io.EOF {
			return "", false, err
		}
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

func (t *terminal) PromptText(ctx context.Context, message string) (string, bool, error) {
	return t.readLine(ctx, message)
}

func (t *terminal) Confirm(ctx context.Context, message string) (bool, error) {
	answer, ok, err := t.readLine(ctx, message+" [y/N]")
	if err != nil || !ok {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
