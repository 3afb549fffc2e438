// Package prompt reads operator answers line by line.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNoInput = errors.New("no more input")

type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) Out() io.Writer {
	return p.out
}

// Ask prints msg and returns the next line without surrounding whitespace.
func (p *Prompter) Ask(msg string) (string, error) {
	if _, err := io.WriteString(p.out, msg); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Yes reports whether the answer to msg is "y" (any case).
func (p *Prompter) Yes(msg string) (bool, error) {
	answer, err := p.Ask(msg)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}

// No reports whether the answer to msg is "n" (any case).
func (p *Prompter) No(msg string) (bool, error) {
	answer, err := p.Ask(msg)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "n"), nil
}

func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}
