// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iamafool/opensas-sub001/pkg/opensas"
)

func printBanner(w io.Writer) {
	fmt.Fprintln(w, "opensas REPL (Ctrl+D to exit)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Enter DATA steps; input is run when a line ends with \"run;\".")
	fmt.Fprintln(w, "  :datasets      list datasets")
	fmt.Fprintln(w, "  :print NAME    show a dataset")
	fmt.Fprintln(w, "  :clear         discard pending input")
	fmt.Fprintln(w)
}

// pending accumulates lines until a step is complete.
type pending struct {
	buf strings.Builder
}

// add appends line and reports whether the buffer should be submitted.
func (p *pending) add(line string) bool {
	p.buf.WriteString(line)
	p.buf.WriteString("\n")
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(line)), "run;")
}

func (p *pending) empty() bool { return strings.TrimSpace(p.buf.String()) == "" }

func (p *pending) take() string {
	s := p.buf.String()
	p.buf.Reset()
	return s
}

func runREPL(cmd *cobra.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	printBanner(cmd.OutOrStdout())

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runBasicREPL(cmd.Context(), s, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return runRawREPL(cmd.Context(), s)
}

// handleLine processes one line of input. It returns the text to show.
func handleLine(ctx context.Context, s *opensas.Session, p *pending, line string) string {
	trimmed := strings.TrimSpace(line)
	if p.empty() && strings.HasPrefix(trimmed, ":") {
		return command(s, p, strings.Fields(trimmed[1:]))
	}
	if !p.add(line) {
		return ""
	}
	names, err := s.Submit(ctx, p.take())
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	var b strings.Builder
	for _, n := range names {
		if d, err := s.Dataset(n); err == nil && d != nil {
			fmt.Fprintf(&b, "%s: %d rows, %d variables\n", d.Name(), d.Len(), len(d.Schema()))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func command(s *opensas.Session, p *pending, fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "datasets":
		names, err := s.Catalog().Names()
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		if len(names) == 0 {
			return "No datasets."
		}
		return renderCatalog(s.Catalog(), names)
	case "print":
		if len(fields) != 2 {
			return "usage: :print NAME"
		}
		d, err := s.Dataset(fields[1])
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		if d == nil {
			return fmt.Sprintf("Error: dataset %s not found", fields[1])
		}
		return renderDataset(d, printLimit)
	case "clear":
		p.take()
		return ""
	}
	return fmt.Sprintf("unknown command :%s", fields[0])
}

// runBasicREPL handles non-TTY input (piped input)
func runBasicREPL(ctx context.Context, s *opensas.Session, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	var p pending

	for {
		if p.empty() {
			fmt.Fprint(out, ">>> ")
		} else {
			fmt.Fprint(out, "... ")
		}

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return nil
		}
		line = strings.TrimRight(line, "\r\n")

		if result := handleLine(ctx, s, &p, line); result != "" {
			fmt.Fprintln(out, result)
		}
	}
}

// runRawREPL handles TTY input with line editing and history.
func runRawREPL(ctx context.Context, s *opensas.Session) error {
	fd := int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set raw mode: %v\n", err)
		return runBasicREPL(ctx, s, os.Stdin, os.Stdout)
	}
	defer term.Restore(fd, oldState)

	ed := &lineEditor{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	var p pending
	for {
		if p.empty() {
			fmt.Print(">>> ")
		} else {
			fmt.Print("... ")
		}

		line, eof := ed.readLine()
		if eof {
			fmt.Print("\r\n")
			return nil
		}

		// Steps run in cooked mode so diagnostics print normally.
		term.Restore(fd, oldState)
		if result := handleLine(ctx, s, &p, line); result != "" {
			fmt.Println(result)
		}
		if _, err := term.MakeRaw(fd); err != nil {
			return err
		}
	}
}

// lineEditor reads lines from a terminal in raw mode. Left and right move
// the cursor; up and down walk the lines entered so far.
type lineEditor struct {
	in      *bufio.Reader
	out     io.Writer
	history []string

	line   []rune
	cursor int
}

// set replaces the edited text and redraws it from the prompt.
func (e *lineEditor) set(line []rune, cursor int) {
	if e.cursor > 0 {
		fmt.Fprintf(e.out, "\x1b[%dD", e.cursor)
	}
	fmt.Fprint(e.out, "\x1b[K", string(line))
	if back := len(line) - cursor; back > 0 {
		fmt.Fprintf(e.out, "\x1b[%dD", back)
	}
	e.line, e.cursor = line, cursor
}

func (e *lineEditor) splice(at, drop int, ins ...rune) []rune {
	out := make([]rune, 0, len(e.line)+len(ins))
	out = append(out, e.line[:at]...)
	out = append(out, ins...)
	return append(out, e.line[at+drop:]...)
}

// readLine returns the next line and whether input ended.
func (e *lineEditor) readLine() (string, bool) {
	e.line, e.cursor = nil, 0
	hist := len(e.history)
	for {
		r, _, err := e.in.ReadRune()
		if err != nil {
			return string(e.line), true
		}
		switch r {
		case 0x04: // Ctrl+D
			if len(e.line) == 0 {
				return "", true
			}
		case 0x03: // Ctrl+C
			fmt.Fprint(e.out, "^C\r\n")
			return "", false
		case '\r', '\n':
			fmt.Fprint(e.out, "\r\n")
			line := string(e.line)
			if strings.TrimSpace(line) != "" {
				e.history = append(e.history, line)
			}
			return line, false
		case 0x7f, 0x08: // Backspace
			if e.cursor > 0 {
				e.set(e.splice(e.cursor-1, 1), e.cursor-1)
			}
		case 0x1b: // ESC [ A..D
			if b, _ := e.in.ReadByte(); b != '[' {
				continue
			}
			code, _ := e.in.ReadByte()
			switch code {
			case 'A':
				if hist > 0 {
					hist--
					h := []rune(e.history[hist])
					e.set(h, len(h))
				}
			case 'B':
				if hist < len(e.history) {
					hist++
					var h []rune
					if hist < len(e.history) {
						h = []rune(e.history[hist])
					}
					e.set(h, len(h))
				}
			case 'C':
				if e.cursor < len(e.line) {
					e.set(e.line, e.cursor+1)
				}
			case 'D':
				if e.cursor > 0 {
					e.set(e.line, e.cursor-1)
				}
			}
		default:
			if r >= 0x20 {
				e.set(e.splice(e.cursor, 0, r), e.cursor+1)
			}
		}
	}
}
