package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sweetpotato0/pinecone/session"
)

const (
	replPrompt = "pinecone> "
	divider    = "----------------------------------------"
	banner     = `Pinecone Research Agent
-----------------------
Type questions to investigate your workspace.
Commands: :history, :reset, :quit`
)

type repl struct {
	director *session.Director
	in       *bufio.Scanner
	out      io.Writer
}

func newREPL(d *session.Director, in io.Reader, out io.Writer) *repl {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &repl{director: d, in: sc, out: out}
}

func (r *repl) banner() {
	fmt.Fprintln(r.out, banner)
}

// run reads lines until EOF, :quit or ctx cancellation.
func (r *repl) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.out, replPrompt)
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if !r.handle(ctx, line) {
			return nil
		}
	}
}

// handle processes one line and reports whether to keep going.
func (r *repl) handle(ctx context.Context, line string) bool {
	switch line {
	case ":quit", "exit", "quit":
		return false
	case ":history":
		r.printHistory()
		return true
	case ":reset":
		r.director.Reset()
		fmt.Fprintln(r.out, "State cleared.")
		return true
	}
	if strings.HasPrefix(line, ":") {
		fmt.Fprintln(r.out, "Unknown command. Available: :history, :reset, :quit")
		return true
	}

	answer, err := r.director.Process(ctx, line)
	if err != nil {
		fmt.Fprintf(r.out, "[error] %v\n", err)
		return true
	}
	fmt.Fprintf(r.out, "%s: %s\n", r.director.Agent().Name(), answer)
	r.printHistory()
	return true
}

func (r *repl) printHistory() {
	fmt.Fprintln(r.out, divider)
	fmt.Fprintln(r.out, r.director.History())
	fmt.Fprintln(r.out, divider)
}
