package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/inkrelay/internal/client"
	"github.com/danmuck/inkrelay/internal/scene"
	"github.com/google/shlex"
)

const prompt = "ink> "

// repl reads one verb per line. Lines are split shell-style so text can be quoted:
//
//	text "hello world"
func repl(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, prompt)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		words, err := shlex.Split(sc.Text())
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			fmt.Fprint(out, prompt)
			continue
		}
		if len(words) > 0 {
			if stop := evalLine(ctx, c, words, out); stop {
				return nil
			}
		}
		fmt.Fprint(out, prompt)
	}
	fmt.Fprintln(out)
	return sc.Err()
}

func evalLine(ctx context.Context, c *client.Client, words []string, out io.Writer) bool {
	switch strings.ToLower(words[0]) {
	case "quit", "exit":
		return true
	case "help":
		for _, name := range scene.Ops() {
			fmt.Fprintf(out, "  %s\n", scene.Usage(name))
		}
		fmt.Fprintln(out, "  play scene.json")
		fmt.Fprintln(out, "  quit")
		return false
	case "play":
		if len(words) != 2 {
			fmt.Fprintln(out, "error: usage: play scene.json")
			return false
		}
		if err := play(ctx, c, words[1]); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		return false
	}

	st, err := scene.ParseStep(words)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return false
	}
	v, err := scene.RunStep(ctx, c, st)
	switch {
	case err != nil:
		fmt.Fprintf(out, "error: %v\n", err)
	case v != "":
		fmt.Fprintln(out, v)
	}
	return false
}
