package main

import (
	"fmt"
	"io"
	"sort"
	str "strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// fileNameError rejects a source file without the epl extension.
type fileNameError struct {
	name string
}

func (e *fileNameError) Error() string {
	return "Invalid File Name " + e.name
}

// configError marks a bad configuration or command line.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// setColorMode applies the color setting. auto leaves fatih/color to
// decide from the terminal and NO_COLOR.
func setColorMode(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
}

// displayValue is the short form used by the environment dump: scalars in
// full, strings quoted, everything else by kind.
func displayValue(n *Node) string {
	switch n.Kind {
	case StringNode, NumberNode, BooleanNode, NullNode:
		return render(n, true)
	}
	return n.Kind.String()
}

// displayEnvironment prints the top level bindings after a run.
func displayEnvironment(w io.Writer, e *Environment, full bool) {
	fmt.Fprint(w, "\n\n\n")
	fmt.Fprintln(w, envBanner)
	for _, name := range exportBindings(e, full) {
		v, _ := e.Lookup(name)
		fmt.Fprintf(w, "%s = %s\n", name, displayValue(v))
	}
}

// showBuiltins lists the builtin library, wrapping descriptions to width.
func showBuiltins(w io.Writer, width int) {
	names := make([]string, 0, len(slhelp))
	for name := range slhelp {
		names = append(names, name)
	}
	sort.Strings(names)

	heading := color.New(color.Bold)
	for _, name := range names {
		h := slhelp[name]
		heading.Fprintf(w, "%s(%s)", name, h.in)
		fmt.Fprintf(w, " -> %s\n", h.out)
		for _, line := range wrapText(h.action, width-4) {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

func wrapText(s string, width int) []string {
	if width < 20 {
		width = 20
	}
	var lines []string
	var cur str.Builder
	for _, word := range str.Fields(s) {
		if cur.Len() > 0 && cur.Len()+1+len(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// reportError prints a fatal error and returns the exit code for it.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return ERR_OK
	}

	red := color.New(color.FgRed, color.Bold)

	var langErr *Error
	var nameErr *fileNameError
	var cfgErr *configError

	switch {
	case errors.As(err, &langErr):
		red.Fprintln(w, langErr.Error())
		return langErr.Kind.exitCode()
	case errors.As(err, &nameErr):
		fmt.Fprintln(w, nameErr.Error())
		return ERR_FILE
	case errors.As(err, &cfgErr):
		red.Fprintln(w, cfgErr.Error())
		return ERR_CONFIG
	}

	red.Fprintln(w, err.Error())
	return ERR_FATAL
}
