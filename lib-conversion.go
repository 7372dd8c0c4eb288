package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/itchyny/gojq"
	"github.com/pkg/errors"
)

// exportValue converts a value to plain Go data: float64, string, bool,
// nil, []any and map[string]any. Functions become "<function>" and
// non-finite numbers their rendered text.
func exportValue(n *Node) any {
	switch n.Kind {
	case NumberNode:
		// JSON has no NaN or infinities
		if math.IsNaN(n.Num) || math.IsInf(n.Num, 0) {
			return formatNumber(n.Num)
		}
		return n.Num
	case StringNode:
		return n.Str
	case BooleanNode:
		return n.Bool
	case NullNode:
		return nil
	case ArrayNode:
		list := make([]any, 0, n.Items.Len())
		for _, k := range n.Items.Keys() {
			v, _ := n.Items.Get(k)
			list = append(list, exportValue(v))
		}
		return list
	case ObjectNode:
		m := make(map[string]any, n.Items.Len())
		for _, k := range n.Items.Keys() {
			v, _ := n.Items.Get(k)
			m[exportKey(k)] = exportValue(v)
		}
		return m
	}
	return render(n, false)
}

func exportKey(k Key) string {
	if k.Kind == StringNode {
		return k.Str
	}
	return render(k.Node(), false)
}

// exportBindings lists the bindings to export, builtins only when full is set.
func exportBindings(e *Environment, full bool) []string {
	var names []string
	for _, name := range e.Names() {
		if !full && e.IsBuiltin(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func exportEnvironment(e *Environment, full bool) map[string]any {
	m := make(map[string]any)
	for _, name := range exportBindings(e, full) {
		v, _ := e.Lookup(name)
		m[name] = exportValue(v)
	}
	return m
}

func writeJSON(w io.Writer, e *Environment, full bool) error {
	b, err := json.MarshalIndent(exportEnvironment(e, full), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding environment")
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// queryEnvironment runs a jq filter over the exported environment and
// prints each result as one line of JSON.
func queryEnvironment(w io.Writer, e *Environment, full bool, query string) error {
	q, err := gojq.Parse(query)
	if err != nil {
		return errors.Wrapf(err, "invalid query %q", query)
	}

	iter := q.Run(exportEnvironment(e, full))
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return errors.Wrap(err, "query failed")
		}
		b, err := json.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "encoding query result")
		}
		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return err
		}
	}
	return nil
}
