package main

import (
	"github.com/golang/glog"
)

// stack is the signalling channel used by return and break.
type stack[T any] struct {
	items []T
}

func (s *stack[T]) push(v T) {
	s.items = append(s.items, v)
}

func (s *stack[T]) pop() T {
	v := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return v
}

func (s *stack[T]) size() int {
	return len(s.items)
}

// Environment is the set of live bindings. Copies share the return and
// break stacks and the builtin baseline; only the bindings are duplicated.
type Environment struct {
	in      *Interpreter
	names   []string // insertion order
	symbols map[string]*Node
	globals map[string]*Node
	returns *stack[*Node]
	breaks  *stack[struct{}]
}

func newEnvironment(in *Interpreter, globals map[string]*Node, order []string) *Environment {
	e := &Environment{
		in:      in,
		symbols: make(map[string]*Node, len(globals)),
		globals: globals,
		returns: &stack[*Node]{},
		breaks:  &stack[struct{}]{},
	}
	for _, name := range order {
		e.set(name, globals[name])
	}
	return e
}

// Names lists the bindings in the order they were first made.
func (e *Environment) Names() []string {
	return append([]string(nil), e.names...)
}

func (e *Environment) IsBuiltin(name string) bool {
	_, there := e.globals[name]
	return there
}

func (e *Environment) has(name string) bool {
	_, there := e.symbols[name]
	return there
}

// Lookup is Get without the error, for embedding code.
func (e *Environment) Lookup(name string) (*Node, bool) {
	v, there := e.symbols[name]
	return v, there
}

// Get resolves a name. self is the receiver of the method call in progress.
func (e *Environment) Get(name string) (*Node, error) {
	if name == "self" {
		if e.in.receiver == nil {
			return nil, variableUnexistent(name, e.in.line)
		}
		return e.in.receiver, nil
	}
	if v, there := e.symbols[name]; there {
		return v, nil
	}
	return nil, variableUnexistent(name, e.in.line)
}

func (e *Environment) set(name string, v *Node) {
	if _, there := e.symbols[name]; !there {
		e.names = append(e.names, name)
	}
	e.symbols[name] = v
}

func (e *Environment) copy() *Environment {
	c := &Environment{
		in:      e.in,
		names:   append([]string(nil), e.names...),
		symbols: make(map[string]*Node, len(e.symbols)),
		globals: e.globals,
		returns: e.returns,
		breaks:  e.breaks,
	}
	for k, v := range e.symbols {
		c.symbols[k] = v
	}
	return c
}

// differ closes a scope region. Only names that existed in the snapshot
// taken on entry survive, carrying their current values; everything bound
// inside the region is dropped. Values keep their identity, so a method
// receiver reached through a surviving name stays the same node.
func (e *Environment) differ(snapshot *Environment) {
	names := make([]string, 0, len(snapshot.names))
	symbols := make(map[string]*Node, len(snapshot.symbols))
	var dropped []string

	for _, name := range e.names {
		if !snapshot.has(name) && !e.IsBuiltin(name) {
			dropped = append(dropped, name)
			continue
		}
		names = append(names, name)
		symbols[name] = e.symbols[name]
	}

	if len(dropped) > 0 {
		glog.V(3).Infof("scope closed at line %d, dropped %v", e.in.line, dropped)
	}

	e.names = names
	e.symbols = symbols
}

// mergeImport adds every binding of an imported program that is not
// already defined here. Existing names are never overwritten.
func (e *Environment) mergeImport(other *Environment) []string {
	var added []string
	for _, name := range other.names {
		if e.has(name) {
			continue
		}
		e.set(name, settle(other.symbols[name]))
		added = append(added, name)
	}
	return added
}

// walk follows path from base through nested arrays and objects, returning
// the final value and the container it was found in.
func (e *Environment) walk(base *Node, path []*Node) (val, parent *Node, err error) {
	val = base
	for _, seg := range path {
		if val.Kind != ArrayNode && val.Kind != ObjectNode {
			return nil, nil, indexError(e.in.line, "Cannot index into %s.", val.Kind)
		}
		key, err := e.key(seg)
		if err != nil {
			return nil, nil, err
		}
		next, there := val.Items.Get(key)
		if !there {
			return nil, nil, indexError(e.in.line, "Key %s does not exist in %s.", key, val.Kind)
		}
		parent, val = val, next
	}
	return val, parent, nil
}

func (e *Environment) key(seg *Node) (Key, error) {
	kv, err := e.in.eval(seg)
	if err != nil {
		return Key{}, err
	}
	key, ok := keyOf(kv)
	if !ok {
		return Key{}, indexError(e.in.line, "A %s cannot be used as a key.", kv.Kind)
	}
	return key, nil
}

// index evaluates base[path...]. When the result is a function held by an
// object, that object is returned as the receiver for a method call.
func (e *Environment) index(base *Node, path []*Node) (val, receiver *Node, err error) {
	obj, err := e.in.eval(base)
	if err != nil {
		return nil, nil, err
	}

	if obj.Kind == StringNode {
		if len(path) > 1 {
			return nullNode(), nil, nil
		}
		return e.indexString(obj, path[0])
	}

	val, parent, err := e.walk(obj, path)
	if err != nil {
		return nil, nil, err
	}
	if val.Kind == FunctionNode && parent != nil && parent.Kind == ObjectNode {
		receiver = parent
	}
	return settle(val), receiver, nil
}

func (e *Environment) indexString(s *Node, seg *Node) (*Node, *Node, error) {
	kv, err := e.in.eval(seg)
	if err != nil {
		return nil, nil, err
	}
	if kv.Kind != NumberNode {
		return nil, nil, typeMismatch(kv.Kind, NumberNode, e.in.line)
	}
	chars := []rune(s.Str)
	i := int(kv.Num)
	if i < 0 {
		i += len(chars)
	}
	if i < 0 || i >= len(chars) {
		return nil, nil, indexError(e.in.line, "String index %s out of range.", formatNumber(kv.Num))
	}
	return stringNode(string(chars[i])), nil, nil
}

// dso assigns value at base[path...], creating the final key when missing.
func (e *Environment) dso(base *Node, path []*Node, value *Node) error {
	obj, err := e.in.eval(base)
	if err != nil {
		return err
	}
	container, _, err := e.walk(obj, path[:len(path)-1])
	if err != nil {
		return err
	}
	if container.Kind != ArrayNode && container.Kind != ObjectNode {
		return indexError(e.in.line, "Cannot assign into %s.", container.Kind)
	}

	key, err := e.key(path[len(path)-1])
	if err != nil {
		return err
	}
	if container.Kind == ArrayNode && key.Kind != NumberNode {
		return typeMismatch(key.Kind, NumberNode, e.in.line)
	}

	v, err := e.in.eval(value)
	if err != nil {
		return err
	}
	container.Items.Set(key, settle(v))
	return nil
}
