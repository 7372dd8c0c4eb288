package main

import (
	"bufio"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	str "strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Interpreter walks a parsed program against one live Environment.
type Interpreter struct {
	nodes []*Node
	env   *Environment
	line  int // advanced by NewLineNode, used for error reports

	// receiver of the method call in progress, read through 'self'
	receiver *Node

	stdout         io.Writer
	stdin          *bufio.Reader
	fs             afero.Fs
	rng            *rand.Rand
	sleep          func(time.Duration)
	now            func() time.Time
	maxImportDepth int
	source         string   // file the top level program came from, if any
	importChain    []string // files being imported above this interpreter
}

type Option func(*Interpreter)

func WithStdout(w io.Writer) Option {
	return func(in *Interpreter) { in.stdout = w }
}

func WithStdin(r io.Reader) Option {
	return func(in *Interpreter) {
		if br, ok := r.(*bufio.Reader); ok {
			in.stdin = br
			return
		}
		in.stdin = bufio.NewReader(r)
	}
}

// WithFs sets the file system imports are read from.
func WithFs(fs afero.Fs) Option {
	return func(in *Interpreter) { in.fs = fs }
}

func WithMaxImportDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxImportDepth = n
		}
	}
}

func WithSeed(seed int64) Option {
	return func(in *Interpreter) { in.rng = rand.New(rand.NewSource(seed)) }
}

// WithSourcePath names the file the program was read from, so importing it
// again is reported as a cycle.
func WithSourcePath(path string) Option {
	return func(in *Interpreter) { in.source = filepath.Clean(path) }
}

func withImportChain(chain []string) Option {
	return func(in *Interpreter) { in.importChain = chain }
}

func NewInterpreter(nodes []*Node, opts ...Option) *Interpreter {
	in := &Interpreter{
		nodes:          nodes,
		line:           1,
		stdout:         os.Stdout,
		fs:             afero.NewOsFs(),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:          time.Sleep,
		now:            time.Now,
		maxImportDepth: defaultMaxImportDepth,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.stdin == nil {
		in.stdin = bufio.NewReader(os.Stdin)
	}
	globals, order := in.buildInternalLib()
	in.env = newEnvironment(in, globals, order)
	return in
}

// Run lexes, parses and evaluates source, returning the final environment.
func Run(source string, opts ...Option) (*Environment, error) {
	nodes, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	in := NewInterpreter(nodes, opts...)
	if err := in.Evaluate(); err != nil {
		return in.env, err
	}
	return in.env, nil
}

func (in *Interpreter) Env() *Environment {
	return in.env
}

func (in *Interpreter) Evaluate() error {
	return in.visitBlock(in.nodes)
}

// options handed down to the interpreter of an imported file
func (in *Interpreter) childOptions(path string) []Option {
	chain := append(append([]string(nil), in.importChain...), path)
	return []Option{
		WithStdout(in.stdout),
		WithStdin(in.stdin),
		WithFs(in.fs),
		WithMaxImportDepth(in.maxImportDepth),
		withImportChain(chain),
		func(c *Interpreter) { c.source = in.source },
		func(c *Interpreter) {
			c.rng = in.rng
			c.sleep = in.sleep
			c.now = in.now
		},
	}
}

//
// STATEMENTS
//

// visitBlock stops early once a return or break is pending; the enclosing
// call or loop consumes the signal.
func (in *Interpreter) visitBlock(block []*Node) error {
	for _, stmt := range block {
		if in.env.returns.size() != 0 || in.env.breaks.size() != 0 {
			break
		}
		if err := in.visitStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) visitStatement(stmt *Node) error {
	switch stmt.Kind {
	case NewLineNode:
		in.line = stmt.Line
		return nil

	case VarNode:
		v, err := in.eval(stmt.Value)
		if err != nil {
			return err
		}
		in.env.set(stmt.Name, settle(v))
		return nil

	case DSONode:
		return in.env.dso(stmt.Left, stmt.Path, stmt.Value)

	case ReturnNode:
		v, err := in.eval(stmt.Value)
		if err != nil {
			return err
		}
		in.env.returns.push(v)
		return nil

	case BreakNode:
		in.env.breaks.push(struct{}{})
		return nil

	case AttachNode:
		_, err := stmt.Native(in)
		return err

	case ImportNode:
		return in.visitImport(stmt)

	case CallNode:
		_, err := in.visitCall(stmt)
		return err

	case IfNode:
		return in.visitIf(stmt)

	case WhileNode:
		return in.visitWhile(stmt)

	case ForRangeNode:
		return in.visitForRange(stmt)

	case ForEachNode:
		return in.visitForEach(stmt)
	}

	return newError(InvalidSyntaxError, in.line, "%s cannot be used as a statement.", stmt.Kind)
}

func (in *Interpreter) visitIf(n *Node) error {
	cond, err := in.eval(n.Left)
	if err != nil {
		return err
	}
	snapshot := in.env.copy()

	switch {
	case truthy(cond):
		err = in.visitBlock(n.Body)
	default:
		ran := false
		for _, elif := range n.Elifs {
			c, cerr := in.eval(elif.Left)
			if cerr != nil {
				return cerr
			}
			if truthy(c) {
				err = in.visitBlock(elif.Body)
				ran = true
				break
			}
		}
		if !ran && n.Else != nil {
			err = in.visitBlock(n.Else.Body)
		}
	}
	if err != nil {
		return err
	}

	in.env.differ(snapshot)
	return nil
}

// loopDone reports whether the iteration just run asked the loop to stop.
// A break is consumed here; a pending return is left for the call site.
func (in *Interpreter) loopDone(breakDepth, returnDepth int) bool {
	if in.env.breaks.size() > breakDepth {
		in.env.breaks.pop()
		return true
	}
	return in.env.returns.size() > returnDepth
}

func (in *Interpreter) visitWhile(n *Node) error {
	snapshot := in.env.copy()
	breakDepth, returnDepth := in.env.breaks.size(), in.env.returns.size()

	for {
		cond, err := in.eval(n.Left)
		if err != nil {
			return err
		}
		if !truthy(cond) {
			break
		}
		if err := in.visitBlock(n.Body); err != nil {
			return err
		}
		if in.loopDone(breakDepth, returnDepth) {
			break
		}
	}

	in.env.differ(snapshot)
	return nil
}

// visitForRange counts from start to end inclusive. A start at or past the
// end runs nothing.
func (in *Interpreter) visitForRange(n *Node) error {
	start, err := in.eval(n.Left)
	if err != nil {
		return err
	}
	end, err := in.eval(n.Right)
	if err != nil {
		return err
	}
	if start.Kind != NumberNode {
		return typeMismatch(start.Kind, NumberNode, in.line)
	}
	if end.Kind != NumberNode {
		return typeMismatch(end.Kind, NumberNode, in.line)
	}
	if start.Num >= end.Num {
		return nil
	}
	lo, okLo := intValue(start.Num)
	hi, okHi := intValue(end.Num)
	if !okLo || !okHi {
		return newError(TypeError, in.line, "Range %s, %s does not fit an integer.", formatNumber(start.Num), formatNumber(end.Num))
	}

	snapshot := in.env.copy()
	breakDepth, returnDepth := in.env.breaks.size(), in.env.returns.size()

	for i := lo; i <= hi; i++ {
		in.env.set(n.Name, numberNode(float64(i)))
		if err := in.visitBlock(n.Body); err != nil {
			return err
		}
		if in.loopDone(breakDepth, returnDepth) {
			break
		}
	}

	in.env.differ(snapshot)
	return nil
}

// visitForEach binds the loop name to a fresh [key = k value = v] object per
// entry of an array or object.
func (in *Interpreter) visitForEach(n *Node) error {
	coll, err := in.eval(n.Left)
	if err != nil {
		return err
	}
	if coll.Kind != ArrayNode && coll.Kind != ObjectNode {
		return typeMismatch(coll.Kind, ArrayNode, in.line)
	}

	snapshot := in.env.copy()
	breakDepth, returnDepth := in.env.breaks.size(), in.env.returns.size()

	keys := append([]Key(nil), coll.Items.Keys()...)
	for _, k := range keys {
		v, _ := coll.Items.Get(k)
		entry := newContainer(2)
		entry.Set(Key{Kind: StringNode, Str: "key"}, k.Node())
		entry.Set(Key{Kind: StringNode, Str: "value"}, settle(v))
		in.env.set(n.Name, &Node{Kind: ObjectNode, Items: entry})

		if err := in.visitBlock(n.Body); err != nil {
			return err
		}
		if in.loopDone(breakDepth, returnDepth) {
			break
		}
	}

	in.env.differ(snapshot)
	return nil
}

//
// CALLS
//

func (in *Interpreter) visitCall(n *Node) (*Node, error) {
	var fn, receiver *Node
	var err error

	if n.Left.Kind == IndexNode {
		fn, receiver, err = in.env.index(n.Left.Left, n.Left.Path)
	} else {
		fn, err = in.eval(n.Left)
	}
	if err != nil {
		return nil, err
	}
	if fn.Kind != FunctionNode {
		return nil, typeMismatch(fn.Kind, FunctionNode, in.line)
	}
	if len(fn.Params) != len(n.Args) {
		return nil, functionArgument(len(n.Args), len(fn.Params), in.line)
	}

	args := make([]*Node, len(n.Args))
	for i, a := range n.Args {
		if args[i], err = in.eval(a); err != nil {
			return nil, err
		}
	}

	return in.callFunction(fn, args, receiver)
}

// callFunction runs fn with its parameters bound in the caller's
// environment. Free names resolve against whatever is bound at call time.
// receiver, when set, is visible as self for the duration of the call.
func (in *Interpreter) callFunction(fn *Node, args []*Node, receiver *Node) (*Node, error) {
	glog.V(5).Infof("call at line %d with %d argument(s), receiver=%t", in.line, len(args), receiver != nil)

	snapshot := in.env.copy()
	returnDepth := in.env.returns.size()

	seen := make(map[string]bool, len(fn.Params))
	for i, p := range fn.Params {
		if seen[p] {
			return nil, variableExists(p, in.line)
		}
		seen[p] = true
		in.env.set(p, settle(args[i]))
	}

	prev := in.receiver
	if receiver != nil {
		in.receiver = receiver
	}
	err := in.visitBlock(fn.Body)
	in.receiver = prev
	if err != nil {
		return nil, err
	}

	ret := nullNode()
	if in.env.returns.size() > returnDepth {
		ret = in.env.returns.pop()
	}
	ret = settle(ret)

	in.env.differ(snapshot)
	return ret, nil
}

//
// IMPORT
//

// visitImport runs another file in its own interpreter and merges in the
// names this program does not define yet.
func (in *Interpreter) visitImport(n *Node) error {
	pv, err := in.eval(n.Value)
	if err != nil {
		return err
	}
	if pv.Kind != StringNode {
		return typeMismatch(pv.Kind, StringNode, in.line)
	}
	path := filepath.Clean(pv.Str)

	var trail []string
	if in.source != "" {
		trail = append(trail, in.source)
	}
	trail = append(trail, in.importChain...)
	for _, p := range trail {
		if p == path {
			return importError(in.line, "Import cycle detected: %s.", str.Join(append(trail, path), " -> "))
		}
	}
	if len(in.importChain) >= in.maxImportDepth {
		return importError(in.line, "Import depth %d exceeded importing %s.", in.maxImportDepth, path)
	}

	glog.V(2).Infof("importing %s (depth %d)", path, len(in.importChain)+1)

	data, err := afero.ReadFile(in.fs, path)
	if err != nil {
		return importError(in.line, "%v", errors.Wrapf(err, "reading %s", path))
	}
	nodes, err := ParseSource(string(data))
	if err != nil {
		return err
	}

	child := NewInterpreter(nodes, in.childOptions(path)...)
	if err := child.Evaluate(); err != nil {
		return err
	}

	added := in.env.mergeImport(child.env)
	glog.V(2).Infof("import %s added %v", path, added)
	return nil
}
