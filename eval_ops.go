package main

import (
	"math"
	"strconv"
	str "strings"
	"unicode/utf8"
)

// eval reduces an expression node to a value.
func (in *Interpreter) eval(n *Node) (*Node, error) {
	switch n.Kind {

	case NumberNode, StringNode, BooleanNode, NullNode, FunctionNode:
		return n, nil

	case ArrayNode, ObjectNode:
		return in.visitDataStructure(n)

	case VarGetNode:
		return in.env.Get(n.Name)

	case IndexNode:
		v, _, err := in.env.index(n.Left, n.Path)
		return v, err

	case CallNode:
		return in.visitCall(n)

	case AttachNode:
		return n.Native(in)

	case BinOpNode:
		left, err := in.eval(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := in.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return in.binop(left, n.Op, right)

	case UnOpNode:
		v, err := in.eval(n.Left)
		if err != nil {
			return nil, err
		}
		return in.unop(n.Op, v)

	case CondNode:
		left, err := in.eval(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := in.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return in.cond(left, n.Op, right)

	case LengthOpNode:
		v, err := in.eval(n.Left)
		if err != nil {
			return nil, err
		}
		return length(v), nil
	}

	return nil, newError(InvalidSyntaxError, in.line, "%s is not an expression.", n.Kind)
}

// visitDataStructure builds a fresh container by evaluating every item in
// order. Applied to a container value it produces a deep copy.
func (in *Interpreter) visitDataStructure(n *Node) (*Node, error) {
	items := newContainer(n.Items.Len())
	for _, k := range n.Items.Keys() {
		expr, _ := n.Items.Get(k)
		v, err := in.eval(expr)
		if err != nil {
			return nil, err
		}
		items.Set(k, v)
	}
	return &Node{Kind: n.Kind, Items: items}, nil
}

// settle detaches a value from anything it was read out of. Arrays and
// objects are copied all the way down; everything else is immutable.
func settle(n *Node) *Node {
	if n == nil {
		return nullNode()
	}
	if n.Kind != ArrayNode && n.Kind != ObjectNode {
		return n
	}
	items := newContainer(n.Items.Len())
	for _, k := range n.Items.Keys() {
		v, _ := n.Items.Get(k)
		items.Set(k, settle(v))
	}
	return &Node{Kind: n.Kind, Items: items}
}

func truthy(n *Node) bool {
	switch n.Kind {
	case NumberNode:
		return n.Num != 0
	case StringNode:
		return n.Str != ""
	case BooleanNode:
		return n.Bool
	case NullNode:
		return false
	case ArrayNode, ObjectNode:
		return n.Items.Len() > 0
	}
	return true
}

//
// ARITHMETIC
//

func (in *Interpreter) binop(left *Node, op TokenType, right *Node) (*Node, error) {

	if left.Kind == StringNode || right.Kind == StringNode {
		// strings only concatenate
		if op != C_Plus {
			return nil, typeMismatch(StringNode, NumberNode, in.line)
		}
		return stringNode(render(left, false) + render(right, false)), nil
	}

	if left.Kind != NumberNode {
		return nil, typeMismatch(left.Kind, NumberNode, in.line)
	}
	if right.Kind != NumberNode {
		return nil, typeMismatch(right.Kind, NumberNode, in.line)
	}

	a, b := left.Num, right.Num
	switch op {
	case C_Plus:
		return numberNode(a + b), nil
	case C_Minus:
		return numberNode(a - b), nil
	case C_Multiply:
		return numberNode(a * b), nil
	case C_Divide:
		if b == 0 {
			return nil, divisionByZero(in.line)
		}
		return numberNode(a / b), nil
	case C_Caret:
		return numberNode(math.Pow(a, b)), nil
	}
	return nil, newError(InvalidSyntaxError, in.line, "Unknown operator %s.", op)
}

func (in *Interpreter) unop(op TokenType, v *Node) (*Node, error) {
	switch op {
	case C_Minus:
		if v.Kind != NumberNode {
			return nil, typeMismatch(v.Kind, NumberNode, in.line)
		}
		return numberNode(-v.Num), nil
	case C_Pling:
		if v.Kind != BooleanNode {
			return nil, typeMismatch(v.Kind, BooleanNode, in.line)
		}
		return boolNode(!v.Bool), nil
	}
	return nil, newError(InvalidSyntaxError, in.line, "Unknown unary operator %s.", op)
}

//
// CONDITIONS
//

// cond evaluates relational and logical operators. Both sides are always
// evaluated before we get here.
func (in *Interpreter) cond(left *Node, op TokenType, right *Node) (*Node, error) {

	switch op {
	case SYM_LAND, SYM_LOR:
		if left.Kind != BooleanNode || right.Kind != BooleanNode {
			return nil, invalidConditionOperator(op, in.line)
		}
		if op == SYM_LAND {
			return boolNode(left.Bool && right.Bool), nil
		}
		return boolNode(left.Bool || right.Bool), nil

	case SYM_EQ, SYM_NE, SYM_LT, SYM_LE, SYM_GT, SYM_GE:
		r, err := in.compare(left, op, right)
		if err != nil {
			return nil, err
		}
		return boolNode(r), nil
	}

	return nil, invalidConditionOperator(op, in.line)
}

func (in *Interpreter) compare(left *Node, op TokenType, right *Node) (bool, error) {

	ls, rs := left.Kind == StringNode, right.Kind == StringNode
	switch {
	case ls && rs:
		return ordered(str.Compare(left.Str, right.Str), op), nil
	case ls || rs:
		switch op {
		case SYM_EQ:
			return false, nil
		case SYM_NE:
			return true, nil
		}
		other := left
		if ls {
			other = right
		}
		return false, typeMismatch(other.Kind, StringNode, in.line)
	}

	if !scalar(left) || !scalar(right) {
		switch op {
		case SYM_EQ:
			return left == right, nil
		case SYM_NE:
			return left != right, nil
		}
		bad := left
		if scalar(bad) {
			bad = right
		}
		return false, typeMismatch(bad.Kind, NumberNode, in.line)
	}

	a, b := canonical(left), canonical(right)
	c := 0
	switch {
	case a < b:
		c = -1
	case a > b:
		c = 1
	}
	return ordered(c, op), nil
}

func scalar(n *Node) bool {
	switch n.Kind {
	case NumberNode, BooleanNode, NullNode:
		return true
	}
	return false
}

// canonical maps a scalar onto the number line: null is 0, booleans 1 or 0.
func canonical(n *Node) float64 {
	switch n.Kind {
	case NumberNode:
		return n.Num
	case BooleanNode:
		if n.Bool {
			return 1
		}
	}
	return 0
}

func ordered(c int, op TokenType) bool {
	switch op {
	case SYM_EQ:
		return c == 0
	case SYM_NE:
		return c != 0
	case SYM_LT:
		return c < 0
	case SYM_LE:
		return c <= 0
	case SYM_GT:
		return c > 0
	case SYM_GE:
		return c >= 0
	}
	return false
}

// length implements #. Numbers pass through unchanged.
func length(n *Node) *Node {
	switch n.Kind {
	case NumberNode:
		return n
	case StringNode:
		return numberNode(float64(utf8.RuneCountInString(n.Str)))
	case ArrayNode, ObjectNode:
		return numberNode(float64(n.Items.Len()))
	}
	return nullNode()
}

//
// RENDERING
//

// formatNumber prints integral values without a fraction.
// intValue truncates f toward zero. NaN and anything outside int64 fail.
func intValue(f float64) (int64, bool) {
	if math.IsNaN(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

func formatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	abs := math.Abs(f)
	if abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// render produces the text form of a value. quoted wraps strings in double
// quotes, as they appear inside containers and in the environment dump.
func render(n *Node, quoted bool) string {
	if n == nil {
		return "null"
	}
	switch n.Kind {
	case NumberNode:
		return formatNumber(n.Num)
	case StringNode:
		if quoted {
			return `"` + n.Str + `"`
		}
		return n.Str
	case BooleanNode:
		if n.Bool {
			return "true"
		}
		return "false"
	case NullNode:
		return "null"
	case FunctionNode:
		return "<function>"
	case ArrayNode:
		parts := make([]string, 0, n.Items.Len())
		for _, k := range n.Items.Keys() {
			v, _ := n.Items.Get(k)
			parts = append(parts, render(v, true))
		}
		return "[" + str.Join(parts, ", ") + "]"
	case ObjectNode:
		parts := make([]string, 0, n.Items.Len())
		for _, k := range n.Items.Keys() {
			v, _ := n.Items.Get(k)
			parts = append(parts, renderKey(k)+" = "+render(v, true))
		}
		return "[" + str.Join(parts, " ") + "]"
	}
	return "<" + n.Kind.String() + ">"
}

func renderKey(k Key) string {
	if k.Kind == StringNode && isIdentifier(k.Str) {
		return k.Str
	}
	return k.String()
}

func isIdentifier(s string) bool {
	if s == "" || str.IndexByte(alpha, s[0]) == -1 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if str.IndexByte(identifier_set, s[i]) == -1 {
			return false
		}
	}
	return true
}
