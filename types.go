package main

//
// TYPES
//

// holds a Token produced by the lexer.
type Token struct {
	Type  TokenType
	Text  string       // identifier, keyword or string literal content
	Num   float64      // NumericLiteral
	Bool  bool         // BoolLiteral
	Line  int          // source line the token started on
	Parts []FormatPart // FormatLiteral only: embedded {expr} segments
}

// FormatPart is one {expr} segment of an interpolated string. Offset is the
// byte position in Token.Text where the expression output is spliced in.
type FormatPart struct {
	Offset int
	Tokens []Token
}

func (t Token) String() string {
	switch t.Type {
	case NumericLiteral:
		return formatNumber(t.Num)
	case BoolLiteral:
		if t.Bool {
			return "true"
		}
		return "false"
	case NullLiteral:
		return "null"
	}
	return t.Text
}

// Node is every AST element and every runtime value. Which fields are in use
// depends on Kind:
//
//	NumberNode, StringNode, BooleanNode  Num, Str, Bool
//	ArrayNode, ObjectNode                Items (literal: expressions, value: values)
//	BinOpNode, CondNode                  Left Op Right
//	UnOpNode, LengthOpNode               Left
//	VarGetNode                           Name
//	IndexNode                            Left (base) Path
//	VarNode                              Name Value
//	DSONode                              Left (base) Path Value
//	ReturnNode, ImportNode               Value
//	IfNode                               Left (condition) Body Elifs Else
//	WhileNode                            Left (condition) Body
//	ForRangeNode                         Name Left (start) Right (end) Body
//	ForEachNode                          Name Left (collection) Body
//	FunctionNode                         Params Body
//	CallNode                             Left (callee) Args
//	AttachNode                           Native
//	NewLineNode                          Line
type Node struct {
	Kind NodeKind
	Line int

	Num  float64
	Str  string
	Bool bool

	Op    TokenType
	Left  *Node
	Right *Node
	Value *Node
	Name  string

	Path   []*Node
	Args   []*Node
	Params []string
	Body   []*Node
	Elifs  []*Node
	Else   *Node

	Items  *Container
	Native NativeFunc
}

// NativeFunc implements a builtin. It reads its parameters from the current
// environment like any other function body would.
type NativeFunc func(in *Interpreter) (*Node, error)

func numberNode(v float64) *Node { return &Node{Kind: NumberNode, Num: v} }
func stringNode(s string) *Node  { return &Node{Kind: StringNode, Str: s} }
func boolNode(b bool) *Node      { return &Node{Kind: BooleanNode, Bool: b} }
func nullNode() *Node            { return &Node{Kind: NullNode} }

func (n *Node) String() string {
	return render(n, false)
}

// Key identifies an entry of an array or object. Keys compare by tag and
// value, so the number 1 and the string "1" are different entries.
type Key struct {
	Kind NodeKind
	Num  float64
	Str  string
}

// keyOf converts an evaluated index expression into a container key.
func keyOf(n *Node) (Key, bool) {
	switch n.Kind {
	case NumberNode:
		return Key{Kind: NumberNode, Num: n.Num}, true
	case StringNode:
		return Key{Kind: StringNode, Str: n.Str}, true
	case BooleanNode:
		k := Key{Kind: BooleanNode}
		if n.Bool {
			k.Num = 1
		}
		return k, true
	case NullNode:
		return Key{Kind: NullNode}, true
	}
	return Key{}, false
}

func (k Key) Node() *Node {
	switch k.Kind {
	case NumberNode:
		return numberNode(k.Num)
	case StringNode:
		return stringNode(k.Str)
	case BooleanNode:
		return boolNode(k.Num != 0)
	}
	return nullNode()
}

func (k Key) String() string {
	return render(k.Node(), true)
}

// Container is the insertion ordered storage behind arrays and objects.
type Container struct {
	keys []Key
	vals map[Key]*Node
}

func newContainer(size int) *Container {
	return &Container{
		keys: make([]Key, 0, size),
		vals: make(map[Key]*Node, size),
	}
}

func (c *Container) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

func (c *Container) Get(k Key) (*Node, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.vals[k]
	return v, ok
}

// Set stores v under k. New keys go to the end of the order.
func (c *Container) Set(k Key, v *Node) {
	if _, there := c.vals[k]; !there {
		c.keys = append(c.keys, k)
	}
	c.vals[k] = v
}

func (c *Container) Keys() []Key {
	if c == nil {
		return nil
	}
	return c.keys
}
