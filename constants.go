package main

//
// CONSTANTS
//

const sourceExtension = "epl"

const defaultMaxImportDepth = 64 // nested import limit, also catches runaway self-imports
const envBanner = "-------- ENV --------"

// fatal error exit codes
const (
	ERR_OK int = iota
	ERR_SYNTAX
	ERR_FATAL
	ERR_NARGS
	ERR_EXISTS
	ERR_EVAL
	ERR_TYPE
	ERR_INDEX
	ERR_MODULE
	ERR_FILE
	ERR_CONFIG
	ERR_LEX int = 127
)

// Lexeme values
type TokenType uint8

const (
	EOL TokenType = iota
	C_Plus
	C_Minus
	C_Multiply
	C_Divide
	NullLiteral
	NumericLiteral
	StringLiteral
	BoolLiteral
	LParen
	RParen
	C_Caret
	Keyword
	Identifier
	LeftCBrace
	RightCBrace
	FormatLiteral
	SYM_EQ
	SYM_LT
	SYM_LE
	SYM_GT
	SYM_GE
	SYM_NE
	SYM_LAND
	SYM_LOR
	C_Pling
	C_Assign
	LeftSBrace
	RightSBrace
	C_Comma
	SYM_DOT
	C_Hash
	EOF
)

var tokNames = [...]string{
	"NEWLINE", "PLUS", "MINUS", "MULTIPLY", "DIVIDE",
	"NULL", "NUMBER", "STRING", "BOOL",
	"LPAREN", "RPAREN", "POWER", "KEYWORD", "IDENTIFIER",
	"LBRACKET", "RBRACKET", "FSTRING",
	"EEQ", "LT", "LTE", "GT", "GTE", "NQ", "AND", "OR",
	"NEG", "EQ", "LSBRACKET", "RSBRACKET", "COMMA", "DOT", "LENGTHOP",
	"EOF",
}

func (t TokenType) String() string {
	if int(t) < len(tokNames) {
		return tokNames[t]
	}
	return "UNKNOWN"
}

// keywords, in the order the parser dispatches on them
const (
	kwAnd    = "and"
	kwOr     = "or"
	kwReturn = "return"
	kwIf     = "if"
	kwElse   = "else"
	kwWhile  = "while"
	kwFor    = "for"
	kwIn     = "in"
	kwBreak  = "break"
	kwImport = "import"
)

var keywords = map[string]bool{
	kwAnd: true, kwOr: true, kwReturn: true, kwIf: true, kwElse: true,
	kwWhile: true, kwFor: true, kwIn: true, kwBreak: true, kwImport: true,
}

// binary operators that may prefix '=' as a compound assignment
var compoundOps = map[TokenType]bool{
	C_Plus: true, C_Minus: true, C_Multiply: true, C_Divide: true, C_Caret: true,
}

var relationalOps = map[TokenType]bool{
	SYM_EQ: true, SYM_NE: true, SYM_LT: true, SYM_LE: true, SYM_GT: true, SYM_GE: true,
}

// AST node tags
type NodeKind uint8

const (
	NewLineNode NodeKind = iota
	NumberNode
	StringNode
	BooleanNode
	NullNode
	ArrayNode
	ObjectNode
	BinOpNode
	UnOpNode
	CondNode
	LengthOpNode
	VarGetNode
	IndexNode
	VarNode
	DSONode
	ReturnNode
	BreakNode
	ImportNode
	IfNode
	WhileNode
	ForRangeNode
	ForEachNode
	FunctionNode
	CallNode
	AttachNode
)

var nodeNames = [...]string{
	"NewLine", "Number", "String", "Boolean", "Null", "Array", "Object",
	"BinOp", "UnOp", "Cond", "LengthOp", "VarGet", "Index", "Var", "DSO",
	"Return", "Break", "Import", "If", "While", "ForRange", "ForEach",
	"Function", "Call", "Attach",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeNames) {
		return nodeNames[k]
	}
	return "Unknown"
}

// display modes for the final environment
const (
	displayNone = "none"
	displayUser = "user"
	displayFull = "full"
)

// export formats for the final environment
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)
