package main

import (
	"strconv"
	str "strings"
)

const alpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_"
const numeric = "0123456789"
const identifier_set = alpha + numeric

type lexer struct {
	text string
	pos  int
	line int
}

// Lex turns source text into the token sequence the parser consumes.
// Newlines are kept as EOL tokens; they only drive line counting.
func Lex(text string) ([]Token, error) {
	l := &lexer{text: text, line: 1}
	return l.lex()
}

func (l *lexer) current() byte {
	if l.pos < len(l.text) {
		return l.text[l.pos]
	}
	return 0
}

func (l *lexer) peek() byte {
	if l.pos+1 < len(l.text) {
		return l.text[l.pos+1]
	}
	return 0
}

func (l *lexer) emit(toks []Token, tt TokenType) []Token {
	return append(toks, Token{Type: tt, Line: l.line})
}

func (l *lexer) lex() ([]Token, error) {

	var toks []Token

	for l.pos < len(l.text) {
		c := l.text[l.pos]

		switch c {
		case ' ', '\t', '\b', '\r':
			l.pos++
		case '\n':
			toks = l.emit(toks, EOL)
			l.line++
			l.pos++
		case '.':
			toks = l.emit(toks, SYM_DOT)
			l.pos++
		case ',':
			toks = l.emit(toks, C_Comma)
			l.pos++
		case '#':
			toks = l.emit(toks, C_Hash)
			l.pos++
		case '[':
			toks = l.emit(toks, LeftSBrace)
			l.pos++
		case ']':
			toks = l.emit(toks, RightSBrace)
			l.pos++
		case '+':
			toks = l.emit(toks, C_Plus)
			l.pos++
		case '-':
			toks = l.emit(toks, C_Minus)
			l.pos++
		case '*':
			toks = l.emit(toks, C_Multiply)
			l.pos++
		case '^':
			toks = l.emit(toks, C_Caret)
			l.pos++
		case '(':
			toks = l.emit(toks, LParen)
			l.pos++
		case ')':
			toks = l.emit(toks, RParen)
			l.pos++
		case '{':
			toks = l.emit(toks, LeftCBrace)
			l.pos++
		case '}':
			toks = l.emit(toks, RightCBrace)
			l.pos++
		case '/':
			switch l.peek() {
			case '/':
				for l.pos < len(l.text) && l.text[l.pos] != '\n' {
					l.pos++
				}
			case '*':
				toks = l.blockComment(toks)
			default:
				toks = l.emit(toks, C_Divide)
				l.pos++
			}
		case '=':
			toks = l.pair(toks, SYM_EQ, C_Assign)
		case '!':
			toks = l.pair(toks, SYM_NE, C_Pling)
		case '>':
			toks = l.pair(toks, SYM_GE, SYM_GT)
		case '<':
			toks = l.pair(toks, SYM_LE, SYM_LT)
		case '"':
			l.pos++
			tok, err := l.lexString()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		default:
			switch {
			case str.IndexByte(numeric, c) != -1:
				tok, err := l.lexNumber()
				if err != nil {
					return nil, err
				}
				toks = append(toks, tok)
			case str.IndexByte(alpha, c) != -1:
				toks = append(toks, l.lexIdentifier())
			default:
				return nil, invalidCharacter(string(c), l.line)
			}
		}
	}

	return toks, nil
}

// pair emits double when the current character is followed by '=', else single.
func (l *lexer) pair(toks []Token, double, single TokenType) []Token {
	if l.peek() == '=' {
		l.pos += 2
		return l.emit(toks, double)
	}
	l.pos++
	return l.emit(toks, single)
}

// blockComment skips a /* */ comment. Newlines inside still count.
func (l *lexer) blockComment(toks []Token) []Token {
	l.pos += 2
	for l.pos < len(l.text) {
		if l.text[l.pos] == '*' && l.peek() == '/' {
			l.pos += 2
			return toks
		}
		if l.text[l.pos] == '\n' {
			toks = l.emit(toks, EOL)
			l.line++
		}
		l.pos++
	}
	return toks
}

func (l *lexer) lexNumber() (Token, error) {
	start := l.pos
	dots := 0
	for l.pos < len(l.text) {
		c := l.text[l.pos]
		if c == '.' {
			if dots == 1 {
				return Token{}, invalidCharacter(".", l.line)
			}
			dots++
		} else if str.IndexByte(numeric, c) == -1 {
			break
		}
		l.pos++
	}
	word := str.TrimSuffix(l.text[start:l.pos], ".")
	v, err := strconv.ParseFloat(word, 64)
	if err != nil {
		return Token{}, invalidCharacter(word, l.line)
	}
	return Token{Type: NumericLiteral, Num: v, Line: l.line}, nil
}

// lexString reads up to the closing quote. {expr} segments are lexed on
// their own and recorded as parts, turning the token into a FormatLiteral.
func (l *lexer) lexString() (Token, error) {

	var sb str.Builder
	var parts []FormatPart
	line := l.line

	for l.pos < len(l.text) {
		c := l.text[l.pos]

		switch c {
		case '"':
			l.pos++
			tok := Token{Type: StringLiteral, Text: sb.String(), Line: line}
			if len(parts) > 0 {
				tok.Type = FormatLiteral
				tok.Parts = parts
			}
			return tok, nil

		case '\n':
			return Token{}, invalidCharacter("\\n", l.line)

		case '\\':
			l.pos++
			if l.pos >= len(l.text) {
				return Token{}, invalidCharacter("\\", l.line)
			}
			if l.text[l.pos] == 'n' {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(l.text[l.pos])
			}
			l.pos++

		case '{':
			l.pos++
			start := l.pos
			for l.pos < len(l.text) && l.text[l.pos] != '{' && l.text[l.pos] != '}' {
				l.pos++
			}
			if l.pos >= len(l.text) || l.text[l.pos] == '{' {
				return Token{}, invalidCharacter("{", l.line)
			}
			inner := &lexer{text: l.text[start:l.pos], line: l.line}
			nested, err := inner.lex()
			if err != nil {
				return Token{}, err
			}
			parts = append(parts, FormatPart{Offset: sb.Len(), Tokens: nested})
			l.pos++

		default:
			sb.WriteByte(c)
			l.pos++
		}
	}

	return Token{}, invalidCharacter("EOF", l.line)
}

func (l *lexer) lexIdentifier() Token {
	start := l.pos
	for l.pos < len(l.text) && str.IndexByte(identifier_set, l.text[l.pos]) != -1 {
		l.pos++
	}
	word := l.text[start:l.pos]

	switch {
	case word == "null":
		return Token{Type: NullLiteral, Line: l.line}
	case word == "true" || word == "false":
		return Token{Type: BoolLiteral, Bool: word == "true", Line: l.line}
	case keywords[word]:
		return Token{Type: Keyword, Text: word, Line: l.line}
	}
	return Token{Type: Identifier, Text: word, Line: l.line}
}
