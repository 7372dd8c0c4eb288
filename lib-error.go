package main

import (
	"fmt"
)

// ErrorKind classifies every fatal condition the language can raise.
type ErrorKind uint8

const (
	InvalidCharacterError ErrorKind = iota // lexing
	InvalidSyntaxError                     // parsing
	DivisionByZeroError
	InvalidConditionOperatorError
	VariableError
	FunctionArgumentError
	TypeError
	IndexError
	ImportError
)

var errorKindNames = [...]string{
	"InvalidCharacterError",
	"InvalidSyntaxError",
	"DivisionByZeroError",
	"InvalidConditionOperatorError",
	"VariableError",
	"FunctionArgumentError",
	"TypeError",
	"IndexError",
	"ImportError",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "UnknownError"
}

// exit code reported by the cli for each kind
func (k ErrorKind) exitCode() int {
	switch k {
	case InvalidCharacterError:
		return ERR_LEX
	case InvalidSyntaxError:
		return ERR_SYNTAX
	case FunctionArgumentError:
		return ERR_NARGS
	case VariableError:
		return ERR_EXISTS
	case TypeError:
		return ERR_TYPE
	case IndexError:
		return ERR_INDEX
	case ImportError:
		return ERR_MODULE
	}
	return ERR_EVAL
}

// Error is raised by the lexer, parser and interpreter. There is no way to
// catch one from inside a program, so the first Error ends the run.
type Error struct {
	Kind ErrorKind
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s LINE %d: %s", e.Kind, e.Line, e.Msg)
}

func newError(kind ErrorKind, line int, format string, args ...any) *Error {
	return &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func invalidCharacter(c string, line int) *Error {
	return newError(InvalidCharacterError, line, "Unexpected Character %q appeared.", c)
}

func invalidSyntax(tok Token, extra string) *Error {
	return newError(InvalidSyntaxError, tok.Line, "Illegal Syntax Occured \"%s : %s\". %s", tok.Type, tok, extra)
}

func divisionByZero(line int) *Error {
	return newError(DivisionByZeroError, line, "Cannot divide by 0, result undefined.")
}

func invalidConditionOperator(op TokenType, line int) *Error {
	return newError(InvalidConditionOperatorError, line, "Invalid Operator in Condition detected %q.", op.String())
}

func variableExists(name string, line int) *Error {
	return newError(VariableError, line, "Variable %s already exists.", name)
}

func variableUnexistent(name string, line int) *Error {
	return newError(VariableError, line, "Variable %s does not exist.", name)
}

func functionArgument(args, params int, line int) *Error {
	return newError(FunctionArgumentError, line,
		"Number of Arguments %d does not match with number of paramaters %d.", args, params)
}

func typeMismatch(got, expected NodeKind, line int) *Error {
	return newError(TypeError, line, "Wrong Type %s, expected %s.", got, expected)
}

func indexError(line int, format string, args ...any) *Error {
	return newError(IndexError, line, format, args...)
}

func importError(line int, format string, args ...any) *Error {
	return newError(ImportError, line, format, args...)
}
