package main

import (
	"io"
	"math"
	"strconv"
	str "strings"
	"time"
)

type LibHelp struct {
	in     string
	out    string
	action string
}

var slhelp = make(map[string]LibHelp)

// builtinOrder is the binding order of the builtins in every new environment.
var builtinOrder = []string{"log", "sleep", "time", "input", "random", "tonumber", "tostring"}

func init() {
	slhelp["log"] = LibHelp{in: "value", out: "null", action: "Prints the value followed by a newline."}
	slhelp["sleep"] = LibHelp{in: "seconds", out: "null", action: "Pauses evaluation for the given number of seconds."}
	slhelp["time"] = LibHelp{in: "", out: "number", action: "Seconds since the unix epoch, with a fractional part."}
	slhelp["input"] = LibHelp{in: "prompt", out: "string", action: "Prints prompt without a newline and reads one line from standard input."}
	slhelp["random"] = LibHelp{in: "a,b", out: "number", action: "Uniformly chosen integer in the inclusive range a to b."}
	slhelp["tonumber"] = LibHelp{in: "value", out: "number", action: "Converts a string, boolean or number to a number."}
	slhelp["tostring"] = LibHelp{in: "value", out: "string", action: "Renders any value as a string."}
}

// native wraps f as an ordinary function value. Natives read their
// arguments back out of the environment by parameter name, so a builtin
// looks no different from a user function to the caller.
func native(params []string, returns bool, f NativeFunc) *Node {
	attach := &Node{Kind: AttachNode, Native: f}
	body := []*Node{attach}
	if returns {
		body = []*Node{{Kind: ReturnNode, Value: attach}}
	}
	return &Node{Kind: FunctionNode, Params: params, Body: body}
}

// arg fetches a native's parameter from the call scope.
func (in *Interpreter) arg(name string) (*Node, error) {
	return in.env.Get(name)
}

func (in *Interpreter) numberArg(name string) (float64, error) {
	v, err := in.arg(name)
	if err != nil {
		return 0, err
	}
	if v.Kind != NumberNode {
		return 0, typeMismatch(v.Kind, NumberNode, in.line)
	}
	return v.Num, nil
}

func (in *Interpreter) buildInternalLib() (map[string]*Node, []string) {

	lib := make(map[string]*Node, len(builtinOrder))

	lib["log"] = native([]string{"!"}, false, func(in *Interpreter) (*Node, error) {
		v, err := in.arg("!")
		if err != nil {
			return nil, err
		}
		io.WriteString(in.stdout, render(v, false)+"\n")
		return nullNode(), nil
	})

	lib["sleep"] = native([]string{"!"}, false, func(in *Interpreter) (*Node, error) {
		secs, err := in.numberArg("!")
		if err != nil {
			return nil, err
		}
		if secs > 0 {
			in.sleep(time.Duration(secs * float64(time.Second)))
		}
		return nullNode(), nil
	})

	lib["time"] = native(nil, true, func(in *Interpreter) (*Node, error) {
		return numberNode(float64(in.now().UnixNano()) / float64(time.Second)), nil
	})

	lib["input"] = native([]string{"!"}, true, func(in *Interpreter) (*Node, error) {
		prompt, err := in.arg("!")
		if err != nil {
			return nil, err
		}
		io.WriteString(in.stdout, render(prompt, false))
		line, err := in.stdin.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		return stringNode(str.TrimRight(line, "\r\n")), nil
	})

	lib["random"] = native([]string{"!", "!!"}, true, func(in *Interpreter) (*Node, error) {
		a, err := in.numberArg("!")
		if err != nil {
			return nil, err
		}
		b, err := in.numberArg("!!")
		if err != nil {
			return nil, err
		}
		lo, okLo := intValue(a)
		hi, okHi := intValue(b)
		if !okLo || !okHi {
			return nil, newError(TypeError, in.line, "random(%s, %s) needs integer bounds.", formatNumber(a), formatNumber(b))
		}
		if hi < lo {
			return nil, newError(TypeError, in.line, "Empty range for random(%d, %d).", lo, hi)
		}
		// unsigned difference cannot overflow; Int63n takes at most MaxInt64
		span := uint64(hi) - uint64(lo)
		if span >= math.MaxInt64 {
			return nil, newError(TypeError, in.line, "Range too wide for random(%d, %d).", lo, hi)
		}
		return numberNode(float64(lo + in.rng.Int63n(int64(span)+1))), nil
	})

	lib["tonumber"] = native([]string{"!"}, true, func(in *Interpreter) (*Node, error) {
		v, err := in.arg("!")
		if err != nil {
			return nil, err
		}
		return in.toNumber(v)
	})

	lib["tostring"] = native([]string{"!"}, true, func(in *Interpreter) (*Node, error) {
		v, err := in.arg("!")
		if err != nil {
			return nil, err
		}
		return stringNode(render(v, false)), nil
	})

	return lib, builtinOrder
}

func (in *Interpreter) toNumber(v *Node) (*Node, error) {
	switch v.Kind {
	case NumberNode:
		return v, nil
	case BooleanNode:
		if v.Bool {
			return numberNode(1), nil
		}
		return numberNode(0), nil
	case StringNode:
		f, err := strconv.ParseFloat(str.TrimSpace(v.Str), 64)
		if err != nil {
			return nil, newError(TypeError, in.line, "Cannot convert %q to Number.", v.Str)
		}
		return numberNode(f), nil
	}
	return nil, typeMismatch(v.Kind, StringNode, in.line)
}
