package main

import (
	"bytes"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// run evaluates src and returns the final environment and everything the
// program printed.
func run(t *testing.T, src string, opts ...Option) (*Environment, string) {
	t.Helper()
	var out bytes.Buffer
	env, err := Run(src, append([]Option{WithStdout(&out)}, opts...)...)
	require.NoError(t, err)
	return env, out.String()
}

// runErr evaluates src expecting a language error.
func runErr(t *testing.T, src string, opts ...Option) *Error {
	t.Helper()
	var out bytes.Buffer
	_, err := Run(src, append([]Option{WithStdout(&out)}, opts...)...)
	require.Error(t, err)
	var langErr *Error
	require.True(t, errors.As(err, &langErr), "not a language error: %v", err)
	return langErr
}

func lookup(t *testing.T, env *Environment, name string) *Node {
	t.Helper()
	v, ok := env.Lookup(name)
	require.True(t, ok, "%s is not bound", name)
	return v
}

func num(t *testing.T, env *Environment, name string) float64 {
	t.Helper()
	v := lookup(t, env, name)
	require.Equal(t, NumberNode, v.Kind, "%s is a %s", name, v.Kind)
	return v.Num
}

func text(t *testing.T, env *Environment, name string) string {
	t.Helper()
	v := lookup(t, env, name)
	require.Equal(t, StringNode, v.Kind, "%s is a %s", name, v.Kind)
	return v.Str
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"x = 2 + 3 * 4", 14},
		{"x = (2 + 3) * 4", 20},
		{"x = 2 ^ 3 ^ 2", 64},
		{"x = 10 / 4", 2.5},
		{"x = 10 - 2 - 3", 5},
		{"x = -2 + 5", 3},
		{"x = #[1, 2, 3] * 2", 6},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			env, _ := run(t, tt.src)
			assert.Equal(t, tt.want, num(t, env, "x"))
		})
	}
}

func TestStringConcatenation(t *testing.T) {
	env, _ := run(t, `a = "x" + 1
b = 1 + "x"
c = 2.5 + "!"
d = "n=" + [1, "two"]
n = 3
e = "n={n * 2}."`)
	assert.Equal(t, "x1", text(t, env, "a"))
	assert.Equal(t, "1x", text(t, env, "b"))
	assert.Equal(t, "2.5!", text(t, env, "c"))
	assert.Equal(t, `n=[1, "two"]`, text(t, env, "d"))
	assert.Equal(t, "n=6.", text(t, env, "e"))
}

func TestDivisionByZero(t *testing.T) {
	err := runErr(t, "x = 1\ny = x / 0")
	assert.Equal(t, DivisionByZeroError, err.Kind)
	assert.Equal(t, "DivisionByZeroError LINE 2: Cannot divide by 0, result undefined.", err.Error())
}

func TestOperatorTypeErrors(t *testing.T) {
	tests := []string{
		`x = "a" - 1`,
		`x = "a" * "b"`,
		`x = true + 1`,
		`x = null * 2`,
		`x = -"a"`,
		`x = !1`,
		`x = "a" < 1`,
		`x = [1] < [2]`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			assert.Equal(t, TypeError, runErr(t, src).Kind)
		})
	}
}

func TestConditions(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"x = 1 < 2", true},
		{"x = 2 <= 2", true},
		{"x = 3 > 4", false},
		{"x = 1 != 1", false},
		{`x = "a" < "b"`, true},
		{`x = "abc" == "abc"`, true},
		{`x = "1" == 1`, false},
		{`x = "1" != 1`, true},
		{"x = null == 0", true},
		{"x = true == true", true},
		{"x = true and false", false},
		{"x = true or false", true},
		{"x = 1 < 2 and 3 > 2", true},
		{"x = !(1 == 2)", true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			env, _ := run(t, tt.src)
			v := lookup(t, env, "x")
			require.Equal(t, BooleanNode, v.Kind)
			assert.Equal(t, tt.want, v.Bool)
		})
	}
}

func TestLogicalOperatorsNeedBooleans(t *testing.T) {
	err := runErr(t, "x = true and 1")
	assert.Equal(t, InvalidConditionOperatorError, err.Kind)

	err = runErr(t, "x = 0 or false")
	assert.Equal(t, InvalidConditionOperatorError, err.Kind)
}

func TestLength(t *testing.T) {
	env, _ := run(t, `a = #"héllo"
b = #[1, 2, 3]
c = #[x = 1]
d = #5
e = #null`)
	assert.Equal(t, 5.0, num(t, env, "a"))
	assert.Equal(t, 3.0, num(t, env, "b"))
	assert.Equal(t, 1.0, num(t, env, "c"))
	assert.Equal(t, 5.0, num(t, env, "d"))
	assert.Equal(t, NullNode, lookup(t, env, "e").Kind)
}

func TestScopeNarrowing(t *testing.T) {
	env, _ := run(t, "x = 1\nif (true) { y = 2 x = 3 }")
	assert.Equal(t, 3.0, num(t, env, "x"))
	assert.False(t, env.has("y"))
}

func TestIfChainRunsFirstMatchOnly(t *testing.T) {
	env, _ := run(t, `x = 5
r = 0
hits = 0
if x < 3 { r = 1 } else if x < 10 { r = 2 hits = hits + 1 } else if x < 20 { r = 3 hits = hits + 1 } else { r = 4 }`)
	assert.Equal(t, 2.0, num(t, env, "r"))
	assert.Equal(t, 1.0, num(t, env, "hits"))

	env, _ = run(t, "r = 0\nif false { r = 1 } else { r = 9 tmp = 1 }")
	assert.Equal(t, 9.0, num(t, env, "r"))
	assert.False(t, env.has("tmp"))
}

func TestTruthiness(t *testing.T) {
	env, _ := run(t, `a = 0 b = 0 c = 0 d = 0 e = 0 f = 0
if 1 { a = 1 }
if 0 { b = 1 }
if "" { c = 1 }
if "x" { d = 1 }
if [] { e = 1 }
if null { f = 1 }`)
	assert.Equal(t, 1.0, num(t, env, "a"))
	assert.Equal(t, 0.0, num(t, env, "b"))
	assert.Equal(t, 0.0, num(t, env, "c"))
	assert.Equal(t, 1.0, num(t, env, "d"))
	assert.Equal(t, 0.0, num(t, env, "e"))
	assert.Equal(t, 0.0, num(t, env, "f"))
}

func TestLoopVariableDoesNotEscape(t *testing.T) {
	env, _ := run(t, `last = -1
sum = 0
for i in 1, 4 { last = i sum = sum + i inner = 1 }`)
	assert.Equal(t, 4.0, num(t, env, "last"))
	assert.Equal(t, 10.0, num(t, env, "sum"))
	assert.False(t, env.has("i"))
	assert.False(t, env.has("inner"))
}

func TestForRangeEmptyWhenStartNotBelowEnd(t *testing.T) {
	env, _ := run(t, "n = 0\nfor i in 3, 3 { n = n + 1 }\nfor i in 5, 1 { n = n + 1 }")
	assert.Equal(t, 0.0, num(t, env, "n"))
}

func TestForRangeNeedsNumbers(t *testing.T) {
	err := runErr(t, `for i in "a", 3 { }`)
	assert.Equal(t, TypeError, err.Kind)
}

func TestForRangeBoundsMustFitIntegers(t *testing.T) {
	for _, src := range []string{
		"for i in 0, 10 ^ 300 { }",
		"for i in 0 - 10 ^ 300, 0 { }",
		"for i in 0, 10 ^ 400 { }",
	} {
		assert.Equal(t, TypeError, runErr(t, src).Kind, src)
	}

	env, _ := run(t, "n = 0\nfor i in 0.5, 2.9 { n = n + i }")
	assert.Equal(t, 3.0, num(t, env, "n"))
}

func TestWhileLoop(t *testing.T) {
	env, _ := run(t, "i = 0\nwhile i < 5 { i = i + 1 }")
	assert.Equal(t, 5.0, num(t, env, "i"))
}

func TestInnerBreakOnly(t *testing.T) {
	env, _ := run(t, `count = 0
outer = 0
for i in 0, 2 {
    outer = outer + 1
    for j in 0, 10 {
        if j == 1 { break }
        count = count + 1
    }
}`)
	assert.Equal(t, 3.0, num(t, env, "outer"))
	assert.Equal(t, 3.0, num(t, env, "count"))
}

func TestBreakOutOfWhile(t *testing.T) {
	env, _ := run(t, "i = 0\nwhile true { i = i + 1 if i == 7 { break } }")
	assert.Equal(t, 7.0, num(t, env, "i"))
}

func TestStructuralFor(t *testing.T) {
	env, _ := run(t, `sum = 0
keys = 0
for e in [10, 20] { sum = sum + e.value keys = keys + e.key }`)
	assert.Equal(t, 30.0, num(t, env, "sum"))
	assert.Equal(t, 1.0, num(t, env, "keys"))
	assert.False(t, env.has("e"))

	env, _ = run(t, `ks = ""
o = [a = 1 b = 2]
for e in o { ks = ks + e.key + e.value }`)
	assert.Equal(t, "a1b2", text(t, env, "ks"))

	err := runErr(t, "for e in 5 { }")
	assert.Equal(t, TypeError, err.Kind)
}

func TestFunctions(t *testing.T) {
	env, _ := run(t, `add = (a, b) => a + b
sq = (x) => x * x
one = () => 1
r1 = add(2, 3)
r2 = sq(add(1, 2))
r3 = one()
nothing = () => { x = 1 }
r4 = nothing()`)
	assert.Equal(t, 5.0, num(t, env, "r1"))
	assert.Equal(t, 9.0, num(t, env, "r2"))
	assert.Equal(t, 1.0, num(t, env, "r3"))
	assert.Equal(t, NullNode, lookup(t, env, "r4").Kind)
	assert.False(t, env.has("a"))
	assert.False(t, env.has("x"))
}

func TestReturnFromInsideLoop(t *testing.T) {
	env, _ := run(t, `f = () => {
    i = 0
    while true {
        i = i + 1
        if i == 5 { return i }
    }
}
g = () => {
    for k in 0, 100 {
        if k == 3 { return k * 10 }
    }
    return -1
}
r = f()
s = g()`)
	assert.Equal(t, 5.0, num(t, env, "r"))
	assert.Equal(t, 30.0, num(t, env, "s"))
}

func TestRecursion(t *testing.T) {
	env, _ := run(t, `fact = (n) => {
    if n <= 1 { return 1 }
    return n * fact(n - 1)
}
r = fact(5)`)
	assert.Equal(t, 120.0, num(t, env, "r"))
}

func TestDynamicScoping(t *testing.T) {
	env, _ := run(t, `f = () => y
y = 5
r = f()
n = 0
inc = () => { n = n + 1 }
inc()
inc()`)
	assert.Equal(t, 5.0, num(t, env, "r"))
	assert.Equal(t, 2.0, num(t, env, "n"))
}

func TestArityMismatch(t *testing.T) {
	err := runErr(t, "f = (a, b) => a + b\nf(1)")
	assert.Equal(t, FunctionArgumentError, err.Kind)
	assert.Equal(t, "FunctionArgumentError LINE 2: Number of Arguments 1 does not match with number of paramaters 2.", err.Error())
}

func TestDuplicateParameter(t *testing.T) {
	err := runErr(t, "f = (a, a) => a\nf(1, 2)")
	assert.Equal(t, VariableError, err.Kind)
}

func TestCallingANonFunction(t *testing.T) {
	err := runErr(t, "x = 1\nx()")
	assert.Equal(t, TypeError, err.Kind)
}

func TestUndefinedVariable(t *testing.T) {
	err := runErr(t, "x = 1\n\ny = z + 1")
	assert.Equal(t, VariableError, err.Kind)
	assert.Equal(t, 3, err.Line)
	assert.Contains(t, err.Msg, "z")
}

func TestDataStructures(t *testing.T) {
	env, out := run(t, `a = [1, 2]
a[2] = 3
a[0] = a[0] + 10
o = [inner = [x = 1]]
o.inner.x = 5
o.extra = "e"
o.inner.x += 1
s = "hey"
c = s[1]
d = s[-1]
log(a)
log(o)`)
	assert.Equal(t, "[11, 2, 3]\n[inner = [x = 6] extra = \"e\"]\n", out)
	assert.Equal(t, "e", text(t, env, "c"))
	assert.Equal(t, "y", text(t, env, "d"))
}

func TestValuesAreCopiedOnAssignment(t *testing.T) {
	env, _ := run(t, `a = [1, 2]
b = a
b[0] = 9
f = (arr) => { arr[1] = 7 }
f(a)`)
	assert.Equal(t, "[1, 2]", lookup(t, env, "a").String())
	assert.Equal(t, "[9, 2]", lookup(t, env, "b").String())
}

func TestIndexErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind ErrorKind
	}{
		{"a = [1]\nb = a[5]", IndexError},
		{"a = 5\nb = a[0]", IndexError},
		{`s = "ab"` + "\nc = s[9]", IndexError},
		{`s = "ab"` + "\nc = s[\"x\"]", TypeError},
		{"o = [x = 1]\nb = o.y", IndexError},
		{"a = [1]\na.x = 2", TypeError},
		{"a = [1]\na[[1]] = 2", IndexError},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.kind, runErr(t, tt.src).Kind)
		})
	}
}

func TestStringMultiSegmentIndexIsNull(t *testing.T) {
	env, _ := run(t, `s = "abc"
c = s[0][0]`)
	assert.Equal(t, NullNode, lookup(t, env, "c").Kind)
}

func TestMethodReceiver(t *testing.T) {
	env, _ := run(t, `counter = [
    n = 0
    inc = () => { self.n = self.n + 1 }
    get = () => self.n
]
counter.inc()
counter.inc()
r = counter.get()`)
	assert.Equal(t, 2.0, num(t, env, "r"))

	n, ok := lookup(t, env, "counter").Items.Get(Key{Kind: StringNode, Str: "n"})
	require.True(t, ok)
	assert.Equal(t, 2.0, n.Num)
}

func TestMethodReceiverSurvivesInnerScopes(t *testing.T) {
	env, out := run(t, `o = [
    n = 0
    m = 0
    bump = () => {
        if true { }
        self.n = 5
        for i in 1, 3 { self.m = self.m + i }
        helper = () => 1
        helper()
        self.n = self.n + 1
    }
]
o.bump()
log(o.n)
log(o.m)`)
	assert.Equal(t, "6\n6\n", out)

	m, ok := lookup(t, env, "o").Items.Get(Key{Kind: StringNode, Str: "m"})
	require.True(t, ok)
	assert.Equal(t, 6.0, m.Num)
}

func TestCopiesStayDetachedAcrossScopes(t *testing.T) {
	env, _ := run(t, `a = [1, 2]
if true { b = a b[0] = 9 }
c = a
while true { c[1] = 7 break }`)
	first, _ := lookup(t, env, "a").Items.Get(Key{Kind: NumberNode, Num: 0})
	second, _ := lookup(t, env, "a").Items.Get(Key{Kind: NumberNode, Num: 1})
	assert.Equal(t, 1.0, first.Num)
	assert.Equal(t, 2.0, second.Num)

	changed, _ := lookup(t, env, "c").Items.Get(Key{Kind: NumberNode, Num: 1})
	assert.Equal(t, 7.0, changed.Num)
}

func TestNestedReceiversRestore(t *testing.T) {
	env, _ := run(t, `a = [name = "a" who = () => self.name]
b = [name = "b" call = () => { inner = a.who() return inner + self.name }]
r = b.call()`)
	assert.Equal(t, "ab", text(t, env, "r"))
}

func TestSelfOutsideMethod(t *testing.T) {
	err := runErr(t, "x = self")
	assert.Equal(t, VariableError, err.Kind)
}

func TestTopLevelReturnStopsProgram(t *testing.T) {
	env, _ := run(t, "a = 1\nreturn\nb = 2")
	assert.True(t, env.has("a"))
	assert.False(t, env.has("b"))
}

//
// IMPORT
//

func TestImportIsAdditive(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "lib.epl", []byte("foo = 2\nbar = 3\nhelper = (x) => x + bar"), 0o644))

	env, _ := run(t, `foo = 1
import "lib.epl"
r = helper(1)`, WithFs(fs))
	assert.Equal(t, 1.0, num(t, env, "foo"))
	assert.Equal(t, 3.0, num(t, env, "bar"))
	assert.Equal(t, 4.0, num(t, env, "r"))
}

func TestImportPathIsAnExpression(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "mods/a.epl", []byte(`greeting = "hi"`), 0o644))

	env, _ := run(t, `dir = "mods"
import dir + "/a.epl"`, WithFs(fs))
	assert.Equal(t, "hi", text(t, env, "greeting"))
}

func TestImportSharesOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "noisy.epl", []byte(`log("from import")`), 0o644))

	_, out := run(t, `import "noisy.epl"
log("main")`, WithFs(fs))
	assert.Equal(t, "from import\nmain\n", out)
}

func TestImportCycle(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.epl", []byte(`import "b.epl"`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "b.epl", []byte(`import "a.epl"`), 0o644))

	err := runErr(t, `import "a.epl"`, WithFs(fs))
	assert.Equal(t, ImportError, err.Kind)
	assert.Contains(t, err.Msg, "a.epl -> b.epl -> a.epl")
}

func TestImportOfTheRunningFileIsACycle(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := "log(\"run\")\nimport \"a.epl\""
	require.NoError(t, afero.WriteFile(fs, "a.epl", []byte(src), 0o644))

	var out bytes.Buffer
	_, err := Run(src, WithFs(fs), WithStdout(&out), WithSourcePath("./a.epl"))
	var langErr *Error
	require.True(t, errors.As(err, &langErr))
	assert.Equal(t, ImportError, langErr.Kind)
	assert.Equal(t, 2, langErr.Line)
	assert.Contains(t, langErr.Msg, "a.epl -> a.epl")
	assert.Equal(t, "run\n", out.String())
}

func TestImportDepthLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	for i := 0; i < 5; i++ {
		src := fmt.Sprintf(`import "m%d.epl"`, i+1)
		require.NoError(t, afero.WriteFile(fs, fmt.Sprintf("m%d.epl", i), []byte(src), 0o644))
	}
	require.NoError(t, afero.WriteFile(fs, "m5.epl", []byte("x = 1"), 0o644))

	env, _ := run(t, `import "m0.epl"`, WithFs(fs))
	assert.Equal(t, 1.0, num(t, env, "x"))

	err := runErr(t, `import "m0.epl"`, WithFs(fs), WithMaxImportDepth(3))
	assert.Equal(t, ImportError, err.Kind)
}

func TestImportFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.epl", []byte("x = "), 0o644))

	assert.Equal(t, ImportError, runErr(t, `import "missing.epl"`, WithFs(fs)).Kind)
	assert.Equal(t, TypeError, runErr(t, `import 5`, WithFs(fs)).Kind)
	assert.Equal(t, InvalidSyntaxError, runErr(t, `import "bad.epl"`, WithFs(fs)).Kind)
}

//
// PROPERTIES
//

func TestPrecedenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(-1000, 1000).Draw(t, "a")
		b := rapid.IntRange(-1000, 1000).Draw(t, "b")
		c := rapid.IntRange(-1000, 1000).Draw(t, "c")

		src := fmt.Sprintf("x = %d + %d * %d\ny = %d * %d - %d", abs(a), abs(b), abs(c), abs(a), abs(b), abs(c))
		env, err := Run(src, WithStdout(&bytes.Buffer{}))
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		x, _ := env.Lookup("x")
		y, _ := env.Lookup("y")
		if x.Num != float64(abs(a)+abs(b)*abs(c)) {
			t.Fatalf("%s: x = %v", src, x.Num)
		}
		if y.Num != float64(abs(a)*abs(b)-abs(c)) {
			t.Fatalf("%s: y = %v", src, y.Num)
		}
	})
}

func TestPowerAssociativityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 4).Draw(t, "a")
		b := rapid.IntRange(0, 3).Draw(t, "b")
		c := rapid.IntRange(0, 3).Draw(t, "c")

		env, err := Run(fmt.Sprintf("x = %d ^ %d ^ %d", a, b, c), WithStdout(&bytes.Buffer{}))
		if err != nil {
			t.Fatal(err)
		}
		x, _ := env.Lookup("x")
		want := ipow(ipow(a, b), c)
		if x.Num != float64(want) {
			t.Fatalf("%d^%d^%d = %v, want %d", a, b, c, x.Num, want)
		}
	})
}

func TestNumberStringRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(-1000000, 1000000).Draw(t, "n")
		s := strconv.Itoa(n)

		env, err := Run(fmt.Sprintf(`r = tostring(tonumber("%s")) == "%s"`, s, s), WithStdout(&bytes.Buffer{}))
		if err != nil {
			t.Fatal(err)
		}
		r, _ := env.Lookup("r")
		if !r.Bool {
			t.Fatalf("round trip of %s failed", s)
		}
	})
}

func TestScopeRegionsDropNewNamesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{3,6}`), 1, 5, rapid.ID[string]).Draw(t, "names")

		var body bytes.Buffer
		for i, name := range names {
			fmt.Fprintf(&body, "v_%s = %d ", name, i)
		}
		src := fmt.Sprintf("keep = 0\nif true { %s keep = 1 }\nwhile keep < 2 { %s keep = 2 }", body.String(), body.String())

		env, err := Run(src, WithStdout(&bytes.Buffer{}))
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		for _, name := range names {
			if env.has("v_" + name) {
				t.Fatalf("v_%s escaped its region", name)
			}
		}
		keep, _ := env.Lookup("keep")
		if keep.Num != 2 {
			t.Fatalf("keep = %v", keep.Num)
		}
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func ipow(a, b int) int {
	r := 1
	for i := 0; i < b; i++ {
		r *= a
	}
	return r
}
