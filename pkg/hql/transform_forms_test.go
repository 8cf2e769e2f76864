package hql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspileLoopRecurBecomesWhileLoop(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn sum-to [n]
  (loop [i 0 acc 0]
    (if (= i n)
      acc
      (recur (+ i 1) (+ acc i)))))
`, TranspileOptions{File: "sum.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "while (true)")
	assert.Contains(t, result.Code, "i === n")
	assert.Contains(t, result.Code, "return acc")
	assert.Contains(t, result.Code, "continue;")
}

func TestTranspileThreadFirstChainsCalls(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn process [n] (-> n (double) (inc)))
`, TranspileOptions{File: "thread.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "inc(double(n))")
}

func TestTranspileThreadLastChainsCalls(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn process [xs] (->> xs (filter pred) (map square)))
`, TranspileOptions{File: "thread-last.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "map(square, filter(pred, xs))")
}

func TestTranspileCondBecomesConditionalExpression(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn grade [n]
  (cond
    (>= n 90) "a"
    (>= n 80) "b"
    else "f"))
`, TranspileOptions{File: "grade.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "?")
	assert.Contains(t, result.Code, `"a"`)
	assert.Contains(t, result.Code, `"f"`)
}

func TestTranspileLetExprBecomesIIFE(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn area [r] (let [pi 3.14159] (* pi r r)))
`, TranspileOptions{File: "area.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "(() => {")
	assert.Contains(t, result.Code, "pi")
}

func TestTranspileForOfCallsRuntimeHelper(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn each [xs]
  (for-of [x xs] (console.log x))
  nil)
`, TranspileOptions{File: "forof.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "__hql_for_each(xs")
}

// TestTranspileReturnInsideForOfEscapesEnclosingFn exercises the early
// return example: a `return` inside a for-of callback must escape the
// enclosing fn via the throw/catch trampoline, not merely exit the
// callback closure.
func TestTranspileReturnInsideForOfEscapesEnclosingFn(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn find [xs]
  (for-of [x xs] (if (> x 10) (return x)))
  nil)
`, TranspileOptions{File: "find.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "__hql_early_return__")
	assert.Contains(t, result.Code, "try {")
	assert.Contains(t, result.Code, "catch (__hql_ret__)")
	assert.Contains(t, result.Code, "throw {")
}

func TestTranspileMatchWithGuardsAndDefault(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn sign [n]
  (match n
    (case x (if (> x 0)) "positive")
    (case x (if (< x 0)) "negative")
    (default "zero")))
`, TranspileOptions{File: "match.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, `"positive"`)
	assert.Contains(t, result.Code, `"negative"`)
	assert.Contains(t, result.Code, `"zero"`)
	assert.NotContains(t, result.Code, "match ")
	assert.NotContains(t, result.Code, "case ")
}

func TestTranspileMatchArrayDestructure(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn head [xs]
  (match xs
    (case [first & rest] first)
    (default nil)))
`, TranspileOptions{File: "head.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "Array.isArray")
	assert.Contains(t, result.Code, "...rest")
}

func TestTranspileWhenLetBindsAndGuards(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn greet [m]
  (when-let [name (js-get m "name")] (console.log name)))
`, TranspileOptions{File: "whenlet.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "const name")
	assert.Contains(t, result.Code, "if (name)")
}

func TestTranspileIfLetBranches(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn describe [m]
  (if-let [v (js-get m "val")] v "missing"))
`, TranspileOptions{File: "iflet.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "const v")
	assert.Contains(t, result.Code, `"missing"`)
}

func TestTranspileClassWithConstructorAndMethod(t *testing.T) {
	result, err := Transpile(context.Background(), `
(class Point
  (field x)
  (field y)
  (constructor [x y] (return x))
  (method dist [] (return this.x)))
`, TranspileOptions{File: "point.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "class Point")
	assert.Contains(t, result.Code, "constructor(x, y)")
	assert.Contains(t, result.Code, "dist()")
}

func TestTranspileEnumBecomesFrozenObject(t *testing.T) {
	result, err := Transpile(context.Background(), `
(enum Color red green blue)
`, TranspileOptions{File: "color.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "Object.freeze")
	assert.Contains(t, result.Code, `"red"`)
}

func TestTranspileOperatorAsValueCallsRuntimeHelper(t *testing.T) {
	result, err := Transpile(context.Background(), `
(fn total [xs] (reduce + xs))
`, TranspileOptions{File: "reduce.hql"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, `__hql_get_op("+")`)
}
