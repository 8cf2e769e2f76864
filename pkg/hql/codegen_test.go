package hql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

// TestGenerateMatchesGoldenOutput pins the generator's exact formatting
// (two-space indent, no semicolon-before-brace, trailing newline) so a
// change to spacing/indentation rules shows up as a diff against
// testdata rather than as a silent drift in downstream consumers that
// embed the generated JS verbatim.
func TestGenerateMatchesGoldenOutput(t *testing.T) {
	result, err := Transpile(context.Background(), "(fn add [a b] (+ a b))", TranspileOptions{File: "add.hql"})
	require.NoError(t, err)

	golden.Assert(t, result.Code, "add.js.golden")
}
