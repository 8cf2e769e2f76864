package hql

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// ignoreIRLocations drops irBase.Loc from the comparison: exact byte
// offsets are a reader/lexer concern already covered by reader tests,
// and pinning them here would make every structural test fragile to
// unrelated whitespace changes in the fixture source.
var ignoreIRLocations = cmpopts.IgnoreFields(irBase{}, "Loc")

func TestTransformProgramFunctionDeclarationShape(t *testing.T) {
	read, err := Parse("add.hql", "(fn add [a b] (+ a b))")
	require.NoError(t, err)

	transformer := NewTransformer("add.hql")
	prog, err := transformer.TransformProgram(read.Forms)
	require.NoError(t, err)

	want := &Program{
		Body: []IRNode{
			&FunctionDeclaration{
				Name: "add",
				Params: []IRNode{
					&Identifier{Name: "a", OriginalName: "a"},
					&Identifier{Name: "b", OriginalName: "b"},
				},
				Body: &BlockStatement{
					Body: []IRNode{
						&ReturnStatement{
							Argument: &BinaryExpression{
								Operator: "+",
								Left:     &Identifier{Name: "a", OriginalName: "a"},
								Right:    &Identifier{Name: "b", OriginalName: "b"},
							},
						},
					},
				},
			},
		},
	}

	if diff := cmp.Diff(want, prog, ignoreIRLocations); diff != "" {
		t.Errorf("transformed IR mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformProgramMangleHyphenatedNames(t *testing.T) {
	read, err := Parse("pred.hql", "(fn is-even? [some-num] (= some-num 0))")
	require.NoError(t, err)

	transformer := NewTransformer("pred.hql")
	prog, err := transformer.TransformProgram(read.Forms)
	require.NoError(t, err)

	want := &Program{
		Body: []IRNode{
			&FunctionDeclaration{
				Name: "isEven",
				Params: []IRNode{
					&Identifier{Name: "someNum", OriginalName: "some-num"},
				},
				Body: &BlockStatement{
					Body: []IRNode{
						&ReturnStatement{
							Argument: &BinaryExpression{
								Operator: "===",
								Left:     &Identifier{Name: "someNum", OriginalName: "some-num"},
								Right:    &NumericLiteral{Value: 0, IsInt: true, IntVal: 0},
							},
						},
					},
				},
			},
		},
	}

	if diff := cmp.Diff(want, prog, ignoreIRLocations); diff != "" {
		t.Errorf("transformed IR mismatch (-want +got):\n%s", diff)
	}
}
