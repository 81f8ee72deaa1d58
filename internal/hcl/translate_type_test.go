package hcl

import (
	"testing"

	hcllib "github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskgrid/internal/schema"
)

func parseTypeExpr(t *testing.T, src string) hcllib.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcllib.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), diags.Error())
	return expr
}

func TestTypeExprPrimitives(t *testing.T) {
	cases := map[string]schema.Kind{
		"string": schema.KindString,
		"number": schema.KindNumber,
		"bool":   schema.KindBool,
		"date":   schema.KindDate,
		"void":   schema.KindVoid,
		"any":    schema.KindAny,
	}
	for src, kind := range cases {
		t.Run(src, func(t *testing.T) {
			st, err := typeExprToSchema(parseTypeExpr(t, src))
			require.NoError(t, err)
			assert.Equal(t, kind, st.Kind)
		})
	}
}

func TestTypeExprNilMeansUndeclared(t *testing.T) {
	st, err := typeExprToSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestTypeExprCollections(t *testing.T) {
	st, err := typeExprToSchema(parseTypeExpr(t, "list(number)"))
	require.NoError(t, err)
	require.Equal(t, schema.KindArray, st.Kind)
	assert.Equal(t, schema.KindNumber, st.Elem.Kind)

	st, err = typeExprToSchema(parseTypeExpr(t, "array(list(string))"))
	require.NoError(t, err)
	require.Equal(t, schema.KindArray, st.Kind)
	require.Equal(t, schema.KindArray, st.Elem.Kind)
	assert.Equal(t, schema.KindString, st.Elem.Elem.Kind)
}

func TestTypeExprModifiers(t *testing.T) {
	st, err := typeExprToSchema(parseTypeExpr(t, "optional(string)"))
	require.NoError(t, err)
	assert.Equal(t, schema.KindString, st.Kind)
	assert.True(t, st.Optional)

	st, err = typeExprToSchema(parseTypeExpr(t, "nullable(number)"))
	require.NoError(t, err)
	assert.Equal(t, schema.KindNumber, st.Kind)
	assert.True(t, st.Nullable)

	st, err = typeExprToSchema(parseTypeExpr(t, "optional(nullable(bool))"))
	require.NoError(t, err)
	assert.True(t, st.Optional)
	assert.True(t, st.Nullable)
}

func TestTypeExprUnionEnumLiteral(t *testing.T) {
	st, err := typeExprToSchema(parseTypeExpr(t, "union(string, number)"))
	require.NoError(t, err)
	require.Equal(t, schema.KindUnion, st.Kind)
	require.Len(t, st.Alts, 2)
	assert.Equal(t, schema.KindString, st.Alts[0].Kind)
	assert.Equal(t, schema.KindNumber, st.Alts[1].Kind)

	st, err = typeExprToSchema(parseTypeExpr(t, `enum("get", "post")`))
	require.NoError(t, err)
	require.Equal(t, schema.KindEnum, st.Kind)
	assert.Equal(t, []any{"get", "post"}, st.Values)

	st, err = typeExprToSchema(parseTypeExpr(t, "literal(42)"))
	require.NoError(t, err)
	require.Equal(t, schema.KindLiteral, st.Kind)
	assert.Equal(t, 42, st.Value)
}

func TestTypeExprObject(t *testing.T) {
	src := "object({ name = string, age = optional(number) })"
	st, err := typeExprToSchema(parseTypeExpr(t, src))
	require.NoError(t, err)
	require.Equal(t, schema.KindObject, st.Kind)
	require.Len(t, st.Attrs, 2)

	assert.Equal(t, "name", st.Attrs[0].Name)
	assert.Equal(t, schema.KindString, st.Attrs[0].Type.Kind)
	assert.Equal(t, "age", st.Attrs[1].Name)
	assert.True(t, st.Attrs[1].Type.Optional)
}

func TestTypeExprErrors(t *testing.T) {
	for _, src := range []string{
		"wibble",
		"list(number, string)",
		"tuple(string)",
		"union(string)",
		"enum()",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := typeExprToSchema(parseTypeExpr(t, src))
			assert.Error(t, err)
		})
	}
}
