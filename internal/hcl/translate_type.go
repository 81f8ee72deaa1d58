// This file contains the logic for parsing HCL type expressions (e.g.,
// `string`, `list(number)`, `object({...})`) into schema descriptors.

package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/taskgrid/internal/schema"
)

// typeExprToSchema converts an HCL type expression into its schema.Type
// equivalent. A nil expression means the slot declared no type, which
// disables static checking for it.
func typeExprToSchema(expr hcl.Expression) (*schema.Type, error) {
	if expr == nil {
		return nil, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		// Primitive type keywords like `string` or `number`.
		if len(v.Traversal) != 1 {
			return nil, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		switch name := v.Traversal.RootName(); name {
		case "string":
			return schema.String(), nil
		case "number":
			return schema.Number(), nil
		case "bool":
			return schema.Bool(), nil
		case "date":
			return schema.Date(), nil
		case "void":
			return schema.Void(), nil
		case "any":
			return schema.Any(), nil
		default:
			return nil, fmt.Errorf("unknown primitive type %q", name)
		}

	case *hclsyntax.FunctionCallExpr:
		return typeCallToSchema(v)

	default:
		return nil, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}

// typeCallToSchema handles the constructor-function half of the grammar:
// list/array, optional, nullable, union, enum, literal and object.
func typeCallToSchema(call *hclsyntax.FunctionCallExpr) (*schema.Type, error) {
	switch call.Name {
	case "list", "array":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("%s(...) requires exactly one argument, got %d", call.Name, len(call.Args))
		}
		elem, err := typeExprToSchema(call.Args[0])
		if err != nil {
			return nil, err
		}
		return schema.Array(elem), nil

	case "optional", "nullable":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("%s(...) requires exactly one argument, got %d", call.Name, len(call.Args))
		}
		inner, err := typeExprToSchema(call.Args[0])
		if err != nil {
			return nil, err
		}
		if inner == nil {
			inner = schema.Any()
		}
		if call.Name == "optional" {
			return inner.AsOptional(), nil
		}
		return inner.AsNullable(), nil

	case "union":
		if len(call.Args) < 2 {
			return nil, fmt.Errorf("union(...) requires at least two alternatives, got %d", len(call.Args))
		}
		alts := make([]*schema.Type, 0, len(call.Args))
		for _, arg := range call.Args {
			alt, err := typeExprToSchema(arg)
			if err != nil {
				return nil, err
			}
			alts = append(alts, alt)
		}
		return schema.Union(alts...), nil

	case "enum":
		if len(call.Args) == 0 {
			return nil, fmt.Errorf("enum(...) requires at least one value")
		}
		values := make([]any, 0, len(call.Args))
		for _, arg := range call.Args {
			v, err := evalToGo(arg)
			if err != nil {
				return nil, fmt.Errorf("enum value: %w", err)
			}
			values = append(values, v)
		}
		return schema.Enum(values...), nil

	case "literal":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("literal(...) requires exactly one argument, got %d", len(call.Args))
		}
		v, err := evalToGo(call.Args[0])
		if err != nil {
			return nil, fmt.Errorf("literal value: %w", err)
		}
		return schema.Literal(v), nil

	case "object":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("object(...) requires exactly one argument, got %d", len(call.Args))
		}
		cons, ok := call.Args[0].(*hclsyntax.ObjectConsExpr)
		if !ok {
			return nil, fmt.Errorf("object(...) argument must be a {name = type, ...} constructor, got %T", call.Args[0])
		}
		attrs := make([]schema.Attr, 0, len(cons.Items))
		for _, item := range cons.Items {
			name := hcl.ExprAsKeyword(item.KeyExpr)
			if name == "" {
				return nil, fmt.Errorf("object(...) property names must be bare keywords")
			}
			at, err := typeExprToSchema(item.ValueExpr)
			if err != nil {
				return nil, fmt.Errorf("object property %q: %w", name, err)
			}
			attrs = append(attrs, schema.Attr{Name: name, Type: at})
		}
		return schema.Object(attrs...), nil

	default:
		return nil, fmt.Errorf("unknown type constructor function %q", call.Name)
	}
}

// evalToGo evaluates a constant expression (enum/literal member) to a plain
// Go value.
func evalToGo(expr hcl.Expression) (any, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToGo(val)
}
