package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/relicdev/relic/pkg/object"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorInfo{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

// treeOf renders a runtime value as a structure tree node. Structs
// recurse per field, arrays per element, leaves carry their value.
func treeOf(name string, v object.Value) *TreeNode {
	switch t := v.(type) {
	case *object.Instance:
		node := &TreeNode{Name: name, Type: t.Def().Name}
		t.Walk(func(fname string, fv object.Value) {
			node.Fields = append(node.Fields, treeOf(fname, fv))
		})
		return node
	case *object.Array:
		node := &TreeNode{Name: name, Type: "array"}
		for i := 0; i < t.Len(); i++ {
			node.Elems = append(node.Elems, treeOf("", t.At(i)))
		}
		return node
	case *object.Int:
		node := &TreeNode{Name: name, Type: t.Kind().String(), Value: t.Get()}
		if e := t.Enum(); e != nil {
			node.Type = e.Name
			if cname, ok := e.NameOf(t.Int64()); ok {
				node.Value = cname
			}
		}
		return node
	case *object.BitfieldValue:
		return &TreeNode{Name: name, Type: t.Def().Name, Value: t.Get()}
	case *object.Link:
		typ := "ref"
		if t.Weak() {
			typ = "ptr"
		}
		return &TreeNode{Name: name, Type: typ, Value: t.Get()}
	case *object.Float:
		return &TreeNode{Name: name, Type: "float", Value: t.Get()}
	case *object.Bool:
		return &TreeNode{Name: name, Type: "bool", Value: t.Get()}
	case *object.Char:
		return &TreeNode{Name: name, Type: "char", Value: t.Get()}
	case *object.ZString, *object.FixedString, *object.SizedString:
		return &TreeNode{Name: name, Type: "string", Value: v.Get()}
	case *object.TrailingBytes:
		return &TreeNode{Name: name, Type: "bytes", Value: v.Get()}
	default:
		return &TreeNode{Name: name, Type: "value", Value: v.Get()}
	}
}
