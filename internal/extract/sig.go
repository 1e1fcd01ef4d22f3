package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/loupe-dev/loupe/internal/parser"
)

// Signature derives a display signature for a function or method node:
// name(params) plus the declared return type when present. Always computed
// from the current parse, never stored.
func Signature(node *tree_sitter.Node, source []byte, name string) string {
	var sb strings.Builder
	sb.WriteString(name)

	if params := node.ChildByFieldName("parameters"); params != nil {
		sb.WriteString(normalizeWS(parser.NodeText(params, source)))
	} else {
		sb.WriteString("()")
	}

	for _, field := range []string{"result", "return_type", "type"} {
		if rt := node.ChildByFieldName(field); rt != nil {
			sb.WriteByte(' ')
			sb.WriteString(normalizeWS(parser.NodeText(rt, source)))
			break
		}
	}

	return sb.String()
}

// normalizeWS collapses whitespace runs so wrapped parameter lists render
// on one line and formatting-only edits do not alter the signature.
func normalizeWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
