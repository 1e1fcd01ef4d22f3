package extract

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"github.com/zeebo/xxh3"

	"github.com/loupe-dev/loupe/internal/lang"
	"github.com/loupe-dev/loupe/internal/parser"
)

// Hash computes the structural hash of a node: a digest of the AST shape
// that ignores comments, docstrings, and all formatting trivia. It changes
// exactly when the node's signature or statement structure changes.
func Hash(node *tree_sitter.Node, source []byte, spec *lang.Spec) string {
	var sb strings.Builder
	serialize(node, nil, source, spec, &sb)
	return fmt.Sprintf("%016x", xxh3.HashString(sb.String()))
}

// serialize appends a stable, order-sensitive representation of the node
// tree. Interior nodes contribute their kind; named leaves contribute
// kind:text so identifier and literal changes are visible. Comment nodes
// and docstring statements are skipped entirely.
func serialize(n, parent *tree_sitter.Node, source []byte, spec *lang.Spec, sb *strings.Builder) {
	kind := n.Kind()

	if spec.IsComment(kind) {
		return
	}
	if spec.HasDocstrings && isDocstringStatement(n, parent) {
		return
	}

	if n.ChildCount() == 0 {
		if n.IsNamed() {
			sb.WriteString(kind)
			sb.WriteByte(':')
			sb.WriteString(parser.NodeText(n, source))
		} else {
			sb.WriteString(kind)
		}
		sb.WriteByte('|')
		return
	}

	sb.WriteString(kind)
	sb.WriteByte('|')
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil {
			serialize(child, n, source, spec, sb)
		}
	}
}

// isDocstringStatement reports whether n is a docstring: an expression
// statement wrapping a string, appearing as the first named child of a
// block or module.
func isDocstringStatement(n, parent *tree_sitter.Node) bool {
	if n.Kind() != "expression_statement" || parent == nil {
		return false
	}
	pk := parent.Kind()
	if pk != "block" && pk != "module" {
		return false
	}
	first := parent.NamedChild(0)
	if first == nil || first.Id() != n.Id() {
		return false
	}
	inner := n.NamedChild(0)
	return inner != nil && inner.Kind() == "string"
}
