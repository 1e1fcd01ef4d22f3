package extract

import (
	"bytes"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/loupe-dev/loupe/internal/lang"
	"github.com/loupe-dev/loupe/internal/parser"
)

// Docs derives the documentation text attached to a definition node.
// Python: the PEP 257 docstring. Other languages: the contiguous comment
// block immediately above the definition (or its decorator/export wrapper).
func Docs(node *tree_sitter.Node, source []byte, spec *lang.Spec) string {
	if spec.HasDocstrings {
		return bodyDocstring(node, source)
	}
	extentNode := extentFor(node, spec)
	return leadingComments(source, int(extentNode.StartPosition().Row), spec)
}

// moduleDocs derives file-level documentation: the module docstring for
// Python, or the comment block starting at the top of the file otherwise.
func moduleDocs(root *tree_sitter.Node, source []byte, spec *lang.Spec) string {
	if spec.HasDocstrings {
		return rootDocstring(root, source)
	}
	return topComments(source, spec)
}

// bodyDocstring extracts the first string expression statement of a body.
func bodyDocstring(node *tree_sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	return firstStringStatement(body, source)
}

// rootDocstring extracts a module docstring from the root node.
func rootDocstring(root *tree_sitter.Node, source []byte) string {
	return firstStringStatement(root, source)
}

func firstStringStatement(container *tree_sitter.Node, source []byte) string {
	if container.NamedChildCount() == 0 {
		return ""
	}
	first := container.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" {
		return ""
	}
	strNode := first.NamedChild(0)
	if strNode == nil || strNode.Kind() != "string" {
		return ""
	}
	return cleanDocstring(parser.NodeText(strNode, source))
}

// cleanDocstring removes quote delimiters and normalizes indentation.
func cleanDocstring(s string) string {
	switch {
	case len(s) >= 6 && (strings.HasPrefix(s, `"""`) || strings.HasPrefix(s, `'''`)):
		s = s[3 : len(s)-3]
	case len(s) >= 2 && (strings.HasPrefix(s, `"`) || strings.HasPrefix(s, `'`)):
		s = s[1 : len(s)-1]
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= 1 {
		return strings.TrimSpace(s)
	}
	minIndent := -1
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= minIndent {
				lines[i] = lines[i][minIndent:]
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// leadingComments scans backwards from the line above startRow (0-based)
// collecting the adjacent comment block.
func leadingComments(source []byte, startRow int, spec *lang.Spec) string {
	lines := bytes.Split(source, []byte("\n"))
	idx := startRow - 1
	if idx < 0 || idx >= len(lines) {
		return ""
	}

	trimmed := strings.TrimSpace(string(lines[idx]))
	if trimmed == "" {
		return ""
	}

	if strings.HasSuffix(trimmed, "*/") {
		return blockComment(lines, idx)
	}
	if prefix := linePrefix(spec); prefix != "" && strings.HasPrefix(trimmed, prefix) {
		return lineComments(lines, idx, prefix)
	}
	return ""
}

// topComments collects the comment block starting at the first line of a file.
func topComments(source []byte, spec *lang.Spec) string {
	lines := bytes.Split(source, []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	first := strings.TrimSpace(string(lines[0]))

	if strings.HasPrefix(first, "/*") {
		for i := 0; i < len(lines); i++ {
			if strings.HasSuffix(strings.TrimSpace(string(lines[i])), "*/") {
				return blockComment(lines, i)
			}
		}
		return ""
	}

	prefix := linePrefix(spec)
	if prefix == "" || !strings.HasPrefix(first, prefix) {
		return ""
	}
	var collected []string
	for i := 0; i < len(lines); i++ {
		t := strings.TrimSpace(string(lines[i]))
		if !strings.HasPrefix(t, prefix) {
			break
		}
		collected = append(collected, strings.TrimSpace(strings.TrimPrefix(t, prefix)))
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}

// linePrefix returns the base line-comment prefix used for matching.
// Rust doc comments use ///, which still matches its // base form handled
// by the configured prefix.
func linePrefix(spec *lang.Spec) string {
	return spec.DocCommentPrefix
}

// lineComments walks upward collecting consecutive prefix-comment lines.
func lineComments(lines [][]byte, endIdx int, prefix string) string {
	startIdx := endIdx
	for startIdx >= 0 {
		t := strings.TrimSpace(string(lines[startIdx]))
		if !strings.HasPrefix(t, prefix) {
			break
		}
		startIdx--
	}
	startIdx++

	var collected []string
	for i := startIdx; i <= endIdx; i++ {
		t := strings.TrimSpace(string(lines[i]))
		t = strings.TrimPrefix(t, prefix)
		// Rust /// leaves a residual slash after trimming //.
		t = strings.TrimPrefix(t, "/")
		collected = append(collected, strings.TrimSpace(t))
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}

// blockComment walks upward from a line ending with */ to the opening /*.
func blockComment(lines [][]byte, endIdx int) string {
	startIdx := endIdx
	for startIdx >= 0 {
		if strings.HasPrefix(strings.TrimSpace(string(lines[startIdx])), "/*") {
			break
		}
		startIdx--
	}
	if startIdx < 0 {
		return ""
	}

	var raw []string
	for i := startIdx; i <= endIdx; i++ {
		raw = append(raw, string(lines[i]))
	}
	s := strings.TrimSpace(strings.Join(raw, "\n"))
	s = strings.TrimPrefix(s, "/**")
	s = strings.TrimPrefix(s, "/*")
	s = strings.TrimSuffix(s, "*/")

	var cleaned []string
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		t = strings.TrimPrefix(t, "*")
		cleaned = append(cleaned, strings.TrimSpace(t))
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
