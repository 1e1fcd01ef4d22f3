// Command astdump prints the tree-sitter AST of a source file. It is a
// development aid for writing language specs and extraction rules.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/loupe-dev/loupe/internal/lang"
	"github.com/loupe-dev/loupe/internal/parser"
)

func printAST(node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	prefix := ""
	for i := 0; i < indent; i++ {
		prefix += "  "
	}
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	named := ""
	if !node.IsNamed() {
		named = " (anon)"
	}
	fmt.Printf("%s%s%s %q\n", prefix, node.Kind(), named, text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(node.Child(i), source, indent+1)
	}
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: astdump <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	l, ok := lang.LanguageForExtension(filepath.Ext(path))
	if !ok {
		fmt.Fprintf(os.Stderr, "unsupported file type: %s\n", path)
		os.Exit(1)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	tree, err := parser.Parse(l, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer tree.Close()

	printAST(tree.RootNode(), source, 0)
}
