package parser

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/loupe-dev/loupe/internal/lang"
)

func TestParseGo(t *testing.T) {
	source := []byte(`package main

func Hello() string {
	return "hello"
}

func Add(a, b int) int {
	return a + b
}
`)
	tree, err := Parse(lang.Go, source)
	if err != nil {
		t.Fatalf("Parse Go: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		t.Fatal("root node is nil")
	}

	var funcCount int
	Walk(root, func(n *tree_sitter.Node) bool {
		if n.Kind() == "function_declaration" {
			funcCount++
		}
		return true
	})
	if funcCount != 2 {
		t.Errorf("expected 2 function_declarations, got %d", funcCount)
	}
}

func TestParsePython(t *testing.T) {
	source := []byte(`def greet(name):
    return f"Hello, {name}"

class Greeter:
    def hello(self):
        pass
`)
	tree, err := Parse(lang.Python, source)
	if err != nil {
		t.Fatalf("Parse Python: %v", err)
	}
	defer tree.Close()

	var funcCount, classCount int
	Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			funcCount++
		case "class_definition":
			classCount++
		}
		return true
	})
	if funcCount != 2 {
		t.Errorf("expected 2 function_definitions, got %d", funcCount)
	}
	if classCount != 1 {
		t.Errorf("expected 1 class_definition, got %d", classCount)
	}
}

func TestParseUnsupportedLanguage(t *testing.T) {
	if _, err := Parse(lang.Language("cobol"), []byte("x")); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestNodeText(t *testing.T) {
	source := []byte("package main\n")
	tree, err := Parse(lang.Go, source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	if got := NodeText(tree.RootNode(), source); got != string(source) {
		t.Errorf("NodeText = %q, want full source", got)
	}
}

func TestAllRegisteredLanguagesParse(t *testing.T) {
	samples := map[lang.Language][]byte{
		lang.Go:         []byte("package main\nfunc f() {}\n"),
		lang.Python:     []byte("def f():\n    pass\n"),
		lang.JavaScript: []byte("function f() {}\n"),
		lang.TypeScript: []byte("function f(): void {}\n"),
		lang.TSX:        []byte("function f() { return <div/>; }\n"),
		lang.Rust:       []byte("fn f() {}\n"),
		lang.Java:       []byte("class A { void f() {} }\n"),
	}
	for l, src := range samples {
		tree, err := Parse(l, src)
		if err != nil {
			t.Errorf("Parse %s: %v", l, err)
			continue
		}
		tree.Close()
	}
}
