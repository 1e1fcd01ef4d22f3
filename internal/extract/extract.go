// Package extract walks parsed syntax trees and derives the entities the
// index tracks: functions, methods, classes, and one module entity per file.
// Identity (qualified name) and the structural hash are the only durable
// outputs; extents, signatures, and docs are derived fresh on every call.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/loupe-dev/loupe/internal/lang"
	"github.com/loupe-dev/loupe/internal/parser"
)

// ErrMalformed signals that a file failed to parse cleanly. The caller skips
// the file and flags it degraded; the surrounding scan continues.
var ErrMalformed = errors.New("malformed source")

// Kind classifies an entity.
type Kind string

const (
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
	KindClass    Kind = "class"
	KindModule   Kind = "module"
)

// Entity is one addressable code unit extracted from a file.
// StartLine/EndLine are 1-based inclusive and reflect the parse this entity
// came from; they are never persisted.
type Entity struct {
	Name           string
	QualifiedName  string
	Kind           Kind
	StructuralHash string
	StartLine      int
	EndLine        int
	Sig            string
	Docs           string
}

// FileResult holds all entities extracted from one file, in document order.
type FileResult struct {
	Path     string
	Language lang.Language
	Entities []Entity
}

// EntityID returns the stable public identifier for an entity of a file.
func EntityID(path, qualifiedName string) string {
	return path + ":" + qualifiedName
}

// File parses source and extracts its entities. The module entity always
// comes first; remaining entities follow in document order. Duplicate
// qualified names receive deterministic #2, #3... ordinal suffixes.
func File(source []byte, relPath string, l lang.Language) (*FileResult, error) {
	spec := lang.ForLanguage(l)
	if spec == nil {
		return nil, fmt.Errorf("no language spec for %s", l)
	}

	source = stripBOM(source)
	tree, err := parser.Parse(l, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, relPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, relPath)
	}

	result := &FileResult{Path: relPath, Language: l}
	result.Entities = append(result.Entities, moduleEntity(root, source, relPath, spec))

	parser.Walk(root, func(node *tree_sitter.Node) bool {
		kind := node.Kind()

		if contains(spec.FunctionNodeTypes, kind) || contains(spec.MethodNodeTypes, kind) {
			if e, ok := definitionEntity(node, source, spec); ok {
				result.Entities = append(result.Entities, e)
			}
			return false // nested definitions are not independently addressable
		}

		if contains(spec.ClassNodeTypes, kind) {
			if e, ok := classEntity(node, source, spec); ok {
				result.Entities = append(result.Entities, e)
			}
			return true // descend for methods
		}

		return true
	})

	assignOrdinals(result.Entities)
	return result, nil
}

// moduleEntity builds the whole-file entity. Its qualified name is the file
// stem and its hash covers the full AST minus comments and docstrings.
func moduleEntity(root *tree_sitter.Node, source []byte, relPath string, spec *lang.Spec) Entity {
	stem := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	endLine := safeRowToLine(root.EndPosition().Row)
	if endLine < 1 {
		endLine = 1
	}
	return Entity{
		Name:           stem,
		QualifiedName:  stem,
		Kind:           KindModule,
		StructuralHash: Hash(root, source, spec),
		StartLine:      1,
		EndLine:        endLine,
		Docs:           moduleDocs(root, source, spec),
	}
}

// definitionEntity builds a function or method entity from a definition node.
func definitionEntity(node *tree_sitter.Node, source []byte, spec *lang.Spec) (Entity, bool) {
	name := definitionName(node, source)
	if name == "" {
		return Entity{}, false
	}

	owner, nested := resolveOwner(node, source, spec)
	if nested {
		return Entity{}, false
	}

	kind := KindFunction
	qualified := name
	if owner != "" {
		kind = KindMethod
		qualified = owner + "." + name
	}

	extentNode := extentFor(node, spec)
	return Entity{
		Name:           name,
		QualifiedName:  qualified,
		Kind:           kind,
		StructuralHash: Hash(node, source, spec),
		StartLine:      safeRowToLine(extentNode.StartPosition().Row),
		EndLine:        safeRowToLine(extentNode.EndPosition().Row),
		Sig:            Signature(node, source, name),
		Docs:           Docs(node, source, spec),
	}, true
}

// classEntity builds a class entity from a class-like container node.
func classEntity(node *tree_sitter.Node, source []byte, spec *lang.Spec) (Entity, bool) {
	name := definitionName(node, source)
	if name == "" {
		return Entity{}, false
	}
	if owner, nested := resolveOwner(node, source, spec); nested || owner != "" {
		// Inner classes are addressed through their own qualified name only
		// when top level; nested ones are skipped like nested functions.
		return Entity{}, false
	}

	extentNode := extentFor(node, spec)
	return Entity{
		Name:           name,
		QualifiedName:  name,
		Kind:           KindClass,
		StructuralHash: Hash(node, source, spec),
		StartLine:      safeRowToLine(extentNode.StartPosition().Row),
		EndLine:        safeRowToLine(extentNode.EndPosition().Row),
		Docs:           Docs(node, source, spec),
	}, true
}

// definitionName extracts the declared name of a definition node.
func definitionName(node *tree_sitter.Node, source []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return parser.NodeText(nameNode, source)
}

// resolveOwner walks ancestors to classify a definition. It returns the
// owning type name for methods, "" for top-level functions, and nested=true
// for definitions buried inside another function (not addressable).
func resolveOwner(node *tree_sitter.Node, source []byte, spec *lang.Spec) (owner string, nested bool) {
	// Go methods carry their receiver on the node itself.
	if recv := node.ChildByFieldName("receiver"); recv != nil {
		return receiverTypeName(parser.NodeText(recv, source)), false
	}

	for p := node.Parent(); p != nil; p = p.Parent() {
		kind := p.Kind()
		switch {
		case contains(spec.FunctionNodeTypes, kind) || contains(spec.MethodNodeTypes, kind):
			return "", true
		case contains(spec.ClassNodeTypes, kind):
			return definitionName(p, source), false
		case contains(spec.ImplNodeTypes, kind):
			return implTypeName(p, source), false
		}
	}
	return "", false
}

// extentFor returns the node whose span defines the entity's extent,
// widening to a transparent wrapper (decorators, export statements).
func extentFor(node *tree_sitter.Node, spec *lang.Spec) *tree_sitter.Node {
	if p := node.Parent(); p != nil && contains(spec.WrapperNodeTypes, p.Kind()) {
		return p
	}
	return node
}

// receiverTypeName derives the receiver's type name from text like
// "(s *Store)" or "(c *Cache[K, V])".
func receiverTypeName(recv string) string {
	recv = strings.Trim(recv, "()")
	fields := strings.Fields(recv)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	typ = strings.TrimLeft(typ, "*&")
	if i := strings.IndexByte(typ, '['); i > 0 {
		typ = typ[:i]
	}
	return typ
}

// implTypeName derives the implemented type name from an impl block node.
func implTypeName(node *tree_sitter.Node, source []byte) string {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	typ := parser.NodeText(typeNode, source)
	if i := strings.IndexByte(typ, '<'); i > 0 {
		typ = typ[:i]
	}
	return strings.TrimSpace(typ)
}

// assignOrdinals rewrites duplicate qualified names with #2, #3... suffixes
// in document order so identity is reproducible on every extraction.
func assignOrdinals(entities []Entity) {
	seen := make(map[string]int, len(entities))
	for i := range entities {
		qn := entities[i].QualifiedName
		seen[qn]++
		if n := seen[qn]; n > 1 {
			entities[i].QualifiedName = fmt.Sprintf("%s#%d", qn, n)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func stripBOM(source []byte) []byte {
	if len(source) >= 3 && source[0] == 0xEF && source[1] == 0xBB && source[2] == 0xBF {
		return source[3:]
	}
	return source
}

func safeRowToLine(row uint) int {
	const maxInt = int(^uint(0) >> 1)
	if row > uint(maxInt-1) {
		return maxInt
	}
	return int(row) + 1
}
