package lang

// Language represents a supported programming language.
type Language string

const (
	Go         Language = "go"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Rust       Language = "rust"
	Java       Language = "java"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{Go, Python, JavaScript, TypeScript, TSX, Rust, Java}
}

// Spec defines how entities are recognized in one language's syntax tree.
type Spec struct {
	Language       Language
	FileExtensions []string

	// FunctionNodeTypes are definition node kinds that become function
	// entities at file level and method entities inside a class body.
	FunctionNodeTypes []string
	// MethodNodeTypes are node kinds that are methods wherever they appear
	// (e.g. Go method_declaration carries its own receiver).
	MethodNodeTypes []string
	// ClassNodeTypes are class-like container node kinds (classes, structs,
	// traits, interfaces, enums).
	ClassNodeTypes []string
	// CommentNodeTypes are trivia node kinds excluded from structural hashing.
	CommentNodeTypes []string
	// WrapperNodeTypes are transparent wrappers around definitions
	// (decorated_definition, export_statement); extraction looks through
	// them but uses the wrapper for the entity extent.
	WrapperNodeTypes []string
	// ImplNodeTypes are impl-block kinds whose inner functions are methods
	// of the implemented type (Rust impl_item).
	ImplNodeTypes []string

	// HasDocstrings marks languages where documentation is the first string
	// expression statement of a body (Python). Others use leading comments.
	HasDocstrings bool
	// DocCommentPrefix is the conventional doc line-comment prefix.
	DocCommentPrefix string
}

// registry maps file extensions to language specs.
var registry = map[string]*Spec{}

// Register adds a Spec to the global registry.
func Register(spec *Spec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the Spec for a file extension (e.g. ".go").
func ForExtension(ext string) *Spec {
	return registry[ext]
}

// ForLanguage returns the Spec for a language.
func ForLanguage(l Language) *Spec {
	for _, spec := range registry {
		if spec.Language == l {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// IsComment reports whether kind is a comment node kind for the spec.
func (s *Spec) IsComment(kind string) bool {
	for _, k := range s.CommentNodeTypes {
		if k == kind {
			return true
		}
	}
	return false
}
