package lang

func init() {
	Register(&Spec{
		Language:          Java,
		FileExtensions:    []string{".java"},
		FunctionNodeTypes: []string{"method_declaration", "constructor_declaration"},
		ClassNodeTypes:    []string{"class_declaration", "interface_declaration", "enum_declaration", "record_declaration"},
		CommentNodeTypes:  []string{"line_comment", "block_comment"},
		DocCommentPrefix:  "//",
	})
}
