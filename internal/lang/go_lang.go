package lang

func init() {
	Register(&Spec{
		Language:          Go,
		FileExtensions:    []string{".go"},
		FunctionNodeTypes: []string{"function_declaration"},
		MethodNodeTypes:   []string{"method_declaration"},
		ClassNodeTypes:    []string{"type_spec", "type_alias"},
		CommentNodeTypes:  []string{"comment"},
		DocCommentPrefix:  "//",
	})
}
