package lang

func init() {
	Register(&Spec{
		Language:          JavaScript,
		FileExtensions:    []string{".js", ".mjs", ".cjs", ".jsx"},
		FunctionNodeTypes: []string{"function_declaration", "generator_function_declaration"},
		MethodNodeTypes:   []string{"method_definition"},
		ClassNodeTypes:    []string{"class_declaration"},
		CommentNodeTypes:  []string{"comment"},
		WrapperNodeTypes:  []string{"export_statement"},
		DocCommentPrefix:  "//",
	})
}
