package lang

func init() {
	Register(&Spec{
		Language:          TypeScript,
		FileExtensions:    []string{".ts", ".mts", ".cts"},
		FunctionNodeTypes: []string{"function_declaration", "generator_function_declaration"},
		MethodNodeTypes:   []string{"method_definition"},
		ClassNodeTypes:    []string{"class_declaration", "abstract_class_declaration", "interface_declaration", "enum_declaration"},
		CommentNodeTypes:  []string{"comment"},
		WrapperNodeTypes:  []string{"export_statement"},
		DocCommentPrefix:  "//",
	})

	Register(&Spec{
		Language:          TSX,
		FileExtensions:    []string{".tsx"},
		FunctionNodeTypes: []string{"function_declaration", "generator_function_declaration"},
		MethodNodeTypes:   []string{"method_definition"},
		ClassNodeTypes:    []string{"class_declaration", "abstract_class_declaration", "interface_declaration", "enum_declaration"},
		CommentNodeTypes:  []string{"comment"},
		WrapperNodeTypes:  []string{"export_statement"},
		DocCommentPrefix:  "//",
	})
}
