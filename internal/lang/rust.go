package lang

func init() {
	Register(&Spec{
		Language:          Rust,
		FileExtensions:    []string{".rs"},
		FunctionNodeTypes: []string{"function_item"},
		ClassNodeTypes:    []string{"struct_item", "enum_item", "trait_item"},
		CommentNodeTypes:  []string{"line_comment", "block_comment"},
		ImplNodeTypes:     []string{"impl_item"},
		DocCommentPrefix:  "///",
	})
}
