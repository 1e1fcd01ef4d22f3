package lang

func init() {
	Register(&Spec{
		Language:          Python,
		FileExtensions:    []string{".py"},
		FunctionNodeTypes: []string{"function_definition"},
		ClassNodeTypes:    []string{"class_definition"},
		CommentNodeTypes:  []string{"comment"},
		WrapperNodeTypes:  []string{"decorated_definition"},
		HasDocstrings:     true,
	})
}
