package query

import (
	"fmt"
	"strings"
)

// AmbiguousError reports a lookup that matched more than one entity
// when the caller asked for exactly one.
type AmbiguousError struct {
	Name       string
	Candidates []Location
}

func (e *AmbiguousError) Error() string {
	ids := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		ids[i] = c.EntityID
	}
	return fmt.Sprintf("%q is ambiguous (%d matches): %s", e.Name, len(e.Candidates), strings.Join(ids, ", "))
}

// NotFoundError reports a lookup that matched nothing, carrying the
// nearest indexed names as suggestions.
type NotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("no entity named %q", e.Name)
	}
	return fmt.Sprintf("no entity named %q (closest: %s)", e.Name, strings.Join(e.Suggestions, ", "))
}
