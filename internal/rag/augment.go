package rag

import (
	"fmt"
	"strings"
)

// AugmentQueryWithContext renders the retrieved contexts into a prompt
// preamble ahead of the user's query. With no contexts the query passes
// through unchanged.
func AugmentQueryWithContext(query string, contexts []Context) string {
	if len(contexts) == 0 {
		return query
	}

	var sb strings.Builder
	sb.WriteString("Relevant product knowledge:\n")
	for i, c := range contexts {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, c.Content))
	}
	sb.WriteString("\nUser question: ")
	sb.WriteString(query)
	return sb.String()
}
