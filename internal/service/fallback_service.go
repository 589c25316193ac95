package service

import (
	"strings"

	"dostyq-support/internal/knowledge"
)

// FallbackResponder answers from the keyword table of the knowledge base.
type FallbackResponder struct {
	rules    []knowledge.Rule
	greeting string
}

func NewFallbackResponder(kb *knowledge.Base) *FallbackResponder {
	return &FallbackResponder{rules: kb.Fallback.Rules, greeting: kb.Fallback.Greeting}
}

// Respond returns the answer of the first rule with a keyword contained in the
// lower-cased message, or the greeting. Rules are tried in file order.
func (r *FallbackResponder) Respond(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Answer
			}
		}
	}
	return r.greeting
}
