// Package router picks the cheap or expensive generation model for a
// question.
package router

import "strings"

// LengthThreshold is the question length, in characters, beyond which
// the expensive model is chosen regardless of content. A question
// exactly at the threshold still routes cheap.
const LengthThreshold = 180

// escalationKeywords are domain terms that mark a question as
// technical enough to deserve the expensive model even when short.
var escalationKeywords = []string{
	"boost",
	"turbo",
	"supercharg",
	"e85",
	"flex fuel",
	"duty cycle",
	"returnless",
	"dual tank",
	"nitrous",
	"staged inject",
}

// Router chooses between two configured model slugs.
type Router struct {
	cheap     string
	expensive string
}

// New creates a router over the given model slugs.
func New(cheap, expensive string) *Router {
	return &Router{cheap: cheap, expensive: expensive}
}

// Pick returns the model slug for the question: expensive iff the
// question exceeds the length threshold or contains an escalation
// keyword, cheap otherwise.
func (r *Router) Pick(question string) string {
	if len(question) > LengthThreshold {
		return r.expensive
	}
	lower := strings.ToLower(question)
	for _, kw := range escalationKeywords {
		if strings.Contains(lower, kw) {
			return r.expensive
		}
	}
	return r.cheap
}

// Cheap returns the cheap model slug.
func (r *Router) Cheap() string { return r.cheap }

// Expensive returns the expensive model slug.
func (r *Router) Expensive() string { return r.expensive }
