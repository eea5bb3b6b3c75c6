// Package prompt is the only place prompt formatting lives; the history
// store stays independent of how turns are rendered.
package prompt

import (
	"strings"

	"github.com/tdiprima/langchain-flask-api/internal/domain"
)

// BuildContext renders prior turns plus the new question into the linear
// context handed to the completion capability. With no prior turns the
// result is just the question, no preamble.
func BuildContext(turns []domain.Turn, question string) string {
	if len(turns) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, t := range turns {
		b.WriteString("Human: ")
		b.WriteString(t.Question)
		b.WriteString("\nAI: ")
		b.WriteString(t.Answer)
		b.WriteString("\n")
	}
	b.WriteString("\nHuman: ")
	b.WriteString(question)
	return b.String()
}
