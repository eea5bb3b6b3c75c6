package prompt

import "strings"

// Personas keyed by name; the value is the system message.
var Personas = map[string]string{
	"default":  "You are a helpful assistant providing concise and accurate answers.",
	"expert":   "You are an expert AI assistant with deep knowledge. Provide detailed, technical info.",
	"friendly": "You are a friendly assistant. Use casual language and humor.",
	"concise":  "You are a concise assistant. Provide short, direct answers.",
}

type example struct {
	question string
	answer   string
}

var fewShotExamples = map[string][]example{
	"factual": {
		{"What is the capital of France?", "The capital of France is Paris."},
		{"Who wrote 'Romeo and Juliet'?", "William Shakespeare wrote 'Romeo and Juliet'."},
	},
	"opinion": {
		{"What's the best programming language?", "Python's great for beginners—readable and easy!"},
		{"Is AI dangerous?", "AI's a mixed bag—cool benefits, but privacy's a worry."},
	},
	"instruction": {
		{"How do I make pancakes?", "Mix flour, sugar, baking powder, milk, butter, egg. Cook on a hot pan."},
		{"How can I improve public speaking?", "Practice, record yourself, join Toastmasters."},
	},
}

// ClassifyQuestionType buckets a question by keyword so the system prompt
// can carry matching few-shot examples. Returns "" when nothing matches.
func ClassifyQuestionType(question string) string {
	q := strings.ToLower(question)
	for _, kw := range []string{"what is", "who is", "when did", "where is", "how many"} {
		if strings.Contains(q, kw) {
			return "factual"
		}
	}
	for _, kw := range []string{"what do you think", "opinion", "best", "worst", "should i"} {
		if strings.Contains(q, kw) {
			return "opinion"
		}
	}
	for _, kw := range []string{"how do i", "how to", "steps", "guide", "instructions"} {
		if strings.Contains(q, kw) {
			return "instruction"
		}
	}
	return ""
}

// BuildSystemPrompt returns the persona's system message, extended with
// few-shot examples when the question type has any. Unknown personas fall
// back to "default".
func BuildSystemPrompt(persona, questionType string) string {
	system, ok := Personas[persona]
	if !ok {
		system = Personas["default"]
	}

	examples, ok := fewShotExamples[questionType]
	if !ok {
		return system
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nExamples:\n")
	for _, ex := range examples {
		b.WriteString("\nQ: ")
		b.WriteString(ex.question)
		b.WriteString("\nA: ")
		b.WriteString(ex.answer)
		b.WriteString("\n")
	}
	return b.String()
}

// PersonaNames lists the available personas.
func PersonaNames() []string {
	names := make([]string, 0, len(Personas))
	for name := range Personas {
		names = append(names, name)
	}
	return names
}
