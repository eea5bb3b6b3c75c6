package llm

import "context"

// StubCompleter answers without calling any provider. Selected with
// llm.provider=stub; handy for local runs and demos.
type StubCompleter struct{}

func NewStubCompleter() *StubCompleter { return &StubCompleter{} }

func (s *StubCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	return "stub answer (no model configured)", nil
}
