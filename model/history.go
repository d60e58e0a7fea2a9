package model

// History is the ordered record of one session. It has a single writer
// (the orchestrator) and is read between writes, so it carries no lock.
type History struct {
	turns []Turn
}

// NewHistory starts a history with the given system instruction.
func NewHistory(systemPrompt string) *History {
	h := &History{}
	h.Append(System, systemPrompt)
	return h
}

// Append adds a turn at the end.
func (h *History) Append(author Author, content string) {
	h.turns = append(h.turns, Turn{Author: author, Content: content})
}

// Snapshot returns a copy of the turns in insertion order.
func (h *History) Snapshot() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Exchanges counts our outbound utterances.
func (h *History) Exchanges() int {
	n := 0
	for _, t := range h.turns {
		if t.Author == Ours {
			n++
		}
	}
	return n
}
