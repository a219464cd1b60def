package memory

import (
	"fmt"
	"strings"
	"sync"

	"doc-chat/internal/models"
)

const DefaultWindow = 5

// Memory is an append-only conversation log. The full log is retained for
// the process lifetime, so very long sessions grow without bound; only the
// trailing context window is ever rendered into prompts.
type Memory struct {
	mu    sync.Mutex
	turns []models.Turn
}

func New() *Memory {
	return &Memory{}
}

func (m *Memory) Append(question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, models.Turn{Question: question, Answer: answer})
}

// Context renders the last lastN turns as alternating Question/Answer
// lines, oldest of the window first. lastN <= 0 uses DefaultWindow.
func (m *Memory) Context(lastN int) string {
	if lastN <= 0 {
		lastN = DefaultWindow
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start := max(len(m.turns)-lastN, 0)
	lines := make([]string, 0, len(m.turns)-start)
	for _, t := range m.turns[start:] {
		lines = append(lines, fmt.Sprintf("Question: %s\nAnswer: %s", t.Question, t.Answer))
	}
	return strings.Join(lines, "\n")
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}
