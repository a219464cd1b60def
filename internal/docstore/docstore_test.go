package docstore

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func Test_TailContext_Budget(t *testing.T) {
	s := New()
	s.Add(Document{ID: "1", Name: "a.txt", Text: "x"}, []string{strings.Repeat("a", 100)})
	s.Add(Document{ID: "2", Name: "b.txt", Text: "y"}, []string{strings.Repeat("b", 100)})

	full := strings.Repeat("a", 100) + "\n" + strings.Repeat("b", 100)
	assert.Equal(t, full, s.TailContext(3000))

	// earliest content is discarded first
	tail := s.TailContext(150)
	assert.Len(t, tail, 150)
	assert.True(t, strings.HasSuffix(full, tail))
	assert.True(t, strings.HasSuffix(tail, strings.Repeat("b", 100)))
}

func Test_TailContext_RuneBoundary(t *testing.T) {
	s := New()
	s.Add(Document{ID: "1", Name: "a.txt", Text: "x"}, []string{"aملف الوثيقة"})

	full := "aملف الوثيقة"
	for budget := 1; budget < len(full); budget++ {
		tail := s.TailContext(budget)
		assert.True(t, utf8.ValidString(tail), "budget %d", budget)
		assert.LessOrEqual(t, len(tail), budget)
		assert.True(t, strings.HasSuffix(full, tail), "budget %d", budget)
	}

	// a cut landing mid-rune backs off to the next rune start
	assert.Equal(t, "ة", s.TailContext(3))
}

func Test_TailContext_Empty(t *testing.T) {
	s := New()
	assert.Equal(t, "", s.TailContext(3000))
}

func Test_Clear(t *testing.T) {
	s := New()
	s.Add(Document{ID: "1", Name: "a.txt", Text: "x"}, []string{"chunk"})
	s.Clear()
	assert.Equal(t, 0, s.ChunkCount())
	assert.Empty(t, s.Documents())
}

func Test_Documents_Order(t *testing.T) {
	s := New()
	s.Add(Document{ID: "1", Name: "a.txt", Text: "x"}, nil)
	s.Add(Document{ID: "2", Name: "b.txt", Text: "y"}, nil)

	docs := s.Documents()
	assert.Equal(t, []string{"a.txt", "b.txt"}, []string{docs[0].Name, docs[1].Name})
}
