package memory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Context_Window(t *testing.T) {
	m := New()
	for i := 1; i <= 8; i++ {
		m.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	var want []string
	for i := 4; i <= 8; i++ {
		want = append(want, fmt.Sprintf("Question: q%d\nAnswer: a%d", i, i))
	}
	assert.Equal(t, strings.Join(want, "\n"), m.Context(5))

	// the full log is retained, only the window is rendered
	assert.Equal(t, 8, m.Len())
}

func Test_Context_Empty(t *testing.T) {
	m := New()
	assert.Equal(t, "", m.Context(5))
}

func Test_Context_DefaultWindow(t *testing.T) {
	m := New()
	for i := 1; i <= 8; i++ {
		m.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	assert.Equal(t, m.Context(5), m.Context(0))
}

func Test_Clear(t *testing.T) {
	m := New()
	m.Append("q", "a")
	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, "", m.Context(5))
}
