package assembler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"doc-chat/internal/models"
)

// Language is the response language requested from the model.
type Language string

const (
	English Language = "English"
	Arabic  Language = "Arabic"
)

// DetectLanguage picks the response language for a user message: English
// when every non-space character fits in 7-bit ASCII, Arabic otherwise.
// This is a binary heuristic matched to the system's two user populations,
// not general language detection.
func DetectLanguage(message string) Language {
	for _, r := range message {
		if r == ' ' {
			continue
		}
		if r > unicode.MaxASCII {
			return Arabic
		}
	}
	return English
}

// RecencyPrompt builds the memory+files prompt. fileContext is expected to
// be already truncated to the caller's byte budget.
func RecencyPrompt(fileContext, memoryContext, message string) string {
	return fmt.Sprintf(models.RecencyPromptTemplate, fileContext, memoryContext, message, DetectLanguage(message))
}

// RetrievalPrompt builds the indexed-retrieval prompt from the retrieved
// chunk texts, separated by blank lines.
func RetrievalPrompt(chunkTexts []string, question string) string {
	return fmt.Sprintf(models.RetrievalPromptTemplate, strings.Join(chunkTexts, "\n\n"), question)
}

// Previews returns the leading maxLen bytes of each text, backed off to a
// rune boundary, for use in the citation block.
func Previews(chunkTexts []string, maxLen int) []string {
	previews := make([]string, len(chunkTexts))
	for i, t := range chunkTexts {
		previews[i] = Truncate(t, maxLen)
	}
	return previews
}

// Truncate cuts s to at most maxLen bytes without splitting a rune.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
