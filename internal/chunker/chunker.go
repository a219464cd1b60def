package chunker

// Split cuts text into contiguous windows of at most window bytes. The
// final window is shorter when the text length is not a multiple, so
// concatenating the result reproduces the input exactly.
func Split(text string, window int) []string {
	if window <= 0 || len(text) == 0 {
		return nil
	}

	chunks := make([]string, 0, len(text)/window+1)
	for i := 0; i < len(text); i += window {
		end := min(i+window, len(text))
		chunks = append(chunks, text[i:end])
	}
	return chunks
}

// SplitOverlap cuts text into windows of size bytes, each advancing by
// size-overlap. overlap is clamped below size so the cut always makes
// progress. Every byte of the input is covered by at least one window.
func SplitOverlap(text string, size, overlap int) []string {
	if size <= 0 || len(text) == 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	step := size - overlap
	l := len(text)
	chunks := make([]string, 0, l/step+1)
	pos := 0
	for {
		end := min(pos+size, l)
		chunks = append(chunks, text[pos:end])
		if end >= l {
			break
		}
		pos += step
	}
	return chunks
}
