package utils

// separators in preference order; the separator stays with the chunk before it
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("? "),
	[]rune("! "),
	[]rune(" "),
}

// ChunkIterator walks text in chunks of at most maxSize runes.
type ChunkIterator struct {
	runes   []rune
	maxSize int
	pos     int
}

func NewChunkIterator(text string, maxSize int) *ChunkIterator {
	return &ChunkIterator{runes: []rune(text), maxSize: maxSize}
}

// Next returns the following chunk, or false once the text is exhausted.
func (it *ChunkIterator) Next() (string, bool) {
	if it.maxSize <= 0 || it.pos >= len(it.runes) {
		return "", false
	}
	rest := it.runes[it.pos:]
	if len(rest) <= it.maxSize {
		it.pos = len(it.runes)
		return string(rest), true
	}
	window := rest[:it.maxSize]
	cut := findCut(window)
	it.pos += cut
	return string(window[:cut]), true
}

func (it *ChunkIterator) Reset() {
	it.pos = 0
}

// findCut picks a natural boundary, favouring the second half of the window
// so chunks stay close to the bound.
func findCut(window []rune) int {
	half := len(window) / 2
	for _, sep := range separators {
		if idx := lastIndexRunes(window, sep); idx >= 0 && idx+len(sep) > half {
			return idx + len(sep)
		}
	}
	for _, sep := range separators {
		if idx := lastIndexRunes(window, sep); idx >= 0 {
			return idx + len(sep)
		}
	}
	return len(window)
}

func lastIndexRunes(s, sep []rune) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if s[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// SplitText splits text into ordered chunks of at most maxSize runes.
// Joining the chunks gives back text unchanged.
func SplitText(text string, maxSize int) []string {
	it := NewChunkIterator(text, maxSize)
	var chunks []string
	for {
		c, ok := it.Next()
		if !ok {
			return chunks
		}
		chunks = append(chunks, c)
	}
}
