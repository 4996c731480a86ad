package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"rag-chatbot/internal/models"
)

// separators, coarsest first. The empty string is the character-level
// fallback for text with no usable break points.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts page text into chunks of at most maxSize characters, with up
// to overlap trailing characters carried into the next chunk so local
// context survives the boundary. Splitting is per page; chunks never span
// pages.
type Splitter struct {
	maxSize int
	overlap int
	rc      textsplitter.RecursiveCharacter
}

func New(maxSize, overlap int) *Splitter {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 2
	}
	return &Splitter{
		maxSize: maxSize,
		overlap: overlap,
		rc: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(maxSize),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
		),
	}
}

// Split chunks every page in order. Output order is page order, then chunk
// order within the page. Identical input yields identical output.
func (s *Splitter) Split(pages []models.Page) []models.Chunk {
	var chunks []models.Chunk
	for _, page := range pages {
		for _, text := range s.SplitText(page.Text) {
			chunks = append(chunks, models.Chunk{Text: text, PageNumber: page.Number})
		}
	}
	return chunks
}

// SplitText splits a single text on the coarsest separator present, merging
// pieces back up to maxSize characters. Whitespace-only chunks are dropped.
func (s *Splitter) SplitText(text string) []string {
	segments, err := s.rc.SplitText(text)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment = strings.TrimSpace(segment); segment != "" {
			out = append(out, segment)
		}
	}
	return out
}
