package service

import (
	"fmt"
	"strings"

	"github.com/tieubaoca/docrag-be/types"
)

// Chunker splits page text into overlapping word-bounded windows with
// deterministic identifiers.
type Chunker struct {
	size    int // target words per chunk
	overlap int // words shared between consecutive chunks
}

// NewChunker validates the window parameters once; Split never re-checks.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, &types.ConfigurationError{Field: "chunk_size", Reason: fmt.Sprintf("must be > 0, got %d", size)}
	}
	if overlap < 0 || overlap >= size {
		return nil, &types.ConfigurationError{Field: "chunk_overlap", Reason: fmt.Sprintf("must satisfy 0 <= overlap < chunk_size, got %d", overlap)}
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split tokenizes text into whitespace-delimited words and emits chunks of
// up to size words advancing by size-overlap each step. The last chunk is
// the one whose uncapped window reaches the end of the text. Empty text
// yields no chunks; text of at most size words yields exactly one.
func (c *Chunker) Split(text, docName string, pageNum int, contentType types.ContentType) []types.TextChunk {
	words := strings.Fields(cleanText(text))
	if len(words) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	var chunks []types.TextChunk
	for index := 0; ; index++ {
		start := index * stride
		if start >= len(words) {
			break
		}
		end := start + c.size
		capped := end
		if capped > len(words) {
			capped = len(words)
		}
		chunkWords := words[start:capped]
		chunkText := strings.Join(chunkWords, " ")
		chunks = append(chunks, types.TextChunk{
			ChunkID:     ChunkID(docName, pageNum, index),
			Text:        chunkText,
			DocName:     docName,
			PageNum:     pageNum,
			ChunkIndex:  index,
			WordCount:   len(chunkWords),
			TokenCount:  CountTokens(len(chunkWords)),
			ContentType: contentType,
		})
		if end >= len(words) {
			break
		}
	}
	return chunks
}

// ChunkID builds the deterministic chunk identifier, unique per
// (docName, pageNum, index) within a run.
func ChunkID(docName string, pageNum, index int) string {
	return fmt.Sprintf("%s_page_%d_%d", docName, pageNum, index)
}

// CountTokens estimates LLM token usage from a word count. The 1.3
// words-per-token ratio is a heuristic approximation, not a guarantee.
func CountTokens(wordCount int) int {
	return (wordCount*13 + 9) / 10
}

// cleanText normalizes encoding artifacts before tokenization. Whitespace
// collapsing happens implicitly through strings.Fields.
func cleanText(text string) string {
	replacements := map[string]string{
		"\u0000": "",   // null character
		"\ufffd": "",   // unicode replacement character
		"\u001b": "",   // escape character
		"\r":     "",   // carriage return
		"\f":     "\n", // form feed to newline
	}
	cleaned := text
	for old, repl := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, repl)
	}
	return cleaned
}
