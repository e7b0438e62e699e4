package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tieubaoca/docrag-be/types"
)

func makeWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestNewChunkerValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 10, 0, false},
		{"zero size", 0, 0, true},
		{"negative size", -1, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals size", 10, 10, true},
		{"overlap above size", 10, 11, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewChunker(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
			if err != nil {
				var confErr *types.ConfigurationError
				if !errors.As(err, &confErr) {
					t.Fatalf("expected ConfigurationError, got %T", err)
				}
			}
		})
	}
}

func TestSplitOverlapScenario(t *testing.T) {
	// 2,500 words with size=1000 overlap=200 covers word ranges
	// [0,1000), [800,1800), [1600,2500).
	chunker, err := NewChunker(1000, 200)
	if err != nil {
		t.Fatal(err)
	}
	chunks := chunker.Split(makeWords(2500), "report", 4, types.ContentTypeText)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantCounts := []int{1000, 1000, 900}
	wantFirst := []string{"w0", "w800", "w1600"}
	for i, chunk := range chunks {
		if chunk.WordCount != wantCounts[i] {
			t.Errorf("chunk %d word_count = %d, want %d", i, chunk.WordCount, wantCounts[i])
		}
		if got := strings.Fields(chunk.Text)[0]; got != wantFirst[i] {
			t.Errorf("chunk %d starts at %s, want %s", i, got, wantFirst[i])
		}
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
		if want := fmt.Sprintf("report_page_4_%d", i); chunk.ChunkID != want {
			t.Errorf("chunk %d id = %q, want %q", i, chunk.ChunkID, want)
		}
		if chunk.ContentType != types.ContentTypeText {
			t.Errorf("chunk %d content_type = %q", i, chunk.ContentType)
		}
	}
	last := chunks[2]
	if got := strings.Fields(last.Text)[last.WordCount-1]; got != "w2499" {
		t.Errorf("last chunk ends at %s, want w2499", got)
	}
}

func TestSplitSinglePartialChunks(t *testing.T) {
	chunker, err := NewChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	if chunks := chunker.Split("", "doc", 0, types.ContentTypeText); len(chunks) != 0 {
		t.Errorf("empty text should yield zero chunks, got %d", len(chunks))
	}
	if chunks := chunker.Split("   \n\t ", "doc", 0, types.ContentTypeText); len(chunks) != 0 {
		t.Errorf("whitespace-only text should yield zero chunks, got %d", len(chunks))
	}
	chunks := chunker.Split(makeWords(100), "doc", 0, types.ContentTypeText)
	if len(chunks) != 1 {
		t.Fatalf("word count == size should yield one chunk, got %d", len(chunks))
	}
	if chunks[0].WordCount != 100 {
		t.Errorf("single chunk word_count = %d, want 100", chunks[0].WordCount)
	}
	chunks = chunker.Split("just a few words", "doc", 0, types.ContentTypeOCR)
	if len(chunks) != 1 || chunks[0].WordCount != 4 {
		t.Fatalf("short text should yield one 4-word chunk, got %+v", chunks)
	}
	if chunks[0].ContentType != types.ContentTypeOCR {
		t.Errorf("content_type not propagated: %q", chunks[0].ContentType)
	}
}

// chunk count must equal ceil((W-O)/(S-O)) for W > S, and every word index
// must be covered by at least one chunk.
func TestSplitCountFormulaAndCoverage(t *testing.T) {
	cases := []struct{ words, size, overlap int }{
		{2500, 1000, 200},
		{1001, 1000, 200},
		{1800, 1000, 200},
		{50, 7, 3},
		{100, 10, 0},
		{99, 10, 9},
		{10, 10, 5},
		{11, 10, 5},
	}
	for _, tc := range cases {
		chunker, err := NewChunker(tc.size, tc.overlap)
		if err != nil {
			t.Fatal(err)
		}
		chunks := chunker.Split(makeWords(tc.words), "doc", 0, types.ContentTypeText)

		want := 1
		if tc.words > tc.size {
			num := tc.words - tc.overlap
			den := tc.size - tc.overlap
			want = (num + den - 1) / den
		}
		if len(chunks) != want {
			t.Errorf("W=%d S=%d O=%d: got %d chunks, want %d", tc.words, tc.size, tc.overlap, len(chunks), want)
			continue
		}

		covered := make([]bool, tc.words)
		for _, chunk := range chunks {
			for _, w := range strings.Fields(chunk.Text) {
				var idx int
				fmt.Sscanf(w, "w%d", &idx)
				covered[idx] = true
			}
		}
		for i, ok := range covered {
			if !ok {
				t.Errorf("W=%d S=%d O=%d: word %d not covered", tc.words, tc.size, tc.overlap, i)
				break
			}
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	chunker, err := NewChunker(50, 10)
	if err != nil {
		t.Fatal(err)
	}
	text := makeWords(137)
	first := chunker.Split(text, "doc", 2, types.ContentTypeText)
	second := chunker.Split(text, "doc", 2, types.ContentTypeText)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestCountTokens(t *testing.T) {
	tests := []struct{ words, want int }{
		{0, 0},
		{1, 2},   // ceil(1.3)
		{10, 13}, // ceil(13.0)
		{100, 130},
		{900, 1170},
		{3, 4}, // ceil(3.9)
	}
	for _, tt := range tests {
		if got := CountTokens(tt.words); got != tt.want {
			t.Errorf("CountTokens(%d) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

func TestCleanTextNormalization(t *testing.T) {
	chunker, err := NewChunker(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	chunks := chunker.Split("hello\u0000 broken\ufffd page\fnext\r", "doc", 0, types.ContentTypeText)
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "hello broken page next" {
		t.Errorf("unexpected normalized text: %q", chunks[0].Text)
	}
}
