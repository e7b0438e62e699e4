package service

import (
	"math"

	"github.com/tieubaoca/docrag-be/types"
)

// GetProcessingStats folds a batch of pages into summary counters. It is a
// pure function of its input; nothing is cached between calls.
func GetProcessingStats(pages []types.Page) types.ProcessingStats {
	stats := types.ProcessingStats{TotalPages: len(pages)}
	docs := make(map[string]struct{})
	for _, page := range pages {
		stats.TotalChunks += len(page.TextChunks)
		for _, chunk := range page.TextChunks {
			stats.TotalWords += chunk.WordCount
			stats.TotalTokens += chunk.TokenCount
		}
		if page.HasText {
			stats.PagesWithText++
		}
		if page.HasImages {
			stats.PagesWithImages++
		}
		stats.TotalImages += len(page.Images)
		docs[page.DocName] = struct{}{}
	}
	stats.DocumentsProcessed = len(docs)
	if stats.TotalChunks > 0 {
		avg := float64(stats.TotalWords) / float64(stats.TotalChunks)
		stats.AvgChunkSize = math.Round(avg*100) / 100
	}
	return stats
}

// MergeStats combines counters from two runs. The average is recomputed
// from the merged totals, not averaged.
func MergeStats(a, b types.ProcessingStats) types.ProcessingStats {
	merged := types.ProcessingStats{
		TotalPages:         a.TotalPages + b.TotalPages,
		TotalChunks:        a.TotalChunks + b.TotalChunks,
		TotalWords:         a.TotalWords + b.TotalWords,
		TotalTokens:        a.TotalTokens + b.TotalTokens,
		PagesWithText:      a.PagesWithText + b.PagesWithText,
		PagesWithImages:    a.PagesWithImages + b.PagesWithImages,
		TotalImages:        a.TotalImages + b.TotalImages,
		DocumentsProcessed: a.DocumentsProcessed + b.DocumentsProcessed,
	}
	if merged.TotalChunks > 0 {
		avg := float64(merged.TotalWords) / float64(merged.TotalChunks)
		merged.AvgChunkSize = math.Round(avg*100) / 100
	}
	return merged
}
