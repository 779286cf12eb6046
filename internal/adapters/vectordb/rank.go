// Package vectordb - rank.go scores chunks for vector and keyword search.
package vectordb

import (
	"math"
	"sort"
	"strings"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// keywordScore is the share of terms found in content, case-insensitively.
func keywordScore(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, t := range terms {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// topResults sorts by score descending, ties by chunk ID, and keeps topK.
func topResults(results []entities.QueryResult, topK int) []entities.QueryResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func sourceOf(c entities.Chunk) string {
	if c.Source != "" {
		return c.Source
	}
	return c.DocumentID
}
