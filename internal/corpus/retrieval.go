package corpus

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"vaultai/internal/model"
)

type scoredChunk struct {
	index int
	score float32
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// termVectors builds term-frequency vectors for the query and every
// document over their shared vocabulary.
func termVectors(query string, docs []string) ([]float32, [][]float32) {
	vocab := make(map[string]int)
	queryTerms := tokenize(query)
	for _, term := range queryTerms {
		if _, ok := vocab[term]; !ok {
			vocab[term] = len(vocab)
		}
	}

	vector := func(terms []string) []float32 {
		v := make([]float32, len(vocab))
		for _, term := range terms {
			if i, ok := vocab[term]; ok {
				v[i]++
			}
		}
		return v
	}

	docVectors := make([][]float32, len(docs))
	for i, doc := range docs {
		docVectors[i] = vector(tokenize(doc))
	}
	return vector(queryTerms), docVectors
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// topKScored keeps the k best scores, ties broken by original order.
func topKScored(scored []scoredChunk, k int) []scoredChunk {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// termScores ranks chunks by term overlap with the question. The file name
// counts as part of each chunk.
func termScores(question string, chunks []model.DocumentChunk) []scoredChunk {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Filename + " " + c.Content
	}
	queryVec, docVecs := termVectors(question, texts)
	scored := make([]scoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = scoredChunk{index: i, score: cosineSimilarity(queryVec, docVecs[i])}
	}
	return scored
}
