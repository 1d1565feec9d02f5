package rules

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// DefaultTopK is how many rules a retrieval query returns by default.
const DefaultTopK = 3

// Embedder turns texts into vectors. Implementations must return one vector
// per input text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match pairs a rule with its similarity score against a query.
type Match struct {
	Rule  Rule
	Score float64
}

type indexRecord struct {
	rule   Rule
	vector []float32
}

// Index holds embedded rule documents for similarity search. It is built
// in memory per run; with a handful of rules there is nothing worth
// persisting.
type Index struct {
	records []indexRecord
}

// BuildIndex embeds every rule document in the catalog in one call.
func BuildIndex(ctx context.Context, emb Embedder, catalog *Catalog) (*Index, error) {
	rules := catalog.Rules()
	if len(rules) == 0 {
		return &Index{}, nil
	}

	docs := make([]string, len(rules))
	for i, rule := range rules {
		docs[i] = rule.Document()
	}

	vectors, err := emb.Embed(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to embed rule documents: %w", err)
	}
	if len(vectors) != len(rules) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(rules))
	}

	records := make([]indexRecord, len(rules))
	for i, rule := range rules {
		records[i] = indexRecord{rule: rule, vector: vectors[i]}
	}
	return &Index{records: records}, nil
}

// Len reports the number of indexed rules.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// Search returns up to topK rules scoring at least minScore against the
// query vector, best first. Ties keep catalog order.
func (idx *Index) Search(query []float32, topK int, minScore float64) []Match {
	if idx == nil {
		return nil
	}

	matches := make([]Match, 0, len(idx.records))
	for _, record := range idx.records {
		score := CosineSim(query, record.vector)
		if score >= minScore {
			matches = append(matches, Match{Rule: record.rule, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// SearchText embeds the query and searches the index with it.
func (idx *Index) SearchText(ctx context.Context, emb Embedder, query string, topK int, minScore float64) ([]Match, error) {
	vectors, err := emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}
	return idx.Search(vectors[0], topK, minScore), nil
}

// CosineSim computes cosine similarity between two vectors. Mismatched
// dimensions or zero vectors score 0.
func CosineSim(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
