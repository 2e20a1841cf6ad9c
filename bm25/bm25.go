// Package bm25 implements a standard Okapi BM25 inverted index over
// document chunks identified by UUID.
package bm25

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const (
	k1 = 1.5
	b  = 0.75
)

var tokenPattern = regexp.MustCompile(`[^\w]+`)

// Tokenize lowercases text and splits on non-word characters, matching the
// tokenizer used when the index was built against the query side too.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	fields := tokenPattern.Split(lower, -1)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Index is an in-memory BM25 inverted index keyed by document UUID.
type Index struct {
	mu sync.RWMutex

	termFreq  map[string]map[string]int // term -> uuid -> frequency in that doc
	docFreq   map[string]int            // term -> number of docs containing term
	docLength map[string]int            // uuid -> token count
	docOrder  []string                  // document uuids in insertion order
	totalLen  int
}

// New returns an empty BM25 index.
func New() *Index {
	return &Index{
		termFreq:  make(map[string]map[string]int),
		docFreq:   make(map[string]int),
		docLength: make(map[string]int),
	}
}

// Add indexes the text of a single chunk under uuid. Adding the same uuid
// twice is treated as a fresh document (the previous entry is replaced).
func (idx *Index) Add(uuid, text string) {
	tokens := Tokenize(text)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.docLength[uuid]; !exists {
		idx.docOrder = append(idx.docOrder, uuid)
	} else {
		idx.removeLocked(uuid)
	}

	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}

	for term, freq := range counts {
		if idx.termFreq[term] == nil {
			idx.termFreq[term] = make(map[string]int)
		}
		idx.termFreq[term][uuid] = freq
		idx.docFreq[term]++
	}

	idx.docLength[uuid] = len(tokens)
	idx.totalLen += len(tokens)
}

// removeLocked removes an existing document's postings. Callers must hold
// idx.mu for writing.
func (idx *Index) removeLocked(uuid string) {
	oldLen, ok := idx.docLength[uuid]
	if !ok {
		return
	}
	for term, postings := range idx.termFreq {
		if _, present := postings[uuid]; present {
			delete(postings, uuid)
			idx.docFreq[term]--
			if idx.docFreq[term] <= 0 {
				delete(idx.docFreq, term)
				delete(idx.termFreq, term)
			}
		}
	}
	idx.totalLen -= oldLen
	delete(idx.docLength, uuid)
}

// NumDocs returns the number of indexed documents.
func (idx *Index) NumDocs() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docLength)
}

// Result is a single BM25 match.
type Result struct {
	UUID  string
	Score float64
}

// Search returns up to n matches for query, sorted by score descending,
// omitting zero-scoring documents.
func (idx *Index) Search(query string, n int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	numDocs := len(idx.docLength)
	if numDocs == 0 {
		return nil
	}
	avgdl := float64(idx.totalLen) / float64(numDocs)
	if avgdl == 0 {
		avgdl = 1
	}

	terms := Tokenize(query)
	scores := make(map[string]float64)

	for _, term := range terms {
		postings, ok := idx.termFreq[term]
		if !ok {
			continue
		}
		df := idx.docFreq[term]
		idf := math.Log((float64(numDocs-df)+0.5)/(float64(df)+0.5) + 1)

		for uuid, tf := range postings {
			dl := float64(idx.docLength[uuid])
			denom := float64(tf) + k1*(1-b+b*dl/avgdl)
			scores[uuid] += idf * (float64(tf) * (k1 + 1)) / denom
		}
	}

	results := make([]Result, 0, len(scores))
	for uuid, score := range scores {
		if score > 0 {
			results = append(results, Result{UUID: uuid, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UUID < results[j].UUID
	})

	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results
}
