package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jharjadi/doc-context/internal/model"
)

// Okapi BM25 parameters.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// bm25Index holds corpus statistics for Okapi BM25 scoring.
type bm25Index struct {
	docFreqs []map[string]int
	docLens  []int
	avgDL    float64
	idf      map[string]float64
}

func newBM25Index(corpus [][]string) *bm25Index {
	idx := &bm25Index{
		docFreqs: make([]map[string]int, len(corpus)),
		docLens:  make([]int, len(corpus)),
		idf:      make(map[string]float64),
	}

	nd := make(map[string]int)
	totalLen := 0
	for i, doc := range corpus {
		freqs := make(map[string]int)
		for _, term := range doc {
			freqs[term]++
		}
		idx.docFreqs[i] = freqs
		idx.docLens[i] = len(doc)
		totalLen += len(doc)
		for term := range freqs {
			nd[term]++
		}
	}
	idx.avgDL = float64(totalLen) / float64(len(corpus))

	// Sum in sorted term order so the average, and every score, is reproducible.
	terms := make([]string, 0, len(nd))
	for term := range nd {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	idfSum := 0.0
	var negative []string
	for _, term := range terms {
		freq := float64(nd[term])
		v := math.Log(n-freq+0.5) - math.Log(freq+0.5)
		idx.idf[term] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}
	if len(terms) > 0 {
		floor := bm25Epsilon * idfSum / float64(len(terms))
		for _, term := range negative {
			idx.idf[term] = floor
		}
	}
	return idx
}

func (idx *bm25Index) score(doc int, query []string) float64 {
	if idx.avgDL == 0 {
		return 0
	}
	dl := float64(idx.docLens[doc])
	s := 0.0
	for _, q := range query {
		f := float64(idx.docFreqs[doc][q])
		if f == 0 {
			continue
		}
		s += idx.idf[q] * (f * (bm25K1 + 1) / (f + bm25K1*(1-bm25B+bm25B*dl/idx.avgDL)))
	}
	return s
}

// bm25Tokenize lower-cases and splits on whitespace. No stemming, no stopwords.
func bm25Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// RankKeyword scores chunks against query with Okapi BM25 and returns the
// topK best in descending score order. Ties keep document order.
func RankKeyword(chunks []model.Chunk, query string, topK int) ([]model.RankedCandidate, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("rank keyword: %w", ErrEmptyInput)
	}

	corpus := make([][]string, len(chunks))
	for i, c := range chunks {
		corpus[i] = bm25Tokenize(c.Text)
	}
	idx := newBM25Index(corpus)
	q := bm25Tokenize(query)

	ranked := make([]model.RankedCandidate, len(chunks))
	for i, c := range chunks {
		ranked[i] = model.RankedCandidate{Chunk: c, Score: idx.score(i, q)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topK < 0 {
		topK = 0
	}
	if topK < len(ranked) {
		ranked = ranked[:topK]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}
