package search

import (
	"math"
	"sort"
)

// bm25 scores documents with the Okapi variant: per-term IDF with an
// epsilon floor so very common terms still contribute a small positive
// weight instead of a negative one.
type bm25 struct {
	k1      float64
	b       float64
	docLen  []int
	avgLen  float64
	freqs   []map[string]int
	docFreq map[string]int
	idf     map[string]float64
}

const idfEpsilon = 0.25

func newBM25(corpus [][]string, k1, b float64) *bm25 {
	m := &bm25{
		k1:      k1,
		b:       b,
		docLen:  make([]int, len(corpus)),
		freqs:   make([]map[string]int, len(corpus)),
		docFreq: make(map[string]int),
		idf:     make(map[string]float64),
	}

	total := 0
	for i, doc := range corpus {
		m.docLen[i] = len(doc)
		total += len(doc)
		freq := make(map[string]int, len(doc))
		for _, term := range doc {
			freq[term]++
		}
		m.freqs[i] = freq
		for term := range freq {
			m.docFreq[term]++
		}
	}
	if len(corpus) > 0 {
		m.avgLen = float64(total) / float64(len(corpus))
	}

	n := float64(len(corpus))
	var idfSum float64
	var negative []string
	for term, df := range m.docFreq {
		idf := math.Log(n-float64(df)+0.5) - math.Log(float64(df)+0.5)
		m.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(m.docFreq) > 0 {
		floor := idfEpsilon * idfSum / float64(len(m.docFreq))
		for _, term := range negative {
			m.idf[term] = floor
		}
	}
	return m
}

// scores returns one BM25 score per document for the query terms.
func (m *bm25) scores(query []string) []float64 {
	out := make([]float64, len(m.freqs))
	for _, term := range query {
		idf, ok := m.idf[term]
		if !ok {
			continue
		}
		for i := range m.freqs {
			f := float64(m.freqs[i][term])
			if f == 0 {
				continue
			}
			norm := 1 - m.b + m.b*float64(m.docLen[i])/m.avgLen
			out[i] += idf * (f * (m.k1 + 1)) / (f + m.k1*norm)
		}
	}
	return out
}

// rank returns document indexes with positive scores, best first,
// capped at limit.
func (m *bm25) rank(query []string, limit int) []scoredDoc {
	if limit <= 0 {
		return nil
	}
	scores := m.scores(query)
	var ranked []scoredDoc
	for i, s := range scores {
		if s > 0 {
			ranked = append(ranked, scoredDoc{Index: i, Score: s})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

type scoredDoc struct {
	Index int
	Score float64
}
