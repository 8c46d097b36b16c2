package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a search.
type Params struct {
	Query   string
	Type    DocType           // Empty searches both notes and media
	Filters map[string]string // Exact keyword matches, e.g. "track_id"
	Limit   int
	Offset  int
}

// Result is one page of hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is a matching document.
type Hit struct {
	ID    string  `json:"id"`
	Type  DocType `json:"type"`
	Score float64 `json:"score"`
}

// IDs returns the hit IDs in rank order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

// field boosts for the text query; the body carries most of a note's content.
var textFields = []struct {
	name  string
	boost float64
}{
	{"body", 2.0},
	{"tags", 2.0},
	{"driver_name", 1.5},
	{"track_name", 1.5},
	{"series_name", 1.0},
	{"filename", 1.0},
}

// Search runs a ranked query. Without text every matching document is
// returned newest first.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.Fields = []string{"type"}
	if strings.TrimSpace(params.Query) == "" {
		req.SortBy([]string{"-created_at", "_id"})
	} else {
		req.SortBy([]string{"-_score", "-created_at"})
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if t, ok := h.Fields["type"].(string); ok {
			hit.Type = DocType(t)
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// buildQuery combines the text query with type and keyword filters.
func buildQuery(params Params) query.Query {
	var must []query.Query

	if text := strings.TrimSpace(params.Query); text != "" {
		must = append(must, textQuery(text))
	}

	if params.Type != "" {
		tq := bleve.NewTermQuery(string(params.Type))
		tq.SetField("type")
		must = append(must, tq)
	}

	// Sorted for a deterministic query tree.
	keys := make([]string, 0, len(params.Filters))
	for k, v := range params.Filters {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		tq := bleve.NewTermQuery(params.Filters[k])
		tq.SetField(k)
		must = append(must, tq)
	}

	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}

// textQuery matches exact terms first, then typos and prefixes of the last word.
func textQuery(text string) query.Query {
	fuzziness := 0
	if utf8.RuneCountInString(text) >= 4 {
		fuzziness = 1
	}

	var should []query.Query
	for _, f := range textFields {
		exact := bleve.NewMatchQuery(text)
		exact.SetField(f.name)
		exact.SetBoost(f.boost * 2)
		should = append(should, exact)

		if fuzziness > 0 {
			fuzzy := bleve.NewMatchQuery(text)
			fuzzy.SetField(f.name)
			fuzzy.SetFuzziness(fuzziness)
			fuzzy.SetBoost(f.boost)
			should = append(should, fuzzy)
		}
	}

	words := strings.Fields(strings.ToLower(text))
	if last := words[len(words)-1]; utf8.RuneCountInString(last) >= 2 {
		for _, field := range []string{"driver_name", "track_name", "tags", "filename"} {
			prefix := bleve.NewPrefixQuery(last)
			prefix.SetField(field)
			prefix.SetBoost(0.5)
			should = append(should, prefix)
		}
	}

	return bleve.NewDisjunctionQuery(should...)
}
