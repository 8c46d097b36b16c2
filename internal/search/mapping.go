package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// keywordFields hold IDs and enum labels matched exactly.
var keywordFields = []string{"id", "type", "category", "media_type", "note_id", "driver_id", "track_id", "series_id"}

// nameFields hold proper names. The simple analyzer lowercases and splits on
// non-letters without stemming, so "Larson" stays "larson" for fuzzy matching.
var nameFields = []string{"driver_name", "track_name", "series_name", "filename", "tags"}

// buildIndexMapping creates the Bleve mapping shared by note and media documents.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	body := bleve.NewTextFieldMapping()
	body.Analyzer = en.AnalyzerName
	body.Store = false
	docMapping.AddFieldMappingsAt("body", body)

	for _, name := range nameFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = simple.Name
		fm.Store = false
		docMapping.AddFieldMappingsAt(name, fm)
	}

	for _, name := range keywordFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = name == "type"
		docMapping.AddFieldMappingsAt(name, fm)
	}

	createdAt := bleve.NewNumericFieldMapping()
	createdAt.Store = false
	docMapping.AddFieldMappingsAt("created_at", createdAt)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
