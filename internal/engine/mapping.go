// Package engine stores mapped documents in a bleve index and translates
// catalog queries, sorts and facet counts into bleve requests.
package engine

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/flea-db/internal/schema"
)

const (
	// SourceField holds the original document. It is stored but not indexed.
	SourceField = "$json"

	facetPrefix = "@"
)

var fieldNameEscaper = strings.NewReplacer("%", "%25", ".", "%2E")

// FieldName returns the bleve field holding the terms of a catalog field.
// Dots are escaped because bleve splits document paths on them.
func FieldName(name string) string {
	return fieldNameEscaper.Replace(name)
}

// FacetFieldName returns the bleve field holding the values of a facet.
func FacetFieldName(name string) string {
	return facetPrefix + FieldName(name)
}

var sourceFieldMapping = func() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Index = false
	fm.Store = true
	fm.DocValues = false
	fm.IncludeInAll = false
	return fm
}()

func keywordFieldMapping() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = keyword.Name
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

func numericFieldMapping() *mapping.FieldMapping {
	fm := bleve.NewNumericFieldMapping()
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

// NewIndexMapping creates a static bleve mapping for the catalog. Fields
// outside the catalog are ignored when documents are indexed.
func NewIndexMapping(c *schema.Catalog) mapping.IndexMapping {
	docMapping := bleve.NewDocumentStaticMapping()

	for _, f := range c.Fields() {
		switch f.Type {
		case schema.FieldInteger, schema.FieldNumber:
			docMapping.AddFieldMappingsAt(FieldName(f.Name), numericFieldMapping())
		default:
			docMapping.AddFieldMappingsAt(FieldName(f.Name), keywordFieldMapping())
		}
	}
	for _, f := range c.Facets() {
		docMapping.AddFieldMappingsAt(FacetFieldName(f.Name), keywordFieldMapping())
	}
	docMapping.AddFieldMappingsAt(SourceField, sourceFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = keyword.Name
	indexMapping.StoreDynamic = false
	indexMapping.IndexDynamic = false
	indexMapping.DocValuesDynamic = false

	return indexMapping
}
