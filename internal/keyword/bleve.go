package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/katachi/internal/models"
)

// productDoc is what Bleve stores per product.
type productDoc struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	path  string
	index bleve.Index
}

func productMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming): product words like "boots" and
	// "boot" stay distinct so filename matches are exact unless fuzzy is requested.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("filename", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("product", docMapping)
	im.DefaultType = "product"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps the index in memory.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(productMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{path: path, index: index}, nil
	}

	index, err := bleve.New(path, productMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{path: path, index: index}, nil
}

// Index adds or replaces the product's filename terms.
func (b *BleveIndex) Index(ctx context.Context, p *models.Product) error {
	doc := productDoc{Name: strings.Join(FilenameTerms(p.Filename), " "), Filename: p.Filename}
	return b.index.Index(docID(p.ID), doc)
}

// Search runs a match query (or per-term fuzzy queries) over filename terms.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	fuzziness := 0
	if opts != nil && opts.FuzzyEnabled {
		fuzziness = 2
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}
	req := bleve.NewSearchRequest(buildQuery(query, fuzziness))
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, &KeywordResult{ID: id, Score: hit.Score})
	}
	return out, nil
}

// buildQuery matches query terms against the name field. With fuzziness > 0 each term
// becomes a FuzzyQuery and any term may match.
func buildQuery(query string, fuzziness int) blevequery.Query {
	terms := FilenameTerms(query)
	if fuzziness == 0 || len(terms) == 0 {
		text := query
		if len(terms) > 0 {
			text = strings.Join(terms, " ")
		}
		mq := bleve.NewMatchQuery(text)
		mq.SetField("name")
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField("name")
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a product from the index.
func (b *BleveIndex) Delete(ctx context.Context, id int64) error {
	return b.index.Delete(docID(id))
}

// Reset drops the index and recreates it empty at the same location.
func (b *BleveIndex) Reset() error {
	if err := b.index.Close(); err != nil {
		return fmt.Errorf("close Bleve index: %w", err)
	}
	if b.path == "" {
		index, err := bleve.NewMemOnly(productMapping())
		if err != nil {
			return fmt.Errorf("failed to create Bleve index: %w", err)
		}
		b.index = index
		return nil
	}
	if err := os.RemoveAll(b.path); err != nil {
		return fmt.Errorf("remove Bleve index: %w", err)
	}
	index, err := bleve.New(b.path, productMapping())
	if err != nil {
		return fmt.Errorf("failed to create Bleve index: %w", err)
	}
	b.index = index
	return nil
}

// DocCount returns the total number of products in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Terms returns all unique terms from the name field dictionary.
func (b *BleveIndex) Terms() ([]string, error) {
	dict, err := b.index.FieldDict("name")
	if err != nil {
		return nil, fmt.Errorf("read term dictionary: %w", err)
	}
	defer dict.Close()
	var terms []string
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		terms = append(terms, entry.Term)
	}
	return terms, nil
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
