// Package cli provides output formatting and the interactive shell for katachi.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/hyperjump/katachi/internal/cache"
	"github.com/hyperjump/katachi/internal/catalog"
	"github.com/hyperjump/katachi/internal/classify"
	"github.com/hyperjump/katachi/internal/recommend"
	"github.com/hyperjump/katachi/pkg/utils"
)

// MissingIndexMessage is printed when a query runs before any rebuild.
const MissingIndexMessage = "FAISS index not found. Rebuild index first."

const maxReasonLen = 200

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json"; anything else is an error.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecommendations writes ranked products in the given format.
func WriteRecommendations(p *Printer, recs []recommend.Recommendation, format OutputFormat) error {
	if format == OutputJSON {
		if recs == nil {
			recs = []recommend.Recommendation{}
		}
		return writeJSON(p.Writer(), recs)
	}
	p.Info("\nTop Results:")
	for _, r := range recs {
		p.Plain("%d. Product ID: %d | Filename: %s | Distance: %.4f", r.Rank, r.ID, r.Filename, r.Distance)
	}
	return nil
}

// WriteClassification writes the category and attribute predictions. Fallback from trained
// heads is reported as an alert before the attributes.
func WriteClassification(p *Printer, res classify.ProductResult, useTrained bool, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(p.Writer(), res)
	}
	p.Plain("Category: %s (confidence %.2f)", res.Category, res.CategoryConfidence)
	if useTrained {
		p.Highlight("\nUsing trained models for attribute classification...")
		if res.FellBack() {
			p.Alert("Error loading trained models: %s", utils.Truncate(res.FallbackReason, maxReasonLen))
			p.Alert("Falling back to zero-shot classification...")
		}
	}
	if res.Source == classify.SourceZeroShot {
		p.Highlight("\nUsing zero-shot classification for attributes...")
	}
	p.Info("\nAttributes:")
	for _, name := range res.Attributes.Names() {
		pred := res.Attributes[name]
		p.Plain(" - %s: %s (confidence %.2f)", name, pred.Value, pred.Confidence)
	}
	return nil
}

// WriteFindResult writes filename search hits, or suggestions when nothing matched.
func WriteFindResult(p *Printer, res *catalog.FindResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(p.Writer(), res)
	}
	if len(res.Hits) == 0 {
		p.Alert("No products match %q.", res.Query)
		if len(res.Suggestions) > 0 {
			p.Highlight("Did you mean: %s", joinQuoted(res.Suggestions))
		}
		return nil
	}
	p.Info("\nFound %d products:", len(res.Hits))
	for _, h := range res.Hits {
		p.Plain("%d. Product ID: %d | Filename: %s | Score: %.4f", h.Rank, h.Product.ID, h.Product.Filename, h.Score)
	}
	return nil
}

func joinQuoted(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%q", w)
	}
	return out
}

// WriteCacheKeys lists cache keys.
func WriteCacheKeys(p *Printer, keys []string, format OutputFormat) error {
	if format == OutputJSON {
		if keys == nil {
			keys = []string{}
		}
		return writeJSON(p.Writer(), keys)
	}
	p.Highlight("Listing %d keys:", len(keys))
	for _, k := range keys {
		p.Plain(" - %s", k)
	}
	return nil
}

// WriteCacheInfo prints cache statistics.
func WriteCacheInfo(p *Printer, info cache.Info, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(p.Writer(), info)
	}
	p.Highlight("Cache info:")
	p.Plain(" - entries: %d", info.NumEntries)
	p.Plain(" - approximate size: %s", FormatBytes(info.ApproxBytes))
	p.Plain(" - hits: %d, misses: %d", info.Hits, info.Misses)
	return nil
}

// WriteStatus prints the catalog status.
func WriteStatus(p *Printer, st *catalog.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(p.Writer(), st)
	}
	p.Highlight("Catalog status")
	p.Plain("Products dir:   %s", st.ProductsDir)
	p.Plain("Images on disk: %d", st.ImagesOnDisk)
	p.Plain("Indexed images: %d (dim %d)", st.IndexedImages, st.Dimensions)
	p.Plain("Stored records: %d", st.StoredRecords)
	p.Plain("Keyword docs:   %d", st.KeywordDocs)
	p.Plain("Index path:     %s (%d files, %s)", st.IndexPath, st.IndexFiles, FormatBytes(st.IndexBytes))
	if st.Stale {
		p.Alert("Index is out of date with the products directory. Run rebuild.")
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
