package embedding

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/hyperjump/katachi/internal/embedding/quietinit"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// tokenizer logs its cache directory from init; keep that out of CLI and JSON output.
func init() {
	quietinit.Restore()
}

// CLIP special tokens; the end-of-text id doubles as padding.
const (
	clipStartToken = 49406
	clipEndToken   = 49407
)

// Tokenizer produces fixed-length token IDs for a CLIP text encoder.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64, err error)
}

// HFTokenizer reads a Hugging Face tokenizer.json (the one shipped with the CLIP export).
type HFTokenizer struct {
	tk *tokenizer.Tokenizer
}

// NewHFTokenizer loads the tokenizer definition at path.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &HFTokenizer{tk: tk}, nil
}

// Tokenize encodes text with special tokens, then truncates or pads to maxTokens.
func (t *HFTokenizer) Tokenize(text string, maxTokens int) ([]int64, []int64, error) {
	enc, err := t.tk.EncodeSingle(strings.ToLower(text), true)
	if err != nil {
		return nil, nil, fmt.Errorf("tokenize %q: %w", text, err)
	}
	return padTokens(enc.Ids, maxTokens), padMask(len(enc.Ids), maxTokens), nil
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs. It keeps the CLIP
// framing (start, words, end) so it can stand in when no tokenizer.json is available.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) ([]int64, []int64, error) {
	if maxTokens <= 0 {
		maxTokens = 77
	}
	ids := []int{clipStartToken}
	for _, word := range SplitWords(strings.ToLower(text)) {
		if len(ids) >= maxTokens-1 {
			break
		}
		ids = append(ids, int(HashString(word)%clipStartToken))
	}
	ids = append(ids, clipEndToken)
	return padTokens(ids, maxTokens), padMask(len(ids), maxTokens), nil
}

func padTokens(ids []int, maxTokens int) []int64 {
	out := make([]int64, maxTokens)
	for i := range out {
		out[i] = clipEndToken
	}
	n := len(ids)
	if n > maxTokens {
		n = maxTokens
	}
	for i := 0; i < n; i++ {
		out[i] = int64(ids[i])
	}
	if len(ids) > maxTokens && maxTokens > 0 {
		out[maxTokens-1] = clipEndToken
	}
	return out
}

func padMask(n, maxTokens int) []int64 {
	out := make([]int64, maxTokens)
	for i := 0; i < n && i < maxTokens; i++ {
		out[i] = 1
	}
	return out
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	return strings.Fields(text)
}

// HashString returns the 32-bit FNV-1a hash of s.
func HashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
