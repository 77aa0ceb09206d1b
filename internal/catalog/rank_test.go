package catalog

import (
	"testing"

	"github.com/hyperjump/katachi/internal/keyword"
	"github.com/hyperjump/katachi/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFilenameBoost(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		filename string
		want     float64
	}{
		{"exact words", "leather boot", "LeatherBoot.jpg", exactFilenameBoost},
		{"in order", "leather boot", "black_leather_boot.png", wordsInOrderBoost},
		{"any order", "boot leather", "black_leather_boot.png", allWordsBoost},
		{"prefix", "leath", "black_leather_boot.png", prefixMatchBoost},
		{"half prefix", "leath bag", "black_leather_boot.png", prefixMatchBoost / 2},
		{"no match", "sandal", "black_leather_boot.png", 0},
		{"empty query", "", "boot.png", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filenameBoost(keyword.FilenameTerms(tt.query), tt.filename)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRerank(t *testing.T) {
	hits := []*models.ProductHit{
		{Product: &models.Product{ID: 0, Filename: "boot_leather_black.png"}, Score: 0.9},
		{Product: &models.Product{ID: 1, Filename: "leather_boot.png"}, Score: 0.8},
		{Product: &models.Product{ID: 2, Filename: "brown_leather_boot.png"}, Score: 0.8},
	}
	rerank("leather boot", hits, 1)

	ids := []int64{hits[0].Product.ID, hits[1].Product.ID, hits[2].Product.ID}
	assert.Equal(t, []int64{1, 2, 0}, ids)
	assert.Equal(t, []int{1, 2, 3}, []int{hits[0].Rank, hits[1].Rank, hits[2].Rank})
}
