//go:build !cgo
// +build !cgo

package imaging

import (
	"context"
	"fmt"
	"image"
)

// U2NetSegmenter stub type when built without CGO (see u2net.go for real implementation).
type U2NetSegmenter struct{}

// NewU2NetSegmenter returns an error when built without CGO (ONNX not available).
func NewU2NetSegmenter(_, _, _ string) (*U2NetSegmenter, error) {
	return nil, fmt.Errorf("background removal requires CGO and onnxruntime: %w", ErrUnavailable)
}

// Segment is not implemented without CGO.
func (s *U2NetSegmenter) Segment(context.Context, *image.NRGBA) (*image.NRGBA, error) {
	return nil, ErrUnavailable
}

// Name identifies the segmenter in logs.
func (s *U2NetSegmenter) Name() string { return "u2net" }

// Close is a no-op.
func (s *U2NetSegmenter) Close() error { return nil }
