//go:build !cgo
// +build !cgo

package onnxrt

import "errors"

// Init returns an error when built without CGO (ONNX not available).
func Init(_ string) error {
	return errors.New("ONNX runtime requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Available reports whether ONNX models can be run in this build.
func Available() bool {
	return false
}
