//go:build cgo
// +build cgo

// Package onnxrt initializes the shared ONNX Runtime environment (requires CGO and the onnxruntime library).
package onnxrt

import (
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the onnxruntime shared library once per process. libraryPath may be empty to use
// the platform default search path.
func Init(libraryPath string) error {
	initOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	})
	return initErr
}

// NewSessionOptions returns session options for device ("cpu" or "cuda[:N]").
// The caller owns the returned options and must Destroy them.
func NewSessionOptions(device string) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	if strings.HasPrefix(strings.ToLower(device), "cuda") {
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			_ = opts.Destroy()
			return nil, fmt.Errorf("create CUDA provider options: %w", err)
		}
		defer cuda.Destroy()
		if _, id, ok := strings.Cut(device, ":"); ok {
			if err := cuda.Update(map[string]string{"device_id": id}); err != nil {
				_ = opts.Destroy()
				return nil, fmt.Errorf("set CUDA device: %w", err)
			}
		}
		if err := opts.AppendExecutionProviderCUDA(cuda); err != nil {
			_ = opts.Destroy()
			return nil, fmt.Errorf("enable CUDA provider: %w", err)
		}
	}
	return opts, nil
}

// Available reports whether ONNX models can be run in this build.
func Available() bool {
	return true
}
