// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import "github.com/devblok/framepace/core"

// Configuration describes the renderer configuration
type Configuration struct {
	// Samples is the requested multisample count, lowered to 1 when the
	// device cannot render with it.
	Samples uint32

	// ClearColor is the colour every frame starts from.
	ClearColor [4]float32
}

// NewConfiguration derives the recorder configuration from the engine's.
func NewConfiguration(cfg core.RendererConfiguration) Configuration {
	samples := cfg.Samples
	if samples == 0 {
		samples = 1
	}
	return Configuration{
		Samples:    samples,
		ClearColor: [4]float32{0.15, 0.15, 0.15, 1},
	}
}
