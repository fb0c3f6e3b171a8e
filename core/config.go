// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"os"
	"strconv"
	"strings"

	"github.com/devblok/framepace/gfx"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment variables overriding configuration defaults.
const (
	EnvScreenWidth          = "FRAMEPACE_SCREEN_WIDTH"
	EnvScreenHeight         = "FRAMEPACE_SCREEN_HEIGHT"
	EnvFramesInFlight       = "FRAMEPACE_FRAMES_IN_FLIGHT"
	EnvPresentMode          = "FRAMEPACE_PRESENT_MODE"
	EnvMaxTexturesPerObject = "FRAMEPACE_MAX_TEXTURES"
	EnvSamples              = "FRAMEPACE_SAMPLES"
	EnvShaderDirectory      = "FRAMEPACE_SHADER_DIR"
	EnvAssetArchive         = "FRAMEPACE_ASSET_ARCHIVE"
	EnvDeviceExtensions     = "FRAMEPACE_DEVICE_EXTENSIONS"
	EnvFramesPerSecond      = "FRAMEPACE_FPS"
	EnvEventPollDelay       = "FRAMEPACE_EVENT_POLL_DELAY"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between window event polls in milliseconds
	EventPollDelay int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	ScreenWidth  uint32
	ScreenHeight uint32

	// FramesInFlight is the number of frames the CPU may record ahead of
	// the GPU.
	FramesInFlight int

	// PresentMode is used when the surface supports it, FIFO otherwise.
	PresentMode gfx.PresentMode

	// MaxTexturesPerObject sizes the texture array of every object.
	MaxTexturesPerObject uint32

	// Samples is the multisample count of the colour target.
	Samples uint32

	ShaderDirectory  string
	AssetArchive     string
	DeviceExtensions []string
}

// DefaultConfiguration returns the configuration used when nothing is set.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 0,
			EventPollDelay:  5,
		},
		Renderer: RendererConfiguration{
			ScreenWidth:          1280,
			ScreenHeight:         720,
			FramesInFlight:       2,
			PresentMode:          gfx.PresentModeMailbox,
			MaxTexturesPerObject: 4,
			Samples:              2,
			ShaderDirectory:      "shaders",
			AssetArchive:         "assets.kar",
		},
	}
}

// LoadConfiguration loads the given .env files, or .env from the working
// directory if there are none, and applies FRAMEPACE_* variables over the
// defaults. A missing default .env is not an error.
func LoadConfiguration(files ...string) (Configuration, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return Configuration{}, newError(KindConfiguration, "godotenv.Load()", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Configuration{}, newError(KindConfiguration, "godotenv.Load()", err)
	}
	envy.Reload()

	cfg := DefaultConfiguration()
	r := &cfg.Renderer

	var err error
	set := func(key string, apply func(string) error) {
		v := envy.Get(key, "")
		if v == "" || err != nil {
			return
		}
		if perr := apply(v); perr != nil {
			err = configErrorf("core.LoadConfiguration()", "%s=%q: %s", key, v, perr)
		}
	}
	uint32Var := func(dst *uint32) func(string) error {
		return func(v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			*dst = uint32(n)
			return err
		}
	}
	intVar := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			*dst = n
			return err
		}
	}

	set(EnvScreenWidth, uint32Var(&r.ScreenWidth))
	set(EnvScreenHeight, uint32Var(&r.ScreenHeight))
	set(EnvFramesInFlight, intVar(&r.FramesInFlight))
	set(EnvMaxTexturesPerObject, uint32Var(&r.MaxTexturesPerObject))
	set(EnvSamples, uint32Var(&r.Samples))
	set(EnvPresentMode, func(v string) error {
		mode, ok := gfx.ParsePresentMode(strings.ToLower(v))
		if !ok {
			return errors.New("unknown present mode")
		}
		r.PresentMode = mode
		return nil
	})
	set(EnvShaderDirectory, func(v string) error { r.ShaderDirectory = v; return nil })
	set(EnvAssetArchive, func(v string) error { r.AssetArchive = v; return nil })
	set(EnvDeviceExtensions, func(v string) error {
		r.DeviceExtensions = strings.Split(v, ",")
		return nil
	})
	set(EnvFramesPerSecond, intVar(&cfg.Time.FramesPerSecond))
	set(EnvEventPollDelay, intVar(&cfg.Time.EventPollDelay))
	if err != nil {
		return Configuration{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the engine cannot use.
func (c Configuration) Validate() error {
	if c.Time.FramesPerSecond < 0 || c.Time.EventPollDelay < 0 {
		return configErrorf("core.Validate()", "negative time settings")
	}
	return c.Renderer.Validate()
}

// Validate checks the renderer settings.
func (r RendererConfiguration) Validate() error {
	switch {
	case r.ScreenWidth == 0 || r.ScreenHeight == 0:
		return configErrorf("core.Validate()", "screen size %dx%d", r.ScreenWidth, r.ScreenHeight)
	case r.FramesInFlight < 1:
		return configErrorf("core.Validate()", "frames in flight %d", r.FramesInFlight)
	case r.MaxTexturesPerObject < 1:
		return configErrorf("core.Validate()", "max textures per object %d", r.MaxTexturesPerObject)
	case r.Samples == 0 || r.Samples&(r.Samples-1) != 0:
		return configErrorf("core.Validate()", "sample count %d is not a power of two", r.Samples)
	}
	return nil
}
