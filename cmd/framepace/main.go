// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/devblok/framepace/assets"
	"github.com/devblok/framepace/core"
	"github.com/devblok/framepace/core/renderer"
	"github.com/devblok/framepace/gfx/vkr"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xlab/closer"
)

func init() {
	runtime.LockOSThread()
}

var (
	configFile   = flag.String("config", "", "Load configuration from this .env file instead of ./.env")
	windowName   = flag.String("window", "sdl", "Window system to use, sdl or glfw")
	deviceIndex  = flag.Int("device", 0, "Physical device to render with")
	assetDir     = flag.String("assets", "", "Load assets from a directory instead of the archive")
	verbose      = flag.Bool("v", false, "Debug logging")
	vkDebug      = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")

	objects objectFlags
)

func init() {
	flag.Var(&objects, "object", "Object to draw as name=model.dae:texture,..., repeatable")
}

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	defer closer.Close()
	closer.Bind(func() {
		log.Info("exited")
	})

	if err := run(log); err != nil {
		log.WithError(err).Error("framepace failed")
		closer.Exit(1)
	}
}

func run(log *logrus.Logger) error {
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		closer.Bind(pprof.StopCPUProfile)
	}
	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			return err
		}
		if err := trace.Start(f); err != nil {
			return err
		}
		closer.Bind(trace.Stop)
	}
	if *memProfile != "" {
		closer.Bind(func() {
			f, err := os.Create(*memProfile)
			if err != nil {
				log.WithError(err).Warn("memory profile")
				return
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.WithError(err).Warn("memory profile")
			}
		})
	}

	var files []string
	if *configFile != "" {
		files = append(files, *configFile)
	}
	cfg, err := core.LoadConfiguration(files...)
	if err != nil {
		return err
	}

	window, err := newWindowSystem(*windowName, cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
	if err != nil {
		return err
	}
	closer.Bind(window.Destroy)

	instance, err := vkr.NewInstance(window.ProcAddr(), vkr.InstanceConfiguration{
		DebugMode:  *vkDebug,
		Extensions: window.InstanceExtensions(),
	})
	if err != nil {
		return err
	}
	closer.Bind(instance.Destroy)

	handle, err := window.CreateSurface(instance.Handle())
	if err != nil {
		return err
	}
	surface := instance.NewSurface(handle)
	closer.Bind(surface.Release)

	device, err := vkr.NewDevice(instance, surface, vkr.DeviceConfiguration{
		PhysicalDevice: *deviceIndex,
		Extensions:     cfg.Renderer.DeviceExtensions,
	})
	if err != nil {
		return err
	}
	closer.Bind(device.Destroy)
	ctx := core.NewContext(device, log)

	box, err := renderer.ShaderBox(cfg.Renderer.ShaderDirectory)
	if err != nil {
		return err
	}
	shaders, err := renderer.LoadShaders(device.Handle(), box)
	if err != nil {
		return err
	}
	recorder, err := renderer.NewVulkanRecorder(ctx, device, shaders, renderer.NewConfiguration(cfg.Renderer))
	if err != nil {
		for _, s := range shaders {
			s.Destroy()
		}
		return err
	}
	closer.Bind(recorder.Destroy)

	r, err := core.NewRenderer(ctx, cfg.Renderer, recorder)
	if err != nil {
		return err
	}

	source, err := openAssets(cfg.Renderer.AssetArchive)
	if err != nil {
		return err
	}
	loader := assets.NewLoader(source, r.Engine(), log)
	closer.Bind(loader.Release)

	scene := []assets.ObjectInfo(objects)
	if len(scene) == 0 {
		scene = discoverObjects(source.Files())
	}
	if len(scene) == 0 {
		return errors.New("main.run(): nothing to draw")
	}
	for _, info := range scene {
		if _, err := loader.Object(info); err != nil {
			return err
		}
	}

	if err := r.Initialise(surface, window, loader.Objects()); err != nil {
		return err
	}
	closer.Bind(r.Destroy)

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	closer.Bind(func() {
		cancel()
		<-done
	})

	err = renderLoop(loopCtx, log, cfg.Time, r, window, loader.Objects())
	close(done)
	return err
}

func openAssets(archive string) (assets.Source, error) {
	if *assetDir != "" {
		return assets.DirSource(*assetDir), nil
	}
	a, err := assets.OpenArchive(archive)
	if err != nil {
		return nil, err
	}
	closer.Bind(func() { a.Close() })
	return a, nil
}

func renderLoop(ctx context.Context, log logrus.FieldLogger, cfg core.TimeConfiguration, r *core.Renderer, window windowSystem, objects []*core.Object) error {
	pace := core.NewTime(cfg)
	defer pace.Stop()

	report := time.NewTicker(time.Second)
	defer report.Stop()

	var (
		angle      float32
		lastFrames int
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-report.C:
			stats := r.Stats()
			log.WithFields(logrus.Fields{
				"fps":         stats.Frames - lastFrames,
				"frame":       stats.LastFrame,
				"max":         stats.MaxFrame,
				"recreations": stats.Recreations,
				"cgo":         runtime.NumCgoCall(),
			}).Debug("frame stats")
			lastFrames = stats.Frames
		default:
		}

		if poll := pace.EventTick(); poll == nil {
			if window.PollEvents() {
				return nil
			}
		} else {
			select {
			case <-poll:
				if window.PollEvents() {
					return nil
				}
			default:
			}
		}

		if tick := pace.FrameTick(); tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}

		angle += 0.005
		rotation := glm.HomogRotate3D(angle, glm.Vec3{0, 0, 1})
		for _, obj := range objects {
			obj.Source.SetRotation(rotation)
		}
		if err := r.RenderFrame(); err != nil {
			return err
		}
	}
}
