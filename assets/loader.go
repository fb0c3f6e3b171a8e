// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets

import (
	"bytes"
	"image"
	"path"
	"strings"

	// decoders for textures
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/devblok/framepace/core"
	"github.com/devblok/framepace/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ObjectInfo names the files an object is made of.
type ObjectInfo struct {
	Name     string
	Model    string
	Textures []string
}

// NewLoader creates a loader uploading through engine.
func NewLoader(src Source, engine *core.TransferEngine, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{
		src:    src,
		engine: engine,
		log:    log.WithField("component", "assets"),
		cache:  make(map[string]*core.Texture),
	}
}

// Loader turns files of a source into textures, meshes and objects.
// Textures are shared between objects loading the same file.
type Loader struct {
	src    Source
	engine *core.TransferEngine
	log    logrus.FieldLogger

	cache   map[string]*core.Texture
	arena   core.Arena
	objects []*core.Object
}

// Image decodes an image file.
func (l *Loader) Image(name string) (image.Image, error) {
	data, err := l.src.ReadAll(name)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "assets.Image(%s)", name)
	}
	l.log.WithFields(logrus.Fields{
		"file":   name,
		"format": format,
		"size":   img.Bounds().Size(),
	}).Debug("image decoded")
	return img, nil
}

// Texture uploads an image file as a mip mapped texture. The loader owns
// the texture.
func (l *Loader) Texture(name string) (*core.Texture, error) {
	if tex, ok := l.cache[name]; ok {
		return tex, nil
	}
	img, err := l.Image(name)
	if err != nil {
		return nil, err
	}
	tex, err := core.NewTexture(l.engine, img)
	if err != nil {
		return nil, errors.Wrapf(err, "assets.Texture(%s)", name)
	}
	l.cache[name] = tex
	l.arena.Add(tex)
	return tex, nil
}

// Model imports a collada file.
func (l *Loader) Model(name string) (*model.ColladaObject, error) {
	if ext := strings.ToLower(path.Ext(name)); ext != ".dae" {
		return nil, errors.Errorf("assets.Model(%s): unsupported model format %q", name, ext)
	}
	data, err := l.src.ReadAll(name)
	if err != nil {
		return nil, err
	}
	obj, err := model.ImportColladaObject(data)
	if err != nil {
		return nil, errors.Wrapf(err, "assets.Model(%s)", name)
	}
	return obj, nil
}

// Object loads the model and textures of info and uploads the geometry.
// The loader owns the object.
func (l *Loader) Object(info ObjectInfo) (*core.Object, error) {
	if len(info.Textures) == 0 {
		return nil, errors.Errorf("assets.Object(%s): no textures", info.Name)
	}
	src, err := l.Model(info.Model)
	if err != nil {
		return nil, err
	}
	obj := &core.Object{
		Name:   info.Name,
		Source: src,
	}
	for _, t := range info.Textures {
		tex, err := l.Texture(t)
		if err != nil {
			return nil, err
		}
		obj.Textures = append(obj.Textures, tex)
	}
	mesh, err := core.NewMesh(l.engine, src.Vertices(), src.Indices())
	if err != nil {
		return nil, errors.Wrapf(err, "assets.Object(%s)", info.Name)
	}
	obj.Mesh = mesh
	l.arena.Add(mesh)
	l.objects = append(l.objects, obj)

	l.log.WithFields(logrus.Fields{
		"object":   info.Name,
		"vertices": len(src.Vertices()),
		"textures": len(obj.Textures),
	}).Info("object loaded")
	return obj, nil
}

// Objects returns every object loaded so far.
func (l *Loader) Objects() []*core.Object {
	return l.objects
}

// Release destroys every texture and mesh the loader created.
func (l *Loader) Release() {
	l.arena.Release()
	l.cache = make(map[string]*core.Texture)
	l.objects = nil
}
