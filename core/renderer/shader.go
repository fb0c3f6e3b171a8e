// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/devblok/framepace/core"
	vk "github.com/devblok/vulkan"
	"github.com/gobuffalo/packd"
	"github.com/pkg/errors"
)

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

const shaderSuffix = ".spv"

// ShaderTypeOf tells the type of a compiled shader from its file name,
// name.vert.spv or name.frag.spv.
func ShaderTypeOf(filename string) ShaderType {
	if !strings.HasSuffix(filename, shaderSuffix) {
		return UnknownShaderType
	}
	nodes := strings.Split(strings.TrimSuffix(filepath.Base(filename), shaderSuffix), ".")
	if len(nodes) != 2 {
		return UnknownShaderType
	}
	switch nodes[1] {
	case "vert":
		return VertexShaderType
	case "frag":
		return FragmentShaderType
	}
	return UnknownShaderType
}

// ShaderFile is compiled shader code found in a box.
type ShaderFile struct {
	Name string
	Type ShaderType
	Code []byte
}

// ShaderBox reads the compiled shaders of a directory into a memory box.
func ShaderBox(dir string) (*packd.MemoryBox, error) {
	box := packd.NewMemoryBox()
	if err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() || ShaderTypeOf(f.Name()) == UnknownShaderType {
			return nil
		}
		contents, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return box.AddBytes(filepath.ToSlash(rel), contents)
	}); err != nil {
		return nil, errors.Wrapf(err, "renderer.ShaderBox(%s)", dir)
	}
	return box, nil
}

// ShaderFiles collects the compiled shaders of a box, such as a packr box
// or one made by ShaderBox, in name order.
func ShaderFiles(box packd.Walkable) ([]ShaderFile, error) {
	var files []ShaderFile
	if err := box.Walk(func(path string, f packd.File) error {
		st := ShaderTypeOf(path)
		if st == UnknownShaderType {
			return nil
		}
		code, err := ioutil.ReadAll(f)
		if err != nil {
			return err
		}
		if len(code) == 0 || len(code)%4 != 0 {
			return errors.Errorf("shader %s is %d bytes, not SPIR-V", path, len(code))
		}
		files = append(files, ShaderFile{
			Name: path,
			Type: st,
			Code: code,
		})
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "renderer.ShaderFiles()")
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// LoadShaders creates shader modules for every shader of a box. It needs
// at least one vertex and one fragment shader.
func LoadShaders(device vk.Device, box packd.Walkable) ([]*Shader, error) {
	files, err := ShaderFiles(box)
	if err != nil {
		return nil, err
	}
	var vert, frag bool
	for _, f := range files {
		vert = vert || f.Type == VertexShaderType
		frag = frag || f.Type == FragmentShaderType
	}
	if !vert || !frag {
		return nil, errors.New("renderer.LoadShaders(): need a vertex and a fragment shader")
	}

	var shaders []*Shader
	for _, f := range files {
		shader, err := NewVulkanShader(device, f)
		if err != nil {
			for _, s := range shaders {
				s.Destroy()
			}
			return nil, err
		}
		shaders = append(shaders, shader)
	}
	return shaders, nil
}

// NewVulkanShader creates a Vulkan specific shader wrapper
func NewVulkanShader(device vk.Device, f ShaderFile) (*Shader, error) {
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(f.Code)),
		PCode:    core.SliceUint32(f.Code),
	}

	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(device, &smci, nil, &module)); err != nil {
		return nil, errors.Errorf("vk.CreateShaderModule(%s): %s", f.Name, err.Error())
	}

	return &Shader{
		name:       strings.Split(filepath.Base(f.Name), ".")[0],
		shaderType: f.Type,
		device:     device,
		module:     module,
	}, nil
}

// Shader is a Vulkan shader module
type Shader struct {
	name       string
	shaderType ShaderType
	device     vk.Device
	module     vk.ShaderModule
}

// Type returns the shader stage it is for.
func (s *Shader) Type() ShaderType {
	return s.shaderType
}

// Name returns the file name without suffixes.
func (s *Shader) Name() string {
	return s.name
}

// Module returns the shader module.
func (s *Shader) Module() vk.ShaderModule {
	return s.module
}

// Destroy destroys the shader module.
func (s *Shader) Destroy() {
	vk.DestroyShaderModule(s.device, s.module, nil)
}
