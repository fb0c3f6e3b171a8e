// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// InstanceConfiguration configures the Vulkan instance.
type InstanceConfiguration struct {
	Name       string
	DebugMode  bool
	Extensions []string
	Layers     []string
}

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int      `json:"id"`
	VendorID      int      `json:"vendorId"`
	DriverVersion int      `json:"driverVersion"`
	Name          string   `json:"name"`
	Invalid       bool     `json:"invalid,omitempty"`
	Extensions    []string `json:"extensions"`
	Layers        []string `json:"layers"`
	Memory        uint64   `json:"memory"`
	MemoryTypes   []string `json:"memoryTypes"`
	Anisotropy    bool     `json:"anisotropy"`
}

// NewInstance creates a Vulkan instance. procAddr is the loader entry
// point of the window system, nil uses the default loader.
func NewInstance(procAddr unsafe.Pointer, cfg InstanceConfiguration) (*Instance, error) {
	if cfg.DebugMode {
		cfg.Layers = append(cfg.Layers, "VK_LAYER_KHRONOS_validation")
		cfg.Extensions = append(cfg.Extensions, "VK_EXT_debug_report")
	}
	if cfg.Name == "" {
		cfg.Name = "framepace"
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.New("vk.InstanceProcAddr(): " + err.Error())
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.New("vk.Init(): " + err.Error())
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 0, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   safeString(cfg.Name),
		PEngineName:        safeString("framepace"),
	}
	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: safeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
	}

	var instance vk.Instance
	if err := result("vk.CreateInstance()", vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, err
	}
	vk.InitInstance(instance)

	devices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	return &Instance{
		configuration: cfg,
		instance:      instance,
		devices:       devices,
	}, nil
}

// Instance is a Vulkan instance with its physical devices.
type Instance struct {
	configuration InstanceConfiguration
	instance      vk.Instance
	devices       []vk.PhysicalDevice
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := result("vk.EnumeratePhysicalDevices()", vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, err
	}
	if deviceCount == 0 {
		return nil, errors.New("vk.EnumeratePhysicalDevices(): no devices")
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	if err := result("vk.EnumeratePhysicalDevices()", vk.EnumeratePhysicalDevices(instance, &deviceCount, devices)); err != nil {
		return nil, err
	}
	return devices, nil
}

// Handle returns the Vulkan instance.
func (v *Instance) Handle() vk.Instance {
	return v.instance
}

// Extensions returns the enabled instance extensions.
func (v *Instance) Extensions() []string {
	return v.configuration.Extensions
}

// AvailableDevices returns the physical devices.
func (v *Instance) AvailableDevices() []vk.PhysicalDevice {
	return v.devices
}

// PhysicalDevicesInfo describes each physical device.
func (v *Instance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.devices))
	for i, device := range v.devices {
		var numExtensions uint32
		if vk.EnumerateDeviceExtensionProperties(device, "", &numExtensions, nil) != vk.Success {
			pdi[i].Invalid = true
		}
		extensions := make([]vk.ExtensionProperties, numExtensions)
		if vk.EnumerateDeviceExtensionProperties(device, "", &numExtensions, extensions) != vk.Success {
			pdi[i].Invalid = true
		}
		for _, ext := range extensions {
			ext.Deref()
			pdi[i].Extensions = append(pdi[i].Extensions, vk.ToString(ext.ExtensionName[:]))
		}

		var numLayers uint32
		if vk.EnumerateDeviceLayerProperties(device, &numLayers, nil) != vk.Success {
			pdi[i].Invalid = true
		}
		layers := make([]vk.LayerProperties, numLayers)
		if vk.EnumerateDeviceLayerProperties(device, &numLayers, layers) != vk.Success {
			pdi[i].Invalid = true
		}
		for _, layer := range layers {
			layer.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(layer.LayerName[:]))
		}

		for _, mt := range memoryTypes(device) {
			pdi[i].MemoryTypes = append(pdi[i].MemoryTypes, describeMemory(mt.Properties))
		}
		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(device, &memoryProperties)
		memoryProperties.Deref()
		for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
			memoryProperties.MemoryHeaps[iMem].Deref()
			pdi[i].Memory += uint64(memoryProperties.MemoryHeaps[iMem].Size)
		}

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(device, &features)
		features.Deref()
		pdi[i].Anisotropy = features.SamplerAnisotropy.B()

		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(device, &properties)
		properties.Deref()
		pdi[i].ID = int(properties.DeviceID)
		pdi[i].VendorID = int(properties.VendorID)
		pdi[i].Name = vk.ToString(properties.DeviceName[:])
		pdi[i].DriverVersion = int(properties.DriverVersion)
	}
	return pdi
}

// NewSurface wraps a window surface created by the window system, such
// as the pointer returned by sdl or the address returned by glfw.
func (v *Instance) NewSurface(handle uintptr) *Surface {
	return &Surface{
		instance: v.instance,
		surface:  vk.SurfaceFromPointer(handle),
	}
}

// Destroy destroys the instance.
func (v *Instance) Destroy() {
	v.devices = nil
	vk.DestroyInstance(v.instance, nil)
}
