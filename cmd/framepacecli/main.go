// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/devblok/framepace/gfx/vkr"
	"github.com/sirupsen/logrus"
)

var (
	debug  = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	indent = flag.Bool("indent", false, "Indent the output")
)

func main() {
	flag.Parse()
	log := logrus.New()
	log.SetOutput(os.Stderr)

	instance, err := vkr.NewInstance(nil, vkr.InstanceConfiguration{
		Name:      "framepacecli",
		DebugMode: *debug,
	})
	if err != nil {
		log.WithError(err).Fatal("create instance")
	}
	defer instance.Destroy()

	enc := json.NewEncoder(os.Stdout)
	if *indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(instance.PhysicalDevicesInfo()); err != nil {
		log.WithError(err).Error("encode device info")
	}
}
