// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"path"
	"strings"

	"github.com/devblok/framepace/assets"
	"github.com/pkg/errors"
)

// objectFlags collects -object values of the form
// name=model.dae:texture.png,normal.png
type objectFlags []assets.ObjectInfo

func (o *objectFlags) String() string {
	names := make([]string, len(*o))
	for i, info := range *o {
		names[i] = info.Name
	}
	return strings.Join(names, ",")
}

func (o *objectFlags) Set(v string) error {
	info, err := parseObject(v)
	if err != nil {
		return err
	}
	*o = append(*o, info)
	return nil
}

func parseObject(v string) (assets.ObjectInfo, error) {
	eq := strings.IndexByte(v, '=')
	colon := strings.IndexByte(v, ':')
	if eq <= 0 || colon < eq+2 || colon == len(v)-1 {
		return assets.ObjectInfo{}, errors.Errorf("object %q: want name=model:texture,...", v)
	}
	return assets.ObjectInfo{
		Name:     v[:eq],
		Model:    v[eq+1 : colon],
		Textures: strings.Split(v[colon+1:], ","),
	}, nil
}

var textureExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// discoverObjects pairs every model of files with the textures in the same
// directory whose names start with the model name.
func discoverObjects(files []string) []assets.ObjectInfo {
	var objects []assets.ObjectInfo
	for _, f := range files {
		if strings.ToLower(path.Ext(f)) != ".dae" {
			continue
		}
		dir, base := path.Split(f)
		name := strings.TrimSuffix(base, path.Ext(base))
		info := assets.ObjectInfo{Name: name, Model: f}
		for _, t := range files {
			tdir, tbase := path.Split(t)
			if tdir == dir && strings.HasPrefix(tbase, name) && textureExtensions[strings.ToLower(path.Ext(t))] {
				info.Textures = append(info.Textures, t)
			}
		}
		if len(info.Textures) > 0 {
			objects = append(objects, info)
		}
	}
	return objects
}
