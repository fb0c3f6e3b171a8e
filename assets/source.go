// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package assets reads textures and models from a kar archive or a box of
// files and turns them into engine objects.
package assets

import (
	"sort"

	"github.com/devblok/framepace/utility/kar"
	"github.com/gobuffalo/packd"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// Source is a read only set of named files.
type Source interface {
	// ReadAll returns the contents of a file.
	ReadAll(name string) ([]byte, error)

	// Files returns every file name, sorted.
	Files() []string
}

// Archive is a memory mapped kar archive.
type Archive struct {
	mapped  *mmap.ReaderAt
	archive *kar.Archive
}

// OpenArchive maps a kar archive into memory.
func OpenArchive(path string) (*Archive, error) {
	mapped, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "assets.OpenArchive(%s)", path)
	}
	archive, err := kar.Open(mapped)
	if err != nil {
		mapped.Close()
		return nil, errors.Wrapf(err, "assets.OpenArchive(%s)", path)
	}
	return &Archive{
		mapped:  mapped,
		archive: archive,
	}, nil
}

// ReadAll implements Source.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	return a.archive.ReadAll(name)
}

// Files implements Source.
func (a *Archive) Files() []string {
	return a.archive.Files()
}

// Close unmaps the archive.
func (a *Archive) Close() error {
	return a.mapped.Close()
}

// Box is a box of files such as a packr box or a packd memory box.
type Box interface {
	packd.Finder
	packd.Lister
}

// NewBoxSource serves files from a box.
func NewBoxSource(box Box) Source {
	return boxSource{box}
}

// DirSource serves the files of a directory, embedded into the binary when
// it is built with packr.
func DirSource(dir string) Source {
	return boxSource{packr.NewBox(dir)}
}

type boxSource struct {
	box Box
}

func (b boxSource) ReadAll(name string) ([]byte, error) {
	data, err := b.box.Find(name)
	if err != nil {
		return nil, errors.Wrapf(err, "assets.ReadAll(%s)", name)
	}
	return data, nil
}

func (b boxSource) Files() []string {
	names := b.box.List()
	sort.Strings(names)
	return names
}
