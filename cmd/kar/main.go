// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/devblok/framepace/utility/kar"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/mmap"
)

func currentUserName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

var (
	author   = flag.String("author", currentUserName(), "Set the author of the package when compressing")
	version  = flag.Int64("version", 1, "Archive version number to create it with")
	extract  = flag.String("e", "", "Extract the file given")
	compress = flag.String("c", "", "Compress the given file/folder")
	dstFile  = flag.String("f", "out.kar", "Destination file, or directory when extracting")
	list     = flag.String("l", "", "List the files of the archive given")
	silent   = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	log := logrus.New()
	if *silent {
		log.SetLevel(logrus.WarnLevel)
	}

	ops := 0
	for _, op := range []string{*extract, *compress, *list} {
		if op != "" {
			ops++
		}
	}
	if ops > 1 {
		log.Fatal("only one operation at a time")
	}

	var err error
	switch {
	case *compress != "":
		err = compressFiles(log, *compress, *dstFile)
	case *extract != "":
		err = extractFiles(log, *extract, *dstFile)
	case *list != "":
		err = listFiles(log, *list)
	default:
		flag.PrintDefaults()
	}
	if err != nil {
		log.WithError(err).Fatal("kar failed")
	}
}

func compressFiles(log logrus.FieldLogger, src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return errors.Errorf("destination file %s exists, will not overwrite", dst)
	}

	var files []string
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	builder, err := kar.NewBuilder(kar.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer builder.Close()

	for _, path := range files {
		if err := addFile(builder, src, path); err != nil {
			return err
		}
		log.WithField("file", path).Debug("added")
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	n, err := builder.WriteTo(out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}
	log.WithFields(logrus.Fields{"archive": dst, "files": len(files), "bytes": n}).Info("archive written")
	return nil
}

func addFile(builder *kar.Builder, root, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	name, err := filepath.Rel(root, path)
	if err != nil || name == "." {
		name = filepath.Base(path)
	}
	return builder.Add(filepath.ToSlash(name), f)
}

func openArchive(path string) (*mmap.ReaderAt, *kar.Archive, error) {
	mapped, err := mmap.Open(path)
	if err != nil {
		return nil, nil, err
	}
	archive, err := kar.Open(mapped)
	if err != nil {
		mapped.Close()
		return nil, nil, err
	}
	return mapped, archive, nil
}

func extractFiles(log logrus.FieldLogger, src, dst string) error {
	if dst == "out.kar" {
		dst = "."
	}
	mapped, archive, err := openArchive(src)
	if err != nil {
		return err
	}
	defer mapped.Close()

	for _, name := range archive.Files() {
		target := filepath.Join(dst, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		r, err := archive.Open(name)
		if err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		n, err := io.Copy(out, r)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrapf(err, "extract %s", name)
		}
		if n != r.Size() {
			return errors.Errorf("extract %s: %d of %d bytes", name, n, r.Size())
		}
		log.WithField("file", target).Debug("extracted")
	}
	log.WithFields(logrus.Fields{"archive": src, "files": len(archive.Files())}).Info("archive extracted")
	return nil
}

func listFiles(log logrus.FieldLogger, src string) error {
	mapped, archive, err := openArchive(src)
	if err != nil {
		return err
	}
	defer mapped.Close()

	header := archive.Header()
	log.WithFields(logrus.Fields{
		"author":  header.Author,
		"version": header.Version,
		"created": time.Unix(header.DateCreated, 0),
	}).Info(src)
	for _, name := range archive.Files() {
		e, _ := archive.Stat(name)
		log.WithFields(logrus.Fields{"size": e.Size, "compressed": e.CompressedSize}).Info(name)
	}
	return nil
}
