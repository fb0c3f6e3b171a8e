// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"golang.org/x/exp/mmap"

	"github.com/devblok/framepace/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func build(c *qt.C, files map[string]string) []byte {
	c.Helper()
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	for name, contents := range files {
		c.Assert(builder.Add(name, bytes.NewReader([]byte(contents))), qt.IsNil)
	}
	buf := bytes.NewBuffer(nil)
	written, err := builder.WriteTo(buf)
	c.Assert(err, qt.IsNil)
	c.Assert(written, qt.Equals, int64(buf.Len()))
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	data := build(c, map[string]string{
		"test":  testString1,
		"test2": testString2,
	})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Files(), qt.DeepEquals, []string{"test", "test2"})
	c.Assert(ar.Header().Author, qt.Equals, "devblok")

	f, err := ar.Open("test2")
	c.Assert(err, qt.IsNil)
	c.Assert(f.Size(), qt.Equals, int64(len(testString2)))
	contents, err := ioutil.ReadAll(f)
	c.Assert(err, qt.IsNil)
	c.Assert(string(contents), qt.Equals, testString2)

	all, err := ar.ReadAll("test")
	c.Assert(err, qt.IsNil)
	c.Assert(string(all), qt.Equals, testString1)

	_, err = ar.Open("missing")
	c.Assert(errors.Is(err, kar.ErrNotFound), qt.IsTrue)
}

func TestConcurrentAddAndRead(t *testing.T) {
	c := qt.New(t)
	builder, err := kar.NewBuilder(kar.Header{Author: "devblok", Version: 2})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	var wg sync.WaitGroup
	for idx := 0; idx < 16; idx++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			payload := bytes.Repeat([]byte{byte(idx)}, 1000*idx+1)
			if err := builder.Add(fmt.Sprintf("file%02d", idx), bytes.NewReader(payload)); err != nil {
				t.Error(err)
			}
		}(idx)
	}
	wg.Wait()
	c.Assert(builder.Add("file00", bytes.NewReader(nil)), qt.ErrorMatches, `.*duplicate name`)

	buf := bytes.NewBuffer(nil)
	_, err = builder.WriteTo(buf)
	c.Assert(err, qt.IsNil)

	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Files(), qt.HasLen, 16)

	for idx := 0; idx < 16; idx++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			data, err := ar.ReadAll(fmt.Sprintf("file%02d", idx))
			if err != nil {
				t.Error(err)
				return
			}
			if !bytes.Equal(data, bytes.Repeat([]byte{byte(idx)}, 1000*idx+1)) {
				t.Errorf("file%02d does not match", idx)
			}
		}(idx)
	}
	wg.Wait()
}

func TestOpenMmap(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.Mkdir(), "test.kar")
	c.Assert(ioutil.WriteFile(path, build(c, map[string]string{
		"test/test1.txt": "this is a test",
		"test/test2.txt": "this is another test",
	}), 0644), qt.IsNil)

	r, err := mmap.Open(path)
	c.Assert(err, qt.IsNil)
	defer r.Close()

	ar, err := kar.Open(r)
	c.Assert(err, qt.IsNil)
	for name, want := range map[string]string{
		"test/test1.txt": "this is a test",
		"test/test2.txt": "this is another test",
	} {
		got, err := ar.ReadAll(name)
		c.Assert(err, qt.IsNil)
		c.Assert(string(got), qt.Equals, want)
	}

	f, err := os.Open(path)
	c.Assert(err, qt.IsNil)
	defer f.Close()
	ar, err = kar.Open(f)
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Files(), qt.HasLen, 2)
}

func TestOpenCorrupted(t *testing.T) {
	c := qt.New(t)
	data := build(c, map[string]string{"test": testString1})

	for _, test := range []struct {
		about string
		data  []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("TAR\x00"), data[4:]...)},
		{"truncated header", data[:20]},
		{"garbage header", append(append([]byte(nil), data[:12]...), bytes.Repeat([]byte{0xff}, len(data)-12)...)},
	} {
		_, err := kar.Open(bytes.NewReader(test.data))
		c.Assert(errors.Is(err, kar.ErrFileFormat), qt.IsTrue, qt.Commentf(test.about))
	}
}
