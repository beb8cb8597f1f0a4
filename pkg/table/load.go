// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package table

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/daviszhen/tpch/pkg/util"
)

const (
	binSuffix = ".bin"
	zstSuffix = ".bin.zst"
)

func readColumnFile(dir, name string) ([]byte, error) {
	raw := filepath.Join(dir, name+binSuffix)
	if util.FileIsValid(raw) {
		return os.ReadFile(raw)
	}
	zst := filepath.Join(dir, name+zstSuffix)
	f, err := os.Open(zst)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no column file for %s in %s", ErrMalformedInput, name, dir)
		}
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

// LoadColumnFiles fills an unallocated table from one fixed width record
// file per column, <dir>/<column>.bin or <dir>/<column>.bin.zst.
// The capacity is the row count of the files.
func LoadColumnFiles(t *Table, dir string) error {
	datas := make([][]byte, len(t.cols))
	rows := -1
	for i, col := range t.cols {
		data, err := readColumnFile(dir, col.Name)
		if err != nil {
			return err
		}
		if len(data)%col.Width != 0 {
			return fmt.Errorf("%w: column file %s size %d is not a multiple of width %d",
				ErrMalformedInput, col.Name, len(data), col.Width)
		}
		n := len(data) / col.Width
		if rows >= 0 && n != rows {
			return fmt.Errorf("%w: column %s has %d rows, previous columns %d",
				ErrMalformedInput, col.Name, n, rows)
		}
		rows = n
		datas[i] = data
	}
	if rows < 0 {
		rows = 0
	}
	if err := t.Allocate(rows); err != nil {
		return err
	}
	for i, data := range datas {
		off := t.base + t.offsets[i]
		copy(t.data[off:off+len(data)], data)
	}
	return t.SetNumRow(rows)
}

// WriteColumnFiles writes the live rows in the LoadColumnFiles format.
func WriteColumnFiles(t *Table, dir string, compress bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	n := t.NumRow()
	for i, col := range t.cols {
		off := t.base + t.offsets[i]
		data := t.data[off : off+n*col.Width]
		if err := writeColumnFile(dir, col.Name, data, compress); err != nil {
			return err
		}
	}
	return nil
}

func writeColumnFile(dir, name string, data []byte, compress bool) (err error) {
	suffix := binSuffix
	if compress {
		suffix = zstSuffix
	}
	f, err := os.OpenFile(filepath.Join(dir, name+suffix), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if !compress {
		_, err = f.Write(data)
		return err
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err = enc.Write(data); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
