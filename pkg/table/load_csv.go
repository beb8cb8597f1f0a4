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
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/daviszhen/tpch/pkg/common"
)

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	r := bufio.NewReaderSize(f, 1<<20)
	buf := make([]byte, 1<<20)
	cnt := 0
	last := byte('\n')
	for {
		n, err := r.Read(buf)
		if n > 0 {
			cnt += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		cnt++
	}
	return cnt, nil
}

// LoadCSV fills an unallocated table from a delimited file such as a dbgen
// .tbl file. Fields map to columns by position; extra fields are ignored.
func LoadCSV(t *Table, path string, comma rune) error {
	lines, err := countLines(path)
	if err != nil {
		return err
	}
	if err = t.Allocate(lines); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	w := NewRowWriter(t)
	for {
		line, err := reader.Read()
		if err != nil {
			//EOF
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if len(line) < len(t.cols) {
			return fmt.Errorf("%w: %s line %d has %d fields, want %d",
				ErrMalformedInput, path, w.Count()+1, len(line), len(t.cols))
		}
		row, err := w.Next()
		if err != nil {
			return err
		}
		for c := range t.cols {
			if err = t.setFromString(row, c, line[c]); err != nil {
				return fmt.Errorf("%w: %s line %d column %s: %w",
					ErrMalformedInput, path, row+1, t.cols[c].Name, err)
			}
		}
	}
	return w.Finish()
}

func (t *Table) setFromString(row, col int, field string) error {
	c := t.cols[col]
	switch c.Kind {
	case KindText:
		return t.SetTextChecked(row, col, field)
	case KindDate:
		d, err := common.ParseDate(field)
		if err != nil {
			return err
		}
		t.SetDate(row, col, d)
	default:
		if c.Scale > 0 {
			v, err := common.ParseScaled(field, c.Scale)
			if err != nil {
				return err
			}
			return t.SetIntChecked(row, col, v.V)
		}
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return err
		}
		return t.SetIntChecked(row, col, v)
	}
	return nil
}
