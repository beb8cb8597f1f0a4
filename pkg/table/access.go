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
	"bytes"
	"fmt"
	"unsafe"

	"github.com/daviszhen/tpch/pkg/common"
	"github.com/daviszhen/tpch/pkg/util"
)

type Scalar interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Get reads a field without bounds checks on row or width.
func Get[T Scalar](t *Table, row, col int) T {
	return util.Load[T](t.fieldPtr(row, col))
}

// Set writes a field without bounds checks on row or width.
func Set[T Scalar](t *Table, row, col int, val T) {
	util.Store[T](val, t.fieldPtr(row, col))
}

func (t *Table) check(row, col, width int) error {
	if !t.allocated {
		return fmt.Errorf("%w: %s", ErrNotAllocated, t.name)
	}
	if col < 0 || col >= len(t.cols) {
		return fmt.Errorf("%w: column %d of %s with %d columns", ErrColumnOutOfRange, col, t.name, len(t.cols))
	}
	if row < 0 || row >= t.capacity {
		return fmt.Errorf("%w: row %d of %s capacity %d", ErrRowOutOfRange, row, t.name, t.capacity)
	}
	if width != t.cols[col].Width {
		return fmt.Errorf("%w: column %s width %d access width %d", ErrWidthMismatch, t.cols[col].Name, t.cols[col].Width, width)
	}
	return nil
}

func GetChecked[T Scalar](t *Table, row, col int) (T, error) {
	var zero T
	if err := t.check(row, col, int(unsafe.Sizeof(zero))); err != nil {
		return zero, err
	}
	return Get[T](t, row, col), nil
}

func SetChecked[T Scalar](t *Table, row, col int, val T) error {
	if err := t.check(row, col, int(unsafe.Sizeof(val))); err != nil {
		return err
	}
	Set[T](t, row, col, val)
	return nil
}

// Int reads an integer or date column of any width.
func (t *Table) Int(row, col int) int64 {
	switch t.cols[col].Width {
	case 1:
		return int64(Get[int8](t, row, col))
	case 2:
		return int64(Get[int16](t, row, col))
	case 4:
		return int64(Get[int32](t, row, col))
	case 8:
		return Get[int64](t, row, col)
	}
	panic(fmt.Sprintf("usp width %d of column %s", t.cols[col].Width, t.cols[col].Name))
}

// SetInt truncates val to the column width.
func (t *Table) SetInt(row, col int, val int64) {
	switch t.cols[col].Width {
	case 1:
		Set[int8](t, row, col, int8(val))
	case 2:
		Set[int16](t, row, col, int16(val))
	case 4:
		Set[int32](t, row, col, int32(val))
	case 8:
		Set[int64](t, row, col, val)
	default:
		panic(fmt.Sprintf("usp width %d of column %s", t.cols[col].Width, t.cols[col].Name))
	}
}

func (t *Table) Date(row, col int) common.Date {
	return common.Date(Get[int32](t, row, col))
}

func (t *Table) SetDate(row, col int, d common.Date) {
	Set[int32](t, row, col, int32(d))
}

func (t *Table) Scaled(row, col int) common.ScaledInt {
	return common.ScaledInt{V: t.Int(row, col), Scale: t.cols[col].Scale}
}

// SetScaled stores val in the scale of the column.
func (t *Table) SetScaled(row, col int, val common.ScaledInt) {
	t.SetInt(row, col, val.Rescale(t.cols[col].Scale).V)
}

// TextBytes aliases the null padded field up to its first zero byte.
func (t *Table) TextBytes(row, col int) []byte {
	b := t.field(row, col)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

func (t *Table) Text(row, col int) string {
	return string(t.TextBytes(row, col))
}

// SetText stores s null padded. Bytes past the width are cut.
func (t *Table) SetText(row, col int, s string) {
	b := t.field(row, col)
	n := copy(b, s)
	clear(b[n:])
}

func (t *Table) SetTextBytes(row, col int, s []byte) {
	b := t.field(row, col)
	n := copy(b, s)
	clear(b[n:])
}

func fits(width int, val int64) bool {
	if width >= 8 {
		return true
	}
	bits := uint(width * 8)
	return val >= -(1<<(bits-1)) && val < 1<<(bits-1)
}

// SetIntChecked stores val only if it fits the column width.
func (t *Table) SetIntChecked(row, col int, val int64) error {
	if c := t.cols[col]; !fits(c.Width, val) {
		return fmt.Errorf("%w: %d in %d byte column %s", ErrValueOverflow, val, c.Width, c.Name)
	}
	t.SetInt(row, col, val)
	return nil
}

// SetTextChecked stores s only if it fits the column width.
func (t *Table) SetTextChecked(row, col int, s string) error {
	if c := t.cols[col]; len(s) > c.Width {
		return fmt.Errorf("%w: %d bytes in %d byte column %s", ErrValueOverflow, len(s), c.Width, c.Name)
	}
	t.SetText(row, col, s)
	return nil
}

// CopyField copies one field between columns of the same width.
func CopyField(dst *Table, dstRow, dstCol int, src *Table, srcRow, srcCol int) {
	if dst.cols[dstCol].Width != src.cols[srcCol].Width {
		panic(fmt.Sprintf("copy %s into %s: width %d != %d",
			src.cols[srcCol].Name, dst.cols[dstCol].Name,
			src.cols[srcCol].Width, dst.cols[dstCol].Width))
	}
	copy(dst.field(dstRow, dstCol), src.field(srcRow, srcCol))
}

// CopyRow copies a whole row between compatible tables.
func CopyRow(dst *Table, dstRow int, src *Table, srcRow int) {
	for c := range dst.cols {
		CopyField(dst, dstRow, c, src, srcRow, c)
	}
}

// RowWriter appends rows to a table and publishes the row count once.
type RowWriter struct {
	t        *Table
	n        int
	finished bool
}

func NewRowWriter(t *Table) *RowWriter {
	return &RowWriter{t: t}
}

// Next reserves the next free row.
func (w *RowWriter) Next() (int, error) {
	if !w.t.allocated {
		return 0, fmt.Errorf("%w: %s", ErrNotAllocated, w.t.name)
	}
	if w.n >= w.t.capacity {
		return 0, fmt.Errorf("%w: table %s capacity %d", ErrCapacityExceeded, w.t.name, w.t.capacity)
	}
	row := w.n
	w.n++
	return row, nil
}

// Append copies a row of a compatible table.
func (w *RowWriter) Append(src *Table, srcRow int) error {
	row, err := w.Next()
	if err != nil {
		return err
	}
	CopyRow(w.t, row, src, srcRow)
	return nil
}

func (w *RowWriter) Count() int {
	return w.n
}

func (w *RowWriter) Table() *Table {
	return w.t
}

func (w *RowWriter) Finish() error {
	if w.finished {
		panic(fmt.Sprintf("row count of %s published twice", w.t.name))
	}
	w.finished = true
	return w.t.SetNumRow(w.n)
}
