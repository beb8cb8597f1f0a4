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
	"fmt"
	"math"
	"unsafe"

	"github.com/huandu/go-clone"

	"github.com/daviszhen/tpch/pkg/util"
)

const (
	// header slots at the start of every block
	headerSize = 64
	hdrNumRow  = 0
	hdrCap     = 8

	// column regions start on this boundary
	alignment = 64
	// rows of slack after the capacity of every column region
	paddingRows = 16
)

// Table is a packed columnar buffer.
//
// A block is laid out as [header | col0 | col1 | ...]. The header holds the
// live row count and the block capacity. A plain table has one block, a
// partitioned table has one block per partition. A view aliases one block of
// a partitioned table and owns nothing.
type Table struct {
	name    string
	cols    []Column
	offsets []int

	blockSize int
	capacity  int
	parts     int

	data []byte
	base int

	view      bool
	allocated bool
}

func New(name string, cols ...Column) *Table {
	t := &Table{name: name}
	for _, col := range cols {
		if err := t.AddColumn(col); err != nil {
			panic(err)
		}
	}
	return t
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) AddColumn(col Column) error {
	if t.allocated {
		return fmt.Errorf("%w: add column %s to %s", ErrSchemaFrozen, col.Name, t.name)
	}
	if err := col.validate(); err != nil {
		return err
	}
	t.cols = append(t.cols, col)
	t.offsets = append(t.offsets, 0)
	return nil
}

func (t *Table) ColumnCount() int {
	return len(t.cols)
}

func (t *Table) Column(i int) Column {
	return t.cols[i]
}

func (t *Table) Columns() []Column {
	return t.cols
}

// Offset is the byte offset of column i inside a block.
func (t *Table) Offset(i int) int {
	return t.offsets[i]
}

func (t *Table) BlockSize() int {
	return t.blockSize
}

func (t *Table) ColIndex(name string) int {
	for i, col := range t.cols {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Cols resolves column names. An unknown name is a schema bug.
func (t *Table) Cols(names ...string) []int {
	ret := make([]int, len(names))
	for i, name := range names {
		ret[i] = t.ColIndex(name)
		if ret[i] < 0 {
			panic(fmt.Sprintf("no such column %s in %s", name, t.name))
		}
	}
	return ret
}

func (t *Table) layout(capacity int) {
	off := headerSize
	for i, col := range t.cols {
		t.offsets[i] = off
		off += util.AlignValue(col.Width*(capacity+paddingRows), alignment)
	}
	t.blockSize = off
	t.capacity = capacity
}

// Allocate reserves one block for capacityRows rows.
func (t *Table) Allocate(capacityRows int) error {
	return t.allocate(capacityRows, 1)
}

// AllocatePartitioned reserves parts equal blocks. Every block holds
// ceil(capacityRows*overAlloc) rows so that uneven partitions still fit.
func (t *Table) AllocatePartitioned(capacityRows int, overAlloc float64, parts int) error {
	if parts < 1 || !util.IsPowerOfTwo(uint64(parts)) {
		return fmt.Errorf("%w: %d", ErrInvalidPartitions, parts)
	}
	if overAlloc < 1 {
		return fmt.Errorf("over allocation factor %v less than 1", overAlloc)
	}
	return t.allocate(int(math.Ceil(float64(capacityRows)*overAlloc-1e-9)), parts)
}

func (t *Table) allocate(capacity, parts int) error {
	if t.allocated {
		return fmt.Errorf("%w: %s allocated twice", ErrSchemaFrozen, t.name)
	}
	if capacity < 0 {
		return fmt.Errorf("negative capacity %d", capacity)
	}
	t.layout(capacity)
	t.parts = parts
	t.data = util.GAlloc.Alloc(t.blockSize * parts)
	ptr := util.BytesSliceToPointer(t.data)
	for i := 0; i < parts; i++ {
		util.Store2[int64](0, ptr, i*t.blockSize+hdrNumRow)
		util.Store2[int64](int64(capacity), ptr, i*t.blockSize+hdrCap)
	}
	t.allocated = true
	return nil
}

func (t *Table) Allocated() bool {
	return t.allocated
}

// Capacity is the row capacity of one block.
func (t *Table) Capacity() int {
	return t.capacity
}

func (t *Table) Partitions() int {
	return t.parts
}

func (t *Table) IsView() bool {
	return t.view
}

// NumRow reads the live row count from the header. For a partitioned table
// it is the sum over all blocks.
func (t *Table) NumRow() int {
	if !t.allocated {
		return 0
	}
	ptr := util.BytesSliceToPointer(t.data)
	if t.parts > 1 {
		sum := 0
		for i := 0; i < t.parts; i++ {
			sum += int(util.Load2[int64](ptr, i*t.blockSize+hdrNumRow))
		}
		return sum
	}
	return int(util.Load2[int64](ptr, t.base+hdrNumRow))
}

func (t *Table) SetNumRow(n int) error {
	if !t.allocated {
		return fmt.Errorf("%w: %s", ErrNotAllocated, t.name)
	}
	if t.parts > 1 {
		return fmt.Errorf("set row count of partitioned table %s, use its sub tables", t.name)
	}
	if n < 0 || n > t.capacity {
		return fmt.Errorf("%w: table %s rows %d capacity %d", ErrCapacityExceeded, t.name, n, t.capacity)
	}
	util.Store2[int64](int64(n), util.BytesSliceToPointer(t.data), t.base+hdrNumRow)
	return nil
}

// SubTable returns a view over block i. The view shares the buffer.
func (t *Table) SubTable(i int) *Table {
	if !t.allocated || i < 0 || i >= t.parts {
		panic(fmt.Sprintf("sub table %d of %s with %d partitions", i, t.name, t.parts))
	}
	return &Table{
		name:      fmt.Sprintf("%s_%d", t.name, i),
		cols:      t.cols,
		offsets:   t.offsets,
		blockSize: t.blockSize,
		capacity:  t.capacity,
		parts:     1,
		data:      t.data,
		base:      t.base + i*t.blockSize,
		view:      true,
		allocated: true,
	}
}

func (t *Table) SubTables() []*Table {
	ret := make([]*Table, t.parts)
	for i := range ret {
		ret[i] = t.SubTable(i)
	}
	return ret
}

// NewLike returns an unallocated table with the same schema.
func (t *Table) NewLike(name string) *Table {
	return &Table{
		name:    name,
		cols:    clone.Clone(t.cols).([]Column),
		offsets: make([]int, len(t.cols)),
	}
}

// Project returns an unallocated table with the chosen columns.
func (t *Table) Project(name string, cols ...int) *Table {
	ret := &Table{name: name}
	for _, c := range cols {
		ret.cols = append(ret.cols, clone.Clone(t.cols[c]).(Column))
		ret.offsets = append(ret.offsets, 0)
	}
	return ret
}

// Compatible reports whether rows of o can be copied into t byte for byte.
func (t *Table) Compatible(o *Table) bool {
	if len(t.cols) != len(o.cols) {
		return false
	}
	for i := range t.cols {
		if t.cols[i].Width != o.cols[i].Width || t.cols[i].Kind != o.cols[i].Kind {
			return false
		}
	}
	return true
}

// MergeSubTables concatenates the views into t in argument order.
func (t *Table) MergeSubTables(views ...*Table) error {
	if !t.allocated {
		return fmt.Errorf("%w: %s", ErrNotAllocated, t.name)
	}
	total := 0
	for _, v := range views {
		if !t.Compatible(v) {
			return fmt.Errorf("%w: merge %s into %s", ErrSchemaMismatch, v.name, t.name)
		}
		total += v.NumRow()
	}
	if total > t.capacity {
		return fmt.Errorf("%w: merge %d rows into %s capacity %d", ErrCapacityExceeded, total, t.name, t.capacity)
	}
	for c, col := range t.cols {
		pos := 0
		dst := t.base + t.offsets[c]
		for _, v := range views {
			n := v.NumRow() * col.Width
			src := v.base + v.offsets[c]
			copy(t.data[dst+pos:dst+pos+n], v.data[src:src+n])
			pos += n
		}
	}
	return t.SetNumRow(total)
}

func (t *Table) fieldOffset(row, col int) int {
	return t.base + t.offsets[col] + row*t.cols[col].Width
}

func (t *Table) fieldPtr(row, col int) unsafe.Pointer {
	return unsafe.Pointer(&t.data[t.fieldOffset(row, col)])
}

func (t *Table) field(row, col int) []byte {
	off := t.fieldOffset(row, col)
	return t.data[off : off+t.cols[col].Width]
}

func (t *Table) String() string {
	return fmt.Sprintf("%s(rows %d, cap %d, parts %d)", t.name, t.NumRow(), t.capacity, t.parts)
}
