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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pqLocal "github.com/xitongsys/parquet-go-source/local"
	pqWriter "github.com/xitongsys/parquet-go/writer"

	"github.com/daviszhen/tpch/pkg/common"
)

func newTestTable(t *testing.T, capacity int) *Table {
	tab := New("t",
		Int32Col("k"),
		ScaledCol("price", 2),
		DateCol("d"),
		TextCol("name", 6),
	)
	require.NoError(t, tab.Allocate(capacity))
	return tab
}

func Test_layout(t *testing.T) {
	tab := newTestTable(t, 100)
	assert.Equal(t, 100, tab.Capacity())
	assert.Equal(t, 0, tab.NumRow())
	for i := 0; i < tab.ColumnCount(); i++ {
		assert.Equal(t, 0, tab.Offset(i)%alignment)
		end := tab.BlockSize()
		if i+1 < tab.ColumnCount() {
			end = tab.Offset(i + 1)
		}
		assert.GreaterOrEqual(t, end-tab.Offset(i), tab.Column(i).Width*(tab.Capacity()+paddingRows))
	}
}

func Test_addColumnAfterAllocate(t *testing.T) {
	tab := newTestTable(t, 4)
	err := tab.AddColumn(Int64Col("late"))
	assert.ErrorIs(t, err, ErrSchemaFrozen)
	assert.ErrorIs(t, tab.Allocate(4), ErrSchemaFrozen)
	assert.ErrorIs(t, New("w").AddColumn(Column{Name: "bad", Kind: KindInt, Width: 3}), ErrWidthMismatch)
}

func Test_getSet(t *testing.T) {
	tab := newTestTable(t, 10)
	for i := 0; i < 10; i++ {
		Set[int32](tab, i, 0, int32(i*7))
		tab.SetScaled(i, 1, common.NewScaled(int64(i), 0))
		tab.SetDate(i, 2, common.NewDate(1995, 3, i+1))
		tab.SetText(i, 3, strings.Repeat("x", i))
	}
	require.NoError(t, tab.SetNumRow(10))
	for i := 0; i < 10; i++ {
		assert.Equal(t, int32(i*7), Get[int32](tab, i, 0))
		assert.Equal(t, int64(i*7), tab.Int(i, 0))
		assert.Equal(t, int64(i*100), tab.Int(i, 1))
		assert.Equal(t, common.NewDate(1995, 3, i+1), tab.Date(i, 2))
		want := strings.Repeat("x", min(i, 6))
		assert.Equal(t, want, tab.Text(i, 3))
	}
	// shorter text overwrites the padding
	tab.SetText(9, 3, "ab")
	assert.Equal(t, "ab", tab.Text(9, 3))
}

func Test_checkedAccess(t *testing.T) {
	tab := newTestTable(t, 2)
	_, err := GetChecked[int32](tab, 0, 9)
	assert.ErrorIs(t, err, ErrColumnOutOfRange)
	_, err = GetChecked[int32](tab, 2, 0)
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = GetChecked[int64](tab, 0, 0)
	assert.ErrorIs(t, err, ErrWidthMismatch)
	assert.ErrorIs(t, SetChecked[int32](tab, -1, 0, 1), ErrRowOutOfRange)
	require.NoError(t, SetChecked[int32](tab, 1, 0, 42))
	v, err := GetChecked[int32](tab, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	_, err = GetChecked[int32](New("empty", Int32Col("a")), 0, 0)
	assert.ErrorIs(t, err, ErrNotAllocated)
}

func Test_rowWriterCapacity(t *testing.T) {
	tab := newTestTable(t, 3)
	w := NewRowWriter(tab)
	for i := 0; i < 3; i++ {
		row, err := w.Next()
		require.NoError(t, err)
		assert.Equal(t, i, row)
	}
	_, err := w.Next()
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	require.NoError(t, w.Finish())
	assert.Equal(t, 3, tab.NumRow())
	assert.ErrorIs(t, tab.SetNumRow(4), ErrCapacityExceeded)
}

func Test_partitionedViews(t *testing.T) {
	parent := New("p", Int64Col("k"), TextCol("s", 3))
	assert.ErrorIs(t, parent.AllocatePartitioned(10, 1.2, 3), ErrInvalidPartitions)
	require.NoError(t, parent.AllocatePartitioned(10, 1.2, 4))
	assert.Equal(t, 12, parent.Capacity())
	assert.Equal(t, 4, parent.Partitions())

	views := parent.SubTables()
	for i, v := range views {
		assert.True(t, v.IsView())
		for r := 0; r <= i; r++ {
			v.SetInt(r, 0, int64(i*100+r))
			v.SetText(r, 1, "p")
		}
		require.NoError(t, v.SetNumRow(i+1))
	}
	// the row count comes from the shared header, not a cached copy
	again := parent.SubTable(2)
	assert.Equal(t, 3, again.NumRow())
	require.NoError(t, views[2].SetNumRow(1))
	assert.Equal(t, 1, again.NumRow())
	assert.Equal(t, int64(200), again.Int(0, 0))
	require.NoError(t, views[2].SetNumRow(3))
	assert.Equal(t, 1+2+3+4, parent.NumRow())
	assert.Error(t, parent.SetNumRow(1))

	merged := parent.NewLike("merged")
	require.NoError(t, merged.Allocate(parent.NumRow()))
	require.NoError(t, merged.MergeSubTables(views...))
	require.Equal(t, 10, merged.NumRow())
	want := []int64{0, 100, 101, 200, 201, 202, 300, 301, 302, 303}
	for r, k := range want {
		assert.Equal(t, k, merged.Int(r, 0))
		assert.Equal(t, "p", merged.Text(r, 1))
	}

	small := parent.NewLike("small")
	require.NoError(t, small.Allocate(9))
	assert.ErrorIs(t, small.MergeSubTables(views...), ErrCapacityExceeded)

	other := New("other", Int32Col("k"), TextCol("s", 3))
	require.NoError(t, other.Allocate(10))
	assert.ErrorIs(t, other.MergeSubTables(views...), ErrSchemaMismatch)
}

func Test_projectClonesSchema(t *testing.T) {
	tab := newTestTable(t, 1)
	p := tab.Project("p", 3, 0)
	require.Equal(t, 2, p.ColumnCount())
	assert.Equal(t, "name", p.Column(0).Name)
	assert.Equal(t, "k", p.Column(1).Name)
	assert.False(t, p.Allocated())
	assert.Equal(t, []int{3, 1}, tab.Cols("name", "price"))
	assert.Panics(t, func() { tab.Cols("nope") })
}

func Test_columnFiles(t *testing.T) {
	for _, compress := range []bool{false, true} {
		tab := newTestTable(t, 5)
		w := NewRowWriter(tab)
		for i := 0; i < 4; i++ {
			row, err := w.Next()
			require.NoError(t, err)
			tab.SetInt(row, 0, int64(i))
			tab.SetInt(row, 1, int64(i*250))
			tab.SetDate(row, 2, common.NewDate(1994, 1, i+1))
			tab.SetText(row, 3, "n"+strings.Repeat("a", i))
		}
		require.NoError(t, w.Finish())

		dir := t.TempDir()
		require.NoError(t, WriteColumnFiles(tab, dir, compress))

		back := tab.NewLike("back")
		require.NoError(t, LoadColumnFiles(back, dir))
		require.Equal(t, 4, back.NumRow())
		assert.Equal(t, 4, back.Capacity())
		for r := 0; r < 4; r++ {
			for c := 0; c < tab.ColumnCount(); c++ {
				assert.Equal(t, tab.FormatField(r, c), back.FormatField(r, c))
			}
		}
	}
}

func Test_columnFilesMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 8), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.bin"), make([]byte, 6), 0644))

	tab := New("m", Int32Col("a"), Int32Col("b"))
	assert.ErrorIs(t, LoadColumnFiles(tab, dir), ErrMalformedInput)

	tab = New("m", Int32Col("a"), Int64Col("c"))
	assert.ErrorIs(t, LoadColumnFiles(tab, dir), ErrMalformedInput)
}

func Test_loadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.tbl")
	content := "1|12.5|1996-01-02|alpha|\n2|0.07|1996-12-31|beta|\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tab := New("t",
		Int32Col("k"),
		ScaledCol("price", 2),
		DateCol("d"),
		TextCol("name", 6),
	)
	require.NoError(t, LoadCSV(tab, path, '|'))
	require.Equal(t, 2, tab.NumRow())
	assert.Equal(t, int64(1250), tab.Int(0, 1))
	assert.Equal(t, int64(7), tab.Int(1, 1))
	assert.Equal(t, common.NewDate(1996, 12, 31), tab.Date(1, 2))
	assert.Equal(t, "beta", tab.Text(1, 3))

	bad := filepath.Join(dir, "bad.tbl")
	require.NoError(t, os.WriteFile(bad, []byte("x|1|1996-01-02|a|\n"), 0644))
	assert.ErrorIs(t, LoadCSV(tab.NewLike("bad"), bad, '|'), ErrMalformedInput)

	// out of range keys and over-width names are rejected, not wrapped or cut
	nation := New("n", Int32Col("n_nationkey"), TextCol("n_name", 7))
	for _, line := range []string{"4294967297|GERMANY|\n", "1|GERMANYXX|\n", "4294967297|GERMANYXX|\n"} {
		require.NoError(t, os.WriteFile(bad, []byte(line), 0644))
		err := LoadCSV(nation.NewLike("bad"), bad, '|')
		assert.ErrorIs(t, err, ErrMalformedInput, line)
		assert.ErrorIs(t, err, ErrValueOverflow, line)
	}
	require.NoError(t, os.WriteFile(bad, []byte("2147483647|GERMANY|\n"), 0644))
	ok := nation.NewLike("ok")
	require.NoError(t, LoadCSV(ok, bad, '|'))
	assert.Equal(t, int64(2147483647), ok.Int(0, 0))
	assert.Equal(t, "GERMANY", ok.Text(0, 1))

	small := New("s", Column{Name: "price", Width: 2, Kind: KindInt, Scale: 2})
	require.NoError(t, os.WriteFile(bad, []byte("327.68|\n"), 0644))
	assert.ErrorIs(t, LoadCSV(small.NewLike("bad"), bad, '|'), ErrValueOverflow)
}

type pqRow struct {
	K     int32  `parquet:"name=k, type=INT32"`
	Price int64  `parquet:"name=price, type=INT64"`
	D     int32  `parquet:"name=d, type=INT32, convertedtype=DATE"`
	Name  string `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func Test_loadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.parquet")
	fw, err := pqLocal.NewLocalFileWriter(path)
	require.NoError(t, err)
	pw, err := pqWriter.NewParquetWriter(fw, new(pqRow), 1)
	require.NoError(t, err)
	// 9496 days after the epoch is 1996-01-01
	rows := []pqRow{
		{K: 1, Price: 1250, D: 9496, Name: "alpha"},
		{K: 2, Price: 7, D: 9497, Name: "beta"},
		{K: 3, Price: -300, D: 9861, Name: "gamma"},
	}
	for _, row := range rows {
		require.NoError(t, pw.Write(row))
	}
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())

	tab := New("t",
		Int32Col("k"),
		ScaledCol("price", 2),
		DateCol("d"),
		TextCol("name", 6),
	)
	require.NoError(t, LoadParquet(tab, path))
	require.Equal(t, 3, tab.NumRow())
	assert.Equal(t, int64(3), tab.Int(2, 0))
	assert.Equal(t, "12.50", tab.Scaled(0, 1).String())
	assert.Equal(t, int64(-300), tab.Int(2, 1))
	assert.Equal(t, common.NewDate(1996, 1, 1), tab.Date(0, 2))
	assert.Equal(t, common.NewDate(1996, 12, 31), tab.Date(2, 2))
	assert.Equal(t, "beta", tab.Text(1, 3))

	assert.Error(t, LoadParquet(tab.NewLike("missing"), filepath.Join(t.TempDir(), "none.parquet")))

	narrow := New("t", Int32Col("k"), ScaledCol("price", 2), DateCol("d"), TextCol("name", 4))
	err = LoadParquet(narrow, path)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.ErrorIs(t, err, ErrValueOverflow)
}

func Test_print(t *testing.T) {
	tab := newTestTable(t, 3)
	for i := 0; i < 3; i++ {
		tab.SetInt(i, 0, int64(i))
		tab.SetInt(i, 1, 1005)
		tab.SetDate(i, 2, common.NewDate(1998, 9, 2))
		tab.SetText(i, 3, "R")
	}
	require.NoError(t, tab.SetNumRow(3))
	buf := &bytes.Buffer{}
	require.NoError(t, Print(buf, tab, 2, true))
	out := buf.String()
	assert.Contains(t, out, "price")
	assert.Contains(t, out, "10.05")
	assert.Contains(t, out, "1998-09-02")
	assert.Contains(t, out, "3 rows total")
}
