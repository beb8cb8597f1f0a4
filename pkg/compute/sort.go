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

package compute

import (
	"cmp"
	"slices"

	"github.com/tidwall/btree"

	"github.com/daviszhen/tpch/pkg/table"
)

// Sorter materializes the input rows as R, sorts them and writes them back.
// The sort is stable. Limit > 0 keeps only the first Limit rows.
type Sorter[R any] struct {
	Load  func(t *table.Table, row int) R
	Less  func(a, b R) bool
	Store func(out *table.Table, row int, r R)
	Limit int
}

type seqItem[R any] struct {
	r   R
	seq int
}

func (s *Sorter[R]) compare(a, b R) int {
	if s.Less(a, b) {
		return -1
	}
	if s.Less(b, a) {
		return 1
	}
	return 0
}

// Sort returns the rows in order.
func (s *Sorter[R]) Sort(in *table.Table) []R {
	n := in.NumRow()
	if s.Limit > 0 && s.Limit < n {
		return s.topN(in)
	}
	rows := make([]R, n)
	for r := 0; r < n; r++ {
		rows[r] = s.Load(in, r)
	}
	slices.SortStableFunc(rows, s.compare)
	return rows
}

// topN keeps the Limit smallest rows in a btree. Ties fall back to the input
// position, so the result is the prefix of the full stable sort.
func (s *Sorter[R]) topN(in *table.Table) []R {
	less := func(a, b seqItem[R]) bool {
		if c := s.compare(a.r, b.r); c != 0 {
			return c < 0
		}
		return a.seq < b.seq
	}
	tr := btree.NewBTreeGOptions(less, btree.Options{NoLocks: true})
	n := in.NumRow()
	for r := 0; r < n; r++ {
		item := seqItem[R]{r: s.Load(in, r), seq: r}
		if tr.Len() >= s.Limit {
			last, _ := tr.Max()
			if !less(item, last) {
				continue
			}
		}
		tr.Set(item)
		if tr.Len() > s.Limit {
			tr.PopMax()
		}
	}
	rows := make([]R, 0, tr.Len())
	tr.Scan(func(item seqItem[R]) bool {
		rows = append(rows, item.r)
		return true
	})
	return rows
}

func (s *Sorter[R]) OutputRows(in *table.Table) int {
	n := in.NumRow()
	if s.Limit > 0 && s.Limit < n {
		return s.Limit
	}
	return n
}

func (s *Sorter[R]) Run(in, out *table.Table) error {
	rows := s.Sort(in)
	w := table.NewRowWriter(out)
	for _, r := range rows {
		row, err := w.Next()
		if err != nil {
			return err
		}
		s.Store(out, row, r)
	}
	return w.Finish()
}

// Row is a table row detached from its buffer. Ints holds integer and date
// columns, Texts holds text columns, both indexed by column.
type Row struct {
	Ints  []int64
	Texts []string
}

func LoadRow(t *table.Table, row int) Row {
	n := t.ColumnCount()
	ret := Row{Ints: make([]int64, n), Texts: make([]string, n)}
	for c := 0; c < n; c++ {
		if t.Column(c).Kind == table.KindText {
			ret.Texts[c] = t.Text(row, c)
		} else {
			ret.Ints[c] = t.Int(row, c)
		}
	}
	return ret
}

func StoreRow(t *table.Table, row int, r Row) {
	for c := 0; c < t.ColumnCount(); c++ {
		if t.Column(c).Kind == table.KindText {
			t.SetText(row, c, r.Texts[c])
		} else {
			t.SetInt(row, c, r.Ints[c])
		}
	}
}

type SortKey struct {
	Col  int
	Desc bool
}

func Asc(col int) SortKey {
	return SortKey{Col: col}
}

func Desc(col int) SortKey {
	return SortKey{Col: col, Desc: true}
}

// OrderBy sorts rows of tables shaped like t by the keys. Text columns
// compare lexicographically, the others numerically.
func OrderBy(t *table.Table, limit int, keys ...SortKey) *Sorter[Row] {
	text := make([]bool, len(keys))
	for i, k := range keys {
		text[i] = t.Column(k.Col).Kind == table.KindText
	}
	return &Sorter[Row]{
		Load:  LoadRow,
		Store: StoreRow,
		Limit: limit,
		Less: func(a, b Row) bool {
			for i, k := range keys {
				var c int
				if text[i] {
					c = cmp.Compare(a.Texts[k.Col], b.Texts[k.Col])
				} else {
					c = cmp.Compare(a.Ints[k.Col], b.Ints[k.Col])
				}
				if c == 0 {
					continue
				}
				if k.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		},
	}
}
