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

package tpch

import (
	"bytes"

	"github.com/daviszhen/tpch/pkg/common"
	"github.com/daviszhen/tpch/pkg/compute"
	"github.com/daviszhen/tpch/pkg/table"
)

type Query func(e *Engine) (*table.Table, error)

const QueryCount = 22

var Queries = [QueryCount]Query{
	q1, q2, q3, q4, q5, q6, q7, q8, q9, q10, q11,
	q12, q13, q14, q15, q16, q17, q18, q19, q20, q21, q22,
}

type emitFunc = func(out *table.Table, outRow int, build *table.Table, buildRow int, probe *table.Table, probeRow int)

// pick is a column of the build or the probe side of a join.
type pick struct {
	build bool
	col   int
}

func bcol(col int) pick {
	return pick{build: true, col: col}
}

func pcol(col int) pick {
	return pick{col: col}
}

// joined is the output schema of a join: the picked columns followed by
// the extra ones.
func joined(name string, build, probe *table.Table, picks []pick, extra ...table.Column) *table.Table {
	cols := make([]table.Column, 0, len(picks)+len(extra))
	for _, p := range picks {
		if p.build {
			cols = append(cols, build.Column(p.col))
		} else {
			cols = append(cols, probe.Column(p.col))
		}
	}
	return table.New(name, append(cols, extra...)...)
}

// emitPicks copies the picked columns into the leading output columns and
// lets extra fill the rest.
func emitPicks(picks []pick, extra emitFunc) emitFunc {
	return func(out *table.Table, outRow int, build *table.Table, buildRow int, probe *table.Table, probeRow int) {
		for i, p := range picks {
			if p.build {
				table.CopyField(out, outRow, i, build, buildRow, p.col)
			} else {
				table.CopyField(out, outRow, i, probe, probeRow, p.col)
			}
		}
		if extra != nil {
			extra(out, outRow, build, buildRow, probe, probeRow)
		}
	}
}

func money(name string) table.Column {
	return table.ScaledCol(name, 2)
}

func date(y, m, d int) common.Date {
	return common.NewDate(y, m, d)
}

func textEq(col int, s string) compute.RowPred {
	b := []byte(s)
	return func(t *table.Table, row int) bool {
		return bytes.Equal(t.TextBytes(row, col), b)
	}
}

func textIn(col int, ss ...string) compute.RowPred {
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		set[s] = struct{}{}
	}
	return func(t *table.Table, row int) bool {
		_, ok := set[string(t.TextBytes(row, col))]
		return ok
	}
}

// textLike matches the pattern %p0%p1%...%: the parts in order.
func textLike(col int, parts ...string) compute.RowPred {
	bs := make([][]byte, len(parts))
	for i, p := range parts {
		bs[i] = []byte(p)
	}
	return func(t *table.Table, row int) bool {
		return like(t.TextBytes(row, col), bs)
	}
}

func like(s []byte, parts [][]byte) bool {
	for _, p := range parts {
		i := bytes.Index(s, p)
		if i < 0 {
			return false
		}
		s = s[i+len(p):]
	}
	return true
}

func textPrefix(col int, prefix string) compute.RowPred {
	b := []byte(prefix)
	return func(t *table.Table, row int) bool {
		return bytes.HasPrefix(t.TextBytes(row, col), b)
	}
}

// dateIn is lo <= d < hi.
func dateIn(col int, lo, hi common.Date) compute.RowPred {
	return func(t *table.Table, row int) bool {
		d := t.Date(row, col)
		return d >= lo && d < hi
	}
}

func and(preds ...compute.RowPred) compute.RowPred {
	return func(t *table.Table, row int) bool {
		for _, pred := range preds {
			if !pred(t, row) {
				return false
			}
		}
		return true
	}
}

func not(pred compute.RowPred) compute.RowPred {
	return func(t *table.Table, row int) bool {
		return !pred(t, row)
	}
}

var (
	one     = common.NewScaled(1, 0)
	hundred = common.NewScaled(100, 0)
)

// revenue is extendedprice * (1 - discount). Money columns have scale 2, so
// the product has scale 4.
func revenue(t *table.Table, row, ext, disc int) common.ScaledInt {
	return t.Scaled(row, ext).Mul(one.Sub(t.Scaled(row, disc)))
}

func lineRevenue(t *table.Table, row int) common.ScaledInt {
	return revenue(t, row, lExtendedprice, lDiscount)
}

// sumOf reads the sum of aggregate i over a column of in.
func sumOf(g *compute.Group, i int, in *table.Table, col int) common.ScaledInt {
	return common.NewScaled(g.Sum(i), in.Column(col).Scale)
}

func year(t *table.Table, row, col int) int64 {
	return int64(t.Date(row, col).Year())
}

// uniqueJoin joins on single column keys with a unique build side.
func uniqueJoin(buildCol, probeCol int) *compute.HashJoin {
	return &compute.HashJoin{
		Typ:      compute.JoinTypeInner,
		Unique:   true,
		BuildKey: compute.ColKey(buildCol),
		ProbeKey: compute.ColKey(probeCol),
	}
}
