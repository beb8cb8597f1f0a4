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
	"errors"
	"fmt"

	"github.com/daviszhen/tpch/pkg/common"
	"github.com/daviszhen/tpch/pkg/table"
)

var ErrSumOverflow = errors.New("sum overflow")

type AggrType int

const (
	AggrSum AggrType = iota
	AggrCount
	AggrCountDistinct
	AggrMin
	AggrMax
	// sum and count, divided at emission
	AggrAvg
)

func (at AggrType) String() string {
	switch at {
	case AggrSum:
		return "sum"
	case AggrCount:
		return "count"
	case AggrCountDistinct:
		return "count_distinct"
	case AggrMin:
		return "min"
	case AggrMax:
		return "max"
	case AggrAvg:
		return "avg"
	}
	return fmt.Sprintf("aggr(%d)", int(at))
}

// Aggr is one reduction. Value may be nil for AggrCount.
type Aggr struct {
	Typ   AggrType
	Value ValueFunc
}

func Sum(v ValueFunc) Aggr {
	return Aggr{Typ: AggrSum, Value: v}
}

func Count() Aggr {
	return Aggr{Typ: AggrCount}
}

func CountDistinct(v ValueFunc) Aggr {
	return Aggr{Typ: AggrCountDistinct, Value: v}
}

func Min(v ValueFunc) Aggr {
	return Aggr{Typ: AggrMin, Value: v}
}

func Max(v ValueFunc) Aggr {
	return Aggr{Typ: AggrMax, Value: v}
}

func Avg(v ValueFunc) Aggr {
	return Aggr{Typ: AggrAvg, Value: v}
}

// Group is the running state of one group key. Row is the first input row
// of the group and carries payload columns that depend on the key.
type Group struct {
	Key Key
	Row int

	aggrs    []Aggr
	vals     []int64
	cnts     []int64
	distinct []map[int64]struct{}
}

func (g *Group) Sum(i int) int64 {
	return g.vals[i]
}

func (g *Group) Min(i int) int64 {
	return g.vals[i]
}

func (g *Group) Max(i int) int64 {
	return g.vals[i]
}

func (g *Group) Count(i int) int64 {
	if g.aggrs[i].Typ == AggrCountDistinct {
		return int64(len(g.distinct[i]))
	}
	return g.cnts[i]
}

// Avg truncates sum/count to an integer.
func (g *Group) Avg(i int) int64 {
	if g.cnts[i] == 0 {
		return 0
	}
	return g.vals[i] / g.cnts[i]
}

// AvgScaled divides a sum of scale-scale values, keeping extra digits.
func (g *Group) AvgScaled(i int, scale int, extra int) common.ScaledInt {
	if g.cnts[i] == 0 {
		return common.NewScaled(0, scale+extra)
	}
	return common.NewScaled(g.vals[i], scale).Div(common.NewScaled(g.cnts[i], 0), scale+extra)
}

// Value is the final value of aggregate i.
func (g *Group) Value(i int) int64 {
	switch g.aggrs[i].Typ {
	case AggrCount, AggrCountDistinct:
		return g.Count(i)
	case AggrAvg:
		return g.Avg(i)
	}
	return g.vals[i]
}

func addChecked(a, b int64) (int64, bool) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return c, false
	}
	return c, true
}

func (g *Group) seed(in *table.Table, row int) {
	for i, aggr := range g.aggrs {
		switch aggr.Typ {
		case AggrCount:
			g.cnts[i] = 1
		case AggrCountDistinct:
			g.distinct[i] = map[int64]struct{}{aggr.Value(in, row): {}}
		default:
			g.vals[i] = aggr.Value(in, row)
			g.cnts[i] = 1
		}
	}
}

func (g *Group) update(in *table.Table, row int) error {
	for i, aggr := range g.aggrs {
		switch aggr.Typ {
		case AggrCount:
			g.cnts[i]++
		case AggrCountDistinct:
			g.distinct[i][aggr.Value(in, row)] = struct{}{}
		case AggrSum, AggrAvg:
			v, ok := addChecked(g.vals[i], aggr.Value(in, row))
			if !ok {
				return fmt.Errorf("%w: %s of group %s", ErrSumOverflow, aggr.Typ, g.Key)
			}
			g.vals[i] = v
			g.cnts[i]++
		case AggrMin:
			g.vals[i] = min(g.vals[i], aggr.Value(in, row))
			g.cnts[i]++
		case AggrMax:
			g.vals[i] = max(g.vals[i], aggr.Value(in, row))
			g.cnts[i]++
		}
	}
	return nil
}

// GroupTable is the aggregation state of one input.
type GroupTable struct {
	in     *table.Table
	groups map[Key]*Group
}

func (gt *GroupTable) Len() int {
	return len(gt.groups)
}

func (gt *GroupTable) Input() *table.Table {
	return gt.in
}

func (gt *GroupTable) Get(k Key) *Group {
	return gt.groups[k]
}

// Each visits the groups in unspecified order.
func (gt *GroupTable) Each(fn func(g *Group) error) error {
	for _, g := range gt.groups {
		if err := fn(g); err != nil {
			return err
		}
	}
	return nil
}

// GroupBy is a hash aggregation. Emit writes one output row per group.
// Groups come out in unspecified order.
type GroupBy struct {
	Key   KeyFunc
	Pred  RowPred
	Aggrs []Aggr
	Emit  func(out *table.Table, outRow int, in *table.Table, g *Group)
}

func (gb *GroupBy) Groups(in *table.Table) (*GroupTable, error) {
	gt := &GroupTable{
		in:     in,
		groups: make(map[Key]*Group),
	}
	n := in.NumRow()
	for r := 0; r < n; r++ {
		if gb.Pred != nil && !gb.Pred(in, r) {
			continue
		}
		k := gb.Key(in, r)
		g, ok := gt.groups[k]
		if !ok {
			g = &Group{
				Key:      k,
				Row:      r,
				aggrs:    gb.Aggrs,
				vals:     make([]int64, len(gb.Aggrs)),
				cnts:     make([]int64, len(gb.Aggrs)),
				distinct: make([]map[int64]struct{}, len(gb.Aggrs)),
			}
			g.seed(in, r)
			gt.groups[k] = g
			continue
		}
		if err := g.update(in, r); err != nil {
			return nil, err
		}
	}
	return gt, nil
}

func (gb *GroupBy) EmitGroups(gt *GroupTable, out *table.Table) error {
	w := table.NewRowWriter(out)
	err := gt.Each(func(g *Group) error {
		row, err := w.Next()
		if err != nil {
			return err
		}
		if gb.Emit != nil {
			gb.Emit(out, row, gt.in, g)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("group by %s: %w", gt.in.Name(), err)
	}
	return w.Finish()
}

func (gb *GroupBy) Run(in, out *table.Table) error {
	gt, err := gb.Groups(in)
	if err != nil {
		return err
	}
	return gb.EmitGroups(gt, out)
}
