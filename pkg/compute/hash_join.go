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
	"fmt"

	"github.com/daviszhen/tpch/pkg/table"
)

type JoinType int

const (
	JoinTypeInner JoinType = iota
	// probe rows with at least one match
	JoinTypeSemi
	// probe rows without any match
	JoinTypeAnti
	// every probe row, matched or not
	JoinTypeLeft
)

func (jt JoinType) String() string {
	switch jt {
	case JoinTypeInner:
		return "inner"
	case JoinTypeSemi:
		return "semi"
	case JoinTypeAnti:
		return "anti"
	case JoinTypeLeft:
		return "left"
	}
	return fmt.Sprintf("join(%d)", int(jt))
}

// HashJoin builds a hash table over the build side and probes it with
// every probe row.
//
// Unique builds a map (first row per key, or the last with KeepLast),
// otherwise a multimap. Match is a residual predicate over a key match.
// Emit writes one output row; buildRow is -1 for anti join rows and for
// unmatched left join rows.
//
// The callbacks get the tables as arguments and must not capture them: a
// partitioned join hands them partition views.
type HashJoin struct {
	Typ      JoinType
	Unique   bool
	KeepLast bool

	BuildKey  KeyFunc
	ProbeKey  KeyFunc
	BuildPred RowPred
	ProbePred RowPred

	Match func(build *table.Table, buildRow int, probe *table.Table, probeRow int) bool
	Emit  func(out *table.Table, outRow int, build *table.Table, buildRow int, probe *table.Table, probeRow int)
}

// JoinHashTable chains build rows with the same key through next.
type JoinHashTable struct {
	build *table.Table
	heads map[Key]int32
	next  []int32
	count int
}

func (ht *JoinHashTable) Build() *table.Table {
	return ht.build
}

// Count is the number of build rows kept.
func (ht *JoinHashTable) Count() int {
	return ht.count
}

func (ht *JoinHashTable) Keys() int {
	return len(ht.heads)
}

// Lookup returns the first build row of the key chain, or -1.
func (ht *JoinHashTable) Lookup(k Key) int {
	if head, ok := ht.heads[k]; ok {
		return int(head)
	}
	return -1
}

// Next returns the build row after row in its chain, or -1.
func (ht *JoinHashTable) Next(row int) int {
	return int(ht.next[row])
}

func (hj *HashJoin) Build(build *table.Table) *JoinHashTable {
	n := build.NumRow()
	ht := &JoinHashTable{
		build: build,
		heads: make(map[Key]int32),
		next:  make([]int32, n),
	}
	for r := 0; r < n; r++ {
		if hj.BuildPred != nil && !hj.BuildPred(build, r) {
			continue
		}
		k := hj.BuildKey(build, r)
		head, ok := ht.heads[k]
		if hj.Unique {
			if ok && !hj.KeepLast {
				continue
			}
			ht.next[r] = -1
			ht.heads[k] = int32(r)
			if !ok {
				ht.count++
			}
			continue
		}
		if ok {
			ht.next[r] = head
		} else {
			ht.next[r] = -1
		}
		ht.heads[k] = int32(r)
		ht.count++
	}
	return ht
}

func (hj *HashJoin) matches(ht *JoinHashTable, b int, probe *table.Table, r int) bool {
	return hj.Match == nil || hj.Match(ht.build, b, probe, r)
}

func (hj *HashJoin) probe(ht *JoinHashTable, probe *table.Table, emit func(buildRow, probeRow int) error) error {
	n := probe.NumRow()
	for r := 0; r < n; r++ {
		if hj.ProbePred != nil && !hj.ProbePred(probe, r) {
			continue
		}
		head := ht.Lookup(hj.ProbeKey(probe, r))
		switch hj.Typ {
		case JoinTypeInner:
			for b := head; b >= 0; b = ht.Next(b) {
				if !hj.matches(ht, b, probe, r) {
					continue
				}
				if err := emit(b, r); err != nil {
					return err
				}
			}
		case JoinTypeSemi, JoinTypeAnti:
			found := -1
			for b := head; b >= 0; b = ht.Next(b) {
				if hj.matches(ht, b, probe, r) {
					found = b
					break
				}
			}
			if (hj.Typ == JoinTypeSemi) == (found >= 0) {
				if err := emit(found, r); err != nil {
					return err
				}
			}
		case JoinTypeLeft:
			matched := false
			for b := head; b >= 0; b = ht.Next(b) {
				if !hj.matches(ht, b, probe, r) {
					continue
				}
				matched = true
				if err := emit(b, r); err != nil {
					return err
				}
			}
			if !matched {
				if err := emit(-1, r); err != nil {
					return err
				}
			}
		default:
			panic(fmt.Sprintf("usp join type %v", hj.Typ))
		}
	}
	return nil
}

// Probe writes the joined rows into out.
func (hj *HashJoin) Probe(ht *JoinHashTable, probe, out *table.Table) error {
	w := table.NewRowWriter(out)
	err := hj.probe(ht, probe, func(buildRow, probeRow int) error {
		row, err := w.Next()
		if err != nil {
			return err
		}
		if hj.Emit != nil {
			hj.Emit(out, row, ht.build, buildRow, probe, probeRow)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s join %s with %s: %w", hj.Typ, ht.build.Name(), probe.Name(), err)
	}
	return w.Finish()
}

// Count is the number of rows Probe emits.
func (hj *HashJoin) Count(ht *JoinHashTable, probe *table.Table) int {
	cnt := 0
	_ = hj.probe(ht, probe, func(int, int) error {
		cnt++
		return nil
	})
	return cnt
}

func (hj *HashJoin) Run(build, probe, out *table.Table) error {
	return hj.Probe(hj.Build(build), probe, out)
}
