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

// Filter copies the rows satisfying Pred into the output in input order.
// Columns lists the input columns copied into output columns 0..n-1. Project
// fills the remaining output columns.
type Filter struct {
	Pred    RowPred
	Columns []int
	Project func(out *table.Table, outRow int, in *table.Table, inRow int)
}

func (f *Filter) Run(in, out *table.Table) error {
	w := table.NewRowWriter(out)
	n := in.NumRow()
	for r := 0; r < n; r++ {
		if f.Pred != nil && !f.Pred(in, r) {
			continue
		}
		row, err := w.Next()
		if err != nil {
			return fmt.Errorf("filter %s: %w", in.Name(), err)
		}
		for i, c := range f.Columns {
			table.CopyField(out, row, i, in, r, c)
		}
		if f.Project != nil {
			f.Project(out, row, in, r)
		}
	}
	return w.Finish()
}

// Count is the number of rows Run emits.
func (f *Filter) Count(in *table.Table) int {
	if f.Pred == nil {
		return in.NumRow()
	}
	cnt := 0
	n := in.NumRow()
	for r := 0; r < n; r++ {
		if f.Pred(in, r) {
			cnt++
		}
	}
	return cnt
}
