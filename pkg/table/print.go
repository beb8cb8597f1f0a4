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
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// FormatField renders a field by its column kind.
func (t *Table) FormatField(row, col int) string {
	c := t.cols[col]
	switch c.Kind {
	case KindText:
		return t.Text(row, col)
	case KindDate:
		return t.Date(row, col).String()
	default:
		if c.Scale > 0 {
			return t.Scaled(row, col).String()
		}
		return strconv.FormatInt(t.Int(row, col), 10)
	}
}

// Print writes the first n rows. n <= 0 prints all.
func Print(w io.Writer, t *Table, n int, headline bool) error {
	rows := t.NumRow()
	if n > 0 && n < rows {
		rows = n
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fields := make([]string, t.ColumnCount())
	if headline {
		for i, col := range t.cols {
			fields[i] = col.Name
		}
		if _, err := fmt.Fprintln(tw, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	for r := 0; r < rows; r++ {
		for c := range t.cols {
			fields[c] = t.FormatField(r, c)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if rows < t.NumRow() {
		_, err := fmt.Fprintf(w, "... %d rows total\n", t.NumRow())
		return err
	}
	return nil
}
