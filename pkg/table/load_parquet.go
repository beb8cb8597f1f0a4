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

	pqLocal "github.com/xitongsys/parquet-go-source/local"
	pqReader "github.com/xitongsys/parquet-go/reader"

	"github.com/daviszhen/tpch/pkg/common"
)

// LoadParquet fills an unallocated table from a parquet file. Columns map to
// parquet leaf columns by position.
func LoadParquet(t *Table, path string) (err error) {
	pqFile, err := pqLocal.NewLocalFileReader(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pqFile.Close(); err == nil {
			err = cerr
		}
	}()

	reader, err := pqReader.NewParquetColumnReader(pqFile, 1)
	if err != nil {
		return err
	}
	defer reader.ReadStop()

	rows := int(reader.GetNumRows())
	if err = t.Allocate(rows); err != nil {
		return err
	}
	for c := range t.cols {
		values, _, _, err := reader.ReadColumnByIndex(int64(c), int64(rows))
		if err != nil {
			return err
		}
		if len(values) != rows {
			return fmt.Errorf("%w: column %s has %d values, want %d",
				ErrMalformedInput, t.cols[c].Name, len(values), rows)
		}
		for r, v := range values {
			if err = t.setFromParquet(r, c, v); err != nil {
				return fmt.Errorf("%w: %s row %d column %s: %w",
					ErrMalformedInput, path, r+1, t.cols[c].Name, err)
			}
		}
	}
	return t.SetNumRow(rows)
}

func (t *Table) setFromParquet(row, col int, field any) error {
	c := t.cols[col]
	switch fVal := field.(type) {
	case nil:
	case string:
		if c.Kind == KindText {
			return t.SetTextChecked(row, col, fVal)
		}
		return t.setFromString(row, col, fVal)
	case []byte:
		if c.Kind == KindText {
			return t.SetTextChecked(row, col, string(fVal))
		}
		return t.setFromString(row, col, string(fVal))
	case int32:
		if c.Kind == KindDate {
			t.SetDate(row, col, common.DateFromDays(fVal))
			return nil
		}
		return t.SetIntChecked(row, col, int64(fVal))
	case int64:
		return t.SetIntChecked(row, col, fVal)
	case float32:
		return t.setFloat(row, col, float64(fVal))
	case float64:
		return t.setFloat(row, col, fVal)
	case bool:
		if fVal {
			t.SetInt(row, col, 1)
		} else {
			t.SetInt(row, col, 0)
		}
	default:
		return fmt.Errorf("usp parquet value %T", field)
	}
	return nil
}

// setFloat stores f at the column scale.
func (t *Table) setFloat(row, col int, f float64) error {
	v := math.Round(f * math.Pow10(t.cols[col].Scale))
	if math.IsNaN(v) || v >= math.MaxInt64 || v < math.MinInt64 {
		return fmt.Errorf("%w: %v in column %s", ErrValueOverflow, f, t.cols[col].Name)
	}
	return t.SetIntChecked(row, col, int64(v))
}
