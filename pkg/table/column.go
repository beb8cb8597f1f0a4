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

import "fmt"

type Kind uint8

const (
	KindInt Kind = iota
	KindDate
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDate:
		return "date"
	case KindText:
		return "text"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Column describes one fixed width column.
// Scale is the power of ten divisor of a fixed point integer column.
type Column struct {
	Name    string
	Width   int
	Kind    Kind
	Scale   int
	IsRowID bool
	// visible to the accelerator
	Accel bool
}

func (col Column) String() string {
	if col.Scale != 0 {
		return fmt.Sprintf("%s %s(%d,%d)", col.Name, col.Kind, col.Width, col.Scale)
	}
	return fmt.Sprintf("%s %s(%d)", col.Name, col.Kind, col.Width)
}

func (col Column) validate() error {
	switch col.Kind {
	case KindInt, KindDate:
		switch col.Width {
		case 1, 2, 4, 8:
		default:
			return fmt.Errorf("%w: column %s width %d", ErrWidthMismatch, col.Name, col.Width)
		}
	case KindText:
		if col.Width <= 0 {
			return fmt.Errorf("%w: column %s width %d", ErrWidthMismatch, col.Name, col.Width)
		}
	default:
		return fmt.Errorf("usp kind %v of column %s", col.Kind, col.Name)
	}
	return nil
}

func Int32Col(name string) Column {
	return Column{Name: name, Width: 4, Kind: KindInt, Accel: true}
}

func Int64Col(name string) Column {
	return Column{Name: name, Width: 8, Kind: KindInt, Accel: true}
}

// ScaledCol is an int64 fixed point column.
func ScaledCol(name string, scale int) Column {
	return Column{Name: name, Width: 8, Kind: KindInt, Scale: scale, Accel: true}
}

func DateCol(name string) Column {
	return Column{Name: name, Width: 4, Kind: KindDate, Accel: true}
}

func TextCol(name string, width int) Column {
	return Column{Name: name, Width: width, Kind: KindText}
}

func RowIDCol(name string) Column {
	return Column{Name: name, Width: 8, Kind: KindInt, IsRowID: true, Accel: true}
}
