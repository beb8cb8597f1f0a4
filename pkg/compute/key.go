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
	"strings"

	"github.com/daviszhen/tpch/pkg/common"
	"github.com/daviszhen/tpch/pkg/table"
	"github.com/daviszhen/tpch/pkg/util"
)

const maxKeyFields = 3

// Key is the composite join and group key: up to three integer fields and
// an optional bounded string. Several text parts are joined by 0x00, which
// null padded text fields never contain.
type Key struct {
	N int8
	F [maxKeyFields]int64
	S string
}

func IntKey(fields ...int64) Key {
	if len(fields) > maxKeyFields {
		panic(fmt.Sprintf("key with %d integer fields", len(fields)))
	}
	k := Key{N: int8(len(fields))}
	copy(k.F[:], fields)
	return k
}

func TextKey(parts ...string) Key {
	return Key{}.WithText(parts...)
}

func (k Key) WithText(parts ...string) Key {
	switch len(parts) {
	case 0:
	case 1:
		k.S = parts[0]
	default:
		k.S = strings.Join(parts, "\x00")
	}
	return k
}

// Text splits the string part back into its parts.
func (k Key) Text() []string {
	return strings.Split(k.S, "\x00")
}

// Hash is structural: equal keys hash equally on every table.
func (k Key) Hash() uint64 {
	h := util.Murmurhash64(uint64(k.N))
	for i := 0; i < int(k.N); i++ {
		h = util.CombineHashScalar(h, util.Murmurhash64(uint64(k.F[i])))
	}
	if len(k.S) > 0 {
		h = util.CombineHashScalar(h, util.HashString(k.S))
	}
	return h
}

func (k Key) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 0; i < int(k.N); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprint(&sb, k.F[i])
	}
	if len(k.S) > 0 {
		if k.N > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strings.ReplaceAll(k.S, "\x00", ","))
	}
	sb.WriteByte(')')
	return sb.String()
}

type KeyFunc func(t *table.Table, row int) Key

type RowPred func(t *table.Table, row int) bool

// ValueFunc extracts the integer fed to an aggregate.
type ValueFunc func(t *table.Table, row int) int64

// ColKey keys rows by integer or date columns.
func ColKey(cols ...int) KeyFunc {
	if len(cols) > maxKeyFields {
		panic(fmt.Sprintf("key with %d integer fields", len(cols)))
	}
	return func(t *table.Table, row int) Key {
		k := Key{N: int8(len(cols))}
		for i, c := range cols {
			k.F[i] = t.Int(row, c)
		}
		return k
	}
}

// TextColKey keys rows by text columns.
func TextColKey(cols ...int) KeyFunc {
	return MixedKey(nil, cols)
}

// MixedKey keys rows by integer columns followed by text columns.
func MixedKey(intCols []int, textCols []int) KeyFunc {
	ik := ColKey(intCols...)
	return func(t *table.Table, row int) Key {
		k := ik(t, row)
		switch len(textCols) {
		case 0:
		case 1:
			k.S = t.Text(row, textCols[0])
		default:
			parts := make([]string, len(textCols))
			for i, c := range textCols {
				parts[i] = t.Text(row, c)
			}
			k.S = strings.Join(parts, "\x00")
		}
		return k
	}
}

// ConstKey puts every row into one group.
func ConstKey(*table.Table, int) Key {
	return Key{}
}

// Scaled feeds a fixed point expression to an aggregate. The expression
// must have the given scale, the scale of the column the aggregate lands in.
func Scaled(scale int, f func(t *table.Table, row int) common.ScaledInt) ValueFunc {
	return func(t *table.Table, row int) int64 {
		v := f(t, row)
		if v.Scale != scale {
			panic(fmt.Sprintf("aggregate input of scale %d, want %d", v.Scale, scale))
		}
		return v.V
	}
}

// Col reads an integer column as an aggregate input.
func Col(col int) ValueFunc {
	return func(t *table.Table, row int) int64 {
		return t.Int(row, col)
	}
}
