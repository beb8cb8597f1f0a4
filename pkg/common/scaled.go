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

package common

import (
	"fmt"
	"math"

	decimal2 "github.com/govalues/decimal"
)

// ScaledInt is a fixed point number V / 10^Scale.
type ScaledInt struct {
	V     int64
	Scale int
}

var pow10 = [...]int64{
	1,
	10,
	100,
	1000,
	10000,
	100000,
	1000000,
	10000000,
	100000000,
	1000000000,
	10000000000,
	100000000000,
	1000000000000,
	10000000000000,
	100000000000000,
	1000000000000000,
	10000000000000000,
	100000000000000000,
	1000000000000000000,
}

func Pow10(n int) int64 {
	if n < 0 || n >= len(pow10) {
		panic(fmt.Sprintf("usp scale %d", n))
	}
	return pow10[n]
}

func NewScaled(v int64, scale int) ScaledInt {
	return ScaledInt{V: v, Scale: scale}
}

// Mul keeps every digit: the scales add up.
func (a ScaledInt) Mul(b ScaledInt) ScaledInt {
	return ScaledInt{V: a.V * b.V, Scale: a.Scale + b.Scale}
}

func (a ScaledInt) MulInt(n int64) ScaledInt {
	return ScaledInt{V: a.V * n, Scale: a.Scale}
}

func (a ScaledInt) Add(b ScaledInt) ScaledInt {
	x, y, s := align(a, b)
	return ScaledInt{V: x + y, Scale: s}
}

func (a ScaledInt) Sub(b ScaledInt) ScaledInt {
	x, y, s := align(a, b)
	return ScaledInt{V: x - y, Scale: s}
}

func align(a, b ScaledInt) (int64, int64, int) {
	switch {
	case a.Scale == b.Scale:
		return a.V, b.V, a.Scale
	case a.Scale < b.Scale:
		return a.V * Pow10(b.Scale-a.Scale), b.V, b.Scale
	default:
		return a.V, b.V * Pow10(a.Scale-b.Scale), a.Scale
	}
}

// Rescale changes the scale. Dropped digits are truncated toward zero.
func (a ScaledInt) Rescale(scale int) ScaledInt {
	if scale >= a.Scale {
		return ScaledInt{V: a.V * Pow10(scale-a.Scale), Scale: scale}
	}
	return ScaledInt{V: a.V / Pow10(a.Scale-scale), Scale: scale}
}

// Div returns a/b with the result scale. b must not be zero.
func (a ScaledInt) Div(b ScaledInt, scale int) ScaledInt {
	// a.V/10^as / (b.V/10^bs) * 10^scale
	shift := scale - a.Scale + b.Scale
	if shift >= 0 {
		return ScaledInt{V: a.V * Pow10(shift) / b.V, Scale: scale}
	}
	return ScaledInt{V: a.V / Pow10(-shift) / b.V, Scale: scale}
}

func (a ScaledInt) Cmp(b ScaledInt) int {
	x, y, _ := align(a, b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func (a ScaledInt) Decimal() decimal2.Decimal {
	d, err := decimal2.New(a.V, a.Scale)
	if err != nil {
		panic(err)
	}
	return d
}

func (a ScaledInt) String() string {
	return a.Decimal().String()
}

// ParseScaled parses a decimal literal into the scale, rounding extra digits.
func ParseScaled(s string, scale int) (ScaledInt, error) {
	d, err := decimal2.Parse(s)
	if err != nil {
		return ScaledInt{}, err
	}
	if d.Scale() > scale {
		d = d.Round(scale)
	}
	coef := d.Coef()
	if coef > math.MaxInt64 {
		return ScaledInt{}, fmt.Errorf("decimal %s out of range", s)
	}
	v := int64(coef)
	if d.Scale() < scale {
		v *= Pow10(scale - d.Scale())
	}
	if d.Sign() < 0 {
		v = -v
	}
	return ScaledInt{V: v, Scale: scale}, nil
}
