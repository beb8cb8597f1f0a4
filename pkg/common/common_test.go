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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_date(t *testing.T) {
	d := NewDate(1998, 12, 1)
	assert.Equal(t, Date(19981201), d)
	assert.Equal(t, "1998-12-01", d.String())
	assert.Equal(t, NewDate(1998, 9, 2), d.AddDate(0, 0, -90))
	assert.Equal(t, NewDate(1996, 3, 1), NewDate(1996, 2, 29).AddDate(0, 0, 1))
	assert.Equal(t, NewDate(1995, 1, 1), NewDate(1994, 10, 1).AddDate(0, 3, 0))
	assert.Equal(t, 1998, d.Year())
	assert.Equal(t, 12, d.Month())
	assert.Equal(t, 1, d.Day())
	assert.Equal(t, NewDate(1970, 1, 11), DateFromDays(10))

	p, err := ParseDate("1995-03-15")
	require.NoError(t, err)
	assert.Equal(t, NewDate(1995, 3, 15), p)
	assert.Less(t, NewDate(1995, 3, 14), p)
	_, err = ParseDate("1995-13-01")
	assert.Error(t, err)
	assert.Panics(t, func() { MustParseDate("bad") })
}

func Test_scaled(t *testing.T) {
	price := NewScaled(90100, 2)
	disc := NewScaled(6, 2)
	one := NewScaled(1, 0)

	assert.Equal(t, "901.00", price.String())
	rev := price.Mul(one.Sub(disc))
	assert.Equal(t, NewScaled(8469400, 4), rev)
	assert.Equal(t, "846.9400", rev.String())
	assert.Equal(t, NewScaled(84694, 2), rev.Rescale(2))
	assert.Equal(t, NewScaled(901000, 3), price.Rescale(3))
	assert.Equal(t, NewScaled(270300, 2), price.MulInt(3))

	avg := NewScaled(500, 0).Div(NewScaled(3, 0), 2)
	assert.Equal(t, NewScaled(16666, 2), avg)
	assert.Equal(t, NewScaled(5, 1), NewScaled(1, 0).Div(NewScaled(200, 2), 1))

	assert.Equal(t, 0, NewScaled(10, 1).Cmp(NewScaled(100, 2)))
	assert.Equal(t, -1, NewScaled(-1, 2).Cmp(NewScaled(0, 0)))
	assert.Equal(t, 1, price.Cmp(NewScaled(900, 0)))
	assert.Panics(t, func() { Pow10(19) })
}

func Test_parseScaled(t *testing.T) {
	for _, c := range []struct {
		in    string
		scale int
		want  int64
	}{
		{"901.00", 2, 90100},
		{"0.06", 2, 6},
		{"-57.5", 2, -5750},
		{"17", 0, 17},
		{"17", 2, 1700},
		{"1.004", 2, 100},
	} {
		v, err := ParseScaled(c.in, c.scale)
		require.NoError(t, err, c.in)
		assert.Equal(t, NewScaled(c.want, c.scale), v, c.in)
	}
	_, err := ParseScaled("12a", 2)
	assert.Error(t, err)
}
