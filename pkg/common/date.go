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
	"time"
)

// Date is a calendar day stored as the integer YYYYMMDD.
type Date int32

func NewDate(year, month, day int) Date {
	return Date(year*10000 + month*100 + day)
}

func DateFromTime(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// DateFromDays converts days since 1970-01-01.
func DateFromDays(days int32) Date {
	return DateFromTime(time.Date(1970, 1, int(1+days), 0, 0, 0, 0, time.UTC))
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return 0, err
	}
	return DateFromTime(t), nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int {
	return int(d) / 10000
}

func (d Date) Month() int {
	return int(d) / 100 % 100
}

func (d Date) Day() int {
	return int(d) % 100
}

func (d Date) Time() time.Time {
	return time.Date(d.Year(), time.Month(d.Month()), d.Day(), 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDate(years, months, days int) Date {
	return DateFromTime(d.Time().AddDate(years, months, days))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
}
