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

package tpch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	treemap "github.com/liyue201/gostl/ds/map"
	"go.uber.org/zap"

	"github.com/daviszhen/tpch/pkg/table"
	"github.com/daviszhen/tpch/pkg/util"
)

// DB is the catalog of loaded tables ordered by name.
type DB struct {
	lock   sync.Mutex
	tables *treemap.Map[string, *table.Table]
}

func NewDB() *DB {
	return &DB{
		tables: treemap.New[string, *table.Table](strings.Compare),
	}
}

// Add registers t under its name, replacing a table of the same name.
func (db *DB) Add(t *table.Table) {
	db.lock.Lock()
	defer db.lock.Unlock()
	db.tables.Insert(t.Name(), t)
}

func (db *DB) Table(name string) (*table.Table, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	t, err := db.tables.Get(name)
	if err != nil {
		return nil, fmt.Errorf("no such table %s", name)
	}
	return t, nil
}

// Must is Table for the schema tables every query relies on.
func (db *DB) Must(name string) *table.Table {
	t, err := db.Table(name)
	if err != nil {
		panic(err)
	}
	return t
}

func (db *DB) Names() []string {
	db.lock.Lock()
	defer db.lock.Unlock()
	ret := make([]string, 0, db.tables.Size())
	for iter := db.tables.Begin(); iter.IsValid(); iter.Next() {
		ret = append(ret, iter.Key())
	}
	return ret
}

func (db *DB) Size() int {
	db.lock.Lock()
	defer db.lock.Unlock()
	return db.tables.Size()
}

// Rows is the total live row count.
func (db *DB) Rows() int {
	db.lock.Lock()
	defer db.lock.Unlock()
	sum := 0
	db.tables.Traversal(func(_ string, t *table.Table) bool {
		sum += t.NumRow()
		return true
	})
	return sum
}

// LoadDB loads the eight tables in the configured format:
//
//	bin      <path>/<table>/<column>.bin[.zst]
//	csv      <path>/<table>.tbl, '|' separated
//	parquet  <path>/<table>.parquet
//	gen      generated in memory
func LoadDB(cfg *util.Config) (*DB, error) {
	data := cfg.Tpch.Data
	if data.Format == "gen" {
		return Generate(data.GenOrders, data.GenSeed), nil
	}
	db := NewDB()
	for _, name := range TableNames {
		start := time.Now()
		t := NewTable(name)
		var err error
		switch data.Format {
		case "bin":
			err = table.LoadColumnFiles(t, filepath.Join(data.Path, name))
		case "csv":
			err = table.LoadCSV(t, filepath.Join(data.Path, name+".tbl"), '|')
		case "parquet":
			err = table.LoadParquet(t, filepath.Join(data.Path, name+".parquet"))
		default:
			return nil, fmt.Errorf("usp data format %q", data.Format)
		}
		if err != nil {
			return nil, fmt.Errorf("load table %s: %w", name, err)
		}
		util.Info("load table",
			zap.String("table", name),
			zap.String("format", data.Format),
			zap.Int("rows", t.NumRow()),
			zap.Duration("took", time.Since(start)))
		db.Add(t)
	}
	return db, nil
}

// Save writes every table as column files under dir.
func (db *DB) Save(dir string, compress bool) error {
	for _, name := range db.Names() {
		if err := table.WriteColumnFiles(db.Must(name), filepath.Join(dir, name), compress); err != nil {
			return fmt.Errorf("save table %s: %w", name, err)
		}
	}
	return nil
}
