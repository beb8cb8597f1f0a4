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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/tpch/pkg/accel"
	"github.com/daviszhen/tpch/pkg/compute"
	"github.com/daviszhen/tpch/pkg/table"
	"github.com/daviszhen/tpch/pkg/util"
)

func rowsOf(tab *table.Table) []string {
	ret := make([]string, tab.NumRow())
	fields := make([]string, tab.ColumnCount())
	for r := range ret {
		for c := range fields {
			fields[c] = tab.FormatField(r, c)
		}
		ret[r] = strings.Join(fields, "|")
	}
	return ret
}

// multiset ignores the order of rows with equal sort keys.
func multiset(tab *table.Table) []string {
	ret := rowsOf(tab)
	slices.Sort(ret)
	return ret
}

func partitionedJoins() float64 {
	sum := 0.0
	for _, typ := range []compute.JoinType{compute.JoinTypeInner, compute.JoinTypeSemi, compute.JoinTypeAnti, compute.JoinTypeLeft} {
		sum += testutil.ToFloat64(stageCounter.WithLabelValues(typ.String()+" join", pathPartitioned))
	}
	return sum
}

func testEngine(t *testing.T, cfg *util.Config, db *DB) *Engine {
	dev, err := accel.Lookup(cfg.Exec.Device)
	require.NoError(t, err)
	return NewEngine(context.Background(), cfg, db, dev, t.Name())
}

func Test_generate(t *testing.T) {
	db := Generate(300, 7)
	assert.Equal(t, []string{Customer, Lineitem, Nation, Orders, Part, PartSupp, Region, Supplier}, db.Names())
	assert.Equal(t, 300, db.Must(Orders).NumRow())
	assert.Equal(t, 25, db.Must(Nation).NumRow())

	again := Generate(300, 7)
	assert.Equal(t, rowsOf(db.Must(Lineitem)), rowsOf(again.Must(Lineitem)))

	ps := map[[2]int64]bool{}
	partsupp := db.Must(PartSupp)
	for r := 0; r < partsupp.NumRow(); r++ {
		k := [2]int64{partsupp.Int(r, psPartkey), partsupp.Int(r, psSuppkey)}
		assert.False(t, ps[k], "duplicate partsupp %v", k)
		ps[k] = true
	}
	li := db.Must(Lineitem)
	lines := map[int64]int{}
	for r := 0; r < li.NumRow(); r++ {
		k := [2]int64{li.Int(r, lPartkey), li.Int(r, lSuppkey)}
		require.True(t, ps[k], "lineitem %d has no partsupp %v", r, k)
		assert.LessOrEqual(t, li.Date(r, lShipdate), li.Date(r, lReceiptdate))
		lines[li.Int(r, lOrderkey)]++
	}
	orders := db.Must(Orders)
	for r := 0; r < orders.NumRow(); r++ {
		assert.NotZero(t, orders.Int(r, oCustkey)%3)
		n := lines[orders.Int(r, oOrderkey)]
		assert.True(t, n >= 1 && n <= 7)
	}
}

func Test_catalog(t *testing.T) {
	db := NewDB()
	db.Add(NewTable(Region))
	_, err := db.Table(Nation)
	assert.Error(t, err)
	assert.Panics(t, func() { db.Must(Nation) })
	assert.Panics(t, func() { NewTable("nope") })
	tab, err := db.Table(Region)
	require.NoError(t, err)
	assert.Equal(t, Region, tab.Name())
	assert.Equal(t, 1, db.Size())
}

func Test_pricingSummary(t *testing.T) {
	db := Generate(1500, 1)
	cfg := util.DefaultConfig()
	out, err := RunQuery(testEngine(t, cfg, db), 1)
	require.NoError(t, err)
	require.Greater(t, out.NumRow(), 0)
	require.LessOrEqual(t, out.NumRow(), 4)

	li := db.Must(Lineitem)
	cutoff := date(1998, 9, 2)
	var qty, cnt int64
	for r := 0; r < li.NumRow(); r++ {
		if li.Date(r, lShipdate) <= cutoff {
			qty += li.Int(r, lQuantity)
			cnt++
		}
	}
	var gotQty, gotCnt int64
	keys := make([]string, 0, out.NumRow())
	for r := 0; r < out.NumRow(); r++ {
		gotQty += out.Int(r, 2)
		gotCnt += out.Int(r, 9)
		keys = append(keys, out.Text(r, 0)+out.Text(r, 1))
	}
	assert.Equal(t, qty, gotQty)
	assert.Equal(t, cnt, gotCnt)
	assert.True(t, slices.IsSorted(keys))
}

func Test_allQueries(t *testing.T) {
	db := Generate(1500, 1)
	e := testEngine(t, util.DefaultConfig(), db)
	for id := 1; id <= QueryCount; id++ {
		out, err := RunQuery(e, id)
		require.NoError(t, err, "query %d", id)
		require.NotNil(t, out)
		assert.True(t, strings.HasPrefix(e.Plan(), fmt.Sprintf("Q%d", id)))
	}
	_, err := RunQuery(e, 0)
	assert.Error(t, err)
	_, err = RunQuery(e, 23)
	assert.Error(t, err)
}

func Test_forecastRevenue(t *testing.T) {
	db := Generate(1500, 1)
	out, err := RunQuery(testEngine(t, util.DefaultConfig(), db), 6)
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRow())

	li := db.Must(Lineitem)
	lo, hi := date(1994, 1, 1), date(1995, 1, 1)
	// extendedprice and discount are in cents, their product has scale 4
	var want int64
	for r := 0; r < li.NumRow(); r++ {
		d, disc := li.Date(r, lShipdate), li.Int(r, lDiscount)
		if d >= lo && d < hi && disc >= 5 && disc <= 7 && li.Int(r, lQuantity) < 24 {
			want += li.Int(r, lExtendedprice) * disc
		}
	}
	assert.NotZero(t, want)
	assert.Equal(t, 4, out.Column(0).Scale)
	assert.Equal(t, want, out.Int(0, 0))
}

func Test_promotionEffect(t *testing.T) {
	db := Generate(1500, 1)
	out, err := RunQuery(testEngine(t, util.DefaultConfig(), db), 14)
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRow())

	part, li := db.Must(Part), db.Must(Lineitem)
	promo := map[int64]bool{}
	for r := 0; r < part.NumRow(); r++ {
		promo[part.Int(r, pPartkey)] = strings.HasPrefix(part.Text(r, pType), "PROMO")
	}
	lo, hi := date(1995, 9, 1), date(1995, 10, 1)
	var promoRev, totalRev int64
	for r := 0; r < li.NumRow(); r++ {
		if d := li.Date(r, lShipdate); d < lo || d >= hi {
			continue
		}
		isPromo, ok := promo[li.Int(r, lPartkey)]
		require.True(t, ok)
		rev := li.Int(r, lExtendedprice) * (100 - li.Int(r, lDiscount))
		totalRev += rev
		if isPromo {
			promoRev += rev
		}
	}
	require.NotZero(t, totalRev)
	// 100 * promo / total in cents
	assert.Equal(t, promoRev*100*100/totalRev, out.Int(0, 0))
	assert.Equal(t, 2, out.Column(0).Scale)
}

func Test_singleRowQueries(t *testing.T) {
	e := testEngine(t, util.DefaultConfig(), Generate(1500, 1))
	for _, id := range []int{6, 14, 17, 19} {
		out, err := RunQuery(e, id)
		require.NoError(t, err)
		assert.Equal(t, 1, out.NumRow(), "query %d", id)
	}
}

func Test_customerDistribution(t *testing.T) {
	db := Generate(1500, 1)
	out, err := RunQuery(testEngine(t, util.DefaultConfig(), db), 13)
	require.NoError(t, err)
	// every customer is counted once
	var total int64
	for r := 0; r < out.NumRow(); r++ {
		total += out.Int(r, 1)
	}
	assert.Equal(t, int64(db.Must(Customer).NumRow()), total)
}

func Test_partitionedEqualsPlain(t *testing.T) {
	db := Generate(3000, 2)
	plain := testEngine(t, util.DefaultConfig(), db)

	cfg := util.DefaultConfig()
	cfg.Exec.Partitions = 4
	cfg.Exec.PartitionRows = 1000
	cfg.Exec.OverAlloc = 2
	cfg.Exec.Parallel = 2
	parted := testEngine(t, cfg, db)

	before := partitionedJoins()
	for id := 1; id <= QueryCount; id++ {
		want, err := RunQuery(plain, id)
		require.NoError(t, err, "query %d", id)
		got, err := RunQuery(parted, id)
		require.NoError(t, err, "query %d", id)
		assert.Equal(t, multiset(want), multiset(got), "query %d", id)
	}
	assert.Greater(t, partitionedJoins(), before)
}

func Test_deviceOffload(t *testing.T) {
	db := Generate(1500, 3)
	plain := testEngine(t, util.DefaultConfig(), db)

	cfg := util.DefaultConfig()
	cfg.Exec.OffloadRows = 1000
	dev := accel.NewCPU()
	offload := NewEngine(context.Background(), cfg, db, dev, t.Name())
	for _, id := range []int{1, 3, 4, 10, 12, 18} {
		want, err := RunQuery(plain, id)
		require.NoError(t, err)
		got, err := RunQuery(offload, id)
		require.NoError(t, err)
		assert.Equal(t, multiset(want), multiset(got), "query %d", id)
	}
	assert.Greater(t, dev.Stages(), int64(0))
	assert.Contains(t, offload.Plan(), "["+pathDevice+"]")
}

// partitionDevice counts the partition stages handed to it.
type partitionDevice struct {
	*accel.CPU
	parts atomic.Int64
}

func (d *partitionDevice) Partition(ctx context.Context, op *compute.Partitioner, in *table.Table) (*table.Table, error) {
	d.parts.Add(1)
	return d.CPU.Partition(ctx, op, in)
}

func Test_devicePartition(t *testing.T) {
	db := Generate(3000, 2)
	plain := testEngine(t, util.DefaultConfig(), db)

	cfg := util.DefaultConfig()
	cfg.Exec.OffloadRows = 1000
	cfg.Exec.Partitions = 4
	cfg.Exec.PartitionRows = 1000
	cfg.Exec.OverAlloc = 2
	cfg.Exec.Parallel = 2
	dev := &partitionDevice{CPU: accel.NewCPU()}
	e := NewEngine(context.Background(), cfg, db, dev, t.Name())
	for id := 1; id <= QueryCount; id++ {
		want, err := RunQuery(plain, id)
		require.NoError(t, err, "query %d", id)
		got, err := RunQuery(e, id)
		require.NoError(t, err, "query %d", id)
		assert.Equal(t, multiset(want), multiset(got), "query %d", id)
	}
	// build and probe of every device partitioned join
	assert.Greater(t, dev.parts.Load(), int64(0))
	assert.Zero(t, dev.parts.Load()%2)
}

func Test_engineStages(t *testing.T) {
	db := Generate(300, 4)
	e := testEngine(t, util.DefaultConfig(), db)
	e.Begin(99)
	li := db.Must(Lineitem)

	before := testutil.ToFloat64(stageRowsCounter.WithLabelValues("filter"))
	shipped, err := e.Select(li, "shipped", textEq(lLinestatus, "F"), lOrderkey, lLinestatus)
	require.NoError(t, err)
	assert.Equal(t, float64(shipped.NumRow()), testutil.ToFloat64(stageRowsCounter.WithLabelValues("filter"))-before)

	sorted, err := e.Sort(shipped, 5, compute.Desc(0))
	require.NoError(t, err)
	assert.Equal(t, min(5, shipped.NumRow()), sorted.NumRow())

	plan := e.Plan()
	assert.True(t, strings.HasPrefix(plan, "Q99"))
	assert.Contains(t, plan, "filter[cpu] shipped")
	assert.Contains(t, plan, "sort[cpu] shipped_sorted")
}

func Test_textLike(t *testing.T) {
	parts := [][]byte{[]byte("special"), []byte("requests")}
	assert.True(t, like([]byte("the special deposits requests"), parts))
	assert.True(t, like([]byte("specialrequests"), parts))
	assert.False(t, like([]byte("requests special"), parts))
	assert.False(t, like([]byte("special"), parts))
}

func Test_loadFormats(t *testing.T) {
	db := Generate(200, 5)
	dir := t.TempDir()
	require.NoError(t, db.Save(filepath.Join(dir, "bin"), false))
	require.NoError(t, db.Save(filepath.Join(dir, "zst"), true))

	csvDir := filepath.Join(dir, "csv")
	require.NoError(t, os.MkdirAll(csvDir, 0755))
	for _, name := range TableNames {
		f, err := os.Create(filepath.Join(csvDir, name+".tbl"))
		require.NoError(t, err)
		for _, row := range rowsOf(db.Must(name)) {
			_, err = f.WriteString(row + "|\n")
			require.NoError(t, err)
		}
		require.NoError(t, f.Close())
	}

	for _, c := range []struct {
		format string
		path   string
	}{
		{"bin", filepath.Join(dir, "bin")},
		{"bin", filepath.Join(dir, "zst")},
		{"csv", csvDir},
	} {
		cfg := util.DefaultConfig()
		cfg.Tpch.Data.Format = c.format
		cfg.Tpch.Data.Path = c.path
		loaded, err := LoadDB(cfg)
		require.NoError(t, err, "%s %s", c.format, c.path)
		for _, name := range TableNames {
			assert.Equal(t, rowsOf(db.Must(name)), rowsOf(loaded.Must(name)), "%s %s", c.path, name)
		}
	}
}

func Test_run(t *testing.T) {
	cfg := util.DefaultConfig()
	cfg.Tpch.Query.QueryId = 6
	cfg.Tpch.Data.GenOrders = 300
	cfg.Tpch.Result.Path = t.TempDir()
	cfg.Debug.PrintResult = false
	cfg.Debug.Count = 2

	before := testutil.ToFloat64(QuerySuccessCounter)
	require.NoError(t, Run(cfg))
	assert.Equal(t, float64(2), testutil.ToFloat64(QuerySuccessCounter)-before)

	data, err := os.ReadFile(filepath.Join(cfg.Tpch.Result.Path, "q6.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "revenue"))

	cfg.Exec.Device = "fpga"
	assert.Error(t, Run(cfg))
	assert.Error(t, Run(nil))
}
