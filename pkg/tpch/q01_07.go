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
	"bytes"

	"github.com/daviszhen/tpch/pkg/common"
	"github.com/daviszhen/tpch/pkg/compute"
	"github.com/daviszhen/tpch/pkg/table"
)

// pricing summary report
func q1(e *Engine) (*table.Table, error) {
	li := e.db.Must(Lineitem)
	cutoff := date(1998, 12, 1).AddDate(0, 0, -90)
	shipped, err := e.Select(li, "q1_shipped",
		func(t *table.Table, row int) bool { return t.Date(row, lShipdate) <= cutoff },
		lReturnflag, lLinestatus, lQuantity, lExtendedprice, lDiscount, lTax)
	if err != nil {
		return nil, err
	}

	out := table.New("q1",
		table.TextCol("l_returnflag", 1),
		table.TextCol("l_linestatus", 1),
		table.ScaledCol("sum_qty", 0),
		money("sum_base_price"),
		table.ScaledCol("sum_disc_price", 4),
		table.ScaledCol("sum_charge", 6),
		money("avg_qty"),
		money("avg_price"),
		money("avg_disc"),
		table.Int64Col("count_order"),
	)
	gb := &compute.GroupBy{
		Key: compute.TextColKey(0, 1),
		Aggrs: []compute.Aggr{
			compute.Sum(compute.Col(2)),
			compute.Sum(compute.Col(3)),
			compute.Sum(compute.Scaled(4, func(t *table.Table, row int) common.ScaledInt {
				return revenue(t, row, 3, 4)
			})),
			compute.Sum(compute.Scaled(6, func(t *table.Table, row int) common.ScaledInt {
				return revenue(t, row, 3, 4).Mul(one.Add(t.Scaled(row, 5)))
			})),
			compute.Avg(compute.Col(2)),
			compute.Avg(compute.Col(3)),
			compute.Avg(compute.Col(4)),
			compute.Count(),
		},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			table.CopyField(out, outRow, 1, in, g.Row, 1)
			out.SetScaled(outRow, 2, sumOf(g, 0, in, 2))
			out.SetScaled(outRow, 3, sumOf(g, 1, in, 3))
			out.SetScaled(outRow, 4, common.NewScaled(g.Sum(2), 4))
			out.SetScaled(outRow, 5, common.NewScaled(g.Sum(3), 6))
			out.SetScaled(outRow, 6, g.AvgScaled(4, 0, 2))
			out.SetScaled(outRow, 7, g.AvgScaled(5, 2, 0))
			out.SetScaled(outRow, 8, g.AvgScaled(6, 2, 0))
			out.SetInt(outRow, 9, g.Count(7))
		},
	}
	grouped, err := e.GroupBy(shipped, out, gb)
	if err != nil {
		return nil, err
	}
	return e.Sort(grouped, 0, compute.Asc(0), compute.Asc(1))
}

// minimum cost supplier
func q2(e *Engine) (*table.Table, error) {
	supplier, partsupp, part := e.db.Must(Supplier), e.db.Must(PartSupp), e.db.Must(Part)

	eu, err := regionNations(e, "q2_nation", "EUROPE")
	if err != nil {
		return nil, err
	}

	// n_name, s_suppkey, s_name, s_address, s_phone, s_acctbal, s_comment
	hj := uniqueJoin(0, sNationkey)
	picks := []pick{bcol(1), pcol(sSuppkey), pcol(sName), pcol(sAddress), pcol(sPhone), pcol(sAcctbal), pcol(sComment)}
	hj.Emit = emitPicks(picks, nil)
	es, err := e.Join(eu, supplier, joined("q2_supplier", eu, supplier, picks), hj)
	if err != nil {
		return nil, err
	}

	// ps_partkey, ps_supplycost, ps_suppkey
	hj = uniqueJoin(1, psSuppkey)
	picks = []pick{pcol(psPartkey), pcol(psSupplycost), pcol(psSuppkey)}
	hj.Emit = emitPicks(picks, nil)
	eps, err := e.Join(es, partsupp, joined("q2_partsupp", es, partsupp, picks), hj)
	if err != nil {
		return nil, err
	}

	minCost, err := e.GroupBy(eps, table.New("q2_min_cost", table.Int32Col("ps_partkey"), money("min_cost")),
		&compute.GroupBy{
			Key:   compute.ColKey(0),
			Aggrs: []compute.Aggr{compute.Min(compute.Col(1))},
			Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
				table.CopyField(out, outRow, 0, in, g.Row, 0)
				out.SetInt(outRow, 1, g.Min(0))
			},
		})
	if err != nil {
		return nil, err
	}

	brass := []byte("BRASS")
	fp, err := e.Select(part, "q2_part",
		func(t *table.Table, row int) bool {
			return t.Int(row, pSize) == 15 && bytes.HasSuffix(t.TextBytes(row, pType), brass)
		},
		pPartkey, pMfgr)
	if err != nil {
		return nil, err
	}

	// p_partkey, p_mfgr, min_cost
	hj = uniqueJoin(0, 0)
	picks = []pick{bcol(0), bcol(1), pcol(1)}
	hj.Emit = emitPicks(picks, nil)
	pm, err := e.Join(fp, minCost, joined("q2_part_min", fp, minCost, picks), hj)
	if err != nil {
		return nil, err
	}

	// p_partkey, p_mfgr, ps_suppkey of the parts supplied at the minimum cost
	picks = []pick{bcol(0), bcol(1), pcol(2)}
	cheapest, err := e.Join(pm, eps, joined("q2_cheapest", pm, eps, picks), &compute.HashJoin{
		Typ:      compute.JoinTypeInner,
		Unique:   true,
		BuildKey: compute.ColKey(0, 2),
		ProbeKey: compute.ColKey(0, 1),
		Emit:     emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}

	// s_acctbal, s_name, n_name, p_partkey, p_mfgr, s_address, s_phone, s_comment
	hj = uniqueJoin(1, 2)
	picks = []pick{bcol(5), bcol(2), bcol(0), pcol(0), pcol(1), bcol(3), bcol(4), bcol(6)}
	hj.Emit = emitPicks(picks, nil)
	res, err := e.Join(es, cheapest, joined("q2", es, cheapest, picks), hj)
	if err != nil {
		return nil, err
	}
	return e.Sort(res, 100, compute.Desc(0), compute.Asc(2), compute.Asc(1), compute.Asc(3))
}

// shipping priority
func q3(e *Engine) (*table.Table, error) {
	customer, orders, li := e.db.Must(Customer), e.db.Must(Orders), e.db.Must(Lineitem)
	day := date(1995, 3, 15)

	hj := uniqueJoin(cCustkey, oCustkey)
	hj.BuildPred = textEq(cMktsegment, "BUILDING")
	hj.ProbePred = func(t *table.Table, row int) bool { return t.Date(row, oOrderdate) < day }
	picks := []pick{pcol(oOrderkey), pcol(oOrderdate), pcol(oShippriority)}
	hj.Emit = emitPicks(picks, nil)
	co, err := e.Join(customer, orders, joined("q3_orders", customer, orders, picks), hj)
	if err != nil {
		return nil, err
	}

	// o_orderkey, o_orderdate, o_shippriority, revenue
	hj = uniqueJoin(0, lOrderkey)
	hj.ProbePred = func(t *table.Table, row int) bool { return t.Date(row, lShipdate) > day }
	picks = []pick{bcol(0), bcol(1), bcol(2)}
	hj.Emit = emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
		out.SetScaled(outRow, 3, lineRevenue(probe, probeRow))
	})
	lo, err := e.Join(co, li, joined("q3_lines", co, li, picks, table.ScaledCol("revenue", 4)), hj)
	if err != nil {
		return nil, err
	}

	out := table.New("q3", lo.Column(0), lo.Column(3), lo.Column(1), lo.Column(2))
	grouped, err := e.GroupBy(lo, out, &compute.GroupBy{
		Key:   compute.ColKey(0),
		Aggrs: []compute.Aggr{compute.Sum(compute.Col(3))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			out.SetInt(outRow, 1, g.Sum(0))
			table.CopyField(out, outRow, 2, in, g.Row, 1)
			table.CopyField(out, outRow, 3, in, g.Row, 2)
		},
	})
	if err != nil {
		return nil, err
	}
	return e.Sort(grouped, 10, compute.Desc(1), compute.Asc(2))
}

// order priority checking
func q4(e *Engine) (*table.Table, error) {
	orders, li := e.db.Must(Orders), e.db.Must(Lineitem)

	picks := []pick{pcol(oOrderpriority)}
	late, err := e.Join(li, orders, joined("q4_orders", li, orders, picks), &compute.HashJoin{
		Typ:      compute.JoinTypeSemi,
		Unique:   true,
		BuildKey: compute.ColKey(lOrderkey),
		ProbeKey: compute.ColKey(oOrderkey),
		BuildPred: func(t *table.Table, row int) bool {
			return t.Date(row, lCommitdate) < t.Date(row, lReceiptdate)
		},
		ProbePred: dateIn(oOrderdate, date(1993, 7, 1), date(1993, 10, 1)),
		Emit:      emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}

	grouped, err := e.GroupBy(late, table.New("q4", late.Column(0), table.Int64Col("order_count")),
		&compute.GroupBy{
			Key:   compute.TextColKey(0),
			Aggrs: []compute.Aggr{compute.Count()},
			Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
				table.CopyField(out, outRow, 0, in, g.Row, 0)
				out.SetInt(outRow, 1, g.Count(0))
			},
		})
	if err != nil {
		return nil, err
	}
	return e.Sort(grouped, 0, compute.Asc(0))
}

// regionNations joins the nations of the region: n_nationkey, n_name.
func regionNations(e *Engine, name, regionName string) (*table.Table, error) {
	region, nation := e.db.Must(Region), e.db.Must(Nation)
	hj := uniqueJoin(rRegionkey, nRegionkey)
	hj.BuildPred = textEq(rName, regionName)
	picks := []pick{pcol(nNationkey), pcol(nName)}
	hj.Emit = emitPicks(picks, nil)
	return e.Join(region, nation, joined(name, region, nation, picks), hj)
}

// local supplier volume
func q5(e *Engine) (*table.Table, error) {
	customer, orders, li, supplier := e.db.Must(Customer), e.db.Must(Orders), e.db.Must(Lineitem), e.db.Must(Supplier)

	asia, err := regionNations(e, "q5_nation", "ASIA")
	if err != nil {
		return nil, err
	}

	hj := uniqueJoin(0, cNationkey)
	picks := []pick{pcol(cCustkey), pcol(cNationkey)}
	hj.Emit = emitPicks(picks, nil)
	ac, err := e.Join(asia, customer, joined("q5_customer", asia, customer, picks), hj)
	if err != nil {
		return nil, err
	}

	// c_nationkey, o_orderkey
	hj = uniqueJoin(0, oCustkey)
	hj.ProbePred = dateIn(oOrderdate, date(1994, 1, 1), date(1995, 1, 1))
	picks = []pick{bcol(1), pcol(oOrderkey)}
	hj.Emit = emitPicks(picks, nil)
	ao, err := e.Join(ac, orders, joined("q5_orders", ac, orders, picks), hj)
	if err != nil {
		return nil, err
	}

	// c_nationkey, l_suppkey, revenue
	hj = uniqueJoin(1, lOrderkey)
	picks = []pick{bcol(0), pcol(lSuppkey)}
	hj.Emit = emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
		out.SetScaled(outRow, 2, lineRevenue(probe, probeRow))
	})
	al, err := e.Join(ao, li, joined("q5_lines", ao, li, picks, table.ScaledCol("revenue", 4)), hj)
	if err != nil {
		return nil, err
	}

	// customer and supplier of the same nation
	picks = []pick{pcol(0), pcol(2)}
	local, err := e.Join(supplier, al, joined("q5_local", supplier, al, picks), &compute.HashJoin{
		Typ:      compute.JoinTypeInner,
		Unique:   true,
		BuildKey: compute.ColKey(sSuppkey, sNationkey),
		ProbeKey: compute.ColKey(1, 0),
		Emit:     emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}

	grouped, err := e.GroupBy(local, local.NewLike("q5_revenue"), &compute.GroupBy{
		Key:   compute.ColKey(0),
		Aggrs: []compute.Aggr{compute.Sum(compute.Col(1))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			out.SetInt(outRow, 1, g.Sum(0))
		},
	})
	if err != nil {
		return nil, err
	}

	hj = uniqueJoin(0, 0)
	picks = []pick{bcol(1), pcol(1)}
	hj.Emit = emitPicks(picks, nil)
	named, err := e.Join(asia, grouped, joined("q5", asia, grouped, picks), hj)
	if err != nil {
		return nil, err
	}
	return e.Sort(named, 0, compute.Desc(1))
}

var (
	q6DiscLo = common.NewScaled(5, 2)
	q6DiscHi = common.NewScaled(7, 2)
	q6Qty    = common.NewScaled(24, 0)
)

// forecasting revenue change
func q6(e *Engine) (*table.Table, error) {
	li := e.db.Must(Lineitem)
	g, err := e.Aggregate(li,
		and(
			dateIn(lShipdate, date(1994, 1, 1), date(1995, 1, 1)),
			func(t *table.Table, row int) bool {
				d := t.Scaled(row, lDiscount)
				return d.Cmp(q6DiscLo) >= 0 && d.Cmp(q6DiscHi) <= 0 &&
					t.Scaled(row, lQuantity).Cmp(q6Qty) < 0
			},
		),
		compute.Sum(compute.Scaled(4, func(t *table.Table, row int) common.ScaledInt {
			return t.Scaled(row, lExtendedprice).Mul(t.Scaled(row, lDiscount))
		})))
	if err != nil {
		return nil, err
	}
	return e.Single(table.New("q6", table.ScaledCol("revenue", 4)), func(out *table.Table) {
		if g != nil {
			out.SetScaled(0, 0, common.NewScaled(g.Sum(0), 4))
		}
	})
}

// volume shipping
func q7(e *Engine) (*table.Table, error) {
	nation, supplier, customer := e.db.Must(Nation), e.db.Must(Supplier), e.db.Must(Customer)
	orders, li := e.db.Must(Orders), e.db.Must(Lineitem)

	fg, err := e.Select(nation, "q7_nation", textIn(nName, "FRANCE", "GERMANY"), nNationkey, nName)
	if err != nil {
		return nil, err
	}

	// n_name, s_suppkey
	hj := uniqueJoin(0, sNationkey)
	picks := []pick{bcol(1), pcol(sSuppkey)}
	hj.Emit = emitPicks(picks, nil)
	sn, err := e.Join(fg, supplier, joined("q7_supplier", fg, supplier, picks), hj)
	if err != nil {
		return nil, err
	}

	// n_name, c_custkey
	hj = uniqueJoin(0, cNationkey)
	picks = []pick{bcol(1), pcol(cCustkey)}
	hj.Emit = emitPicks(picks, nil)
	cn, err := e.Join(fg, customer, joined("q7_customer", fg, customer, picks), hj)
	if err != nil {
		return nil, err
	}

	// cust_nation, o_orderkey
	hj = uniqueJoin(1, oCustkey)
	picks = []pick{bcol(0), pcol(oOrderkey)}
	hj.Emit = emitPicks(picks, nil)
	oc, err := e.Join(cn, orders, joined("q7_orders", cn, orders, picks), hj)
	if err != nil {
		return nil, err
	}

	// supp_nation, l_orderkey, l_year, volume
	hj = uniqueJoin(1, lSuppkey)
	hj.ProbePred = dateIn(lShipdate, date(1995, 1, 1), date(1997, 1, 1))
	picks = []pick{bcol(0), pcol(lOrderkey)}
	hj.Emit = emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
		out.SetInt(outRow, 2, year(probe, probeRow, lShipdate))
		out.SetScaled(outRow, 3, lineRevenue(probe, probeRow))
	})
	ls, err := e.Join(sn, li, joined("q7_lines", sn, li, picks, table.Int32Col("l_year"), table.ScaledCol("volume", 4)), hj)
	if err != nil {
		return nil, err
	}

	// supp_nation, cust_nation, l_year, volume
	picks = []pick{pcol(0), bcol(0), pcol(2), pcol(3)}
	shipping, err := e.Join(oc, ls, joined("q7_shipping", oc, ls, picks), &compute.HashJoin{
		Typ:      compute.JoinTypeInner,
		Unique:   true,
		BuildKey: compute.ColKey(1),
		ProbeKey: compute.ColKey(1),
		Match: func(build *table.Table, buildRow int, probe *table.Table, probeRow int) bool {
			return build.Text(buildRow, 0) != probe.Text(probeRow, 0)
		},
		Emit: emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}

	grouped, err := e.GroupBy(shipping, shipping.NewLike("q7"), &compute.GroupBy{
		Key:   compute.MixedKey([]int{2}, []int{0, 1}),
		Aggrs: []compute.Aggr{compute.Sum(compute.Col(3))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			table.CopyField(out, outRow, 1, in, g.Row, 1)
			table.CopyField(out, outRow, 2, in, g.Row, 2)
			out.SetInt(outRow, 3, g.Sum(0))
		},
	})
	if err != nil {
		return nil, err
	}
	return e.Sort(grouped, 0, compute.Asc(0), compute.Asc(1), compute.Asc(2))
}
