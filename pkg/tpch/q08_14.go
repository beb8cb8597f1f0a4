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
	"github.com/daviszhen/tpch/pkg/common"
	"github.com/daviszhen/tpch/pkg/compute"
	"github.com/daviszhen/tpch/pkg/table"
)

// national market share
func q8(e *Engine) (*table.Table, error) {
	part, customer, orders := e.db.Must(Part), e.db.Must(Customer), e.db.Must(Orders)
	li, supplier, nation := e.db.Must(Lineitem), e.db.Must(Supplier), e.db.Must(Nation)

	fp, err := e.Select(part, "q8_part", textEq(pType, "ECONOMY ANODIZED STEEL"), pPartkey)
	if err != nil {
		return nil, err
	}
	america, err := regionNations(e, "q8_nation", "AMERICA")
	if err != nil {
		return nil, err
	}

	hj := uniqueJoin(0, cNationkey)
	picks := []pick{pcol(cCustkey)}
	hj.Emit = emitPicks(picks, nil)
	ac, err := e.Join(america, customer, joined("q8_customer", america, customer, picks), hj)
	if err != nil {
		return nil, err
	}

	// o_orderkey, o_year
	hj = uniqueJoin(0, oCustkey)
	hj.ProbePred = dateIn(oOrderdate, date(1995, 1, 1), date(1997, 1, 1))
	picks = []pick{pcol(oOrderkey)}
	hj.Emit = emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
		out.SetInt(outRow, 1, year(probe, probeRow, oOrderdate))
	})
	ao, err := e.Join(ac, orders, joined("q8_orders", ac, orders, picks, table.Int32Col("o_year")), hj)
	if err != nil {
		return nil, err
	}

	// l_orderkey, l_suppkey, volume
	hj = uniqueJoin(0, lPartkey)
	picks = []pick{pcol(lOrderkey), pcol(lSuppkey)}
	hj.Emit = emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
		out.SetScaled(outRow, 2, lineRevenue(probe, probeRow))
	})
	lp, err := e.Join(fp, li, joined("q8_lines", fp, li, picks, table.ScaledCol("volume", 4)), hj)
	if err != nil {
		return nil, err
	}

	// o_year, l_suppkey, volume
	hj = uniqueJoin(0, 0)
	picks = []pick{bcol(1), pcol(1), pcol(2)}
	hj.Emit = emitPicks(picks, nil)
	lo, err := e.Join(ao, lp, joined("q8_order_lines", ao, lp, picks), hj)
	if err != nil {
		return nil, err
	}

	// o_year, volume, s_nationkey
	hj = uniqueJoin(sSuppkey, 1)
	picks = []pick{pcol(0), pcol(2), bcol(sNationkey)}
	hj.Emit = emitPicks(picks, nil)
	ls, err := e.Join(supplier, lo, joined("q8_supplier", supplier, lo, picks), hj)
	if err != nil {
		return nil, err
	}

	// o_year, volume, brazil volume
	brazil := textEq(nName, "BRAZIL")
	hj = uniqueJoin(nNationkey, 2)
	picks = []pick{pcol(0), pcol(1)}
	hj.Emit = emitPicks(picks, func(out *table.Table, outRow int, build *table.Table, buildRow int, probe *table.Table, probeRow int) {
		v := common.NewScaled(0, 4)
		if brazil(build, buildRow) {
			v = probe.Scaled(probeRow, 1)
		}
		out.SetScaled(outRow, 2, v)
	})
	ln, err := e.Join(nation, ls, joined("q8_volume", nation, ls, picks, table.ScaledCol("brazil_volume", 4)), hj)
	if err != nil {
		return nil, err
	}

	grouped, err := e.GroupBy(ln, table.New("q8", table.Int32Col("o_year"), money("mkt_share")), &compute.GroupBy{
		Key:   compute.ColKey(0),
		Aggrs: []compute.Aggr{compute.Sum(compute.Col(1)), compute.Sum(compute.Col(2))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			share := common.NewScaled(0, 2)
			if g.Sum(0) != 0 {
				share = sumOf(g, 1, in, 2).Div(sumOf(g, 0, in, 1), 2)
			}
			out.SetScaled(outRow, 1, share)
		},
	})
	if err != nil {
		return nil, err
	}
	return e.Sort(grouped, 0, compute.Asc(0))
}

// product type profit measure
func q9(e *Engine) (*table.Table, error) {
	part, li, partsupp := e.db.Must(Part), e.db.Must(Lineitem), e.db.Must(PartSupp)
	supplier, orders, nation := e.db.Must(Supplier), e.db.Must(Orders), e.db.Must(Nation)

	fp, err := e.Select(part, "q9_part", textLike(pName, "green"), pPartkey)
	if err != nil {
		return nil, err
	}

	// l_orderkey, l_partkey, l_suppkey, l_quantity, l_extendedprice, l_discount
	hj := uniqueJoin(0, lPartkey)
	picks := []pick{pcol(lOrderkey), pcol(lPartkey), pcol(lSuppkey), pcol(lQuantity), pcol(lExtendedprice), pcol(lDiscount)}
	hj.Emit = emitPicks(picks, nil)
	lp, err := e.Join(fp, li, joined("q9_lines", fp, li, picks), hj)
	if err != nil {
		return nil, err
	}

	// l_orderkey, l_suppkey, amount
	picks = []pick{pcol(0), pcol(2)}
	lps, err := e.Join(partsupp, lp, joined("q9_amount", partsupp, lp, picks, table.ScaledCol("amount", 4)), &compute.HashJoin{
		Typ:      compute.JoinTypeInner,
		Unique:   true,
		BuildKey: compute.ColKey(psPartkey, psSuppkey),
		ProbeKey: compute.ColKey(1, 2),
		Emit: emitPicks(picks, func(out *table.Table, outRow int, build *table.Table, buildRow int, probe *table.Table, probeRow int) {
			cost := build.Scaled(buildRow, psSupplycost).Mul(probe.Scaled(probeRow, 3))
			out.SetScaled(outRow, 2, revenue(probe, probeRow, 4, 5).Sub(cost))
		}),
	})
	if err != nil {
		return nil, err
	}

	// l_orderkey, s_nationkey, amount
	hj = uniqueJoin(sSuppkey, 1)
	picks = []pick{pcol(0), bcol(sNationkey), pcol(2)}
	hj.Emit = emitPicks(picks, nil)
	lsn, err := e.Join(supplier, lps, joined("q9_supplier", supplier, lps, picks), hj)
	if err != nil {
		return nil, err
	}

	// s_nationkey, amount, o_year
	picks = []pick{bcol(1), bcol(2)}
	lo, err := e.Join(lsn, orders, joined("q9_orders", lsn, orders, picks, table.Int32Col("o_year")), &compute.HashJoin{
		Typ:      compute.JoinTypeInner,
		BuildKey: compute.ColKey(0),
		ProbeKey: compute.ColKey(oOrderkey),
		Emit: emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
			out.SetInt(outRow, 2, year(probe, probeRow, oOrderdate))
		}),
	})
	if err != nil {
		return nil, err
	}

	profit := table.New("q9_profit", lo.Column(0), lo.Column(2), table.ScaledCol("sum_profit", 4))
	grouped, err := e.GroupBy(lo, profit, &compute.GroupBy{
		Key:   compute.ColKey(0, 2),
		Aggrs: []compute.Aggr{compute.Sum(compute.Col(1))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			table.CopyField(out, outRow, 1, in, g.Row, 2)
			out.SetScaled(outRow, 2, sumOf(g, 0, in, 1))
		},
	})
	if err != nil {
		return nil, err
	}

	// nation, o_year, sum_profit
	hj = uniqueJoin(nNationkey, 0)
	picks = []pick{bcol(nName), pcol(1), pcol(2)}
	hj.Emit = emitPicks(picks, nil)
	named, err := e.Join(nation, grouped, joined("q9", nation, grouped, picks), hj)
	if err != nil {
		return nil, err
	}
	return e.Sort(named, 0, compute.Asc(0), compute.Desc(1))
}

// returned item reporting
func q10(e *Engine) (*table.Table, error) {
	orders, li, customer, nation := e.db.Must(Orders), e.db.Must(Lineitem), e.db.Must(Customer), e.db.Must(Nation)

	// o_custkey, revenue
	hj := uniqueJoin(oOrderkey, lOrderkey)
	hj.BuildPred = dateIn(oOrderdate, date(1993, 10, 1), date(1994, 1, 1))
	hj.ProbePred = textEq(lReturnflag, "R")
	picks := []pick{bcol(oCustkey)}
	hj.Emit = emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
		out.SetScaled(outRow, 1, lineRevenue(probe, probeRow))
	})
	returned, err := e.Join(orders, li, joined("q10_lines", orders, li, picks, table.ScaledCol("revenue", 4)), hj)
	if err != nil {
		return nil, err
	}

	grouped, err := e.GroupBy(returned, returned.NewLike("q10_revenue"), &compute.GroupBy{
		Key:   compute.ColKey(0),
		Aggrs: []compute.Aggr{compute.Sum(compute.Col(1))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			out.SetScaled(outRow, 1, sumOf(g, 0, in, 1))
		},
	})
	if err != nil {
		return nil, err
	}

	// c_custkey, c_name, revenue, c_acctbal, c_nationkey, c_address, c_phone, c_comment
	hj = uniqueJoin(cCustkey, 0)
	picks = []pick{bcol(cCustkey), bcol(cName), pcol(1), bcol(cAcctbal), bcol(cNationkey), bcol(cAddress), bcol(cPhone), bcol(cComment)}
	hj.Emit = emitPicks(picks, nil)
	cr, err := e.Join(customer, grouped, joined("q10_customer", customer, grouped, picks), hj)
	if err != nil {
		return nil, err
	}

	hj = uniqueJoin(nNationkey, 4)
	picks = []pick{pcol(0), pcol(1), pcol(2), pcol(3), bcol(nName), pcol(5), pcol(6), pcol(7)}
	hj.Emit = emitPicks(picks, nil)
	named, err := e.Join(nation, cr, joined("q10", nation, cr, picks), hj)
	if err != nil {
		return nil, err
	}
	return e.Sort(named, 20, compute.Desc(2))
}

// important stock identification
func q11(e *Engine) (*table.Table, error) {
	nation, supplier, partsupp := e.db.Must(Nation), e.db.Must(Supplier), e.db.Must(PartSupp)

	hj := uniqueJoin(nNationkey, sNationkey)
	hj.BuildPred = textEq(nName, "GERMANY")
	picks := []pick{pcol(sSuppkey)}
	hj.Emit = emitPicks(picks, nil)
	gs, err := e.Join(nation, supplier, joined("q11_supplier", nation, supplier, picks), hj)
	if err != nil {
		return nil, err
	}

	// ps_partkey, value
	hj = uniqueJoin(0, psSuppkey)
	picks = []pick{pcol(psPartkey)}
	hj.Emit = emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
		out.SetScaled(outRow, 1, probe.Scaled(probeRow, psSupplycost).Mul(probe.Scaled(probeRow, psAvailqty)))
	})
	gps, err := e.Join(gs, partsupp, joined("q11_partsupp", gs, partsupp, picks, money("value")), hj)
	if err != nil {
		return nil, err
	}

	g, err := e.Aggregate(gps, nil, compute.Sum(compute.Col(1)))
	if err != nil {
		return nil, err
	}
	total := common.NewScaled(0, gps.Column(1).Scale)
	if g != nil {
		total = sumOf(g, 0, gps, 1)
	}

	grouped, err := e.GroupBy(gps, gps.NewLike("q11_value"), &compute.GroupBy{
		Key:   compute.ColKey(0),
		Aggrs: []compute.Aggr{compute.Sum(compute.Col(1))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			out.SetScaled(outRow, 1, sumOf(g, 0, in, 1))
		},
	})
	if err != nil {
		return nil, err
	}

	// value > total * 0.0001 / SF, SF = orders / 1,500,000
	orders := int64(e.db.Must(Orders).NumRow())
	threshold := total.MulInt(150)
	important, err := e.Select(grouped, "q11",
		func(t *table.Table, row int) bool {
			return t.Scaled(row, 1).MulInt(orders).Cmp(threshold) > 0
		},
		0, 1)
	if err != nil {
		return nil, err
	}
	return e.Sort(important, 0, compute.Desc(1))
}

// shipping modes and order priority
func q12(e *Engine) (*table.Table, error) {
	li, orders := e.db.Must(Lineitem), e.db.Must(Orders)

	inTime := dateIn(lReceiptdate, date(1994, 1, 1), date(1995, 1, 1))
	urgent := textIn(oOrderpriority, "1-URGENT", "2-HIGH")
	picks := []pick{bcol(lShipmode)}
	lo, err := e.Join(li, orders, joined("q12_lines", li, orders, picks, table.Int64Col("high"), table.Int64Col("low")), &compute.HashJoin{
		Typ:      compute.JoinTypeInner,
		BuildKey: compute.ColKey(lOrderkey),
		ProbeKey: compute.ColKey(oOrderkey),
		BuildPred: and(
			textIn(lShipmode, "MAIL", "SHIP"),
			inTime,
			func(t *table.Table, row int) bool {
				commit := t.Date(row, lCommitdate)
				return commit < t.Date(row, lReceiptdate) && t.Date(row, lShipdate) < commit
			},
		),
		Emit: emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
			high := int64(0)
			if urgent(probe, probeRow) {
				high = 1
			}
			out.SetInt(outRow, 1, high)
			out.SetInt(outRow, 2, 1-high)
		}),
	})
	if err != nil {
		return nil, err
	}

	out := table.New("q12", lo.Column(0), table.Int64Col("high_line_count"), table.Int64Col("low_line_count"))
	grouped, err := e.GroupBy(lo, out, &compute.GroupBy{
		Key:   compute.TextColKey(0),
		Aggrs: []compute.Aggr{compute.Sum(compute.Col(1)), compute.Sum(compute.Col(2))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			out.SetInt(outRow, 1, g.Sum(0))
			out.SetInt(outRow, 2, g.Sum(1))
		},
	})
	if err != nil {
		return nil, err
	}
	return e.Sort(grouped, 0, compute.Asc(0))
}

// customer distribution
func q13(e *Engine) (*table.Table, error) {
	orders, customer := e.db.Must(Orders), e.db.Must(Customer)

	// c_custkey, 1 per order or 0 for none
	picks := []pick{pcol(cCustkey)}
	co, err := e.Join(orders, customer, joined("q13_orders", orders, customer, picks, table.Int64Col("has_order")), &compute.HashJoin{
		Typ:       compute.JoinTypeLeft,
		BuildKey:  compute.ColKey(oCustkey),
		ProbeKey:  compute.ColKey(cCustkey),
		BuildPred: not(textLike(oComment, "special", "requests")),
		Emit: emitPicks(picks, func(out *table.Table, outRow int, _ *table.Table, buildRow int, _ *table.Table, _ int) {
			has := int64(0)
			if buildRow >= 0 {
				has = 1
			}
			out.SetInt(outRow, 1, has)
		}),
	})
	if err != nil {
		return nil, err
	}

	counts, err := e.GroupBy(co, table.New("q13_count", co.Column(0), table.Int64Col("c_count")), &compute.GroupBy{
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

	dist, err := e.GroupBy(counts, table.New("q13", table.Int64Col("c_count"), table.Int64Col("custdist")), &compute.GroupBy{
		Key:   compute.ColKey(1),
		Aggrs: []compute.Aggr{compute.Count()},
		Emit: func(out *table.Table, outRow int, _ *table.Table, g *compute.Group) {
			out.SetInt(outRow, 0, g.Key.F[0])
			out.SetInt(outRow, 1, g.Count(0))
		},
	})
	if err != nil {
		return nil, err
	}
	return e.Sort(dist, 0, compute.Desc(1), compute.Desc(0))
}

// promotion effect
func q14(e *Engine) (*table.Table, error) {
	part, li := e.db.Must(Part), e.db.Must(Lineitem)

	promo := textPrefix(pType, "PROMO")
	hj := uniqueJoin(pPartkey, lPartkey)
	hj.ProbePred = dateIn(lShipdate, date(1995, 9, 1), date(1995, 10, 1))
	hj.Emit = func(out *table.Table, outRow int, build *table.Table, buildRow int, probe *table.Table, probeRow int) {
		rev := lineRevenue(probe, probeRow)
		if promo(build, buildRow) {
			out.SetScaled(outRow, 0, rev)
		} else {
			out.SetScaled(outRow, 0, common.NewScaled(0, rev.Scale))
		}
		out.SetScaled(outRow, 1, rev)
	}
	pl, err := e.Join(part, li, table.New("q14_lines", table.ScaledCol("promo", 4), table.ScaledCol("revenue", 4)), hj)
	if err != nil {
		return nil, err
	}

	g, err := e.Aggregate(pl, nil, compute.Sum(compute.Col(0)), compute.Sum(compute.Col(1)))
	if err != nil {
		return nil, err
	}
	return e.Single(table.New("q14", money("promo_revenue")), func(out *table.Table) {
		share := common.NewScaled(0, 2)
		if g != nil && g.Sum(1) != 0 {
			share = hundred.Mul(sumOf(g, 0, pl, 0)).Div(sumOf(g, 1, pl, 1), 2)
		}
		out.SetScaled(0, 0, share)
	})
}
