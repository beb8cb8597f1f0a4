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

// top supplier
func q15(e *Engine) (*table.Table, error) {
	li, supplier := e.db.Must(Lineitem), e.db.Must(Supplier)

	rev, err := e.GroupBy(li, table.New("q15_revenue", table.Int32Col("supplier_no"), table.ScaledCol("total_revenue", 4)),
		&compute.GroupBy{
			Key:   compute.ColKey(lSuppkey),
			Pred:  dateIn(lShipdate, date(1996, 1, 1), date(1996, 4, 1)),
			Aggrs: []compute.Aggr{compute.Sum(compute.Scaled(4, lineRevenue))},
			Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
				table.CopyField(out, outRow, 0, in, g.Row, lSuppkey)
				out.SetScaled(outRow, 1, common.NewScaled(g.Sum(0), 4))
			},
		})
	if err != nil {
		return nil, err
	}

	g, err := e.Aggregate(rev, nil, compute.Max(compute.Col(1)))
	if err != nil {
		return nil, err
	}

	hj := uniqueJoin(0, sSuppkey)
	hj.BuildPred = func(t *table.Table, row int) bool {
		return g != nil && t.Int(row, 1) == g.Max(0)
	}
	picks := []pick{pcol(sSuppkey), pcol(sName), pcol(sAddress), pcol(sPhone), bcol(1)}
	hj.Emit = emitPicks(picks, nil)
	top, err := e.Join(rev, supplier, joined("q15", rev, supplier, picks), hj)
	if err != nil {
		return nil, err
	}
	return e.Sort(top, 0, compute.Asc(0))
}

// parts/supplier relationship
func q16(e *Engine) (*table.Table, error) {
	part, supplier, partsupp := e.db.Must(Part), e.db.Must(Supplier), e.db.Must(PartSupp)

	brand := textEq(pBrand, "Brand#45")
	polished := textPrefix(pType, "MEDIUM POLISHED")
	sizes := map[int64]struct{}{49: {}, 14: {}, 23: {}, 45: {}, 19: {}, 3: {}, 36: {}, 9: {}}
	fp, err := e.Select(part, "q16_part",
		and(
			not(brand),
			not(polished),
			func(t *table.Table, row int) bool {
				_, ok := sizes[t.Int(row, pSize)]
				return ok
			},
		),
		pPartkey, pBrand, pType, pSize)
	if err != nil {
		return nil, err
	}

	// partsupp without complained suppliers
	picks := []pick{pcol(psPartkey), pcol(psSuppkey)}
	ps, err := e.Join(supplier, partsupp, joined("q16_partsupp", supplier, partsupp, picks), &compute.HashJoin{
		Typ:       compute.JoinTypeAnti,
		Unique:    true,
		BuildKey:  compute.ColKey(sSuppkey),
		ProbeKey:  compute.ColKey(psSuppkey),
		BuildPred: textLike(sComment, "Customer", "Complaints"),
		Emit:      emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}

	// p_brand, p_type, p_size, ps_suppkey
	hj := uniqueJoin(0, 0)
	picks = []pick{bcol(1), bcol(2), bcol(3), pcol(1)}
	hj.Emit = emitPicks(picks, nil)
	pps, err := e.Join(fp, ps, joined("q16_parts", fp, ps, picks), hj)
	if err != nil {
		return nil, err
	}

	out := table.New("q16", pps.Column(0), pps.Column(1), pps.Column(2), table.Int64Col("supplier_cnt"))
	grouped, err := e.GroupBy(pps, out, &compute.GroupBy{
		Key:   compute.MixedKey([]int{2}, []int{0, 1}),
		Aggrs: []compute.Aggr{compute.CountDistinct(compute.Col(3))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			table.CopyField(out, outRow, 1, in, g.Row, 1)
			table.CopyField(out, outRow, 2, in, g.Row, 2)
			out.SetInt(outRow, 3, g.Count(0))
		},
	})
	if err != nil {
		return nil, err
	}
	return e.Sort(grouped, 0, compute.Desc(3), compute.Asc(0), compute.Asc(1), compute.Asc(2))
}

// small-quantity-order revenue
func q17(e *Engine) (*table.Table, error) {
	part, li := e.db.Must(Part), e.db.Must(Lineitem)

	fp, err := e.Select(part, "q17_part", and(textEq(pBrand, "Brand#23"), textEq(pContainer, "MED BOX")), pPartkey)
	if err != nil {
		return nil, err
	}

	// l_partkey, l_quantity, l_extendedprice
	hj := uniqueJoin(0, lPartkey)
	picks := []pick{pcol(lPartkey), pcol(lQuantity), pcol(lExtendedprice)}
	hj.Emit = emitPicks(picks, nil)
	lp, err := e.Join(fp, li, joined("q17_lines", fp, li, picks), hj)
	if err != nil {
		return nil, err
	}

	qty, err := e.GroupBy(lp, table.New("q17_qty", lp.Column(0), table.Int64Col("sum_qty"), table.Int64Col("cnt")),
		&compute.GroupBy{
			Key:   compute.ColKey(0),
			Aggrs: []compute.Aggr{compute.Sum(compute.Col(1)), compute.Count()},
			Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
				table.CopyField(out, outRow, 0, in, g.Row, 0)
				out.SetInt(outRow, 1, g.Sum(0))
				out.SetInt(outRow, 2, g.Count(1))
			},
		})
	if err != nil {
		return nil, err
	}

	// quantity < 0.2 * avg(quantity) of the part
	picks = []pick{pcol(2)}
	small, err := e.Join(qty, lp, joined("q17_small", qty, lp, picks), &compute.HashJoin{
		Typ:      compute.JoinTypeInner,
		Unique:   true,
		BuildKey: compute.ColKey(0),
		ProbeKey: compute.ColKey(0),
		Match: func(build *table.Table, buildRow int, probe *table.Table, probeRow int) bool {
			return probe.Int(probeRow, 1)*build.Int(buildRow, 2)*5 < build.Int(buildRow, 1)
		},
		Emit: emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}

	g, err := e.Aggregate(small, nil, compute.Sum(compute.Col(0)))
	if err != nil {
		return nil, err
	}
	return e.Single(table.New("q17", money("avg_yearly")), func(out *table.Table) {
		if g != nil {
			out.SetScaled(0, 0, sumOf(g, 0, small, 0).Div(common.NewScaled(7, 0), 2))
		}
	})
}

// large volume customer
func q18(e *Engine) (*table.Table, error) {
	li, orders, customer := e.db.Must(Lineitem), e.db.Must(Orders), e.db.Must(Customer)

	sums, err := e.GroupBy(li, table.New("q18_qty", li.Column(lOrderkey), table.ScaledCol("sum_qty", 0)),
		&compute.GroupBy{
			Key:   compute.ColKey(lOrderkey),
			Aggrs: []compute.Aggr{compute.Sum(compute.Col(lQuantity))},
			Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
				table.CopyField(out, outRow, 0, in, g.Row, lOrderkey)
				out.SetInt(outRow, 1, g.Sum(0))
			},
		})
	if err != nil {
		return nil, err
	}
	big, err := e.Select(sums, "q18_big", func(t *table.Table, row int) bool { return t.Int(row, 1) > 300 }, 0, 1)
	if err != nil {
		return nil, err
	}

	// o_custkey, o_orderkey, o_orderdate, o_totalprice, sum_qty
	hj := uniqueJoin(0, oOrderkey)
	picks := []pick{pcol(oCustkey), pcol(oOrderkey), pcol(oOrderdate), pcol(oTotalprice), bcol(1)}
	hj.Emit = emitPicks(picks, nil)
	bo, err := e.Join(big, orders, joined("q18_orders", big, orders, picks), hj)
	if err != nil {
		return nil, err
	}

	hj = uniqueJoin(cCustkey, 0)
	picks = []pick{bcol(cName), bcol(cCustkey), pcol(1), pcol(2), pcol(3), pcol(4)}
	hj.Emit = emitPicks(picks, nil)
	res, err := e.Join(customer, bo, joined("q18", customer, bo, picks), hj)
	if err != nil {
		return nil, err
	}
	return e.Sort(res, 100, compute.Desc(4), compute.Asc(3))
}

type q19Clause struct {
	brand      []byte
	containers [][]byte
	qtyLo      int64
	qtyHi      int64
	sizeHi     int64
}

func (c *q19Clause) match(part *table.Table, partRow int, li *table.Table, liRow int) bool {
	if !bytes.Equal(part.TextBytes(partRow, pBrand), c.brand) {
		return false
	}
	size := part.Int(partRow, pSize)
	if size < 1 || size > c.sizeHi {
		return false
	}
	qty := li.Int(liRow, lQuantity)
	if qty < c.qtyLo || qty > c.qtyHi {
		return false
	}
	container := part.TextBytes(partRow, pContainer)
	for _, ct := range c.containers {
		if bytes.Equal(container, ct) {
			return true
		}
	}
	return false
}

func newQ19Clause(brand string, containers []string, qtyLo, sizeHi int64) *q19Clause {
	c := &q19Clause{brand: []byte(brand), qtyLo: qtyLo, qtyHi: qtyLo + 10, sizeHi: sizeHi}
	for _, ct := range containers {
		c.containers = append(c.containers, []byte(ct))
	}
	return c
}

// discounted revenue
func q19(e *Engine) (*table.Table, error) {
	part, li := e.db.Must(Part), e.db.Must(Lineitem)

	clauses := []*q19Clause{
		newQ19Clause("Brand#12", []string{"SM CASE", "SM BOX", "SM PACK", "SM PKG"}, 1, 5),
		newQ19Clause("Brand#23", []string{"MED BAG", "MED BOX", "MED PKG", "MED PACK"}, 10, 10),
		newQ19Clause("Brand#34", []string{"LG CASE", "LG BOX", "LG PACK", "LG PKG"}, 20, 15),
	}
	hj := uniqueJoin(pPartkey, lPartkey)
	hj.ProbePred = and(textIn(lShipmode, "AIR", "AIR REG"), textEq(lShipinstruct, "DELIVER IN PERSON"))
	hj.Match = func(build *table.Table, buildRow int, probe *table.Table, probeRow int) bool {
		for _, c := range clauses {
			if c.match(build, buildRow, probe, probeRow) {
				return true
			}
		}
		return false
	}
	hj.Emit = func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
		out.SetScaled(outRow, 0, lineRevenue(probe, probeRow))
	}
	pl, err := e.Join(part, li, table.New("q19_lines", table.ScaledCol("revenue", 4)), hj)
	if err != nil {
		return nil, err
	}

	g, err := e.Aggregate(pl, nil, compute.Sum(compute.Col(0)))
	if err != nil {
		return nil, err
	}
	return e.Single(table.New("q19", table.ScaledCol("revenue", 4)), func(out *table.Table) {
		if g != nil {
			out.SetScaled(0, 0, sumOf(g, 0, pl, 0))
		}
	})
}

// potential part promotion
func q20(e *Engine) (*table.Table, error) {
	part, li, partsupp := e.db.Must(Part), e.db.Must(Lineitem), e.db.Must(PartSupp)
	nation, supplier := e.db.Must(Nation), e.db.Must(Supplier)

	fp, err := e.Select(part, "q20_part", textPrefix(pName, "forest"), pPartkey)
	if err != nil {
		return nil, err
	}

	// l_partkey, l_suppkey, l_quantity
	hj := uniqueJoin(0, lPartkey)
	hj.ProbePred = dateIn(lShipdate, date(1994, 1, 1), date(1995, 1, 1))
	picks := []pick{pcol(lPartkey), pcol(lSuppkey), pcol(lQuantity)}
	hj.Emit = emitPicks(picks, nil)
	lf, err := e.Join(fp, li, joined("q20_lines", fp, li, picks), hj)
	if err != nil {
		return nil, err
	}

	lq, err := e.GroupBy(lf, lf.NewLike("q20_qty"), &compute.GroupBy{
		Key:   compute.ColKey(0, 1),
		Aggrs: []compute.Aggr{compute.Sum(compute.Col(2))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			table.CopyField(out, outRow, 1, in, g.Row, 1)
			out.SetInt(outRow, 2, g.Sum(0))
		},
	})
	if err != nil {
		return nil, err
	}

	// ps_partkey, ps_suppkey, ps_availqty
	hj = uniqueJoin(0, psPartkey)
	picks = []pick{pcol(psPartkey), pcol(psSuppkey), pcol(psAvailqty)}
	hj.Emit = emitPicks(picks, nil)
	pf, err := e.Join(fp, partsupp, joined("q20_partsupp", fp, partsupp, picks), hj)
	if err != nil {
		return nil, err
	}

	// availqty > 0.5 * sum(quantity)
	picks = []pick{pcol(1)}
	excess, err := e.Join(lq, pf, joined("q20_excess", lq, pf, picks), &compute.HashJoin{
		Typ:      compute.JoinTypeInner,
		Unique:   true,
		BuildKey: compute.ColKey(0, 1),
		ProbeKey: compute.ColKey(0, 1),
		Match: func(build *table.Table, buildRow int, probe *table.Table, probeRow int) bool {
			return probe.Int(probeRow, 2)*2 > build.Int(buildRow, 2)
		},
		Emit: emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}

	// s_suppkey, s_name, s_address
	hj = uniqueJoin(nNationkey, sNationkey)
	hj.BuildPred = textEq(nName, "CANADA")
	picks = []pick{pcol(sSuppkey), pcol(sName), pcol(sAddress)}
	hj.Emit = emitPicks(picks, nil)
	cs, err := e.Join(nation, supplier, joined("q20_supplier", nation, supplier, picks), hj)
	if err != nil {
		return nil, err
	}

	picks = []pick{pcol(1), pcol(2)}
	res, err := e.Join(excess, cs, joined("q20", excess, cs, picks), &compute.HashJoin{
		Typ:      compute.JoinTypeSemi,
		Unique:   true,
		BuildKey: compute.ColKey(0),
		ProbeKey: compute.ColKey(0),
		Emit:     emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}
	return e.Sort(res, 0, compute.Asc(0))
}

func lateLine(t *table.Table, row int) bool {
	return t.Date(row, lReceiptdate) > t.Date(row, lCommitdate)
}

// suppliers per order: l_orderkey, supp_cnt
func q21Suppliers(e *Engine, name string, pred compute.RowPred) (*table.Table, error) {
	li := e.db.Must(Lineitem)
	return e.GroupBy(li, table.New(name, li.Column(lOrderkey), table.Int64Col("supp_cnt")), &compute.GroupBy{
		Key:   compute.ColKey(lOrderkey),
		Pred:  pred,
		Aggrs: []compute.Aggr{compute.CountDistinct(compute.Col(lSuppkey))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, lOrderkey)
			out.SetInt(outRow, 1, g.Count(0))
		},
	})
}

func semiOnOrder(pred compute.RowPred, picks []pick) *compute.HashJoin {
	return &compute.HashJoin{
		Typ:       compute.JoinTypeSemi,
		Unique:    true,
		BuildKey:  compute.ColKey(0),
		ProbeKey:  compute.ColKey(0),
		BuildPred: pred,
		Emit:      emitPicks(picks, nil),
	}
}

// suppliers who kept orders waiting
func q21(e *Engine) (*table.Table, error) {
	li, orders, nation, supplier := e.db.Must(Lineitem), e.db.Must(Orders), e.db.Must(Nation), e.db.Must(Supplier)

	all, err := q21Suppliers(e, "q21_supp", nil)
	if err != nil {
		return nil, err
	}
	late, err := q21Suppliers(e, "q21_late_supp", lateLine)
	if err != nil {
		return nil, err
	}

	// s_suppkey, s_name
	hj := uniqueJoin(nNationkey, sNationkey)
	hj.BuildPred = textEq(nName, "SAUDI ARABIA")
	picks := []pick{pcol(sSuppkey), pcol(sName)}
	hj.Emit = emitPicks(picks, nil)
	sa, err := e.Join(nation, supplier, joined("q21_supplier", nation, supplier, picks), hj)
	if err != nil {
		return nil, err
	}

	// l_orderkey, s_name
	hj = uniqueJoin(0, lSuppkey)
	hj.ProbePred = lateLine
	picks = []pick{pcol(lOrderkey), bcol(1)}
	hj.Emit = emitPicks(picks, nil)
	l1, err := e.Join(sa, li, joined("q21_lines", sa, li, picks), hj)
	if err != nil {
		return nil, err
	}

	picks = []pick{pcol(0), pcol(1)}
	failed, err := e.Join(orders, l1, joined("q21_failed", orders, l1, picks), &compute.HashJoin{
		Typ:       compute.JoinTypeSemi,
		Unique:    true,
		BuildKey:  compute.ColKey(oOrderkey),
		ProbeKey:  compute.ColKey(0),
		BuildPred: textEq(oOrderstatus, "F"),
		Emit:      emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}

	// another supplier on the order
	shared, err := e.Join(all, failed, joined("q21_shared", all, failed, picks),
		semiOnOrder(func(t *table.Table, row int) bool { return t.Int(row, 1) > 1 }, picks))
	if err != nil {
		return nil, err
	}

	// no other supplier was late
	alone, err := e.Join(late, shared, joined("q21_waiting", late, shared, picks),
		semiOnOrder(func(t *table.Table, row int) bool { return t.Int(row, 1) == 1 }, picks))
	if err != nil {
		return nil, err
	}

	out := table.New("q21", alone.Column(1), table.Int64Col("numwait"))
	grouped, err := e.GroupBy(alone, out, &compute.GroupBy{
		Key:   compute.TextColKey(1),
		Aggrs: []compute.Aggr{compute.Count()},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 1)
			out.SetInt(outRow, 1, g.Count(0))
		},
	})
	if err != nil {
		return nil, err
	}
	return e.Sort(grouped, 100, compute.Desc(1), compute.Asc(0))
}

// global sales opportunity
func q22(e *Engine) (*table.Table, error) {
	customer, orders := e.db.Must(Customer), e.db.Must(Orders)

	codes := map[string]struct{}{"13": {}, "31": {}, "23": {}, "29": {}, "30": {}, "18": {}, "17": {}}
	code := func(t *table.Table, row int) []byte {
		phone := t.TextBytes(row, cPhone)
		return phone[:min(2, len(phone))]
	}
	// c_custkey, cntrycode, c_acctbal
	cc, err := e.Filter(customer,
		table.New("q22_customer", customer.Column(cCustkey), table.TextCol("cntrycode", 2), customer.Column(cAcctbal)),
		&compute.Filter{
			Pred: func(t *table.Table, row int) bool {
				_, ok := codes[string(code(t, row))]
				return ok
			},
			Columns: []int{cCustkey},
			Project: func(out *table.Table, outRow int, in *table.Table, inRow int) {
				out.SetTextBytes(outRow, 1, code(in, inRow))
				table.CopyField(out, outRow, 2, in, inRow, cAcctbal)
			},
		})
	if err != nil {
		return nil, err
	}

	g, err := e.Aggregate(cc,
		func(t *table.Table, row int) bool { return t.Int(row, 2) > 0 },
		compute.Sum(compute.Col(2)), compute.Count())
	if err != nil {
		return nil, err
	}
	sum, cnt := common.NewScaled(0, cc.Column(2).Scale), int64(0)
	if g != nil {
		sum, cnt = sumOf(g, 0, cc, 2), g.Count(1)
	}

	// customers above the average balance without orders
	picks := []pick{pcol(1), pcol(2)}
	rich, err := e.Join(orders, cc, joined("q22_rich", orders, cc, picks), &compute.HashJoin{
		Typ:      compute.JoinTypeAnti,
		Unique:   true,
		BuildKey: compute.ColKey(oCustkey),
		ProbeKey: compute.ColKey(0),
		ProbePred: func(t *table.Table, row int) bool {
			return cnt > 0 && t.Scaled(row, 2).MulInt(cnt).Cmp(sum) > 0
		},
		Emit: emitPicks(picks, nil),
	})
	if err != nil {
		return nil, err
	}

	out := table.New("q22", rich.Column(0), table.Int64Col("numcust"), money("totacctbal"))
	grouped, err := e.GroupBy(rich, out, &compute.GroupBy{
		Key:   compute.TextColKey(0),
		Aggrs: []compute.Aggr{compute.Count(), compute.Sum(compute.Col(1))},
		Emit: func(out *table.Table, outRow int, in *table.Table, g *compute.Group) {
			table.CopyField(out, outRow, 0, in, g.Row, 0)
			out.SetInt(outRow, 1, g.Count(0))
			out.SetScaled(outRow, 2, sumOf(g, 1, in, 1))
		},
	})
	if err != nil {
		return nil, err
	}
	return e.Sort(grouped, 0, compute.Asc(0))
}
