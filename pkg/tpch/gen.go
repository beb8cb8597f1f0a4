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
	"math/rand"
	"strings"

	"github.com/daviszhen/tpch/pkg/common"
	"github.com/daviszhen/tpch/pkg/table"
)

var (
	regionNames = []string{"AFRICA", "AMERICA", "ASIA", "EUROPE", "MIDDLE EAST"}
	nations     = []struct {
		name   string
		region int
	}{
		{"ALGERIA", 0}, {"ARGENTINA", 1}, {"BRAZIL", 1}, {"CANADA", 1}, {"EGYPT", 4},
		{"ETHIOPIA", 0}, {"FRANCE", 3}, {"GERMANY", 3}, {"INDIA", 2}, {"INDONESIA", 2},
		{"IRAN", 4}, {"IRAQ", 4}, {"JAPAN", 2}, {"JORDAN", 4}, {"KENYA", 0},
		{"MOROCCO", 0}, {"MOZAMBIQUE", 0}, {"PERU", 1}, {"CHINA", 2}, {"ROMANIA", 3},
		{"SAUDI ARABIA", 4}, {"VIETNAM", 2}, {"RUSSIA", 3}, {"UNITED KINGDOM", 3}, {"UNITED STATES", 1},
	}
	colors = []string{
		"almond", "antique", "aquamarine", "azure", "beige", "bisque", "black", "blanched", "blue",
		"blush", "brown", "burlywood", "burnished", "chartreuse", "chiffon", "chocolate", "coral",
		"cornflower", "cornsilk", "cream", "cyan", "dark", "deep", "dim", "dodger", "drab", "firebrick",
		"floral", "forest", "frosted", "gainsboro", "ghost", "goldenrod", "green", "grey", "honeydew",
		"hot", "indian", "ivory", "khaki", "lace", "lavender", "lawn", "lemon", "light", "lime", "linen",
		"magenta", "maroon", "medium", "metallic", "midnight", "mint", "misty", "moccasin", "navajo",
		"navy", "olive", "orange", "orchid", "pale", "papaya", "peach", "peru", "pink", "plum", "powder",
		"puff", "purple", "red", "rose", "rosy", "royal", "saddle", "salmon", "sandy", "seashell", "sienna",
		"sky", "slate", "smoke", "snow", "spring", "steel", "tan", "thistle", "tomato", "turquoise",
		"violet", "wheat", "white", "yellow",
	}
	typeSyllable1 = []string{"STANDARD", "SMALL", "MEDIUM", "LARGE", "ECONOMY", "PROMO"}
	typeSyllable2 = []string{"ANODIZED", "BURNISHED", "PLATED", "POLISHED", "BRUSHED"}
	typeSyllable3 = []string{"TIN", "NICKEL", "BRASS", "STEEL", "COPPER"}
	containerSyl1 = []string{"SM", "LG", "MED", "JUMBO", "WRAP"}
	containerSyl2 = []string{"CASE", "BOX", "BAG", "JAR", "PKG", "PACK", "CAN", "DRUM"}
	segments      = []string{"AUTOMOBILE", "BUILDING", "FURNITURE", "MACHINERY", "HOUSEHOLD"}
	priorities    = []string{"1-URGENT", "2-HIGH", "3-MEDIUM", "4-NOT SPECIFIED", "5-LOW"}
	instructions  = []string{"DELIVER IN PERSON", "COLLECT COD", "NONE", "TAKE BACK RETURN"}
	shipModes     = []string{"REG AIR", "AIR", "RAIL", "SHIP", "TRUCK", "MAIL", "FOB"}
	words         = []string{
		"furiously", "quickly", "carefully", "blithely", "slyly", "fluffily", "ironic", "final",
		"regular", "express", "pending", "bold", "even", "silent", "unusual", "special", "requests",
		"deposits", "packages", "accounts", "theodolites", "instructions", "foxes", "pinto", "beans",
		"asymptotes", "dependencies", "platelets", "ideas", "excuses", "sleep", "wake", "haggle",
		"nag", "use", "boost", "detect", "integrate", "cajole", "across", "above", "along", "among",
	}
)

var (
	genStart   = common.NewDate(1992, 1, 1)
	genEnd     = common.NewDate(1998, 8, 2)
	genCurrent = common.NewDate(1995, 6, 17)
)

type generator struct {
	rnd *rand.Rand
}

func (g *generator) pick(list []string) string {
	return list[g.rnd.Intn(len(list))]
}

func (g *generator) between(lo, hi int) int {
	return lo + g.rnd.Intn(hi-lo+1)
}

// text is a run of vocabulary words cut to width.
func (g *generator) text(width int) string {
	var sb strings.Builder
	for sb.Len() < width {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(g.pick(words))
	}
	return strings.TrimSpace(sb.String()[:min(sb.Len(), width)])
}

func (g *generator) address() string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 ,"
	b := make([]byte, g.between(10, addressLen))
	for i := range b {
		b[i] = letters[g.rnd.Intn(len(letters))]
	}
	return string(b)
}

func (g *generator) phone(nation int) string {
	return fmt.Sprintf("%02d-%03d-%03d-%04d", nation+10, g.between(100, 999), g.between(100, 999), g.between(1000, 9999))
}

// money is uniform in [lo, hi] cents.
func (g *generator) money(lo, hi int) int64 {
	return int64(g.between(lo, hi))
}

func retailPrice(partkey int) int64 {
	return int64(90000 + (partkey/10)%20001 + 100*(partkey%1000))
}

// partSupplier is the i-th of the four distinct suppliers of a part.
// suppliers must be at least 4.
func partSupplier(partkey, i, suppliers int) int {
	return (partkey+i*(suppliers/4))%suppliers + 1
}

func allocate(t *table.Table, n int) *table.Table {
	if err := t.Allocate(n); err != nil {
		panic(err)
	}
	if err := t.SetNumRow(n); err != nil {
		panic(err)
	}
	return t
}

// Generate builds a referentially consistent database in the dbgen shape.
// orders = 1,500,000 is scale factor 1. The same seed gives the same data.
func Generate(orders int, seed int64) *DB {
	orders = max(orders, 100)
	g := &generator{rnd: rand.New(rand.NewSource(seed))}
	customers := max(orders/10, 30)
	parts := max(orders*2/15, 40)
	suppliers := max(orders/150, 8)
	clerks := max(orders/1500, 1)

	db := NewDB()

	region := allocate(NewTable(Region), len(regionNames))
	for i, name := range regionNames {
		region.SetInt(i, 0, int64(i))
		region.SetText(i, 1, name)
		region.SetText(i, 2, g.text(regionCommentLen/2))
	}
	db.Add(region)

	nation := allocate(NewTable(Nation), len(nations))
	for i, n := range nations {
		nation.SetInt(i, 0, int64(i))
		nation.SetText(i, 1, n.name)
		nation.SetInt(i, 2, int64(n.region))
		nation.SetText(i, 3, g.text(nationCommentLen/2))
	}
	db.Add(nation)

	part := allocate(NewTable(Part), parts)
	for i := 0; i < parts; i++ {
		key := i + 1
		name := make([]string, 5)
		for j := range name {
			name[j] = g.pick(colors)
		}
		m := g.between(1, 5)
		part.SetInt(i, 0, int64(key))
		part.SetText(i, 1, strings.Join(name, " "))
		part.SetText(i, 2, fmt.Sprintf("Manufacturer#%d", m))
		part.SetText(i, 3, fmt.Sprintf("Brand#%d%d", m, g.between(1, 5)))
		part.SetText(i, 4, g.pick(typeSyllable1)+" "+g.pick(typeSyllable2)+" "+g.pick(typeSyllable3))
		part.SetInt(i, 5, int64(g.between(1, 50)))
		part.SetText(i, 6, g.pick(containerSyl1)+" "+g.pick(containerSyl2))
		part.SetInt(i, 7, retailPrice(key))
		part.SetText(i, 8, g.text(partCommentLen))
	}
	db.Add(part)

	supplier := allocate(NewTable(Supplier), suppliers)
	for i := 0; i < suppliers; i++ {
		key := i + 1
		nk := g.rnd.Intn(len(nations))
		supplier.SetInt(i, 0, int64(key))
		supplier.SetText(i, 1, fmt.Sprintf("Supplier#%09d", key))
		supplier.SetText(i, 2, g.address())
		supplier.SetInt(i, 3, int64(nk))
		supplier.SetText(i, 4, g.phone(nk))
		supplier.SetInt(i, 5, g.money(-99999, 999999))
		comment := g.text(supplierCommentLen / 2)
		if key%7 == 3 {
			comment += " Customer " + g.pick(words) + " Complaints"
		}
		supplier.SetText(i, 6, comment)
	}
	db.Add(supplier)

	partsupp := allocate(NewTable(PartSupp), parts*4)
	for i := 0; i < parts; i++ {
		for j := 0; j < 4; j++ {
			r := i*4 + j
			partsupp.SetInt(r, 0, int64(i+1))
			partsupp.SetInt(r, 1, int64(partSupplier(i+1, j, suppliers)))
			partsupp.SetInt(r, 2, int64(g.between(1, 9999)))
			partsupp.SetInt(r, 3, g.money(100, 100000))
			partsupp.SetText(r, 4, g.text(psCommentLen/2))
		}
	}
	db.Add(partsupp)

	customer := allocate(NewTable(Customer), customers)
	for i := 0; i < customers; i++ {
		key := i + 1
		nk := g.rnd.Intn(len(nations))
		customer.SetInt(i, 0, int64(key))
		customer.SetText(i, 1, fmt.Sprintf("Customer#%09d", key))
		customer.SetText(i, 2, g.address())
		customer.SetInt(i, 3, int64(nk))
		customer.SetText(i, 4, g.phone(nk))
		customer.SetInt(i, 5, g.money(-99999, 999999))
		customer.SetText(i, 6, g.pick(segments))
		customer.SetText(i, 7, g.text(customerCommentLen/2))
	}
	db.Add(customer)

	order := NewTable(Orders)
	if err := order.Allocate(orders); err != nil {
		panic(err)
	}
	line := NewTable(Lineitem)
	if err := line.Allocate(orders * 7); err != nil {
		panic(err)
	}
	lw := table.NewRowWriter(line)
	days := int(genEnd.Time().Sub(genStart.Time()).Hours()/24) - 151
	for i := 0; i < orders; i++ {
		key := int64(i + 1)
		// a third of the customers never order
		cust := g.between(1, customers)
		for cust%3 == 0 {
			cust = g.between(1, customers)
		}
		orderDate := genStart.AddDate(0, 0, g.rnd.Intn(days+1))
		lines := g.between(1, 7)
		total := common.NewScaled(0, 6)
		fCnt := 0
		for l := 0; l < lines; l++ {
			row, err := lw.Next()
			if err != nil {
				panic(err)
			}
			pk := g.between(1, parts)
			qty := int64(g.between(1, 50))
			price := common.NewScaled(retailPrice(pk), 2).MulInt(qty)
			disc := common.NewScaled(int64(g.between(0, 10)), 2)
			tax := common.NewScaled(int64(g.between(0, 8)), 2)
			ship := orderDate.AddDate(0, 0, g.between(1, 121))
			commit := orderDate.AddDate(0, 0, g.between(30, 90))
			receipt := ship.AddDate(0, 0, g.between(1, 30))
			flag := "N"
			if receipt <= genCurrent {
				flag = g.pick([]string{"R", "A"})
			}
			status := "O"
			if ship <= genCurrent {
				status = "F"
				fCnt++
			}
			line.SetInt(row, 0, key)
			line.SetInt(row, 1, int64(pk))
			line.SetInt(row, 2, int64(partSupplier(pk, g.rnd.Intn(4), suppliers)))
			line.SetInt(row, 3, int64(l+1))
			line.SetInt(row, 4, qty)
			line.SetScaled(row, 5, price)
			line.SetScaled(row, 6, disc)
			line.SetScaled(row, 7, tax)
			line.SetText(row, 8, flag)
			line.SetText(row, 9, status)
			line.SetDate(row, 10, ship)
			line.SetDate(row, 11, commit)
			line.SetDate(row, 12, receipt)
			line.SetText(row, 13, g.pick(instructions))
			line.SetText(row, 14, g.pick(shipModes))
			line.SetText(row, 15, g.text(lineCommentLen/2))

			one := common.NewScaled(100, 2)
			total = total.Add(price.Mul(one.Add(tax)).Mul(one.Sub(disc)))
		}
		status := "P"
		switch fCnt {
		case 0:
			status = "O"
		case lines:
			status = "F"
		}
		comment := g.text(orderCommentLen / 2)
		if i%13 == 5 {
			comment = "special " + g.pick(words) + " requests " + comment
		}
		order.SetInt(i, 0, key)
		order.SetInt(i, 1, int64(cust))
		order.SetText(i, 2, status)
		order.SetScaled(i, 3, total)
		order.SetDate(i, 4, orderDate)
		order.SetText(i, 5, g.pick(priorities))
		order.SetText(i, 6, fmt.Sprintf("Clerk#%09d", g.between(1, clerks)))
		order.SetInt(i, 7, 0)
		order.SetText(i, 8, comment)
	}
	if err := lw.Finish(); err != nil {
		panic(err)
	}
	if err := order.SetNumRow(orders); err != nil {
		panic(err)
	}
	db.Add(order)
	db.Add(line)
	return db
}
