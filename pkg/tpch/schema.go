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
	"github.com/daviszhen/tpch/pkg/table"
)

// text widths of the dbgen columns
const (
	nameLen            = 25
	partNameLen        = 55
	addressLen         = 40
	phoneLen           = 15
	mfgrLen            = 25
	brandLen           = 10
	typeLen            = 25
	containerLen       = 10
	segmentLen         = 10
	priorityLen        = 15
	clerkLen           = 15
	instructLen        = 25
	shipModeLen        = 10
	regionCommentLen   = 152
	nationCommentLen   = 152
	partCommentLen     = 23
	supplierCommentLen = 101
	psCommentLen       = 199
	customerCommentLen = 117
	orderCommentLen    = 79
	lineCommentLen     = 44
)

const (
	Region   = "region"
	Nation   = "nation"
	Part     = "part"
	Supplier = "supplier"
	PartSupp = "partsupp"
	Customer = "customer"
	Orders   = "orders"
	Lineitem = "lineitem"
)

var TableNames = []string{Region, Nation, Part, Supplier, PartSupp, Customer, Orders, Lineitem}

// NewTable returns the unallocated table with the columns in .tbl order.
func NewTable(name string) *table.Table {
	switch name {
	case Region:
		return table.New(Region,
			table.Int32Col("r_regionkey"),
			table.TextCol("r_name", nameLen),
			table.TextCol("r_comment", regionCommentLen),
		)
	case Nation:
		return table.New(Nation,
			table.Int32Col("n_nationkey"),
			table.TextCol("n_name", nameLen),
			table.Int32Col("n_regionkey"),
			table.TextCol("n_comment", nationCommentLen),
		)
	case Part:
		return table.New(Part,
			table.Int32Col("p_partkey"),
			table.TextCol("p_name", partNameLen),
			table.TextCol("p_mfgr", mfgrLen),
			table.TextCol("p_brand", brandLen),
			table.TextCol("p_type", typeLen),
			table.Int32Col("p_size"),
			table.TextCol("p_container", containerLen),
			table.ScaledCol("p_retailprice", 2),
			table.TextCol("p_comment", partCommentLen),
		)
	case Supplier:
		return table.New(Supplier,
			table.Int32Col("s_suppkey"),
			table.TextCol("s_name", nameLen),
			table.TextCol("s_address", addressLen),
			table.Int32Col("s_nationkey"),
			table.TextCol("s_phone", phoneLen),
			table.ScaledCol("s_acctbal", 2),
			table.TextCol("s_comment", supplierCommentLen),
		)
	case PartSupp:
		return table.New(PartSupp,
			table.Int32Col("ps_partkey"),
			table.Int32Col("ps_suppkey"),
			table.Int32Col("ps_availqty"),
			table.ScaledCol("ps_supplycost", 2),
			table.TextCol("ps_comment", psCommentLen),
		)
	case Customer:
		return table.New(Customer,
			table.Int32Col("c_custkey"),
			table.TextCol("c_name", nameLen),
			table.TextCol("c_address", addressLen),
			table.Int32Col("c_nationkey"),
			table.TextCol("c_phone", phoneLen),
			table.ScaledCol("c_acctbal", 2),
			table.TextCol("c_mktsegment", segmentLen),
			table.TextCol("c_comment", customerCommentLen),
		)
	case Orders:
		return table.New(Orders,
			table.Int64Col("o_orderkey"),
			table.Int32Col("o_custkey"),
			table.TextCol("o_orderstatus", 1),
			table.ScaledCol("o_totalprice", 2),
			table.DateCol("o_orderdate"),
			table.TextCol("o_orderpriority", priorityLen),
			table.TextCol("o_clerk", clerkLen),
			table.Int32Col("o_shippriority"),
			table.TextCol("o_comment", orderCommentLen),
		)
	case Lineitem:
		return table.New(Lineitem,
			table.Int64Col("l_orderkey"),
			table.Int32Col("l_partkey"),
			table.Int32Col("l_suppkey"),
			table.Int32Col("l_linenumber"),
			table.ScaledCol("l_quantity", 0),
			table.ScaledCol("l_extendedprice", 2),
			table.ScaledCol("l_discount", 2),
			table.ScaledCol("l_tax", 2),
			table.TextCol("l_returnflag", 1),
			table.TextCol("l_linestatus", 1),
			table.DateCol("l_shipdate"),
			table.DateCol("l_commitdate"),
			table.DateCol("l_receiptdate"),
			table.TextCol("l_shipinstruct", instructLen),
			table.TextCol("l_shipmode", shipModeLen),
			table.TextCol("l_comment", lineCommentLen),
		)
	}
	panic("usp tpch table " + name)
}

// column positions in NewTable order
const (
	rRegionkey = iota
	rName
	rComment
)

const (
	nNationkey = iota
	nName
	nRegionkey
	nComment
)

const (
	pPartkey = iota
	pName
	pMfgr
	pBrand
	pType
	pSize
	pContainer
	pRetailprice
	pComment
)

const (
	sSuppkey = iota
	sName
	sAddress
	sNationkey
	sPhone
	sAcctbal
	sComment
)

const (
	psPartkey = iota
	psSuppkey
	psAvailqty
	psSupplycost
	psComment
)

const (
	cCustkey = iota
	cName
	cAddress
	cNationkey
	cPhone
	cAcctbal
	cMktsegment
	cComment
)

const (
	oOrderkey = iota
	oCustkey
	oOrderstatus
	oTotalprice
	oOrderdate
	oOrderpriority
	oClerk
	oShippriority
	oComment
)

const (
	lOrderkey = iota
	lPartkey
	lSuppkey
	lLinenumber
	lQuantity
	lExtendedprice
	lDiscount
	lTax
	lReturnflag
	lLinestatus
	lShipdate
	lCommitdate
	lReceiptdate
	lShipinstruct
	lShipmode
	lComment
)
