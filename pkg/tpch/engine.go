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
	"time"

	"github.com/xlab/treeprint"
	"go.uber.org/zap"

	"github.com/daviszhen/tpch/pkg/accel"
	"github.com/daviszhen/tpch/pkg/compute"
	"github.com/daviszhen/tpch/pkg/table"
	"github.com/daviszhen/tpch/pkg/util"
)

const (
	pathCPU         = "cpu"
	pathPartitioned = "partitioned"
	pathDevice      = "device"
)

// Engine runs the stages of one query at a time. It sizes every output,
// picks the execution path of joins and keeps the stage tree of the query.
type Engine struct {
	ctx   context.Context
	cfg   *util.Config
	db    *DB
	dev   accel.Device
	runId string

	query int
	plan  treeprint.Tree
}

func NewEngine(ctx context.Context, cfg *util.Config, db *DB, dev accel.Device, runId string) *Engine {
	return &Engine{
		ctx:   ctx,
		cfg:   cfg,
		db:    db,
		dev:   dev,
		runId: runId,
		plan:  treeprint.New(),
	}
}

func (e *Engine) DB() *DB {
	return e.db
}

// Begin starts the stage tree of query id.
func (e *Engine) Begin(id int) {
	e.query = id
	e.plan = treeprint.NewWithRoot(fmt.Sprintf("Q%d", id))
}

func (e *Engine) Plan() string {
	return e.plan.String()
}

func (e *Engine) record(op, path string, start time.Time, out *table.Table, ins ...*table.Table) {
	dur := time.Since(start)
	stageCounter.WithLabelValues(op, path).Inc()
	stageRowsCounter.WithLabelValues(op).Add(float64(out.NumRow()))
	stageDurationHistogram.WithLabelValues(op).Observe(dur.Seconds())

	node := e.plan.AddBranch(fmt.Sprintf("%s[%s] %s rows %d", op, path, out.Name(), out.NumRow()))
	for _, in := range ins {
		node.AddNode(fmt.Sprintf("%s rows %d", in.Name(), in.NumRow()))
	}
	util.Debug("stage",
		zap.String("run", e.runId),
		zap.Int("query", e.query),
		zap.String("op", op),
		zap.String("path", path),
		zap.String("out", out.Name()),
		zap.Int("rows", out.NumRow()),
		zap.Duration("took", dur))
}

// Filter runs f over in into out, an unallocated table.
func (e *Engine) Filter(in, out *table.Table, f *compute.Filter) (*table.Table, error) {
	start := time.Now()
	if err := out.Allocate(f.Count(in)); err != nil {
		return nil, err
	}
	if err := f.Run(in, out); err != nil {
		return nil, err
	}
	e.record("filter", pathCPU, start, out, in)
	return out, nil
}

func (e *Engine) offload(rows int) bool {
	return e.dev != nil && e.cfg.Exec.OffloadRows > 0 && rows >= e.cfg.Exec.OffloadRows
}

// partitioned holds when both join inputs are large enough to be split.
func (e *Engine) partitioned(buildRows, probeRows int) bool {
	return e.cfg.Exec.Partitions > 1 &&
		buildRows >= e.cfg.Exec.PartitionRows &&
		probeRows >= e.cfg.Exec.PartitionRows
}

func (e *Engine) partitionedJoin(hj *compute.HashJoin) *compute.PartitionedJoin {
	return &compute.PartitionedJoin{
		Join:      hj,
		Parts:     e.cfg.Exec.Partitions,
		OverAlloc: e.cfg.Exec.OverAlloc,
		Parallel:  e.cfg.Exec.Parallel,
	}
}

// Join runs hj into out, an unallocated table. Large build sides go to the
// device, large inputs are partitioned and the others are joined in place.
// When both hold the device partitions the inputs.
func (e *Engine) Join(build, probe, out *table.Table, hj *compute.HashJoin) (*table.Table, error) {
	start := time.Now()
	rows := build.NumRow()
	var err error
	path := pathCPU
	switch {
	case e.offload(rows) && e.partitioned(rows, probe.NumRow()):
		// the device splits both inputs, the partitions join here
		path = pathDevice
		pj := e.partitionedJoin(hj)
		pj.Partition = e.dev.Partition
		err = pj.Run(e.ctx, build, probe, out)
	case e.offload(rows):
		path = pathDevice
		if err = out.Allocate(hj.Count(hj.Build(build), probe)); err != nil {
			return nil, err
		}
		err = e.dev.HashJoin(e.ctx, hj, build, probe, out)
	case e.partitioned(rows, probe.NumRow()):
		path = pathPartitioned
		err = e.partitionedJoin(hj).Run(e.ctx, build, probe, out)
	default:
		ht := hj.Build(build)
		if err = out.Allocate(hj.Count(ht, probe)); err != nil {
			return nil, err
		}
		err = hj.Probe(ht, probe, out)
	}
	if err != nil {
		return nil, fmt.Errorf("%s join %s with %s: %w", hj.Typ, build.Name(), probe.Name(), err)
	}
	e.record(hj.Typ.String()+" join", path, start, out, build, probe)
	return out, nil
}

// GroupBy aggregates in into out, an unallocated table.
func (e *Engine) GroupBy(in, out *table.Table, gb *compute.GroupBy) (*table.Table, error) {
	start := time.Now()
	path := pathCPU
	if e.offload(in.NumRow()) {
		path = pathDevice
		if err := out.Allocate(in.NumRow()); err != nil {
			return nil, err
		}
		if err := e.dev.GroupBy(e.ctx, gb, in, out); err != nil {
			return nil, err
		}
	} else {
		gt, err := gb.Groups(in)
		if err != nil {
			return nil, err
		}
		if err = out.Allocate(gt.Len()); err != nil {
			return nil, err
		}
		if err = gb.EmitGroups(gt, out); err != nil {
			return nil, err
		}
	}
	e.record("group by", path, start, out, in)
	return out, nil
}

// Aggregate folds the rows of in satisfying pred into one group. It is nil
// when no row qualifies.
func (e *Engine) Aggregate(in *table.Table, pred compute.RowPred, aggrs ...compute.Aggr) (*compute.Group, error) {
	start := time.Now()
	gb := &compute.GroupBy{Key: compute.ConstKey, Pred: pred, Aggrs: aggrs}
	gt, err := gb.Groups(in)
	if err != nil {
		return nil, err
	}
	stageCounter.WithLabelValues("aggregate", pathCPU).Inc()
	stageDurationHistogram.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	e.plan.AddBranch(fmt.Sprintf("aggregate[%s] %s rows %d", pathCPU, in.Name(), in.NumRow()))
	return gt.Get(compute.Key{}), nil
}

// Sort orders in by the keys. limit > 0 keeps the first limit rows.
func (e *Engine) Sort(in *table.Table, limit int, keys ...compute.SortKey) (*table.Table, error) {
	start := time.Now()
	s := compute.OrderBy(in, limit, keys...)
	out := in.NewLike(in.Name() + "_sorted")
	if err := out.Allocate(s.OutputRows(in)); err != nil {
		return nil, err
	}
	if err := s.Run(in, out); err != nil {
		return nil, err
	}
	e.record("sort", pathCPU, start, out, in)
	return out, nil
}

// Single is a one row table with the columns set by fill.
func (e *Engine) Single(out *table.Table, fill func(out *table.Table)) (*table.Table, error) {
	if err := out.Allocate(1); err != nil {
		return nil, err
	}
	fill(out)
	if err := out.SetNumRow(1); err != nil {
		return nil, err
	}
	return out, nil
}

// Select keeps the cols of the rows of in satisfying pred.
func (e *Engine) Select(in *table.Table, name string, pred compute.RowPred, cols ...int) (*table.Table, error) {
	return e.Filter(in, in.Project(name, cols...), &compute.Filter{Pred: pred, Columns: cols})
}
