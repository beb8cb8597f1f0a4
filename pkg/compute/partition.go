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

package compute

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/daviszhen/tpch/pkg/table"
	"github.com/daviszhen/tpch/pkg/util"
)

const DefaultOverAlloc = 1.2

// Partitioner splits a table into Parts blocks by the low bits of the key
// hash. Rows with equal keys land in the same partition index on every
// table. Parts must be a power of two.
type Partitioner struct {
	Parts     int
	OverAlloc float64
	Key       KeyFunc
}

func PartitionIndex(k Key, parts int) int {
	return int(k.Hash() & uint64(parts-1))
}

func checkParts(parts int) error {
	if parts < 1 || !util.IsPowerOfTwo(uint64(parts)) {
		return fmt.Errorf("%w: %d", table.ErrInvalidPartitions, parts)
	}
	return nil
}

// Run returns a partitioned table; SubTable(i) is partition i. A partition
// outgrowing its headroom fails with ErrPartitionOverflow.
func (p *Partitioner) Run(in *table.Table) (*table.Table, error) {
	if err := checkParts(p.Parts); err != nil {
		return nil, err
	}
	over := p.OverAlloc
	if over == 0 {
		over = DefaultOverAlloc
	}
	n := in.NumRow()
	out := in.NewLike(in.Name() + "_part")
	if err := out.AllocatePartitioned(util.CeilDiv(n, p.Parts), over, p.Parts); err != nil {
		return nil, err
	}
	views := out.SubTables()
	cnts := make([]int, p.Parts)
	limit := out.Capacity()
	for r := 0; r < n; r++ {
		i := PartitionIndex(p.Key(in, r), p.Parts)
		if cnts[i] >= limit {
			return nil, fmt.Errorf("%w: partition %d of %s exceeds %d rows (%d rows, %d partitions, over allocation %v)",
				table.ErrPartitionOverflow, i, in.Name(), limit, n, p.Parts, over)
		}
		table.CopyRow(views[i], cnts[i], in, r)
		cnts[i]++
	}
	for i, v := range views {
		if err := v.SetNumRow(cnts[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PartitionedJoin partitions both join inputs by their join keys, joins the
// partition pairs independently and concatenates the results in partition
// order. Up to Parallel partitions run at once; each writes its own table.
type PartitionedJoin struct {
	Join      *HashJoin
	Parts     int
	OverAlloc float64
	Parallel  int
	// Partition splits both inputs. nil runs Partitioner.Run in place.
	Partition PartitionFunc
}

// PartitionFunc splits in with p, e.g. on a device.
type PartitionFunc func(ctx context.Context, p *Partitioner, in *table.Table) (*table.Table, error)

func partitionInPlace(_ context.Context, p *Partitioner, in *table.Table) (*table.Table, error) {
	return p.Run(in)
}

// Run joins into out. An unallocated out is sized to the result.
func (pj *PartitionedJoin) Run(ctx context.Context, build, probe, out *table.Table) error {
	split := pj.Partition
	if split == nil {
		split = partitionInPlace
	}
	bp, err := split(ctx, &Partitioner{Parts: pj.Parts, OverAlloc: pj.OverAlloc, Key: pj.Join.BuildKey}, build)
	if err != nil {
		return err
	}
	pp, err := split(ctx, &Partitioner{Parts: pj.Parts, OverAlloc: pj.OverAlloc, Key: pj.Join.ProbeKey}, probe)
	if err != nil {
		return err
	}

	results := make([]*table.Table, pj.Parts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(pj.Parallel, 1))
	for i := 0; i < pj.Parts; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, p := bp.SubTable(i), pp.SubTable(i)
			ht := pj.Join.Build(b)
			res := out.NewLike(fmt.Sprintf("%s_%d", out.Name(), i))
			if err := res.Allocate(pj.Join.Count(ht, p)); err != nil {
				return err
			}
			if err := pj.Join.Probe(ht, p, res); err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	if !out.Allocated() {
		total := 0
		for _, res := range results {
			total += res.NumRow()
		}
		if err = out.Allocate(total); err != nil {
			return err
		}
	}
	return out.MergeSubTables(results...)
}
