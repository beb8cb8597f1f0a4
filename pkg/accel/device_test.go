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

package accel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/tpch/pkg/compute"
	"github.com/daviszhen/tpch/pkg/table"
)

func seq(t *testing.T, name string, n int, mod int64) *table.Table {
	tab := table.New(name, table.Int64Col("k"), table.Int64Col("v"))
	require.NoError(t, tab.Allocate(n))
	for r := 0; r < n; r++ {
		tab.SetInt(r, 0, int64(r)%mod)
		tab.SetInt(r, 1, int64(r))
	}
	require.NoError(t, tab.SetNumRow(n))
	return tab
}

func Test_lookup(t *testing.T) {
	dev, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "cpu", dev.Name())
	_, err = Lookup("fpga")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func Test_submit(t *testing.T) {
	boom := errors.New("boom")
	assert.ErrorIs(t, Submit(context.Background(), func() error { return boom }), boom)
	assert.Error(t, Submit(context.Background(), func() error { panic("stage") }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	release := make(chan struct{})
	defer close(release)
	err := Submit(ctx, func() error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_cpuStages(t *testing.T) {
	dev := NewCPU()
	ctx := context.Background()
	build := seq(t, "build", 10, 10)
	probe := seq(t, "probe", 30, 10)

	hj := &compute.HashJoin{
		Typ:      compute.JoinTypeSemi,
		BuildKey: compute.ColKey(0),
		ProbeKey: compute.ColKey(0),
		Emit: func(out *table.Table, outRow int, _ *table.Table, _ int, probe *table.Table, probeRow int) {
			table.CopyRow(out, outRow, probe, probeRow)
		},
	}
	joined := probe.NewLike("joined")
	require.NoError(t, joined.Allocate(30))
	require.NoError(t, dev.HashJoin(ctx, hj, build, probe, joined))
	assert.Equal(t, 30, joined.NumRow())

	gb := &compute.GroupBy{
		Key:   compute.ColKey(0),
		Aggrs: []compute.Aggr{compute.Count()},
		Emit: func(out *table.Table, outRow int, _ *table.Table, g *compute.Group) {
			out.SetInt(outRow, 0, g.Key.F[0])
			out.SetInt(outRow, 1, g.Count(0))
		},
	}
	grouped := probe.NewLike("grouped")
	require.NoError(t, grouped.Allocate(10))
	require.NoError(t, dev.GroupBy(ctx, gb, joined, grouped))
	require.Equal(t, 10, grouped.NumRow())
	for r := 0; r < 10; r++ {
		assert.Equal(t, int64(3), grouped.Int(r, 1))
	}

	parts, err := dev.Partition(ctx, &compute.Partitioner{Parts: 2, OverAlloc: 2, Key: compute.ColKey(0)}, probe)
	require.NoError(t, err)
	assert.Equal(t, 30, parts.NumRow())
	assert.Equal(t, int64(3), dev.Stages())
}
