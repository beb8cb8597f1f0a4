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
	"fmt"
	"sync/atomic"

	"github.com/daviszhen/tpch/pkg/compute"
	"github.com/daviszhen/tpch/pkg/table"
)

var ErrUnknownDevice = errors.New("unknown device")

// Device runs whole join, aggregation and partition stages. The caller hands
// over the inputs and an allocated output and blocks until the stage is done.
// Inputs must not be mutated while a stage runs.
type Device interface {
	Name() string
	HashJoin(ctx context.Context, op *compute.HashJoin, build, probe, out *table.Table) error
	GroupBy(ctx context.Context, op *compute.GroupBy, in, out *table.Table) error
	Partition(ctx context.Context, op *compute.Partitioner, in *table.Table) (*table.Table, error)
}

// Submit runs fn on its own goroutine and waits for it to complete or for
// ctx to end. On ctx end the stage is abandoned and its output must not be
// read.
func Submit(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("stage panic: %v", r)
			}
		}()
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CPU runs the stages with the reference operators.
type CPU struct {
	stages atomic.Int64
}

func NewCPU() *CPU {
	return &CPU{}
}

func (c *CPU) Name() string {
	return "cpu"
}

// Stages is the number of stages submitted so far.
func (c *CPU) Stages() int64 {
	return c.stages.Load()
}

func (c *CPU) HashJoin(ctx context.Context, op *compute.HashJoin, build, probe, out *table.Table) error {
	c.stages.Add(1)
	return Submit(ctx, func() error {
		return op.Run(build, probe, out)
	})
}

func (c *CPU) GroupBy(ctx context.Context, op *compute.GroupBy, in, out *table.Table) error {
	c.stages.Add(1)
	return Submit(ctx, func() error {
		return op.Run(in, out)
	})
}

func (c *CPU) Partition(ctx context.Context, op *compute.Partitioner, in *table.Table) (*table.Table, error) {
	c.stages.Add(1)
	var ret *table.Table
	err := Submit(ctx, func() error {
		var err error
		ret, err = op.Run(in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Lookup resolves a device by its configured name.
func Lookup(name string) (Device, error) {
	switch name {
	case "", "cpu":
		return NewCPU(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
}
