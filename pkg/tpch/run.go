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
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daviszhen/tpch/pkg/accel"
	"github.com/daviszhen/tpch/pkg/table"
	"github.com/daviszhen/tpch/pkg/util"
)

type runResult struct {
	id   int
	dur  time.Duration
	succ bool
}

func (res *runResult) String() string {
	succ := "failed"
	if res.succ {
		succ = "success"
	}
	return fmt.Sprint("Query ", res.id, " took ", res.dur, " ", succ)
}

// RunQuery runs query id, 1 based, on the engine.
func RunQuery(e *Engine, id int) (*table.Table, error) {
	if id <= 0 || id > QueryCount {
		return nil, fmt.Errorf("invalid query Id:%d", id)
	}
	e.Begin(id)
	start := time.Now()
	out, err := Queries[id-1](e)
	queryDurationHistogram.Observe(time.Since(start).Seconds())
	if err != nil {
		QueryFailedCounter.Inc()
		return nil, fmt.Errorf("query %d: %w", id, err)
	}
	QuerySuccessCounter.Inc()
	return out, nil
}

func writeResult(cfg *util.Config, id int, out *table.Table) (err error) {
	if cfg.Debug.PrintResult {
		if err = table.Print(os.Stdout, out, cfg.Debug.MaxOutputRowCount, cfg.Tpch.Result.NeedHeadLine); err != nil {
			return err
		}
	}
	if cfg.Tpch.Result.Path == "" {
		return nil
	}
	if err = os.MkdirAll(cfg.Tpch.Result.Path, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(cfg.Tpch.Result.Path, fmt.Sprintf("q%d.txt", id)))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return table.Print(f, out, 0, cfg.Tpch.Result.NeedHeadLine)
}

func Run(cfg *util.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Log.Level != "" {
		logger, err := util.NewLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		util.SetLogger(logger)
	}

	start := time.Now()
	defer func() {
		fmt.Printf("Run took %s\n", time.Since(start))
	}()

	runId := uuid.NewString()
	db, err := LoadDB(cfg)
	if err != nil {
		return err
	}
	dev, err := accel.Lookup(cfg.Exec.Device)
	if err != nil {
		return err
	}
	util.Info("run",
		zap.String("run", runId),
		zap.Uint("queryId", cfg.Tpch.Query.QueryId),
		zap.Int("tables", db.Size()),
		zap.Int("rows", db.Rows()),
		zap.String("device", dev.Name()),
		zap.Int("partitions", cfg.Exec.Partitions))
	e := NewEngine(context.Background(), cfg, db, dev, runId)

	ids := make([]int, 0, QueryCount)
	if cfg.Tpch.Query.QueryId == 0 {
		for i := 1; i <= QueryCount; i++ {
			ids = append(ids, i)
		}
	} else {
		ids = append(ids, int(cfg.Tpch.Query.QueryId))
	}
	repeat := max(cfg.Debug.Count, 1)

	for r := 0; r < repeat; r++ {
		res := make([]runResult, 0, len(ids))
		for _, id := range ids {
			st := time.Now()
			out, err := RunQuery(e, id)
			if err == nil {
				err = writeResult(cfg, id, out)
			}
			if err != nil {
				util.Error("execQuery fail", zap.String("run", runId), zap.Int("queryId", id), zap.Error(err))
				res = append(res, runResult{id: id, dur: time.Since(st)})
				continue
			}
			res = append(res, runResult{id: id, dur: time.Since(st), succ: true})
			if cfg.Debug.PrintPlan {
				fmt.Println(e.Plan())
			}
		}
		failed := make([]int, 0)
		for _, re := range res {
			fmt.Println(re.String())
			if !re.succ {
				failed = append(failed, re.id)
			}
		}
		if len(failed) > 0 {
			fmt.Printf("Failed query count: %d\n", len(failed))
			for _, i := range failed {
				fmt.Println("Query", i, "failed")
			}
		}
	}
	return nil
}
