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

package util

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type TpchQuery struct {
	QueryId uint `tag:"queryId" toml:"queryId"`
}

type TpchData struct {
	Path string `tag:"path" toml:"path"`
	// bin, csv, parquet, gen
	Format string `tag:"format" toml:"format"`
	// orders generated by the "gen" format
	GenOrders int   `tag:"genOrders" toml:"genOrders"`
	GenSeed   int64 `tag:"genSeed" toml:"genSeed"`
}

type TpchResult struct {
	Path         string `tag:"path" toml:"path"`
	NeedHeadLine bool   `tag:"needHeadline" toml:"needHeadline"`
}

type Tpch struct {
	Query  TpchQuery  `tag:"query" toml:"query"`
	Data   TpchData   `tag:"data" toml:"data"`
	Result TpchResult `tag:"result" toml:"result"`
}

type ExecOptions struct {
	// partition count of partitioned hash joins. 0 or 1 disables partitioning.
	Partitions int `tag:"partitions" toml:"partitions"`
	// build side rows needed before a join is partitioned.
	PartitionRows int `tag:"partitionRows" toml:"partitionRows"`
	// headroom of every partition block over the even split.
	OverAlloc float64 `tag:"overAlloc" toml:"overAlloc"`
	// concurrent partition joins.
	Parallel int `tag:"parallel" toml:"parallel"`
	// accelerator device name. empty means cpu.
	Device string `tag:"device" toml:"device"`
	// build side rows needed before a join is handed to the device.
	OffloadRows int `tag:"offloadRows" toml:"offloadRows"`
}

type DebugOptions struct {
	MaxOutputRowCount int  `tag:"maxOutputRowCount" toml:"maxOutputRowCount"`
	PrintResult       bool `tag:"printResult" toml:"printResult"`
	PrintPlan         bool `tag:"printPlan" toml:"printPlan"`
	Count             int  `tag:"count" toml:"count"`
}

type LogOptions struct {
	Level string `tag:"level" toml:"level"`
}

type Config struct {
	Tpch  Tpch         `tag:"tpch" toml:"tpch"`
	Exec  ExecOptions  `tag:"exec" toml:"exec"`
	Debug DebugOptions `tag:"debug" toml:"debug"`
	Log   LogOptions   `tag:"log" toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Tpch: Tpch{
			Data: TpchData{
				Format:    "gen",
				GenOrders: 1500,
				GenSeed:   1,
			},
			Result: TpchResult{
				NeedHeadLine: true,
			},
		},
		Exec: ExecOptions{
			Partitions:    1,
			PartitionRows: 1 << 16,
			OverAlloc:     1.2,
			Parallel:      1,
			OffloadRows:   1 << 20,
		},
		Debug: DebugOptions{
			MaxOutputRowCount: 32,
			PrintResult:       true,
			Count:             1,
		},
		Log: LogOptions{
			Level: "info",
		},
	}
}

// LoadConfig decodes a toml file over the defaults.
func LoadConfig(fpath string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(fpath, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", fpath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Exec.Partitions < 0 || !IsPowerOfTwo(uint64(max(cfg.Exec.Partitions, 1))) {
		return fmt.Errorf("partitions %d is not a power of two", cfg.Exec.Partitions)
	}
	if cfg.Exec.OverAlloc != 0 && cfg.Exec.OverAlloc < 1 {
		return fmt.Errorf("overAlloc %v less than 1", cfg.Exec.OverAlloc)
	}
	if cfg.Tpch.Query.QueryId > 22 {
		return fmt.Errorf("invalid query Id:%d", cfg.Tpch.Query.QueryId)
	}
	switch cfg.Tpch.Data.Format {
	case "bin", "csv", "parquet", "gen":
	default:
		return fmt.Errorf("usp data format %q", cfg.Tpch.Data.Format)
	}
	return nil
}
