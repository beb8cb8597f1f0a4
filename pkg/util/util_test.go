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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_hash(t *testing.T) {
	assert.Equal(t, HashString("brass"), HashBytes([]byte("brass")))
	assert.NotEqual(t, HashString("brass"), HashString("BRASS"))
	// every tail length
	seen := map[uint64]bool{}
	s := "abcdefghijklmnop"
	for i := 0; i <= len(s); i++ {
		h := HashString(s[:i])
		assert.False(t, seen[h], "prefix %d", i)
		seen[h] = true
	}
	assert.NotEqual(t, Murmurhash64(1), Murmurhash64(2))
	assert.NotEqual(t, CombineHashScalar(1, 2), CombineHashScalar(2, 1))
}

func Test_powerOfTwo(t *testing.T) {
	assert.True(t, IsPowerOfTwo(1))
	assert.True(t, IsPowerOfTwo(64))
	assert.False(t, IsPowerOfTwo(0))
	assert.False(t, IsPowerOfTwo(12))
	assert.Equal(t, 3, CeilDiv(9, 4))
	assert.Equal(t, 2, CeilDiv(8, 4))
	assert.Equal(t, 128, AlignValue(65, 64))
}

func Test_loadConfig(t *testing.T) {
	dir := t.TempDir()
	fpath := filepath.Join(dir, "tester.toml")
	require.NoError(t, os.WriteFile(fpath, []byte(`
[tpch.query]
queryId = 5
[tpch.data]
format = "csv"
path = "/data/tpch"
[exec]
partitions = 8
parallel = 4
`), 0644))
	cfg, err := LoadConfig(fpath)
	require.NoError(t, err)
	assert.Equal(t, uint(5), cfg.Tpch.Query.QueryId)
	assert.Equal(t, "csv", cfg.Tpch.Data.Format)
	assert.Equal(t, 8, cfg.Exec.Partitions)
	assert.Equal(t, 4, cfg.Exec.Parallel)
	// untouched keys keep the defaults
	assert.Equal(t, 1.2, cfg.Exec.OverAlloc)
	assert.Equal(t, "info", cfg.Log.Level)

	require.NoError(t, os.WriteFile(fpath, []byte("[exec]\npartitions = 6\n"), 0644))
	_, err = LoadConfig(fpath)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func Test_validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Exec.OverAlloc = 0.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Tpch.Query.QueryId = 23
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Tpch.Data.Format = "orc"
	assert.Error(t, cfg.Validate())
}

func Test_logger(t *testing.T) {
	_, err := NewLogger("nope")
	assert.Error(t, err)
	old := GetLogger()
	l, err := NewLogger("debug")
	require.NoError(t, err)
	SetLogger(l)
	defer SetLogger(old)
	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
}
