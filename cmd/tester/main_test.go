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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/tpch/pkg/util"
)

func Test_configFlag(t *testing.T) {
	defer func() {
		cfgFile = ""
		testerCfg = util.DefaultConfig()
	}()
	dir := t.TempDir()

	cfgFile = filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
[tpch.query]
queryId = 6

[exec]
partitions = 4
device = "cpu"
`), 0644))
	require.NoError(t, loadConfig())
	assert.Equal(t, 4, testerCfg.Exec.Partitions)
	assert.Equal(t, "gen", testerCfg.Tpch.Data.Format)

	// file values survive the flag overlay when no flag changed
	initTpchCfg()
	assert.Equal(t, uint(6), testerCfg.Tpch.Query.QueryId)
	assert.Equal(t, 4, testerCfg.Exec.Partitions)
	assert.Equal(t, "cpu", testerCfg.Exec.Device)
	require.NoError(t, testerCfg.Validate())

	cfgFile = filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[exec]\npartitions = 3\n"), 0644))
	assert.ErrorContains(t, loadConfig(), "power of two")

	cfgFile = filepath.Join(dir, "missing.toml")
	assert.Error(t, loadConfig())
}
