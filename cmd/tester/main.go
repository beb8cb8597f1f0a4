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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/daviszhen/tpch/pkg/tpch"
	"github.com/daviszhen/tpch/pkg/util"
)

func init() {
	setDefaults()
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file. default ./tester.toml or etc/tpch/tester.toml")
	initTpchCmd()
	initGenCmd()
}

var testerCfg = util.DefaultConfig()
var cfgFile string

///root cmd

var info = "tester"
var RootCmd = &cobra.Command{
	Use:          "tester",
	Short:        info,
	Long:         info,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("use tester --help or -h")
	},
}

func setDefaults() {
	def := util.DefaultConfig()
	viper.SetDefault("tpch.data.format", def.Tpch.Data.Format)
	viper.SetDefault("tpch.data.genOrders", def.Tpch.Data.GenOrders)
	viper.SetDefault("tpch.data.genSeed", def.Tpch.Data.GenSeed)
	viper.SetDefault("tpch.result.needHeadline", def.Tpch.Result.NeedHeadLine)
	viper.SetDefault("exec.partitions", def.Exec.Partitions)
	viper.SetDefault("exec.partitionRows", def.Exec.PartitionRows)
	viper.SetDefault("exec.overAlloc", def.Exec.OverAlloc)
	viper.SetDefault("exec.parallel", def.Exec.Parallel)
	viper.SetDefault("exec.offloadRows", def.Exec.OffloadRows)
	viper.SetDefault("debug.maxOutputRowCount", def.Debug.MaxOutputRowCount)
	viper.SetDefault("debug.printResult", def.Debug.PrintResult)
	viper.SetDefault("debug.count", def.Debug.Count)
	viper.SetDefault("log.level", def.Log.Level)
}

func initOptions() {
	testerCfg.Exec.Partitions = viper.GetInt("exec.partitions")
	testerCfg.Exec.PartitionRows = viper.GetInt("exec.partitionRows")
	testerCfg.Exec.OverAlloc = viper.GetFloat64("exec.overAlloc")
	testerCfg.Exec.Parallel = viper.GetInt("exec.parallel")
	testerCfg.Exec.Device = viper.GetString("exec.device")
	testerCfg.Exec.OffloadRows = viper.GetInt("exec.offloadRows")

	testerCfg.Debug.MaxOutputRowCount = viper.GetInt("debug.maxOutputRowCount")
	testerCfg.Debug.PrintResult = viper.GetBool("debug.printResult")
	testerCfg.Debug.PrintPlan = viper.GetBool("debug.printPlan")
	testerCfg.Debug.Count = viper.GetInt("debug.count")

	testerCfg.Log.Level = viper.GetString("log.level")
}

func initDataOptions() {
	testerCfg.Tpch.Data.Path = viper.GetString("tpch.data.path")
	testerCfg.Tpch.Data.Format = viper.GetString("tpch.data.format")
	testerCfg.Tpch.Data.GenOrders = viper.GetInt("tpch.data.genOrders")
	testerCfg.Tpch.Data.GenSeed = viper.GetInt64("tpch.data.genSeed")
}

//tpch cmd

var tpchInfo = "run tpch queries"
var tpchCmd = &cobra.Command{
	Use:   "tpch",
	Short: tpchInfo,
	Long:  tpchInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		initTpchCfg()
		return tpch.Run(testerCfg)
	},
}

func initTpchCfg() {
	initOptions()
	initDataOptions()
	testerCfg.Tpch.Query.QueryId = viper.GetUint("tpch.query.queryId")
	testerCfg.Tpch.Result.Path = viper.GetString("tpch.result.path")
	testerCfg.Tpch.Result.NeedHeadLine = viper.GetBool("tpch.result.needHeadline")
}

func initTpchCmd() {
	RootCmd.AddCommand(tpchCmd)
	tpchCmd.Flags().Uint("query_id", 0, "query id. 0 runs all")
	tpchCmd.Flags().String("data_path", "", "tpch data path")
	tpchCmd.Flags().String("data_format", "gen", "tpch data format. bin, csv, parquet, gen")
	tpchCmd.Flags().Int("gen_orders", 1500, "orders of generated data")
	tpchCmd.Flags().String("result_path", "", "query result path")
	tpchCmd.Flags().Bool("need_headline", true, "output headline in query result")
	tpchCmd.Flags().Int("partitions", 1, "partitions of large hash joins")
	tpchCmd.Flags().Int("parallel", 1, "concurrent partition joins")
	tpchCmd.Flags().String("device", "", "accelerator device")

	viper.BindPFlag("tpch.query.queryId", tpchCmd.Flags().Lookup("query_id"))
	viper.BindPFlag("tpch.data.path", tpchCmd.Flags().Lookup("data_path"))
	viper.BindPFlag("tpch.data.format", tpchCmd.Flags().Lookup("data_format"))
	viper.BindPFlag("tpch.data.genOrders", tpchCmd.Flags().Lookup("gen_orders"))
	viper.BindPFlag("tpch.result.path", tpchCmd.Flags().Lookup("result_path"))
	viper.BindPFlag("tpch.result.needHeadline", tpchCmd.Flags().Lookup("need_headline"))
	viper.BindPFlag("exec.partitions", tpchCmd.Flags().Lookup("partitions"))
	viper.BindPFlag("exec.parallel", tpchCmd.Flags().Lookup("parallel"))
	viper.BindPFlag("exec.device", tpchCmd.Flags().Lookup("device"))
}

//gen cmd

var genInfo = "generate tpch data as column files"
var genCmd = &cobra.Command{
	Use:   "gen",
	Short: genInfo,
	Long:  genInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := viper.GetString("gen.out")
		if out == "" {
			return fmt.Errorf("gen needs an output path")
		}
		db := tpch.Generate(viper.GetInt("gen.orders"), viper.GetInt64("gen.seed"))
		if err := db.Save(out, viper.GetBool("gen.compress")); err != nil {
			return err
		}
		util.Info("generated",
			zap.String("out", out),
			zap.Int("tables", db.Size()),
			zap.Int("rows", db.Rows()))
		return nil
	},
}

func initGenCmd() {
	RootCmd.AddCommand(genCmd)
	genCmd.Flags().String("out", "", "output directory")
	genCmd.Flags().Bool("compress", false, "zstd compress column files")
	genCmd.Flags().Int("gen_orders", 1500, "orders of generated data")
	genCmd.Flags().Int64("gen_seed", 1, "generator seed")

	viper.BindPFlag("gen.out", genCmd.Flags().Lookup("out"))
	viper.BindPFlag("gen.compress", genCmd.Flags().Lookup("compress"))
	viper.BindPFlag("gen.orders", genCmd.Flags().Lookup("gen_orders"))
	viper.BindPFlag("gen.seed", genCmd.Flags().Lookup("gen_seed"))
}

var defCfgFilePaths = []string{".", "etc/tpch"}
var cfgFileName = "tester.toml"

// loadConfig decodes the --config file, or the first tester.toml found, into
// testerCfg and hands it to viper so changed flags still win. Flags and
// defaults cover a missing file.
func loadConfig() error {
	if cfgFile != "" {
		return readConfig(cfgFile)
	}
	for _, dirPath := range defCfgFilePaths {
		fpath := filepath.Join(dirPath, cfgFileName)
		if util.FileIsValid(fpath) {
			if err := readConfig(fpath); err != nil {
				util.Error("load config file failed",
					zap.String("fpath", fpath),
					zap.Error(err))
				continue
			}
			return nil
		}
	}
	util.Info("tester.toml does not exist, using defaults")
	return nil
}

func readConfig(fpath string) error {
	cfg, err := util.LoadConfig(fpath)
	if err != nil {
		return err
	}
	viper.SetConfigFile(fpath)
	if err = viper.ReadInConfig(); err != nil {
		return err
	}
	testerCfg = cfg
	return nil
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
