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

import "github.com/prometheus/client_golang/prometheus"

var (
	Registry = prometheus.NewRegistry()

	stageCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpch",
			Subsystem: "engine",
			Name:      "stage_total",
			Help:      "Total count of executed stages.",
		}, []string{"op", "path"})

	stageRowsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpch",
			Subsystem: "engine",
			Name:      "stage_rows_total",
			Help:      "Total rows produced by stages.",
		}, []string{"op"})

	stageDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tpch",
			Subsystem: "engine",
			Name:      "stage_duration_seconds",
			Help:      "Bucketed histogram of stage duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"})

	queryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpch",
			Subsystem: "run",
			Name:      "query_total",
			Help:      "Total count of query runs.",
		}, []string{"status"})
	QuerySuccessCounter = queryCounter.WithLabelValues("success")
	QueryFailedCounter  = queryCounter.WithLabelValues("failed")

	queryDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tpch",
			Subsystem: "run",
			Name:      "query_duration_seconds",
			Help:      "Bucketed histogram of query duration.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		})
)

func init() {
	Registry.MustRegister(
		stageCounter,
		stageRowsCounter,
		stageDurationHistogram,
		queryCounter,
		queryDurationHistogram,
	)
}
