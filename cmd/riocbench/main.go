/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command riocbench drives a multi-goroutine insert/get/delete/range-query
// workload against a RIOC server and reports, per phase, the operation
// count, the error count and the P50/P95/P99 latency, the Go equivalent of
// the original rioc_bench tool's pthread worker pool.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hpkv-io/rioc/client"
	"github.com/hpkv-io/rioc/platform"
	"github.com/hpkv-io/rioc/riolog"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	batchSize       = 16
	maxThreads      = 64
	defaultValueLen = 100
	defaultNumOps   = 10000
)

var log = riolog.NewText(os.Stdout, riolog.LevelInfo)

// latency is a Prometheus summary of per-operation latency in seconds,
// labeled by phase (insert/get/delete/range), read back through Gather
// once every worker has finished rather than printed incrementally — the
// Go analogue of rioc_bench's qsort-and-index percentile calculation.
var latency = prometheus.NewSummaryVec(prometheus.SummaryOpts{
	Name:       "riocbench_op_latency_seconds",
	Help:       "per-operation latency observed by riocbench",
	Objectives: map[float64]float64{0.5: 0.01, 0.95: 0.005, 0.99: 0.001},
}, []string{"phase"})

var errCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "riocbench_op_errors_total",
	Help: "per-operation error count observed by riocbench",
}, []string{"phase"})

func init() {
	prometheus.MustRegister(latency, errCount)
}

type benchConfig struct {
	host       string
	port       uint32
	numThreads int
	valueSize  int
	numOps     int
	verify     bool
	tlsCert    string
	tlsKey     string
	tlsCA      string
}

func main() {
	root := &cobra.Command{
		Use:   "riocbench <host> <port> <num_threads> [value_size] [num_ops] [verify] [tls_cert] [tls_key] [tls_ca]",
		Short: "Benchmark a RIOC server with a pool of concurrent clients",
		Args:  cobra.RangeArgs(3, 9),
		RunE:  runBench,
	}

	viper.SetEnvPrefix("riocbench")
	viper.AutomaticEnv()

	if err := root.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func runBench(_ *cobra.Command, args []string) error {
	cfg, err := parseArgs(args)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
		return nil
	}
	cfg.applyEnvFallback()

	log.WithFields(riolog.Fields{
		"host": cfg.host, "port": cfg.port, "threads": cfg.numThreads,
		"value_size": cfg.valueSize, "num_ops": cfg.numOps, "tls": cfg.tlsCert != "",
	}).Info("starting benchmark")

	var wg sync.WaitGroup
	for i := 0; i < cfg.numThreads; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(id, cfg)
		}(i)
	}
	wg.Wait()

	report()
	return nil
}

func parseArgs(args []string) (benchConfig, error) {
	cfg := benchConfig{valueSize: defaultValueLen, numOps: defaultNumOps}

	cfg.host = args[0]

	port, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return cfg, fmt.Errorf("invalid port %q: %w", args[1], err)
	}
	cfg.port = uint32(port)

	threads, err := strconv.Atoi(args[2])
	if err != nil || threads < 1 || threads > maxThreads {
		return cfg, fmt.Errorf("num_threads must be between 1 and %d", maxThreads)
	}
	cfg.numThreads = threads

	if len(args) > 3 {
		if cfg.valueSize, err = strconv.Atoi(args[3]); err != nil {
			return cfg, fmt.Errorf("invalid value_size %q: %w", args[3], err)
		}
	}
	if len(args) > 4 {
		if cfg.numOps, err = strconv.Atoi(args[4]); err != nil {
			return cfg, fmt.Errorf("invalid num_ops %q: %w", args[4], err)
		}
	}
	if len(args) > 5 {
		cfg.verify = args[5] != "0"
	}
	if len(args) > 6 {
		cfg.tlsCert = args[6]
	}
	if len(args) > 7 {
		cfg.tlsKey = args[7]
	}
	if len(args) > 8 {
		cfg.tlsCA = args[8]
	}

	if cfg.tlsCert != "" && cfg.tlsKey == "" || cfg.tlsCert == "" && cfg.tlsKey != "" {
		return cfg, fmt.Errorf("both tls_cert and tls_key must be provided for TLS mode")
	}

	return cfg, nil
}

// applyEnvFallback lets an operator supply TLS material through
// RIOCBENCH_TLS_CERT/_KEY/_CA instead of trailing positional args, handy
// when the driver is invoked from a script that already exports them.
func (c *benchConfig) applyEnvFallback() {
	if c.tlsCert == "" {
		c.tlsCert = viper.GetString("tls_cert")
	}
	if c.tlsKey == "" {
		c.tlsKey = viper.GetString("tls_key")
	}
	if c.tlsCA == "" {
		c.tlsCA = viper.GetString("tls_ca")
	}
}

func (c benchConfig) clientConfig() client.ClientConfig {
	cc := client.ClientConfig{Host: c.host, Port: c.port}
	if c.tlsCert != "" {
		cc.TLS = &client.TlsConfig{
			CertPath:       c.tlsCert,
			KeyPath:        c.tlsKey,
			CAPath:         c.tlsCA,
			VerifyHostname: c.host,
			VerifyPeer:     c.tlsCA != "",
		}
	}
	return cc
}

func worker(id int, cfg benchConfig) {
	conn, err := client.Connect(context.Background(), cfg.clientConfig())
	if err != nil {
		log.WithFields(riolog.Fields{"worker": id}).Error("connect failed: " + err.Error())
		return
	}
	defer conn.Disconnect()

	value := make([]byte, cfg.valueSize)
	for i := range value {
		value[i] = 'A'
	}

	base := platform.TimestampNS()
	runInsertPhase(conn, id, cfg, value, base)
	runGetPhase(conn, id, cfg, value)
	runDeletePhase(conn, id, cfg, platform.TimestampNS())
	runRangePhase(conn, id)

	log.WithFields(riolog.Fields{"worker": id}).Info("benchmark complete")
}

func runInsertPhase(conn *client.Connection, id int, cfg benchConfig, value []byte, base uint64) {
	for start := 0; start < cfg.numOps; start += batchSize {
		end := start + batchSize
		if end > cfg.numOps {
			end = cfg.numOps
		}

		began := time.Now()
		for i := start; i < end; i++ {
			key := []byte(fmt.Sprintf("key_%d_%d", id, i))
			if err := conn.Insert(key, value, base+uint64(i)); err != nil {
				errCount.WithLabelValues("insert").Inc()
				continue
			}
		}
		recordBatch("insert", began, end-start)
	}
}

func runGetPhase(conn *client.Connection, id int, cfg benchConfig, want []byte) {
	for start := 0; start < cfg.numOps; start += batchSize {
		end := start + batchSize
		if end > cfg.numOps {
			end = cfg.numOps
		}

		began := time.Now()
		for i := start; i < end; i++ {
			key := []byte(fmt.Sprintf("key_%d_%d", id, i))
			got, err := conn.Get(key)
			if err != nil {
				errCount.WithLabelValues("get").Inc()
				continue
			}
			if cfg.verify && got != nil && string(got) != string(want) {
				errCount.WithLabelValues("get").Inc()
			}
		}
		recordBatch("get", began, end-start)
	}
}

func runDeletePhase(conn *client.Connection, id int, cfg benchConfig, base uint64) {
	for start := 0; start < cfg.numOps; start += batchSize {
		end := start + batchSize
		if end > cfg.numOps {
			end = cfg.numOps
		}

		began := time.Now()
		for i := start; i < end; i++ {
			key := []byte(fmt.Sprintf("key_%d_%d", id, i))
			if err := conn.Delete(key, base+uint64(i)); err != nil {
				errCount.WithLabelValues("delete").Inc()
			}
		}
		recordBatch("delete", began, end-start)
	}
}

// runRangePhase inserts a small tenant-prefixed key set, then slides a
// ten-key window over it issuing one range_query per window, matching the
// original benchmark's isolation-by-prefix approach for concurrent workers.
func runRangePhase(conn *client.Connection, id int) {
	const rangeOps = 100
	const windowSize = 10

	base := platform.TimestampNS()
	for i := 0; i < rangeOps; i++ {
		key := fmt.Sprintf("tenant%d:range_%d", id, i)
		value := fmt.Sprintf("value_for_%s", key)
		if err := conn.Insert([]byte(key), []byte(value), base+uint64(i)); err != nil {
			errCount.WithLabelValues("range").Inc()
		}
	}

	for start := 0; start < rangeOps; start += windowSize {
		end := start + windowSize - 1
		if end >= rangeOps {
			end = rangeOps - 1
		}

		startKey := fmt.Sprintf("tenant%d:range_%d", id, start)
		endKey := fmt.Sprintf("tenant%d:range_%d", id, end)

		began := time.Now()
		if _, err := conn.RangeQuery([]byte(startKey), []byte(endKey)); err != nil {
			errCount.WithLabelValues("range").Inc()
			continue
		}
		latency.WithLabelValues("range").Observe(time.Since(began).Seconds())
	}
}

func recordBatch(phase string, began time.Time, ops int) {
	if ops <= 0 {
		return
	}
	perOp := time.Since(began) / time.Duration(ops)
	for i := 0; i < ops; i++ {
		latency.WithLabelValues(phase).Observe(perOp.Seconds())
	}
}

func report() {
	metrics, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		log.Error("gather failed: " + err.Error())
		return
	}

	fmt.Println("\nBenchmark Results:")
	fmt.Println("================")

	phases := make([]string, 0, 4)
	quantiles := map[string]map[float64]float64{}
	counts := map[string]uint64{}
	errs := map[string]float64{}

	for _, mf := range metrics {
		switch mf.GetName() {
		case "riocbench_op_latency_seconds":
			for _, m := range mf.GetMetric() {
				phase := labelValue(m.GetLabel(), "phase")
				phases = append(phases, phase)
				counts[phase] = m.GetSummary().GetSampleCount()

				qs := map[float64]float64{}
				for _, q := range m.GetSummary().GetQuantile() {
					qs[q.GetQuantile()] = q.GetValue()
				}
				quantiles[phase] = qs
			}
		case "riocbench_op_errors_total":
			for _, m := range mf.GetMetric() {
				errs[labelValue(m.GetLabel(), "phase")] = m.GetCounter().GetValue()
			}
		}
	}

	sort.Strings(phases)
	for _, phase := range phases {
		qs := quantiles[phase]
		fmt.Printf("\n%s:\n", phase)
		fmt.Printf("  Operations: %d\n", counts[phase])
		fmt.Printf("  Errors:     %.0f\n", errs[phase])
		fmt.Printf("  P50 (us):   %.3f\n", qs[0.5]*1e6)
		fmt.Printf("  P95 (us):   %.3f\n", qs[0.95]*1e6)
		fmt.Printf("  P99 (us):   %.3f\n", qs[0.99]*1e6)
	}
}

func labelValue(labels []*dto.LabelPair, name string) string {
	for _, l := range labels {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
