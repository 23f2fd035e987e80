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

// Command rioctest runs the scripted insert/get/delete/range/atomic
// scenario from the project's end-to-end test plan against a live RIOC
// server and exits non-zero on the first unexpected result, the Go
// equivalent of the original rioc_test driver.
package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/hpkv-io/rioc/batch"
	"github.com/hpkv-io/rioc/client"
	"github.com/hpkv-io/rioc/platform"
	"github.com/hpkv-io/rioc/riolog"
	"github.com/hpkv-io/rioc/tracker"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = riolog.NewText(os.Stdout, riolog.LevelInfo)

func main() {
	viper.SetEnvPrefix("rioctest")
	viper.AutomaticEnv()

	var tlsCert, tlsKey, tlsCA string

	root := &cobra.Command{
		Use:   "rioctest <host> <port>",
		Short: "Run the scripted end-to-end scenario against a RIOC server",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScenario(args[0], args[1], tlsCert, tlsKey, tlsCA)
		},
	}

	root.Flags().StringVar(&tlsCert, "tls-cert", viper.GetString("tls_cert"), "client certificate for an optional TLS connection")
	root.Flags().StringVar(&tlsKey, "tls-key", viper.GetString("tls_key"), "client key for an optional TLS connection")
	root.Flags().StringVar(&tlsCA, "tls-ca", viper.GetString("tls_ca"), "CA bundle to verify the server against")

	if err := root.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

// step runs name, bails the whole process with exit 1 on the first
// unexpected error, matching the original driver's fail-fast contract.
func step(name string, fn func() error) {
	log.Info(name)
	if err := fn(); err != nil {
		log.Error(name + " failed: " + err.Error())
		os.Exit(1)
	}
}

func runScenario(host, portStr, tlsCert, tlsKey, tlsCA string) error {
	cfg := client.ClientConfig{Host: host}
	if err := parsePort(portStr, &cfg.Port); err != nil {
		return err
	}
	if tlsCert != "" {
		cfg.TLS = &client.TlsConfig{
			CertPath: tlsCert, KeyPath: tlsKey, CAPath: tlsCA,
			VerifyHostname: host, VerifyPeer: tlsCA != "",
		}
	}

	log.Info("connecting")
	conn, err := client.Connect(context.Background(), cfg)
	if err != nil {
		log.Error("connect failed: " + err.Error())
		os.Exit(1)
	}
	defer conn.Disconnect()
	log.Info("connected")

	warmup(conn)

	const key = "test_key"
	ts1 := platform.TimestampNS()

	step("1. insert", func() error { return conn.Insert([]byte(key), []byte("initial value"), ts1) })
	time.Sleep(time.Millisecond)

	step("2. get", func() error {
		v, err := conn.Get([]byte(key))
		if err != nil {
			return err
		}
		if string(v) != "initial value" {
			return errUnexpected("unexpected value: " + string(v))
		}
		return nil
	})
	time.Sleep(time.Millisecond)

	ts2 := platform.TimestampNS()
	step("3. update", func() error { return conn.Insert([]byte(key), []byte("updated value"), ts2) })
	time.Sleep(time.Millisecond)

	step("4. get updated", func() error {
		v, err := conn.Get([]byte(key))
		if err != nil {
			return err
		}
		if string(v) != "updated value" {
			return errUnexpected("unexpected value: " + string(v))
		}
		return nil
	})
	time.Sleep(time.Millisecond)

	ts3 := platform.TimestampNS()
	step("5. delete", func() error { return conn.Delete([]byte(key), ts3) })

	step("6. get after delete", func() error {
		v, err := conn.Get([]byte(key))
		if err != nil {
			return err
		}
		if v != nil {
			return errUnexpected("key should have been deleted")
		}
		return nil
	})

	step("7. range query", func() error { return runRangeScenario(conn) })

	step("8. batch range query", func() error { return runBatchRangeScenario(conn) })

	step("9. atomic increment/decrement", func() error { return runAtomicScenario(conn) })

	step("10. batch atomic operations", func() error { return runBatchAtomicScenario(conn) })

	log.Info("all tests completed successfully")
	return nil
}

func parsePort(s string, out *uint32) error {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*out = uint32(v)
	return nil
}

func newBatch() *batch.Batch { return batch.Create() }

func executeAndWait(conn *client.Connection, b *batch.Batch) (*tracker.Tracker, error) {
	tr, err := tracker.ExecuteAsync(b, conn)
	if err != nil {
		return nil, err
	}
	if err := tr.Wait(0); err != nil {
		return tr, err
	}
	return tr, nil
}

func warmup(conn *client.Connection) {
	for i := 0; i < 10; i++ {
		ts := platform.TimestampNS()
		_ = conn.Insert([]byte("warmup_key"), []byte("warmup_value"), ts)
		_, _ = conn.Get([]byte("warmup_key"))
		_ = conn.Delete([]byte("warmup_key"), ts+1)
	}
}

func runRangeScenario(conn *client.Connection) error {
	keys := []string{"range_a", "range_b", "range_c", "range_d", "range_e"}
	values := []string{"value_a", "value_b", "value_c", "value_d", "value_e"}

	base := platform.TimestampNS()
	for i, k := range keys {
		if err := conn.Insert([]byte(k), []byte(values[i]), base+uint64(i)); err != nil {
			return err
		}
		time.Sleep(time.Millisecond)
	}

	results, err := conn.RangeQuery([]byte("range_b"), []byte("range_d"))
	if err != nil {
		return err
	}
	if len(results) != 3 {
		return errUnexpected("expected 3 range results")
	}
	return nil
}

func runBatchRangeScenario(conn *client.Connection) error {
	b := newBatch()
	defer b.Free()

	if err := b.AddRangeQuery([]byte("range_a"), []byte("range_e")); err != nil {
		return err
	}

	tr, err := executeAndWait(conn, b)
	if err != nil {
		return err
	}
	defer tr.Free()

	_, _, status, gerr := tr.GetResponse(0)
	if gerr != nil {
		return gerr
	}
	if !status.OK() {
		return errUnexpected("batch range query status: " + status.String())
	}
	return nil
}

func runAtomicScenario(conn *client.Connection) error {
	ts1 := platform.TimestampNS()
	v, err := conn.AtomicIncDec([]byte("test_counter"), 5, ts1)
	if err != nil {
		return err
	}
	if v != 5 {
		return errUnexpected("expected counter 5")
	}
	time.Sleep(time.Millisecond)

	ts2 := platform.TimestampNS()
	v, err = conn.AtomicIncDec([]byte("test_counter"), 3, ts2)
	if err != nil {
		return err
	}
	if v != 8 {
		return errUnexpected("expected counter 8")
	}
	time.Sleep(time.Millisecond)

	ts3 := platform.TimestampNS()
	v, err = conn.AtomicIncDec([]byte("test_counter"), -2, ts3)
	if err != nil {
		return err
	}
	if v != 6 {
		return errUnexpected("expected counter 6")
	}
	return nil
}

func runBatchAtomicScenario(conn *client.Connection) error {
	b := newBatch()
	defer b.Free()

	ts1 := platform.TimestampNS()
	if err := b.AddAtomicIncDec([]byte("test_counter"), 10, ts1); err != nil {
		return err
	}
	if err := b.AddAtomicIncDec([]byte("test_counter"), -5, ts1+1); err != nil {
		return err
	}

	tr, err := executeAndWait(conn, b)
	if err != nil {
		return err
	}
	defer tr.Free()

	for i := 0; i < 2; i++ {
		_, _, status, gerr := tr.GetResponse(i)
		if gerr != nil {
			return gerr
		}
		if !status.OK() {
			return errUnexpected("batch atomic op " + strconv.Itoa(i) + " status: " + status.String())
		}
	}
	return nil
}

type unexpectedError string

func (e unexpectedError) Error() string { return string(e) }

func errUnexpected(msg string) error { return unexpectedError(msg) }
