package connect

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vmtools/vsh/cmd/util"
	"github.com/vmtools/vsh/rpc/client"
	"github.com/vmtools/vsh/rpc/common"
	"github.com/vmtools/vsh/rpc/proto"
	"github.com/vmtools/vsh/rpc/transport"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for vshd",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfNumThreads = 4
	perfDataSize   = 1024
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. handshake,data)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 4, util.WrapString("Number of connections to use for the benchmark"))
	key = "data-size"
	perfTestCmd.Flags().Int(key, 1024, util.WrapString("How many bytes the data test sends per message (at most 4000)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfNumThreads = max(1, viper.GetInt("threads"))
	perfDataSize = min(max(0, viper.GetInt("data-size")), 4000)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for vshd")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(connectCmdConfig.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	t, stopReactor, err := clientTransport()
	if err != nil {
		return err
	}
	defer stopReactor()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)

	// a complete session: dial, READY, EXITED, close
	handshakeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("handshake") {
			return
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				c, err := openSession(t)
				if err != nil {
					log.Printf("(handshake) - error: %v\n", err)
					continue
				}
				if err := c.Close(); err != nil {
					log.Printf("(handshake) - error closing: %v\n", err)
				}
			}
		})
	})

	results["handshake"] = handshakeResult
	printResult("handshake", handshakeResult)

	// one data frame per operation on long lived connections
	dataResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("data") {
			return
		}

		payload := make([]byte, perfDataSize)

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			c, err := openSession(t)
			if err != nil {
				log.Printf("(data) - error: %v\n", err)
				for pb.Next() {
				}
				return
			}
			defer c.Close()

			for pb.Next() {
				if err := c.Send(context.Background(), proto.NewHostData(proto.StdioStreamStdin, payload)); err != nil {
					log.Printf("(data) - error sending: %v\n", err)
				}
			}
		})
	})

	results["data"] = dataResult
	printResult("data", dataResult)

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results, connectCmdConfig); err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", csvPath)
	}

	return nil
}

// openSession connects a new client and waits for READY
func openSession(t transport.IClientTransport) (*client.Client, error) {
	c := client.NewClient(*connectCmdConfig, t)
	if err := c.Connect(context.Background()); err != nil {
		return nil, err
	}
	if _, err := c.WaitReady(context.Background()); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Address", "TimeoutSec", "RetryCount", "Transport",
		"Threads", "DataSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Transport.Address(),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			config.Transport.Kind,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfDataSize),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
