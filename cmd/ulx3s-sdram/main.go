// Command ulx3s-sdram runs a demo workload against the simulated SDRAM
// controller: it initializes the device, writes a pattern across all
// banks, reads it back, and reports the result together with any timing
// violations the verifier observed.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Thewbi/ULX3S/datarecording"
	"github.com/Thewbi/ULX3S/monitoring"
	"github.com/Thewbi/ULX3S/sdram"
	"github.com/Thewbi/ULX3S/sdram/device"
	"github.com/Thewbi/ULX3S/sdram/tracing"
	"github.com/Thewbi/ULX3S/timing"
)

var (
	traceFile   string
	monitorPort int
	burstLength int
	casLatency  int
	numRequests int
)

var rootCmd = &cobra.Command{
	Use:   "ulx3s-sdram",
	Short: "Simulate the SDRAM controller of the ULX3S board",
	RunE:  run,

	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&traceFile, "trace", "",
		"record the command stream into the given SQLite database")
	rootCmd.Flags().IntVar(&monitorPort, "monitor", 0,
		"start the monitoring server on the given port")
	rootCmd.Flags().IntVar(&burstLength, "burst-length", 2,
		"burst length to program (1, 2, 4, 8)")
	rootCmd.Flags().IntVar(&casLatency, "cas-latency", 2,
		"CAS latency to program (2 or 3)")
	rootCmd.Flags().IntVar(&numRequests, "requests", 64,
		"number of write-read request pairs in the demo workload")
}

func main() {
	// A .env file can preset the flags' environment counterparts.
	_ = godotenv.Load()

	if traceFile == "" {
		traceFile = os.Getenv("ULX3S_TRACE")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	engine := timing.NewEngine()

	controller := sdram.MakeBuilder().
		WithEngine(engine).
		WithBurst(burstLength, sdram.BurstSequential).
		WithCASLatency(casLatency).
		Build("SDRAMCtrl")

	dev := device.MakeBuilder().
		WithEngine(engine).
		WithBus(controller.DataBus()).
		Build("SDRAM")

	verifier := tracing.NewTimingVerifier(controller)
	controller.AcceptHook(verifier)

	if traceFile != "" {
		recorder := datarecording.New(traceFile)
		defer recorder.Flush()

		controller.AcceptHook(tracing.NewCommandTracer(recorder, "commands"))
	}

	if monitorPort != 0 {
		monitor := monitoring.NewMonitor().WithPortNumber(monitorPort)
		monitor.RegisterEngine(engine)
		monitor.RegisterController(controller)
		monitor.StartServer()
	}

	if err := controller.Init(); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	fmt.Printf("Initialization complete at tick %d\n", engine.Now())

	if err := runWorkload(engine, controller); err != nil {
		return err
	}

	report(engine, dev, verifier)

	return nil
}

func runWorkload(engine *timing.Engine, controller *sdram.Comp) error {
	for i := 0; i < numRequests; i++ {
		bank := i % 4
		row := (i * 37) % 8192
		col := (i * 8) % 504

		want := pattern(i, 8)

		if err := controller.Write(bank, row, col, want, nil); err != nil {
			return fmt.Errorf("write %d failed: %w", i, err)
		}

		got, err := controller.Read(bank, row, col, len(want))
		if err != nil {
			return fmt.Errorf("read %d failed: %w", i, err)
		}

		if !bytes.Equal(got, want) {
			return fmt.Errorf(
				"data mismatch at bank %d row %d col %d: got %x, want %x",
				bank, row, col, got, want)
		}
	}

	fmt.Printf("Verified %d write-read pairs at tick %d\n",
		numRequests, engine.Now())

	return nil
}

func pattern(seed, numBytes int) []byte {
	data := make([]byte, numBytes)
	for i := range data {
		data[i] = byte(seed*31 + i*7)
	}

	return data
}

func report(
	engine *timing.Engine,
	dev *device.Comp,
	verifier *tracing.TimingVerifier,
) {
	fmt.Printf("Refreshes received by the device: %d\n", dev.RefreshCount())

	for _, v := range dev.Violations() {
		fmt.Fprintf(os.Stderr, "device violation: %s\n", v)
	}

	for _, v := range verifier.Violations() {
		fmt.Fprintf(os.Stderr, "timing violation: %v\n", v)
	}

	if len(dev.Violations()) == 0 && len(verifier.Violations()) == 0 {
		fmt.Printf("No protocol or timing violations in %d cycles\n",
			engine.Now())
	}
}
