package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/sszproject/ssz-validation/go-engine/internal/config"
	"github.com/sszproject/ssz-validation/go-engine/internal/orchestrator"
)

// #region main

func main() {
	cfgPath := flag.String("config", envOr("VALIDATE_CONFIG", ""), "path to engine config YAML (defaults apply when empty)")
	csvPath := flag.String("csv", "", "import an observation catalog CSV before running")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	o, err := orchestrator.New(cfg)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}
	defer o.Close()

	if *csvPath != "" {
		n, err := o.Observations().ImportCSV(*csvPath)
		if err != nil {
			log.Fatalf("failed to import catalog: %v", err)
		}
		fmt.Printf("Imported %d observations from %s\n", n, *csvPath)
	}

	fmt.Println("Metric Validation Engine ready.")
	fmt.Printf("  Observations: %s | Results: %s\n", cfg.Paths.ObservationsDB, cfg.Paths.ResultsDB)

	verdict, err := o.Run(context.Background())
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	printVerdict(verdict)
}

// #endregion main

// #region output

func printVerdict(v orchestrator.Verdict) {
	s := v.Summary
	fmt.Printf("\nRun %s (%s)\n", v.RunID, v.State)
	fmt.Printf("  Cases:    %d total, %d wins, %d losses, %d degraded\n",
		s.Total, s.Wins, s.Losses, s.Degraded)
	fmt.Printf("  Win rate: %.4f\n", s.WinRate)
	fmt.Printf("  p-value:  %.6g\n", s.PValue)
	fmt.Printf("  Delta CI: [%.4g, %.4g] (median %.4g, level %.2f)\n",
		s.DeltaCI.Lo, s.DeltaCI.Hi, s.DeltaCI.Median, s.DeltaCI.Level)

	fmt.Println("\nStrata (r/r_s):")
	for _, sr := range v.Strata {
		rate := "—"
		if !math.IsNaN(sr.Summary.WinRate) {
			rate = fmt.Sprintf("%.4f", sr.Summary.WinRate)
		}
		fmt.Printf("  %-12s %4d cases  win rate %s\n", sr.Stratum.Label, sr.Summary.Total, rate)
	}

	degraded := 0
	for _, c := range v.Cases {
		if c.DegradedReason != "" {
			degraded++
			fmt.Fprintf(os.Stderr, "  degraded %s: %s\n", c.Obs.ID, c.DegradedReason)
		}
	}
	if degraded > 0 {
		fmt.Printf("\n%d degraded cases listed on stderr\n", degraded)
	}
}

// #endregion output

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
