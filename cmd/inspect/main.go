package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sszproject/ssz-validation/go-engine/internal/logging"
	"github.com/sszproject/ssz-validation/go-engine/internal/results"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to results.db")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show single run detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/results.db [--last N] [--run id] [--json]")
		os.Exit(2)
	}

	store, err := results.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *runID != "" {
		err = runDetailMode(store, *runID, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID      string          `json:"run_id"`
	StartedAt  string          `json:"started_at"`
	FinishedAt string          `json:"finished_at,omitempty"`
	Verdict    json.RawMessage `json:"verdict,omitempty"`
}

func runListMode(store *results.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}
	if last < len(runs) {
		runs = runs[:last]
	}

	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[i] = listRow{
			RunID:     r.RunID,
			StartedAt: r.StartedAt.Format("2006-01-02T15:04:05Z"),
		}
		if !r.FinishedAt.IsZero() {
			rows[i].FinishedAt = r.FinishedAt.Format("2006-01-02T15:04:05Z")
		}
		if r.VerdictJSON != "" {
			rows[i].Verdict = json.RawMessage(r.VerdictJSON)
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-12s  %-20s  %6s  %6s  %8s  %10s\n",
		"Run", "Started", "Wins", "Loss", "Degraded", "p-value")
	for _, r := range rows {
		v := parseVerdict(r.Verdict)
		if v == nil {
			fmt.Printf("%-12s  %-20s  %s\n", shortID(r.RunID), r.StartedAt, "(unfinished)")
			continue
		}
		fmt.Printf("%-12s  %-20s  %6d  %6d  %8d  %10.4g\n",
			shortID(r.RunID), r.StartedAt, v.Wins, v.Losses, v.Degraded, v.PValue)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RunID      string               `json:"run_id"`
	StartedAt  string               `json:"started_at"`
	FinishedAt string               `json:"finished_at,omitempty"`
	Verdict    json.RawMessage      `json:"verdict,omitempty"`
	Cases      []results.CaseRecord `json:"cases"`
	Events     []eventRow           `json:"events"`
}

type eventRow struct {
	State     string `json:"state"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

func runDetailMode(store *results.Store, runID string, jsonOut bool) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	cases, err := store.ListCases(runID)
	if err != nil {
		return err
	}
	events, err := logging.ListEvents(store.DB(), runID)
	if err != nil {
		return err
	}

	out := detailOutput{
		RunID:     run.RunID,
		StartedAt: run.StartedAt.Format("2006-01-02T15:04:05Z"),
		Cases:     cases,
	}
	if !run.FinishedAt.IsZero() {
		out.FinishedAt = run.FinishedAt.Format("2006-01-02T15:04:05Z")
	}
	if run.VerdictJSON != "" {
		out.Verdict = json.RawMessage(run.VerdictJSON)
	}
	for _, e := range events {
		out.Events = append(out.Events, eventRow{
			State:     e.State,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Run:      %s\n", out.RunID)
	fmt.Printf("Started:  %s\n", out.StartedAt)
	if out.FinishedAt != "" {
		fmt.Printf("Finished: %s\n", out.FinishedAt)
	}
	if v := parseVerdict(out.Verdict); v != nil {
		fmt.Printf("Verdict:  %d wins / %d losses / %d degraded (win rate %.4f, p=%.4g)\n",
			v.Wins, v.Losses, v.Degraded, v.WinRate, v.PValue)
	}

	fmt.Printf("\nCases:\n")
	fmt.Printf("  %-16s  %12s  %12s  %12s  %-8s  %s\n",
		"Obs", "Candidate z", "Reference z", "Delta", "Outcome", "Reason")
	for _, c := range cases {
		fmt.Printf("  %-16s  %12.6g  %12.6g  %12.4g  %-8s  %s\n",
			c.ObsID, c.CandidateZ, c.ReferenceZ, c.Delta, c.Outcome, c.DegradedReason)
	}

	fmt.Printf("\nEvents:\n")
	for _, e := range out.Events {
		fmt.Printf("  %-20s  %-10s  %s\n", e.CreatedAt, e.State, e.Detail)
	}
	return nil
}

// #endregion detail-mode

// #region output

// verdictDoc mirrors the summary document written when a run finishes.
type verdictDoc struct {
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Degraded int     `json:"degraded"`
	Total    int     `json:"total"`
	WinRate  float64 `json:"win_rate"`
	PValue   float64 `json:"p_value"`
}

func parseVerdict(raw json.RawMessage) *verdictDoc {
	if len(raw) == 0 {
		return nil
	}
	var v verdictDoc
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
