package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gridabm/internal/results"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || !strings.Contains(out, "abm version "+version) {
		t.Fatalf("version: %q, %v", out, err)
	}
}

func TestModelsListsRegisteredModels(t *testing.T) {
	out, err := execute(t, "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	for _, want := range []string{"schelling", "wealth", "wolfsheep", "homophily", "grass_layout", "initial_wealth"} {
		if !strings.Contains(out, want) {
			t.Errorf("models output lacks %q", want)
		}
	}
	if _, err := execute(t, "models", "lattice-gas"); err == nil {
		t.Fatal("unknown model listed")
	}
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "results.db")
	arrowPath := filepath.Join(dir, "out", "metrics.arrow")
	events := filepath.Join(dir, "events.jsonl")
	out, err := execute(t, "run", "--model", "wealth", "--steps", "10", "--seed", "4",
		"--set", "agents=30", "--agent-every", "5",
		"--sqlite", db, "--arrow", arrowPath, "--events", events)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "wealth: 10 steps (max steps)") || !strings.Contains(out, "total_wealth") {
		t.Fatalf("summary = %q", out)
	}

	store, err := results.Open(db)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	runs, err := store.Runs(context.Background())
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %v, %v", runs, err)
	}
	if runs[0].Seed != 4 || !strings.Contains(runs[0].Params, `"agents":"30"`) {
		t.Fatalf("stored run = %+v", runs[0])
	}

	f, err := os.Open(arrowPath)
	if err != nil {
		t.Fatalf("arrow file: %v", err)
	}
	defer f.Close()
	table, err := results.ReadModelArrow(f)
	if err != nil {
		t.Fatalf("ReadModelArrow: %v", err)
	}
	if len(table.Rows) != 11 || table.Meta["seed"] != "4" {
		t.Fatalf("arrow rows=%d meta=%v", len(table.Rows), table.Meta)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "metrics.agents.arrow")); err != nil {
		t.Fatalf("agent table: %v", err)
	}

	if n := countLines(t, events); n != 12 {
		t.Fatalf("event lines = %d, want 11 steps + 1 summary", n)
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	for sc := bufio.NewScanner(f); sc.Scan(); {
		n++
	}
	return n
}

func TestRunRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"run", "--model", "wealth", "--set", "agents"},
		{"run", "--model", "wealth", "--set", "colour=red"},
		{"run", "--model", "nope"},
		{"run", "--config", filepath.Join(t.TempDir(), "missing.yaml")},
	} {
		if _, err := execute(t, args...); err == nil {
			t.Errorf("%v succeeded", args)
		}
	}
}

func TestSweepFromRunFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "sweep.db")
	runFile := filepath.Join(dir, "sweep.yaml")
	content := `model: wealth
steps: 8
params:
  width: "6"
  height: "6"
sweep:
  seeds: [1, 2]
  workers: 2
  grid:
    agents: ["10", "20"]
output:
  sqlite: ` + db + `
  arrow: ` + filepath.Join(dir, "m.arrow") + `
`
	if err := os.WriteFile(runFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := execute(t, "sweep", "--config", runFile)
	if err != nil {
		t.Fatalf("sweep: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Sweeping 4 runs of wealth") || !strings.Contains(out, "0 failed") {
		t.Fatalf("output = %q", out)
	}

	store, err := results.Open(db)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	runs, err := store.RunsFor(context.Background(), "wealth")
	if err != nil || len(runs) != 4 {
		t.Fatalf("runs = %d, %v", len(runs), err)
	}
	for i := range 4 {
		if _, err := os.Stat(indexedPath(filepath.Join(dir, "m.arrow"), i)); err != nil {
			t.Fatalf("arrow file %d: %v", i, err)
		}
	}
}

func TestIndexedPath(t *testing.T) {
	if got := indexedPath("out/metrics.arrow", 7); got != "out/metrics-007.arrow" {
		t.Fatalf("indexedPath = %s", got)
	}
	if got := agentTablePath("out/metrics.arrow"); got != "out/metrics.agents.arrow" {
		t.Fatalf("agentTablePath = %s", got)
	}
}
