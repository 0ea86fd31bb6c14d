package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"liquidityPool/internal/model"
)

const (
	testAlice  = "0xa11ce00000000000000000000000000000000001"
	testBob    = "0xb0b0000000000000000000000000000000000002"
	testAssetX = "0x1000000000000000000000000000000000000001"
	testAssetY = "0x2000000000000000000000000000000000000002"
)

type cli struct {
	dir string
}

func (c cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args,
		"--state-file", filepath.Join(c.dir, "state.json"),
		"--journal", filepath.Join(c.dir, "journal.jsonl"),
		"--log-level", "error",
	))
	err := root.Execute()
	return out.String(), err
}

func (c cli) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(t, args...)
	if err != nil {
		t.Fatalf("amm %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestPoolLifecycle(t *testing.T) {
	c := cli{dir: t.TempDir()}

	c.mustRun(t, "fund", "--owner", testAlice, "--asset", testAssetX, "--amount", "100000")
	c.mustRun(t, "fund", "--owner", testAlice, "--asset", testAssetY, "--amount", "100000")
	c.mustRun(t, "fund", "--owner", testBob, "--asset", testAssetX, "--amount", "1000")

	out := c.mustRun(t, "pool", "init", "--as", testAlice, "--asset-x", testAssetX, "--asset-y", testAssetY, "--fee-bps", "30", "--authority", testAlice)
	var p model.Pool
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode pool: %v\n%s", err, out)
	}
	key := p.Key().String()

	if _, err := c.run(t, "pool", "init", "--as", testAlice, "--asset-x", testAssetX, "--asset-y", testAssetY); err == nil {
		t.Fatalf("duplicate init should fail across runs")
	}

	c.mustRun(t, "pool", "deposit", "--as", testAlice, "--pool", key, "--shares", "100000", "--max-x", "100000", "--max-y", "100000")
	c.mustRun(t, "pool", "swap", "--as", testBob, "--pool", key, "--direction", "x_to_y", "--amount-in", "1000", "--min-out", "987")

	out = c.mustRun(t, "pool", "show", "--pool", key)
	var st model.PoolState
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode state: %v\n%s", err, out)
	}
	if st.ReserveX != 101_000 || st.ReserveY != 100_000-987 || st.ShareSupply != 100_000 {
		t.Fatalf("state mismatch: %+v", st)
	}

	out = c.mustRun(t, "balance", "--owner", testBob, "--asset", testAssetY)
	if !strings.Contains(out, `"balance": 987`) {
		t.Fatalf("bob balance mismatch: %s", out)
	}

	c.mustRun(t, "pool", "lock", "--as", testAlice, "--pool", key)
	if _, err := c.run(t, "pool", "swap", "--as", testBob, "--pool", key, "--amount-in", "1"); err == nil {
		t.Fatalf("swap on locked pool should fail")
	}

	data, err := os.ReadFile(filepath.Join(c.dir, "journal.jsonl"))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 4 {
		t.Fatalf("journal lines = %d want 4 (init, deposit, swap, lock)", lines)
	}
}

func TestRedactDSN(t *testing.T) {
	if redactDSN("") != "" || redactDSN("postgres://u:p@h/db") != "***" {
		t.Fatalf("redactDSN mismatch")
	}
}
