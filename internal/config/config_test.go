package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

func TestLoadDefaultsEnvAndFlags(t *testing.T) {
	t.Setenv("AMM_PG_DSN", "postgres://amm@localhost/amm")
	t.Setenv("AMM_MAX_RETRIES", "7")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("journal", "./data/journal.jsonl", "")
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--journal", "/tmp/j.jsonl", "--log-level", "debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PGDSN != "postgres://amm@localhost/amm" || cfg.MaxRetries != 7 {
		t.Fatalf("env overrides missing: %+v", cfg)
	}
	if cfg.Journal != "/tmp/j.jsonl" || cfg.LogLevel != "debug" {
		t.Fatalf("flag overrides missing: %+v", cfg)
	}
	if cfg.StateFile != "./data/amm_state.json" || cfg.StateName != "default" || cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "amm.yaml")
	content := "state-file: /var/lib/amm/state.json\nlisten: 127.0.0.1:9000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StateFile != "/var/lib/amm/state.json" || cfg.Listen != "127.0.0.1:9000" {
		t.Fatalf("config file values missing: %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoadReport(t *testing.T) {
	flags := pflag.NewFlagSet("report", pflag.ContinueOnError)
	flags.Duration("window", 5*time.Minute, "")
	flags.Uint64("recompute-from", 0, "")
	if err := flags.Parse([]string{"--window", "1h", "--recompute-from", "42"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := LoadReport("", flags)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if cfg.WindowSeconds() != 3600 || cfg.RecomputeFrom != 42 || cfg.Decimals != 18 {
		t.Fatalf("report config mismatch: %+v", cfg)
	}

	t.Setenv("AMM_WINDOW", "500ms")
	if _, err := LoadReport("", nil); err == nil {
		t.Fatalf("expected error for sub-second window")
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(" 0x00000000000000000000000000000000000000aa ")
	if err != nil || addr != common.HexToAddress("0xaa") {
		t.Fatalf("parse address = %s (%v)", addr.Hex(), err)
	}
	if _, err := ParseAddress("0x0000000000000000000000000000000000000000"); err == nil {
		t.Fatalf("zero address should be rejected")
	}
	if _, err := ParseAddress("not-an-address"); err == nil {
		t.Fatalf("malformed address should be rejected")
	}
	if opt, err := ParseOptionalAddress(""); err != nil || opt != nil {
		t.Fatalf("empty optional address = %v (%v)", opt, err)
	}
}
