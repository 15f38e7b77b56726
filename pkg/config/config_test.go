package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("expected default port, got %d", c.Server.Port)
	}
	if c.Backtest.ResultTTL != time.Hour {
		t.Fatalf("expected default ttl, got %v", c.Backtest.ResultTTL)
	}
	if c.Kafka.RequestsTopic != "backtest.requests" || c.Kafka.Consumer.BackoffMin != 50*time.Millisecond {
		t.Fatalf("unexpected kafka defaults %+v", c.Kafka)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
server:
  port: 9090
backtest:
  max_bars: 10
  signal_fields: [long, exit_long, short, exit_short]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.Port != 9090 || c.Backtest.MaxBars != 10 {
		t.Fatalf("yaml did not override defaults: %+v", c.Server)
	}
	if c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("unset keys keep defaults, got %v", c.Server.ReadTimeout)
	}
	if c.Backtest.SignalFields[1] != "exit_long" {
		t.Fatalf("unexpected signal fields %v", c.Backtest.SignalFields)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"kafka without brokers", "kafka:\n  enabled: true\n", "kafka.brokers"},
		{"clickhouse without host", "clickhouse:\n  enabled: true\n", "clickhouse.host"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"short signal fields", "backtest:\n  signal_fields: [a, b]\n", "signal_fields"},
		{"no bars allowed", "backtest:\n  max_bars: -1\n", "max_bars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			err = c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error about %s, got %v", tt.want, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := map[string]string{
		"KAFKA_BROKERS":   "k1:9092,k2:9092",
		"CLICKHOUSE_HOST": "ch",
		"HTTP_PORT":       "8181",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka not enabled from env: %+v", c.Kafka.Brokers)
	}
	if !c.ClickHouse.Enabled || c.ClickHouse.Host != "ch" {
		t.Fatalf("clickhouse not enabled from env")
	}
	if c.Server.Port != 8181 {
		t.Fatalf("expected port from env, got %d", c.Server.Port)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "test" {
		t.Fatalf("unexpected environment %q", c.Environment)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
