package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: production\npipeline:\n  query_pause: 2s\n  eps: 0.25\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Pipeline.QueryPause != 2*time.Second || c.Pipeline.Eps != 0.25 {
		t.Fatalf("yaml values lost: %+v", c.Pipeline)
	}
	if c.Pipeline.MinPts != 3 || c.Pipeline.Seed != 42 || c.Pipeline.QueryPolicy != "union" {
		t.Fatalf("defaults not applied: %+v", c.Pipeline)
	}
	if c.Market.Timeout != 10*time.Second || c.Events.MaxRecords != 250 {
		t.Fatalf("collaborator defaults not applied")
	}
	if len(c.Coins) != 2 || c.Coins[0] != "bitcoin" || len(c.Events.Countries) != 2 {
		t.Fatalf("slice defaults not applied: %v %v", c.Coins, c.Events.Countries)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"policy":        "pipeline:\n  query_policy: majority\n",
		"contamination": "pipeline:\n  contamination: 0.9\n",
		"kafka":         "kafka:\n  enabled: true\n",
		"digest":        "log:\n  digest:\n    enabled: true\n",
		"environment":   "environment: qa\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("COINS", "Solana, bitcoin")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SERVER_PORT", "9090")

	c, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Join(c.Coins, ",") != "solana,bitcoin" {
		t.Fatalf("coins = %v", c.Coins)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka override not applied: %+v", c.Kafka)
	}
	if c.Server.Port != 9090 {
		t.Fatalf("port = %d", c.Server.Port)
	}
}
