// Command rhmapd runs a configurable concurrent workload against an
// rhmap.Map and exports its internal shape as Prometheus metrics: a small,
// runnable demonstration of the resize-under-load and concurrent-write-
// remove behavior the map is designed around.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the representation of rhmapd's YAML workload file.
type Config struct {
	// Buckets is the map's initial primary bucket count.
	Buckets uint64 `yaml:"buckets"`

	// Workers is the number of concurrent writer goroutines.
	Workers int `yaml:"workers"`

	// MaxConcurrentWriters bounds how many of Workers may be issuing a
	// write to the map at once, via internal/loadgen.Weighted.
	MaxConcurrentWriters int64 `yaml:"max-concurrent-writers"`

	// Keyspace is the number of distinct keys each worker cycles through;
	// workers use disjoint keys.
	Keyspace int `yaml:"keyspace"`

	// DeleteEvery removes a key once every DeleteEvery inserts, per worker;
	// 0 disables deletes.
	DeleteEvery int `yaml:"delete-every"`

	// Duration bounds how long the workload runs.
	Duration time.Duration `yaml:"duration"`

	// ListenAddr is the address rhmapd serves /metrics on.
	ListenAddr string `yaml:"listen"`
}

// defaultConfig mirrors the values used in the literal scenarios this
// package's tests exercise at a larger, demo-friendly scale.
func defaultConfig() Config {
	return Config{
		Buckets:              64,
		Workers:              4,
		MaxConcurrentWriters: 2,
		Keyspace:             100000,
		DeleteEvery:          0,
		Duration:             10 * time.Second,
		ListenAddr:           ":9090",
	}
}

// loadConfig reads and parses a YAML workload file, filling in defaults for
// anything the file omits.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("rhmapd: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("rhmapd: parse config %s: %w", path, err)
	}
	return cfg, nil
}
