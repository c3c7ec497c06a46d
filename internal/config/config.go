// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads Synap's single configuration file (HuJSON — JSON
// with comments and trailing commas, via github.com/tailscale/hujson) and
// layers environment and flag overrides on top of it: defaults, then
// file, then environment, then explicit CLI flags (highest wins).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/tailscale/hujson"
)

var (
	errFileRead    = errors.New("cannot read config file")
	errFileInvalid = errors.New("invalid config file")
)

// ServerConfig is spec §6's server.* block.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// KVStoreConfig is spec §6's kv_store.* block.
type KVStoreConfig struct {
	MaxMemoryMB          int    `json:"max_memory_mb"`
	EvictionPolicy       string `json:"eviction_policy"` // none|lru|lfu|ttl
	TTLCleanupIntervalMS int    `json:"ttl_cleanup_interval_ms"`
	AllowFlushCommands   bool   `json:"allow_flush_commands"`
}

// WALConfig is spec §6's persistence.wal.* block.
type WALConfig struct {
	Enabled         bool   `json:"enabled"`
	Path            string `json:"path"`
	BufferSizeKB    int    `json:"buffer_size_kb"`
	FsyncMode       string `json:"fsync_mode"` // always|periodic|never
	FsyncIntervalMS int    `json:"fsync_interval_ms"`
	MaxSizeMB       int    `json:"max_size_mb"`
}

// SnapshotConfig is spec §6's persistence.snapshot.* block.
type SnapshotConfig struct {
	Enabled            bool   `json:"enabled"`
	Directory          string `json:"directory"`
	IntervalSecs       int    `json:"interval_secs"`
	OperationThreshold int64  `json:"operation_threshold"`
	MaxSnapshots       int    `json:"max_snapshots"`
	Compression        bool   `json:"compression"`
}

// PersistenceConfig is spec §6's persistence.* block.
type PersistenceConfig struct {
	Enabled  bool           `json:"enabled"`
	WAL      WALConfig      `json:"wal"`
	Snapshot SnapshotConfig `json:"snapshot"`
}

// ReplicationConfig is spec §6's replication.* block.
type ReplicationConfig struct {
	Enabled              bool   `json:"enabled"`
	Role                 string `json:"role"` // master|replica|standalone
	MasterAddress        string `json:"master_address,omitempty"`
	ReplicaListenAddress string `json:"replica_listen_address,omitempty"`
	HeartbeatIntervalMS  int    `json:"heartbeat_interval_ms"`
	MaxLagMS             int    `json:"max_lag_ms"`
	BufferSizeKB         int    `json:"buffer_size_kb"`
	AutoReconnect        bool   `json:"auto_reconnect"`
	ReconnectDelayMS     int    `json:"reconnect_delay_ms"`
	ReplicaTimeoutSecs   int    `json:"replica_timeout_secs"`
}

// ClusterConfig is spec §6's cluster.* block.
type ClusterConfig struct {
	Enabled              bool     `json:"enabled"`
	NodeID               string   `json:"node_id,omitempty"`
	NodeAddress          string   `json:"node_address"`
	SeedNodes            []string `json:"seed_nodes"`
	ClusterPort          int      `json:"cluster_port"`
	NodeTimeoutMS        int      `json:"node_timeout_ms"`
	RequireFullCoverage  bool     `json:"require_full_coverage"`
	MigrationBatchSize   int      `json:"migration_batch_size"`
	MigrationTimeoutSecs int      `json:"migration_timeout_secs"`
}

// Config is the full recognized configuration surface (spec §6).
type Config struct {
	Server      ServerConfig      `json:"server"`
	KVStore     KVStoreConfig     `json:"kv_store"`
	Persistence PersistenceConfig `json:"persistence"`
	Replication ReplicationConfig `json:"replication"`
	Cluster     ClusterConfig     `json:"cluster"`
}

// Default returns the zero-risk starting point every load begins from:
// standalone, no persistence, no cluster, LRU eviction off.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 7380},
		KVStore: KVStoreConfig{
			MaxMemoryMB:          0,
			EvictionPolicy:       "none",
			TTLCleanupIntervalMS: 1000,
			AllowFlushCommands:   true,
		},
		Persistence: PersistenceConfig{
			Enabled: false,
			WAL: WALConfig{
				Path:            "data/wal",
				BufferSizeKB:    64,
				FsyncMode:       "periodic",
				FsyncIntervalMS: 1000,
				MaxSizeMB:       128,
			},
			Snapshot: SnapshotConfig{
				Directory:          "data/snapshots",
				IntervalSecs:       300,
				OperationThreshold: 100000,
				MaxSnapshots:       3,
			},
		},
		Replication: ReplicationConfig{
			Role:               "standalone",
			HeartbeatIntervalMS: 1000,
			MaxLagMS:            5000,
			BufferSizeKB:        1024,
			AutoReconnect:       true,
			ReconnectDelayMS:    100,
			ReplicaTimeoutSecs:  10,
		},
		Cluster: ClusterConfig{
			NodeTimeoutMS:        5000,
			MigrationBatchSize:   100,
			MigrationTimeoutSecs: 60,
		},
	}
}

// Load reads a HuJSON config file at path (if non-empty and it exists),
// layers environment overrides on top (via a .env file if envFile is
// non-empty, then the real process environment — godotenv provides the
// optional .env overlay for container-style deployments), and returns the
// merged Config.
func Load(path string, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = merge(cfg, fileCfg)
	}

	if envFile != "" {
		// Missing .env is not an error — it is an optional overlay.
		_ = godotenv.Load(envFile)
	}
	applyEnv(&cfg)

	return cfg, Validate(cfg)
}

func loadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", errFileRead, path)
	}
	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errFileInvalid, path, err)
	}
	cfg := Default()
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errFileInvalid, path, err)
	}
	return cfg, nil
}

// merge overlays overlay onto base. Server host/port and the kv_store
// numeric and string settings are taken only when non-zero; booleans and
// the persistence, replication and cluster sections are taken from overlay
// as they are. loadFile starts overlay from Default(), so a setting the
// file leaves out keeps its default value.
func merge(base, overlay Config) Config {
	if overlay.Server.Host != "" {
		base.Server.Host = overlay.Server.Host
	}
	if overlay.Server.Port != 0 {
		base.Server.Port = overlay.Server.Port
	}
	base.KVStore = mergeKVStore(base.KVStore, overlay.KVStore)
	base.Persistence = overlay.Persistence
	base.Replication = overlay.Replication
	base.Cluster = overlay.Cluster
	return base
}

func mergeKVStore(base, overlay KVStoreConfig) KVStoreConfig {
	if overlay.MaxMemoryMB != 0 {
		base.MaxMemoryMB = overlay.MaxMemoryMB
	}
	if overlay.EvictionPolicy != "" {
		base.EvictionPolicy = overlay.EvictionPolicy
	}
	if overlay.TTLCleanupIntervalMS != 0 {
		base.TTLCleanupIntervalMS = overlay.TTLCleanupIntervalMS
	}
	base.AllowFlushCommands = overlay.AllowFlushCommands
	return base
}

// applyEnv applies SYNAP_<PATH> environment variables over cfg, for the
// handful of settings a container orchestrator most commonly needs to flip
// without editing the mounted config file.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("SYNAP_SERVER_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v, ok := os.LookupEnv("SYNAP_SERVER_HOST"); ok {
		cfg.Server.Host = v
	}
	if v, ok := os.LookupEnv("SYNAP_REPLICATION_ROLE"); ok {
		cfg.Replication.Role = v
	}
	if v, ok := os.LookupEnv("SYNAP_REPLICATION_MASTER_ADDRESS"); ok {
		cfg.Replication.MasterAddress = v
	}
	if v, ok := os.LookupEnv("SYNAP_CLUSTER_NODE_ID"); ok {
		cfg.Cluster.NodeID = v
	}
}

// Validate rejects a Config spec.md has no valid interpretation for.
func Validate(cfg Config) error {
	switch cfg.KVStore.EvictionPolicy {
	case "none", "lru", "lfu", "ttl":
	default:
		return fmt.Errorf("%w: kv_store.eviction_policy %q", errFileInvalid, cfg.KVStore.EvictionPolicy)
	}
	switch cfg.Replication.Role {
	case "master", "replica", "standalone":
	default:
		return fmt.Errorf("%w: replication.role %q", errFileInvalid, cfg.Replication.Role)
	}
	if cfg.Replication.Role == "replica" && cfg.Replication.MasterAddress == "" {
		return fmt.Errorf("%w: replication.role=replica requires master_address", errFileInvalid)
	}
	switch cfg.Persistence.WAL.FsyncMode {
	case "", "always", "periodic", "never":
	default:
		return fmt.Errorf("%w: persistence.wal.fsync_mode %q", errFileInvalid, cfg.Persistence.WAL.FsyncMode)
	}
	return nil
}

// FormatJSON renders cfg as indented JSON, for a `--print-config`-style
// diagnostic flag in cmd/synap-server.
func FormatJSON(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}
	return string(data), nil
}
