// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package config

import "time"

// Config holds all query engine configuration loaded from environment
// variables and an optional config file.
type Config struct {
	Node    NodeConfig    `koanf:"node"`
	Query   QueryConfig   `koanf:"query"`
	Feature FeatureConfig `koanf:"feature"`
	Cluster ClusterConfig `koanf:"cluster"`
	Cache   CacheConfig   `koanf:"cache"`
	NATS    NATSConfig    `koanf:"nats"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Authz   AuthzConfig   `koanf:"authz"`
}

// NodeConfig identifies this process within the cluster.
type NodeConfig struct {
	ID        string `koanf:"id"`
	Name      string `koanf:"name"`
	Role      string `koanf:"role"`       // querier | ingester | compactor | router | single
	RoleGroup string `koanf:"role_group"` // interactive | background | long
	GRPCAddr  string `koanf:"grpc_addr"`
	Region    string `koanf:"region"`
	Cluster   string `koanf:"cluster"`
	CPUNum    int    `koanf:"cpu_num"`
	LocalMode bool   `koanf:"local_mode"`
}

// QueryConfig holds the timeouts, limits and partitioning tunables named in
// spec §6.
type QueryConfig struct {
	Timeout                time.Duration `koanf:"timeout"`                    // query_timeout
	QuerierTimeout         time.Duration `koanf:"querier_timeout"`            // query_querier_timeout
	IngesterTimeout        time.Duration `koanf:"ingester_timeout"`           // query_ingester_timeout
	GroupBaseSpeedBPS      int64         `koanf:"group_base_speed_bps"`       // query_group_base_speed
	PartitionBySecs        int64         `koanf:"partition_by_secs"`          // query_partition_by_secs
	AggsMinNumPartitionSec int64         `koanf:"aggs_min_num_partition_sec"` // aggs_min_num_partition_secs
	DefaultLimit           int64         `koanf:"default_limit"`              // query_default_limit
	DashboardPlaceholder   string        `koanf:"dashboard_placeholder"`      // dashboard_placeholder
	MinPartitionSeconds    int64         `koanf:"min_partition_seconds"`
	MinStepSeconds         int64         `koanf:"min_step_seconds"`
	MaxPartitions          int           `koanf:"max_partitions"`
	DefaultLimitJoinRight  int64         `koanf:"default_limit_join_right"` // L3 default 50000
	BroadcastJoinMaxRows   int64         `koanf:"broadcast_join_max_rows"`
	CancelGrace            time.Duration `koanf:"cancel_grace"`
}

// FeatureConfig holds the boolean feature gates of spec §6.
type FeatureConfig struct {
	QueryStreamingAggs       bool `koanf:"query_streaming_aggs"`
	BroadcastJoinEnabled     bool `koanf:"broadcast_join_enabled"`
	SingleNodeOptimizeEnable bool `koanf:"single_node_optimize_enabled"`
	UTF8ViewEnabled          bool `koanf:"utf8_view_enabled"`
	AlignHistogramPartitions bool `koanf:"align_histogram_partitions"`
	CacheLatestFiles         bool `koanf:"cache_latest_files"`
	IndexAlignmentEnabled    bool `koanf:"index_alignment_enabled"`
}

// ClusterConfig configures node discovery and file partitioning policy (C4).
type ClusterConfig struct {
	PartitionPolicy string `koanf:"partition_policy"` // count | bytes | hash
}

// CacheConfig configures the aggregation-result cache (C8) and cardinality
// cache.
type CacheConfig struct {
	AggDir              string        `koanf:"agg_dir"`
	AggMaxAge           time.Duration `koanf:"agg_max_age"` // default 1 hour
	AggWatermark        time.Duration `koanf:"agg_watermark"`
	CardinalityTTL      time.Duration `koanf:"cardinality_ttl"` // default 1 hour
	CardinalityMaxItems int64         `koanf:"cardinality_max_items"`
}

// NATSConfig configures the columnar remote-scan transport.
type NATSConfig struct {
	URL              string        `koanf:"url"`
	EmbeddedServer   bool          `koanf:"embedded_server"`
	StoreDir         string        `koanf:"store_dir"`
	RequestTimeout   time.Duration `koanf:"request_timeout"`
	StreamRetention  time.Duration `koanf:"stream_retention"`
	SubjectPrefix    string        `koanf:"subject_prefix"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// ServerConfig configures the thin HTTP front door.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// AuthzConfig configures the Casbin-backed tenant scoping enforcer.
type AuthzConfig struct {
	ModelPath      string        `koanf:"model_path"`
	PolicyPath     string        `koanf:"policy_path"`
	CacheEnabled   bool          `koanf:"cache_enabled"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	AutoReload     bool          `koanf:"auto_reload"`
	ReloadInterval time.Duration `koanf:"reload_interval"`
}

func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			Role:      "querier",
			RoleGroup: "interactive",
			GRPCAddr:  "0.0.0.0:7280",
			Cluster:   "default",
		},
		Query: QueryConfig{
			Timeout:                900 * time.Second,
			QuerierTimeout:         600 * time.Second,
			IngesterTimeout:        60 * time.Second,
			GroupBaseSpeedBPS:      150 << 20, // 150MB/s/cpu, matches the source's per-cpu scan speed assumption
			PartitionBySecs:        900,
			AggsMinNumPartitionSec: 600,
			DefaultLimit:           10000,
			DashboardPlaceholder:   "_o2_all_",
			MinPartitionSeconds:    10,
			MinStepSeconds:         60,
			MaxPartitions:          1000,
			DefaultLimitJoinRight:  50000,
			BroadcastJoinMaxRows:   50000,
			CancelGrace:            2 * time.Second,
		},
		Feature: FeatureConfig{
			QueryStreamingAggs:       true,
			BroadcastJoinEnabled:     true,
			SingleNodeOptimizeEnable: true,
			UTF8ViewEnabled:          true,
			AlignHistogramPartitions: true,
		},
		Cluster: ClusterConfig{
			PartitionPolicy: "hash",
		},
		Cache: CacheConfig{
			AggDir:              "/data/agg-cache",
			AggMaxAge:           time.Hour,
			AggWatermark:        time.Minute,
			CardinalityTTL:      time.Hour,
			CardinalityMaxItems: 100_000,
		},
		NATS: NATSConfig{
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			StoreDir:         "/data/nats/jetstream",
			RequestTimeout:   30 * time.Second,
			StreamRetention:  24 * time.Hour,
			SubjectPrefix:    "queryengine.scan",
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        5080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Authz: AuthzConfig{
			ModelPath:      "",
			PolicyPath:     "",
			CacheEnabled:   true,
			CacheTTL:       5 * time.Minute,
			AutoReload:     true,
			ReloadInterval: 30 * time.Second,
		},
	}
}
