// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package config

import "fmt"

// Validate checks that required configuration is present and internally
// consistent, returning the first problem found.
func (c *Config) Validate() error {
	if err := c.validateNode(); err != nil {
		return err
	}
	if err := c.validateQuery(); err != nil {
		return err
	}
	if err := c.validateCluster(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateNode() error {
	switch c.Node.Role {
	case "querier", "ingester", "compactor", "router", "single":
	default:
		return fmt.Errorf("node.role %q is not one of querier|ingester|compactor|router|single", c.Node.Role)
	}
	return nil
}

func (c *Config) validateQuery() error {
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive")
	}
	if c.Query.MinStepSeconds <= 0 {
		return fmt.Errorf("query.min_step_seconds must be positive")
	}
	if c.Query.MaxPartitions <= 0 {
		return fmt.Errorf("query.max_partitions must be positive")
	}
	if c.Query.DefaultLimit <= 0 {
		return fmt.Errorf("query.default_limit must be positive")
	}
	return nil
}

func (c *Config) validateCluster() error {
	switch c.Cluster.PartitionPolicy {
	case "count", "bytes", "hash":
	default:
		return fmt.Errorf("cluster.partition_policy %q is not one of count|bytes|hash", c.Cluster.PartitionPolicy)
	}
	if c.Feature.CacheLatestFiles && c.Cluster.PartitionPolicy != "hash" {
		return fmt.Errorf("cluster.partition_policy must be hash when feature.cache_latest_files is enabled")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
