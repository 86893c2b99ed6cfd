package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Server struct {
		Addr                string   `yaml:"addr"`
		Pprof               bool     `yaml:"pprof"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
		ThrottleRPS         float64  `yaml:"throttle_rps"`
		ThrottleBurst       int      `yaml:"throttle_burst"`
	} `yaml:"server"`
	Routing struct {
		MaxHops         int  `yaml:"max_hops"`
		CacheMaxEntries int  `yaml:"cache_max_entries"`
		StrictSelfQuote bool `yaml:"strict_self_quote"`
	} `yaml:"routing"`
	Feed struct {
		PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
		SnapshotCSV         string `yaml:"snapshot_csv"`
	} `yaml:"feed"`
}

func defaultConfig() Config {
	var c Config
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Server.Addr = ":9180"
	c.Server.Pprof = false
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}
	c.Server.ThrottleRPS = 100
	c.Server.ThrottleBurst = 200
	c.Routing.MaxHops = 10
	c.Routing.CacheMaxEntries = 4096
	c.Routing.StrictSelfQuote = false
	c.Feed.PollIntervalSeconds = 2
	c.Feed.SnapshotCSV = ""
	return c
}

func Load() Config {
	c := defaultConfig()
	if path := os.Getenv("DEXROUTE_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("DEXROUTE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DEXROUTE_LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("DEXROUTE_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DEXROUTE_PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("DEXROUTE_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("DEXROUTE_MAX_HOPS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Routing.MaxHops = n
		}
	}
	if v := os.Getenv("DEXROUTE_CACHE_MAX_ENTRIES"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n >= 0 {
			c.Routing.CacheMaxEntries = n
		}
	}
	if v := os.Getenv("DEXROUTE_STRICT_SELF_QUOTE"); v == "1" || v == "true" {
		c.Routing.StrictSelfQuote = true
	}
	if v := os.Getenv("DEXROUTE_FEED_POLL_SECONDS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Feed.PollIntervalSeconds = n
		}
	}
	if v := os.Getenv("DEXROUTE_FEED_SNAPSHOT_CSV"); v != "" {
		c.Feed.SnapshotCSV = v
	}
	return c
}

func splitCSV(s string) []string {
	var out []string
	buf := []rune{}
	for _, r := range s {
		if r == ',' {
			if len(buf) > 0 {
				out = append(out, string(buf))
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, r)
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}
