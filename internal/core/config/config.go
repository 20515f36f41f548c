package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled bool
	Driver  string
	Topic   string
	Brokers string
	GroupID string
	// DedupeSize bounds the per-object version table.
	DedupeSize int
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool
	LogSampleN int

	StorageDriver  string
	StorageBaseURL string
	StorageBucket  string
	StorageDir     string
	StorageTimeout time.Duration

	FetchCacheSize int
	FetchCacheTTL  time.Duration
	RedisAddr      string
	RedisMaxObject int
	CacheOpTimeout time.Duration

	RateLimitPerMin  int
	OrganismSetsFile string
	DefaultH3Res     int

	Invalidation InvalidationCfg
	Metrics      MetricsCfg
}

func FromEnv() Config {
	h3Res := getint("H3_RES", 8)
	if h3Res < 0 || h3Res > 15 {
		h3Res = 8
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),

		StorageDriver:  getenv("STORAGE_DRIVER", "http"),
		StorageBaseURL: getenv("STORAGE_BASE_URL", getenv("JASMIN_API_URL", "http://localhost:9000")),
		StorageBucket:  getenv("STORAGE_BUCKET", "haig-fras"),
		StorageDir:     getenv("STORAGE_DIR", "./data"),
		StorageTimeout: getduration("STORAGE_TIMEOUT", 30*time.Second),

		FetchCacheSize: getint("FETCH_CACHE_SIZE", 128),
		FetchCacheTTL:  getduration("FETCH_CACHE_TTL", 10*time.Minute),
		// empty disables the shared tier
		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisMaxObject: getint("REDIS_MAX_OBJECT_BYTES", 8<<20),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		RateLimitPerMin:  getint("RATE_LIMIT_PER_MIN", 0),
		OrganismSetsFile: getenv("ORGANISM_SETS_FILE", ""),
		DefaultH3Res:     h3Res,

		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Driver:  getenv("INVALIDATION_DRIVER", "none"),
			Topic:   getenv("KAFKA_TOPIC", "survey-object-updates"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "survey-cache-invalidator"),

			DedupeSize: getint("INVALIDATION_DEDUPE_SIZE", 8192),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

// BrokerList splits the comma-separated broker list, skipping blanks.
func (c InvalidationCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
