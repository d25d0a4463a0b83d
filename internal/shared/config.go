package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	CacheTTL       time.Duration
	AMQPURL        string
	ReportQueue    string
	ReportTZ       string
	SourcesFile    string
	Sources        string
	FetchWorkers   int
	RunLockTTL     time.Duration
	UpdateInterval time.Duration
}

func Load() Config {
	// a missing .env is normal outside local development
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/catalog?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		RedisPass:      env("REDIS_PASSWORD", ""),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		AMQPURL:        env("AMQP_URL", ""),
		ReportQueue:    env("REPORT_QUEUE", "catalog.update.report"),
		ReportTZ:       env("REPORT_TZ", "UTC"),
		SourcesFile:    env("SOURCES_FILE", ""),
		Sources:        env("SOURCES", ""),
		FetchWorkers:   atoi("FETCH_WORKERS", 4),
		RunLockTTL:     time.Duration(atoi("RUN_LOCK_TTL_SECONDS", 1800)) * time.Second,
		UpdateInterval: time.Duration(atoi("UPDATE_INTERVAL_MINUTES", 0)) * time.Minute,
	}
	if c.SourcesFile == "" && c.Sources == "" {
		log.Warn().Msg("neither SOURCES_FILE nor SOURCES is set; updates will fetch nothing")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
