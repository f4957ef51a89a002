// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/cardmage/internal/maze"
	"github.com/sirupsen/logrus"
)

// Config is everything the server reads from the environment. A .env file in
// the working directory is loaded by cmd/server before Load runs.
type Config struct {
	ListenAddr        string
	WSAddr            string
	TickInterval      time.Duration
	PingInterval      time.Duration
	MaxFrameSize      int
	OutboundQueueSize int

	MapRows            int
	MapCols            int
	MapHex             bool
	MapGenerator       maze.Kind
	MapSubGenerator    maze.Kind
	MapWallRemoval     float64
	MapMinWallDistance int
	VisionRange        int
	HandSize           int

	LobbyRequireReady      bool
	MatchRejectionFeedback bool
	CardCatalog            string
	DevLogin               bool
	TokenExpire            time.Duration

	RedisAddr       string
	RedisDB         int
	ResultQueueName string

	// PostgresURL is empty when no database is configured.
	PostgresURL string

	LogLevel logrus.Level
}

// matchStartHeadroom is room in the outbound queue for the match start
// messages around the map rows.
const matchStartHeadroom = 64

// DefaultResultQueue is the Redis list match results and actions are pushed to.
const DefaultResultQueue = "cardmage_results"

// Load reads the environment. Malformed values fall back to their defaults
// except for enum-like keys, which are reported.
func Load() (Config, error) {
	c := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":7777"),
		WSAddr:             getEnv("WS_ADDR", ""),
		TickInterval:       getEnvDuration("TICK_INTERVAL", 25*time.Millisecond),
		PingInterval:       getEnvDuration("PING_INTERVAL", 5*time.Second),
		MaxFrameSize:       getEnvInt("MAX_FRAME_SIZE", 1<<20),
		OutboundQueueSize:  getEnvInt("OUTBOUND_QUEUE_SIZE", 256),
		MapRows:            getEnvInt("MAP_HEIGHT", 27),
		MapCols:            getEnvInt("MAP_WIDTH", 27),
		MapHex:             getEnvBool("MAP_HEX", true),
		MapWallRemoval:     getEnvFloat("MAP_WALL_REMOVAL", 0.10),
		MapMinWallDistance: getEnvInt("MAP_MIN_WALL_DISTANCE", 4),
		VisionRange:        getEnvInt("VISION_RANGE", 3),
		HandSize:           getEnvInt("HAND_SIZE", 5),
		LobbyRequireReady:  getEnvBool("LOBBY_REQUIRE_READY", false),
		CardCatalog:        getEnv("CARD_CATALOG", ""),
		DevLogin:           getEnvBool("DEV_LOGIN", true),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		ResultQueueName:    getEnv("RESULT_QUEUE_NAME", DefaultResultQueue),
		PostgresURL:        postgresURL(),
	}
	c.MatchRejectionFeedback = getEnvBool("MATCH_REJECTION_FEEDBACK", false)

	// A full outbound queue drops the connection, and a match start queues
	// every map row at once.
	if least := c.MapRows + matchStartHeadroom; c.OutboundQueueSize < least {
		c.OutboundQueueSize = least
	}

	var err error
	if c.MapGenerator, err = maze.ParseKind(getEnv("MAP_GENERATOR", "three_region")); err != nil {
		return c, fmt.Errorf("MAP_GENERATOR: %w", err)
	}
	if c.MapSubGenerator, err = maze.ParseKind(getEnv("MAP_SUB_GENERATOR", "dfs")); err != nil {
		return c, fmt.Errorf("MAP_SUB_GENERATOR: %w", err)
	}
	if c.TokenExpire, err = parseTokenExpire(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return c, fmt.Errorf("TOKEN_EXPIRE_TIME: %w", err)
	}
	if c.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return c, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return c, nil
}

// Historian configures cmd/historian's batching and inactivity sweep.
type Historian struct {
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration
	SweepEvery time.Duration
}

// LoadHistorian reads the HISTORIAN_* keys.
func LoadHistorian() Historian {
	return Historian{
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(getEnvInt("MATCH_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
		SweepEvery: getEnvDuration("HISTORIAN_SWEEP_INTERVAL", time.Minute),
	}
}

// MazeOptions turns the map keys into generator options.
func (c Config) MazeOptions() maze.Options {
	opts := maze.Defaults()
	opts.Sub = c.MapSubGenerator
	opts.WallRemoval = c.MapWallRemoval
	opts.MinWallDistance = c.MapMinWallDistance
	return opts
}

// parseTokenExpire accepts a Go duration; "never", "0" and empty mean no expiry.
func parseTokenExpire(s string) (time.Duration, error) {
	if s == "" || s == "never" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// postgresURL prefers PG_URL and otherwise assembles the POSTGRES_*/PG_* parts.
// It returns "" when PG_HOST is not set.
func postgresURL() string {
	if u := os.Getenv("PG_URL"); u != "" {
		return u
	}
	host := os.Getenv("PG_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		host,
		getEnv("PG_PORT", "5432"),
		getEnv("PG_DATABASE", "cardmage"),
	)
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
