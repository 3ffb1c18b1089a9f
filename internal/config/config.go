package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	DBPath              string
	Tokens              map[string]string // bearer token -> owner
	Timezone            string
	LogLevel            string
	LogFormat           string
	DailyLookbackDays   int
	WeeklyLookbackDays  int
	TriggerLookbackDays int
	SchedulerEnabled    bool
	ArchiveDir          string // empty disables the summary archive
	RecomputeOnStart    bool
}

// Load reads ECHO_* variables, after merging an optional .env file into the
// environment. Variables already set win over the file.
func Load() (*Config, error) {
	envFile := getEnv("ECHO_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	tokens, err := parseTokens(getEnv("ECHO_TOKENS", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:             getEnv("ECHO_PORT", "8080"),
		DBPath:           getEnv("ECHO_DB_PATH", ""),
		Tokens:           tokens,
		Timezone:         getEnv("ECHO_TIMEZONE", "UTC"),
		LogLevel:         getEnv("ECHO_LOG_LEVEL", "info"),
		LogFormat:        getEnv("ECHO_LOG_FORMAT", "text"),
		SchedulerEnabled: getEnv("ECHO_SCHEDULER_ENABLED", "true") != "false",
		ArchiveDir:       getEnv("ECHO_ARCHIVE_DIR", ""),
		RecomputeOnStart: getEnv("ECHO_RECOMPUTE_ON_START", "false") == "true",
	}

	if cfg.DailyLookbackDays, err = getEnvInt("ECHO_DAILY_LOOKBACK_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.WeeklyLookbackDays, err = getEnvInt("ECHO_WEEKLY_LOOKBACK_DAYS", 90); err != nil {
		return nil, err
	}
	if cfg.TriggerLookbackDays, err = getEnvInt("ECHO_TRIGGER_LOOKBACK_DAYS", 180); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("ECHO_DB_PATH is required")
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("ECHO_TOKENS must list at least one token:owner pair")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("ECHO_TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.DailyLookbackDays <= 0 || c.WeeklyLookbackDays <= 0 || c.TriggerLookbackDays <= 0 {
		return fmt.Errorf("lookback windows must be positive")
	}
	return nil
}

// OwnerFromToken resolves a bearer token to its owner
func (c *Config) OwnerFromToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	owner, ok := c.Tokens[token]
	return owner, ok
}

// Owners returns every configured owner, sorted and de-duplicated
func (c *Config) Owners() []string {
	seen := make(map[string]bool, len(c.Tokens))
	var owners []string
	for _, owner := range c.Tokens {
		if !seen[owner] {
			seen[owner] = true
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)
	return owners
}

// parseTokens reads "token:owner,token:owner"
func parseTokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, owner, ok := strings.Cut(pair, ":")
		token, owner = strings.TrimSpace(token), strings.TrimSpace(owner)
		if !ok || token == "" || owner == "" {
			return nil, fmt.Errorf("ECHO_TOKENS entry %q must be token:owner", pair)
		}
		tokens[token] = owner
	}
	return tokens, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
