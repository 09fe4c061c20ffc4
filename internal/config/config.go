package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every process setting. DOMAIN, TOKEN, USERNAME and PASSWORD
// come from the portal account; everything else has a working default.
type Config struct {
	Domain   string // base portal URL, e.g. https://portal.example.edu
	Token    string // webservice token for REST calls
	Username string // interactive login, yields the page-turn session
	Password string

	AnswersPath string // JSON answer store

	HistoryDriver string // sqlite|postgres
	HistoryDSN    string

	// Localized fragment the portal renders inside the feedback block when an
	// answer is wrong. Used only when no structural signal is present.
	IncorrectMarker string

	RetryMax   int
	RetryDelay time.Duration
}

// Load reads .env (if present) and then the environment.
func Load() Config {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	return Config{
		Domain:          strings.TrimRight(os.Getenv("DOMAIN"), "/"),
		Token:           os.Getenv("TOKEN"),
		Username:        os.Getenv("USERNAME"),
		Password:        os.Getenv("PASSWORD"),
		AnswersPath:     envOr("ANSWERS_PATH", "answers.json"),
		HistoryDriver:   envOr("HISTORY_DRIVER", "sqlite"),
		HistoryDSN:      os.Getenv("HISTORY_DSN"),
		IncorrectMarker: envOr("INCORRECT_MARKER", "неправильный ответ"),
		RetryMax:        envInt("RETRY_MAX", 3),
		RetryDelay:      envDuration("RETRY_DELAY", 500*time.Millisecond),
	}
}

// Validate reports every missing required setting at once so the user can fix
// the .env file in a single pass.
func (c Config) Validate() error {
	var missing []string
	if c.Domain == "" {
		missing = append(missing, "DOMAIN")
	}
	if c.Token == "" {
		missing = append(missing, "TOKEN")
	}
	if c.Username == "" {
		missing = append(missing, "USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
