// Package config reads the annotator settings from the environment. A .env file in the
// working directory, when present, is loaded before the first lookup.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

// UserStoreType selects the backend holding the user registry.
type UserStoreType string

const (
	UserStoreJSON   UserStoreType = "json"
	UserStoreSQLite UserStoreType = "sqlite"
)

const (
	defaultPort          = 8000
	defaultSessionMaxAge = 24 * 60
)

var loadEnvOnce sync.Once

// LoadEnv loads variables from a .env file without overriding ones already set.
func LoadEnv(files ...string) {
	loadEnvOnce.Do(func() {
		if len(files) == 0 {
			files = []string{".env"}
		}
		for _, f := range files {
			if _, err := os.Stat(f); err != nil {
				continue
			}
			if err := godotenv.Load(f); err != nil {
				fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", f, err)
			}
		}
	})
}

func getEnv(key string) string {
	LoadEnv()
	return strings.TrimSpace(os.Getenv(key))
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := getEnv("ANNOTATOR_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(strings.ToLower(logLevel))
}

func IsDebug() bool {
	return getEnv("ANNOTATOR_DEBUG") == "true"
}

func GetLogFolder() string {
	logFolderPath := getEnv("ANNOTATOR_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "log"
	}
	return logFolderPath
}

// GetDatasetPath returns the absolute root of the scenario dataset. The variable name is
// shared with the scripts that produce the dataset.
func GetDatasetPath() string {
	p := getEnv("DATASET_PATH")
	if p == "" {
		p = "dataset"
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetDataFolderPath returns the directory holding users and annotations.
func GetDataFolderPath() string {
	p := getEnv("ANNOTATOR_DATA_FOLDER")
	if p == "" {
		p = "data"
	}
	return p
}

func GetUsersFilePath() string {
	return filepath.Join(GetDataFolderPath(), "users.json")
}

func GetDBPath() string {
	return filepath.Join(GetDataFolderPath(), GetName()+".db")
}

func GetUserStore() UserStoreType {
	switch UserStoreType(strings.ToLower(getEnv("ANNOTATOR_USER_STORE"))) {
	case UserStoreSQLite:
		return UserStoreSQLite
	default:
		return UserStoreJSON
	}
}

func GetListen() string {
	return getEnv("ANNOTATOR_LISTEN")
}

func GetPort() int {
	return getInt("ANNOTATOR_PORT", defaultPort)
}

func GetCertFile() string {
	return getEnv("ANNOTATOR_CERT_FILE")
}

func GetKeyFile() string {
	return getEnv("ANNOTATOR_KEY_FILE")
}

// GetWebDomain returns the only host name the server answers to, or "" for any.
func GetWebDomain() string {
	return getEnv("ANNOTATOR_DOMAIN")
}

// GetSessionSecret returns the cookie signing key. Empty means one is generated at startup.
func GetSessionSecret() string {
	return getEnv("ANNOTATOR_SESSION_SECRET")
}

// GetSessionMaxAge returns the session lifetime in minutes.
func GetSessionMaxAge() int {
	return getInt("ANNOTATOR_SESSION_MAX_AGE", defaultSessionMaxAge)
}

// GetLogRotateSpec returns the cron spec of the log rotation job. "off" disables it.
func GetLogRotateSpec() string {
	if v := getEnv("ANNOTATOR_LOG_ROTATE"); v != "" {
		return v
	}
	return "@daily"
}

// GetDatasetCheckSpec returns the cron spec of the dataset check job. "off" disables it.
func GetDatasetCheckSpec() string {
	if v := getEnv("ANNOTATOR_DATASET_CHECK"); v != "" {
		return v
	}
	return "@every 10m"
}

func getInt(key string, def int) int {
	v := getEnv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		fmt.Fprintf(os.Stderr, "invalid %s=%q, using %d\n", key, v, def)
		return def
	}
	return n
}
