package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	folderEnvVar  = "FOLDER"
	storageEnvVar = "STORAGE"
	redisURLVar   = "REDIS_URL"
	logLevelVar   = "LOG_LEVEL"
	sentryDSNVar  = "SENTRY_DSN"
	demoVar       = "DEMO"
)

// EnvDev is the default environment; route and request logging is on in DEV.
const EnvDev = "DEV"

// Storage backends understood by GetStorageBackend.
const (
	StorageFile  = "file"
	StorageRedis = "redis"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Pin Client")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetStorageBackend selects where the session is persisted: "file" (default) or "redis".
func (EnvVars) GetStorageBackend() string {
	return strings.ToLower(GetEnv(storageEnvVar, StorageFile))
}

func (EnvVars) GetRedisURL() string {
	return GetEnv(redisURLVar, "redis://localhost:6379/0")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetSentryDSN() string {
	return GetEnv(sentryDSNVar, "")
}

// GetDemoMode reports whether the client should run against the in-memory backend.
func (EnvVars) GetDemoMode() bool {
	demo, err := strconv.ParseBool(GetEnv(demoVar, "false"))
	return err == nil && demo
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return EnvDev
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
