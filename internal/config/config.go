package config

type Config interface {
	EnvConfig
	CorsConfig
	APIConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetStorageBackend() string
	GetRedisURL() string
	GetLogLevel() string
	GetSentryDSN() string
	GetDemoMode() bool
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	API
	Session
}

func New() Config {
	return mainConfig{}
}
