package config

import "time"

const apiBaseURLVar = "API_BASE_URL"

// DefaultAPIBaseURL is the backend address used when API_BASE_URL is unset.
const DefaultAPIBaseURL = "http://localhost:8765"

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, DefaultAPIBaseURL)
}

func (API) GetRequestTimeout() time.Duration {
	return 15 * time.Second
}
