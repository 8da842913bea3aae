package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// Tenant store and key material
	TenantsFile string
	KeyFile     string
	SecretKey   string // explicit cipher key; overrides the key file when set

	// Upstream endpoints. Overridable so tests and sovereign-cloud
	// deployments can repoint them.
	TokenBaseURL string
	GraphBaseURL string
	GraphScope   string

	FetchTimeout   time.Duration
	RequestTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A local .env file is loaded first when present, matching how deployments
// ship credentials in development.
func FromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:           env("PRISM_ADDR", ":5000"),
		TenantsFile:    env("PRISM_TENANTS_FILE", "tenants.json"),
		KeyFile:        env("PRISM_KEY_FILE", "tenant_key.key"),
		SecretKey:      os.Getenv("PRISM_SECRET_KEY"),
		TokenBaseURL:   env("PRISM_TOKEN_BASE_URL", "https://login.microsoftonline.com"),
		GraphBaseURL:   env("PRISM_GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
		GraphScope:     env("PRISM_GRAPH_SCOPE", "https://graph.microsoft.com/.default"),
		FetchTimeout:   envDur("PRISM_FETCH_TIMEOUT", 8*time.Second),
		RequestTimeout: envDur("PRISM_REQUEST_TIMEOUT", 30*time.Second),
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
