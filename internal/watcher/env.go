package watcher

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Env struct {
	ServerURL string `envconfig:"SERVER_URL"`
	APIKey    string `envconfig:"API_KEY"`
	Timezone  string `envconfig:"TIMEZONE"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

const namespace = "CREWDECK"

var requiredVars = []string{
	"CREWDECK_SERVER_URL",
	"CREWDECK_API_KEY",
	"CREWDECK_TIMEZONE",
}

// LoadEnv loads the watcher configuration. All missing required values are
// reported together so a misconfigured deployment is fixable in one pass.
func LoadEnv() (*Env, error) {
	var missing []string
	for _, name := range requiredVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}
