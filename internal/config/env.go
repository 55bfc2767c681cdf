package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Get returns the first non-empty environment variable from the provided keys.
func Get(keys ...string) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// LoadDotEnv loads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// ApplyEnv fills remote and export settings that were left empty by flags
// and the config file.
func (c *Config) ApplyEnv() {
	if c.Remote.URL == "" {
		c.Remote.URL = Get("API_URL", "OPENAI_BASE_URL")
	}
	if c.Remote.APIKey == "" {
		c.Remote.APIKey = Get("API_KEY", "OPENAI_API_KEY")
	}
	if c.Remote.Model == "" {
		c.Remote.Model = Get("API_MODEL", "OPENAI_EMBEDDING_MODEL")
	}
	if c.Explain.Model == "" {
		c.Explain.Model = Get("OPENAI_CHAT_MODEL")
	}
	if c.Qdrant.URL == "" {
		c.Qdrant.URL = Get("QDRANT_URL")
	}
	if c.Qdrant.APIKey == "" {
		c.Qdrant.APIKey = Get("QDRANT_API_KEY")
	}
}
