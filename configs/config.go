package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port            string
	Environment     string
	APIKey          string
	OllamaURL       string
	OllamaModel     string
	OllamaTimeout   int // seconds
	DataPath        string
	CausalGraphPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		APIKey:          getEnv("API_KEY", ""),
		OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "mistral:7b-instruct"),
		OllamaTimeout:   getEnvInt("OLLAMA_TIMEOUT_SECONDS", 120),
		DataPath:        getEnv("DATA_PATH", "data/metrics.csv"),
		CausalGraphPath: getEnv("CAUSAL_GRAPH_PATH", "data/causal_graph.yaml"),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
