package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	defaultSearchAPIVersion = "2020-06-30"
	defaultRequestTimeout   = 60 * time.Second
	defaultPort             = "8080"
	defaultJournalRetention = 30 * 24 * time.Hour
)

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

// Set overrides a value for the lifetime of the process. Flags use it.
func (c *Config) Set(key string, value any) {
	c.config.Set(key, value)
}

// getString prefers the environment variable, then the nested key from the config file.
func (c *Config) getString(envKey string, fileKey string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(fileKey)
	}

	return value
}

func (c *Config) GetPort() string {
	port := c.getString("PORT", "server.port")
	if len(port) == 0 {
		port = defaultPort
	}

	return port
}

func (c *Config) GetKVDBPath() string {
	return c.getString("KVDB_PATH", "database.kvdb_path")
}

func (c *Config) GetLogLevel() string {
	return c.getString("LOG_LEVEL", "log.level")
}

func (c *Config) GetRequestTimeout() time.Duration {
	timeout := c.config.GetDuration("REQUEST_TIMEOUT")
	if timeout <= 0 {
		timeout = c.config.GetDuration("server.request_timeout")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return timeout
}

// GetJournalRetention is how long operation records are kept. Zero or less keeps them forever.
func (c *Config) GetJournalRetention() time.Duration {
	if len(c.getString("JOURNAL_RETENTION", "database.journal_retention")) == 0 {
		return defaultJournalRetention
	}

	retention := c.config.GetDuration("JOURNAL_RETENTION")
	if retention == 0 {
		retention = c.config.GetDuration("database.journal_retention")
	}

	return retention
}

func (c *Config) GetSearchServiceName() string {
	return c.getString("SEARCH_SERVICE_NAME", "search.service")
}

func (c *Config) GetSearchAdminKey() string {
	return c.getString("SEARCH_ADMIN_KEY", "search.key")
}

func (c *Config) GetSearchIndexName() string {
	return c.getString("SEARCH_INDEX_NAME", "search.index")
}

func (c *Config) GetIndexerName() string {
	return c.getString("INDEXER_NAME", "search.indexer")
}

func (c *Config) GetSearchAPIVersion() string {
	apiVersion := c.getString("SEARCH_API_VERSION", "search.api_version")
	if len(apiVersion) == 0 {
		apiVersion = defaultSearchAPIVersion
	}

	return apiVersion
}

// GetSearchEndpoint returns the explicit endpoint if one is configured and
// otherwise derives it from the service name.
func (c *Config) GetSearchEndpoint() string {
	endpoint := c.getString("SEARCH_ENDPOINT", "search.endpoint")
	if len(endpoint) == 0 && len(c.GetSearchServiceName()) > 0 {
		endpoint = fmt.Sprintf("https://%s.search.windows.net", c.GetSearchServiceName())
	}

	return endpoint
}

func (c *Config) GetStorageAccountName() string {
	return c.getString("STORAGE_ACCOUNT_NAME", "storage.account")
}

func (c *Config) GetStorageAccountKey() string {
	return c.getString("STORAGE_ACCOUNT_KEY", "storage.key")
}

func (c *Config) GetBlobContainerName() string {
	return c.getString("BLOB_CONTAINER_NAME", "storage.container")
}

func (c *Config) GetBlobEndpoint() string {
	endpoint := c.getString("BLOB_ENDPOINT", "storage.endpoint")
	if len(endpoint) == 0 && len(c.GetStorageAccountName()) > 0 {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", c.GetStorageAccountName())
	}

	return endpoint
}

// Validate reports the first required setting that is missing.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"SEARCH_ENDPOINT or SEARCH_SERVICE_NAME", c.GetSearchEndpoint()},
		{"SEARCH_ADMIN_KEY", c.GetSearchAdminKey()},
		{"SEARCH_INDEX_NAME", c.GetSearchIndexName()},
		{"INDEXER_NAME", c.GetIndexerName()},
		{"STORAGE_ACCOUNT_NAME", c.GetStorageAccountName()},
		{"STORAGE_ACCOUNT_KEY", c.GetStorageAccountKey()},
		{"BLOB_CONTAINER_NAME", c.GetBlobContainerName()},
	}

	for _, setting := range required {
		if len(setting.value) == 0 {
			return &MissingSettingError{Name: setting.name}
		}
	}

	// Durations without a unit would be read as nanoseconds.
	durations := []struct {
		envKey  string
		fileKey string
	}{
		{"REQUEST_TIMEOUT", "server.request_timeout"},
		{"JOURNAL_RETENTION", "database.journal_retention"},
	}

	for _, setting := range durations {
		value := c.getString(setting.envKey, setting.fileKey)
		if len(value) == 0 {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return &InvalidSettingError{Name: setting.envKey, Value: value, Reason: "must be a duration with a unit, such as 30s or 720h"}
		}
	}

	return nil
}

var (
	ErrMissingSetting = errors.New("missing setting")
	ErrInvalidSetting = errors.New("invalid setting")
)

type InvalidSettingError struct {
	Name   string
	Value  string
	Reason string
}

func (e *InvalidSettingError) Error() string {
	return fmt.Sprintf("invalid setting %s=%q: %s", e.Name, e.Value, e.Reason)
}

func (e *InvalidSettingError) Is(target error) bool {
	return target == ErrInvalidSetting
}

type MissingSettingError struct {
	Name string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("missing required setting %s", e.Name)
}

func (e *MissingSettingError) Is(target error) bool {
	return target == ErrMissingSetting
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
