package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "readout"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "READOUT"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance, which is where
// the root command binds its flags.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on an isolated viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	if v == nil {
		v = viper.New()
	}
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables and defaults,
// then validates it.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the final validation step.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path. An empty path
// falls back to the search paths.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation is LoadWithFile without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults and environment only.
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables maps READOUT_EXTRACTION_MAX_LINE_GAP style
// variables onto dotted keys.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	// Extraction defaults
	l.v.SetDefault("extraction.max_line_gap", defaults.Extraction.MaxLineGap)
	l.v.SetDefault("extraction.max_glyph_gap", defaults.Extraction.MaxGlyphGap)
	l.v.SetDefault("extraction.max_column_offset", defaults.Extraction.MaxColumnOffset)
	l.v.SetDefault("extraction.vocabulary", defaults.Extraction.Vocabulary)
	l.v.SetDefault("extraction.label_delimiter", defaults.Extraction.LabelDelimiter)
	l.v.SetDefault("extraction.key_strip_chars", defaults.Extraction.KeyStripChars)
	l.v.SetDefault("extraction.assignment", defaults.Extraction.Assignment)
	l.v.SetDefault("extraction.min_confidence", defaults.Extraction.MinConfidence)

	// Output defaults
	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.file", defaults.Output.File)
	l.v.SetDefault("output.diagnostics", defaults.Output.Diagnostics)

	// Server defaults
	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit.enabled", defaults.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", defaults.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", defaults.Server.RateLimit.RequestsPerHour)
	l.v.SetDefault("server.rate_limit.max_requests_per_day", defaults.Server.RateLimit.MaxRequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_data_per_day", defaults.Server.RateLimit.MaxDataPerDay)

	// Batch defaults
	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
	l.v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)
	l.v.SetDefault("batch.recursive", defaults.Batch.Recursive)
	l.v.SetDefault("batch.include", defaults.Batch.Include)
	l.v.SetDefault("batch.exclude", defaults.Batch.Exclude)

	// OCR defaults
	l.v.SetDefault("ocr.engine", defaults.OCR.Engine)
	l.v.SetDefault("ocr.language", defaults.OCR.Language)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes a config file holding every default.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}

	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	paths = append(paths, filepath.Join("/etc", ConfigFileName))

	return paths
}

// PrintConfigInfo prints information about configuration loading.
func (l *Loader) PrintConfigInfo(w io.Writer) {
	used := l.GetConfigFileUsed()
	if used == "" {
		used = "(none)"
	}
	_, _ = fmt.Fprintf(w, "Configuration file used: %s\n", used)
	_, _ = fmt.Fprintf(w, "Configuration search paths: %v\n", GetConfigSearchPaths())
	_, _ = fmt.Fprintf(w, "Environment prefix: %s\n", EnvPrefix)
}
