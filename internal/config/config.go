package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/jgoulah/gridhours/internal/apperr"
)

// Config holds the application configuration
type Config struct {
	DataFile    string            `yaml:"data_file" toml:"data_file" json:"data_file"`
	OutputFile  string            `yaml:"output_file" toml:"output_file" json:"output_file"`
	Delimiter   string            `yaml:"delimiter,omitempty" toml:"delimiter,omitempty" json:"delimiter,omitempty" validate:"omitempty,max=4"`
	Sentinel    SentinelConfig    `yaml:"sentinel,omitempty" toml:"sentinel,omitempty" json:"sentinel,omitempty"`
	DedupKeys   []string          `yaml:"dedup_keys,omitempty" toml:"dedup_keys,omitempty" json:"dedup_keys,omitempty"`
	Conversions map[string]string `yaml:"conversions,omitempty" toml:"conversions,omitempty" json:"conversions,omitempty" validate:"omitempty,dive,oneof=float float64 double number int int64 integer string str text"`
	Fill        map[string]string `yaml:"fill,omitempty" toml:"fill,omitempty" json:"fill,omitempty" validate:"omitempty,dive,required"`
	Schema      SchemaConfig      `yaml:"schema,omitempty" toml:"schema,omitempty" json:"schema,omitempty"`
	WriteIndex  bool              `yaml:"write_index,omitempty" toml:"write_index,omitempty" json:"write_index,omitempty"`
	Exports     []ExportConfig    `yaml:"exports,omitempty" toml:"exports,omitempty" json:"exports,omitempty" validate:"dive"`
	Database    string            `yaml:"database,omitempty" toml:"database,omitempty" json:"database,omitempty"`
	MQTT        MQTTConfig        `yaml:"mqtt,omitempty" toml:"mqtt,omitempty" json:"mqtt,omitempty"`
	MetricsFile string            `yaml:"metrics_file,omitempty" toml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
	LogLevel    string            `yaml:"log_level,omitempty" toml:"log_level,omitempty" json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string            `yaml:"log_format,omitempty" toml:"log_format,omitempty" json:"log_format,omitempty" validate:"omitempty,oneof=text json"`
}

// SentinelConfig names the column and value whose rows are dropped as test data
type SentinelConfig struct {
	Column string `yaml:"column,omitempty" toml:"column,omitempty" json:"column,omitempty"`
	Value  string `yaml:"value,omitempty" toml:"value,omitempty" json:"value,omitempty"`
}

// SchemaConfig lists columns that must be present after loading
type SchemaConfig struct {
	Required []string `yaml:"required,omitempty" toml:"required,omitempty" json:"required,omitempty"`
}

// ExportConfig is one extra output of the hourly summary
type ExportConfig struct {
	Format string `yaml:"format" toml:"format" json:"format" validate:"required,oneof=json xlsx pdf"`
	Path   string `yaml:"path" toml:"path" json:"path" validate:"required"`
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Broker      string `yaml:"broker,omitempty" toml:"broker,omitempty" json:"broker,omitempty" validate:"required_if=Enabled true"`
	Username    string `yaml:"username,omitempty" toml:"username,omitempty" json:"username,omitempty"`
	Password    string `yaml:"password,omitempty" toml:"password,omitempty" json:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty" toml:"topic_prefix,omitempty" json:"topic_prefix,omitempty"`
	ClientID    string `yaml:"client_id,omitempty" toml:"client_id,omitempty" json:"client_id,omitempty"`
}

const (
	DefaultDataFile   = "data/battery_data.csv"
	DefaultOutputFile = "data/grid_usage_by_hour.csv"
	DefaultDelimiter  = ';'
	DefaultDatabase   = "data.db"
	DefaultTopic      = "gridhours"
)

// Load reads the config file. The format follows the extension: .toml, .json,
// and YAML for everything else. A missing file yields an empty config.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, apperr.NewIOError("reading config file", configPath, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, apperr.NewConfigError(fmt.Sprintf("parsing config file %s", configPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		data, err = toml.Marshal(*cfg)
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

var validate = validator.New()

// Validate checks field constraints and the delimiter.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.NewConfigError(fmt.Sprintf("field %s fails %q", fe.Namespace(), fe.Tag()), err)
		}
		return apperr.NewConfigError("validating config", err)
	}
	if c.Delimiter != "" && utf8.RuneCountInString(c.Delimiter) != 1 {
		return apperr.NewConfigError(fmt.Sprintf("delimiter %q must be a single character", c.Delimiter), nil)
	}
	return nil
}

// GetDataFile returns the input path, defaulting to data/battery_data.csv
func (c *Config) GetDataFile() string {
	if c.DataFile == "" {
		return DefaultDataFile
	}
	return c.DataFile
}

// GetOutputFile returns the summary path, defaulting to data/grid_usage_by_hour.csv
func (c *Config) GetOutputFile() string {
	if c.OutputFile == "" {
		return DefaultOutputFile
	}
	return c.OutputFile
}

// GetDelimiter returns the field delimiter, defaulting to ';'
func (c *Config) GetDelimiter() rune {
	if c.Delimiter == "" {
		return DefaultDelimiter
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// GetSentinel returns the test-data column and value, defaulting to
// grid_purchase and "Dev test"
func (c *Config) GetSentinel() SentinelConfig {
	s := c.Sentinel
	if s.Column == "" {
		s.Column = "grid_purchase"
	}
	if s.Value == "" {
		s.Value = "Dev test"
	}
	return s
}

// GetDedupKeys returns the duplicate-detection key, defaulting to timestamp and serial
func (c *Config) GetDedupKeys() []string {
	if len(c.DedupKeys) == 0 {
		return []string{"timestamp", "serial"}
	}
	return c.DedupKeys
}

// GetConversions returns column type conversions, defaulting to float for the grid columns
func (c *Config) GetConversions() map[string]string {
	if len(c.Conversions) == 0 {
		return map[string]string{"grid_purchase": "float", "grid_feedin": "float"}
	}
	return c.Conversions
}

// GetFill returns null-fill strategies, defaulting to median for the grid columns
func (c *Config) GetFill() map[string]string {
	if len(c.Fill) == 0 {
		return map[string]string{"grid_purchase": "median", "grid_feedin": "median"}
	}
	return c.Fill
}

// GetRequiredColumns returns the columns checked right after loading
func (c *Config) GetRequiredColumns() []string {
	if len(c.Schema.Required) == 0 {
		return []string{"timestamp", "serial", "grid_purchase", "grid_feedin"}
	}
	return c.Schema.Required
}

// GetLogLevel returns the log level, defaulting to info
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetLogFormat returns the log format, defaulting to text
func (c *Config) GetLogFormat() string {
	if c.LogFormat == "" {
		return "text"
	}
	return c.LogFormat
}

// GetTopicPrefix returns the MQTT topic prefix, defaulting to gridhours
func (m MQTTConfig) GetTopicPrefix() string {
	if m.TopicPrefix == "" {
		return DefaultTopic
	}
	return m.TopicPrefix
}

// GetClientID returns the MQTT client ID, defaulting to gridhours
func (m MQTTConfig) GetClientID() string {
	if m.ClientID == "" {
		return "gridhours"
	}
	return m.ClientID
}
