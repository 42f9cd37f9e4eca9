package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	pipeerrors "conductcli/internal/errors"
)

// envPrefix is the prefix for all environment overrides, e.g. CONDUCT_LOGGING_LEVEL.
const envPrefix = "CONDUCT"

// Config represents the complete pipeline configuration. Precedence is
// environment > config file > built-in defaults.
type Config struct {
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Paths         PathsConfig         `yaml:"paths" envconfig:"PATHS"`
	Anonymization AnonymizationConfig `yaml:"anonymization" envconfig:"ANONYMIZATION"`
	Schema        SchemaConfig        `yaml:"schema" envconfig:"SCHEMA"`
	Reports       ReportsConfig       `yaml:"reports" envconfig:"REPORTS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	InputFile    string `yaml:"input_file" envconfig:"INPUT_FILE" validate:"required"`
	ExportDir    string `yaml:"export_dir" envconfig:"EXPORT_DIR" validate:"required"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	CalendarFile string `yaml:"calendar_file" envconfig:"CALENDAR_FILE"`
	LookupsFile  string `yaml:"lookups_file" envconfig:"LOOKUPS_FILE"`
}

// AnonymizationConfig controls the one-way identifier hashing. The secret
// itself is loaded through Key(); it never appears in the config struct and
// must never be logged.
type AnonymizationConfig struct {
	KeyEnv      string `yaml:"key_env" envconfig:"KEY_ENV"`
	KeyFile     string `yaml:"key_file" envconfig:"KEY_FILE"`
	TokenLength int    `yaml:"token_length" envconfig:"TOKEN_LENGTH" validate:"min=8,max=64"`
}

// minKeyBytes is the minimum accepted secret length.
const minKeyBytes = 16

// Key loads the anonymization secret from the configured environment variable
// or key file, in that order. The returned bytes are opaque key material.
func (a AnonymizationConfig) Key() ([]byte, error) {
	if a.KeyEnv != "" {
		if v := os.Getenv(a.KeyEnv); v != "" {
			return validateKey([]byte(strings.TrimSpace(v)))
		}
	}
	if a.KeyFile != "" {
		data, err := os.ReadFile(a.KeyFile)
		if err != nil {
			return nil, pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "reading anonymization key file", err)
		}
		return validateKey([]byte(strings.TrimSpace(string(data))))
	}
	return nil, pipeerrors.New(pipeerrors.CodeConfigInvalid, "no anonymization key source configured")
}

func validateKey(key []byte) ([]byte, error) {
	if len(key) < minKeyBytes {
		return nil, pipeerrors.NewWithDetails(pipeerrors.CodeConfigInvalid,
			"anonymization key too short", map[string]int{"min_bytes": minKeyBytes})
	}
	return key, nil
}

// SchemaConfig fixes the export's slot layout. The charge/finding slot pairs
// are resolved once at the ingestion boundary from this arity, never
// re-derived by name pattern inside aggregation calls.
type SchemaConfig struct {
	SlotCount       int      `yaml:"slot_count" envconfig:"SLOT_COUNT" validate:"min=1,max=20"`
	GroupingColumns []string `yaml:"grouping_columns" envconfig:"GROUPING_COLUMNS"`
}

// ReportsConfig selects the analysis windows and output mode for one run.
type ReportsConfig struct {
	Years           []string `yaml:"years" envconfig:"YEARS"`
	CohortYears     []string `yaml:"cohort_years" envconfig:"COHORT_YEARS"`
	FollowupThrough string   `yaml:"followup_through" envconfig:"FOLLOWUP_THROUGH"`
	GroupBy         string   `yaml:"group_by" envconfig:"GROUP_BY"`
	Format          string   `yaml:"format" envconfig:"FORMAT" validate:"oneof=display raw"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/pipeline.log",
		},
		Paths: PathsConfig{
			InputFile:    "data/case_export.xlsx",
			ExportDir:    "data/reports",
			LogsDir:      "logs",
			CalendarFile: "config/calendar.yaml",
			LookupsFile:  "config/lookups.yaml",
		},
		Anonymization: AnonymizationConfig{
			KeyEnv:      "CONDUCT_ANON_KEY",
			TokenLength: 32,
		},
		Schema: SchemaConfig{
			SlotCount:       3,
			GroupingColumns: []string{"College"},
		},
		Reports: ReportsConfig{
			Format: "display",
		},
	}
}

// Load loads configuration from the optional YAML file and environment
// variables, validates it, and returns the result.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := loadFromFile(configFile, &cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	// Environment overrides anything the file set.
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFromFile overlays configuration from a YAML file
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "config validation failed", err)
	}
	return nil
}
