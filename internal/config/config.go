package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"defecteval/domain/core"
	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal/errors"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Report formats understood by the sinks
const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "markdown"
)

// Config represents the complete run configuration. The first five fields
// are required; everything else is optional.
type Config struct {
	Project    string   `json:"project" yaml:"project" validate:"required"`
	Releases   int      `json:"releases" yaml:"releases" validate:"gte=1"`
	Path       string   `json:"path" yaml:"path" validate:"required"`
	Separator  string   `json:"separator" yaml:"separator" validate:"required"`
	Attributes []string `json:"attributes" yaml:"attributes" validate:"min=2,dive,required"`

	PositiveLabel string `json:"positive_label" yaml:"positive_label"`
	NegativeLabel string `json:"negative_label" yaml:"negative_label"`

	Classifiers      []string `json:"classifiers" yaml:"classifiers"`
	Balancing        []string `json:"balancing" yaml:"balancing"`
	FeatureSelection []string `json:"feature_selection" yaml:"feature_selection"`

	Seed       int64    `json:"seed" yaml:"seed"`
	Workers    int      `json:"workers" yaml:"workers" validate:"gte=1,lte=256"`
	FitTimeout Duration `json:"fit_timeout" yaml:"fit_timeout"`

	OutputDir   string   `json:"output_dir" yaml:"output_dir"`
	Formats     []string `json:"formats" yaml:"formats" validate:"dive,oneof=csv xlsx markdown"`
	MetricsFile string   `json:"metrics_file" yaml:"metrics_file"`
	DatabaseURL string   `json:"database_url" yaml:"database_url"`

	LogLevel string `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE error warn info debug trace"`
	LogFile  string `json:"log_file" yaml:"log_file"`
}

// Duration is a time.Duration written as "90s" or "2m" in config files
type Duration time.Duration

// Std returns the standard library duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalJSON accepts a duration string or a number of seconds
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %s", string(b))
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// UnmarshalYAML accepts a duration string or a number of seconds
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if secs, err := strconv.ParseFloat(node.Value, 64); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns a configuration with every optional field set
func Default() *Config {
	return &Config{
		Separator:     ",",
		PositiveLabel: dataset.DefaultLabelTokens().Defective,
		NegativeLabel: dataset.DefaultLabelTokens().Clean,
		Seed:          1,
		Workers:       1,
		OutputDir:     ".",
		Formats:       []string{FormatCSV},
	}
}

// Load reads a JSON or YAML configuration file, applies environment
// overrides and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOFailure(path, err)
	}

	cfg := Default()
	if err := decode(path, data, cfg); err != nil {
		return nil, errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), fmt.Sprintf("failed to decode %s", path))
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(cfg)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
}

func (c *Config) applyEnvOverrides() {
	c.Releases = getEnvIntOrDefault("DEFECTEVAL_RELEASES", c.Releases)
	c.Path = getEnvOrDefault("DEFECTEVAL_PATH", c.Path)
	c.Seed = int64(getEnvIntOrDefault("DEFECTEVAL_SEED", int(c.Seed)))
	c.Workers = getEnvIntOrDefault("DEFECTEVAL_WORKERS", c.Workers)
	c.FitTimeout = Duration(getEnvDurationOrDefault("DEFECTEVAL_FIT_TIMEOUT", c.FitTimeout.Std()))
	c.OutputDir = getEnvOrDefault("DEFECTEVAL_OUTPUT_DIR", c.OutputDir)
	c.MetricsFile = getEnvOrDefault("DEFECTEVAL_METRICS_FILE", c.MetricsFile)
	c.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvOrDefault("DEFECTEVAL_LOG_FILE", c.LogFile)
	if formats := os.Getenv("DEFECTEVAL_FORMATS"); formats != "" {
		c.Formats = splitList(formats)
	}
}

// applyDefaults fills fields a config file set to their zero value
func (c *Config) applyDefaults() {
	def := Default()
	if c.PositiveLabel == "" {
		c.PositiveLabel = def.PositiveLabel
	}
	if c.NegativeLabel == "" {
		c.NegativeLabel = def.NegativeLabel
	}
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if len(c.Formats) == 0 {
		c.Formats = def.Formats
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and every identifier the run will parse.
// All failures carry the CONFIG_INVALID code.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, describeValidation(err))
	}
	if c.FitTimeout < 0 {
		return errors.ConfigInvalid("fit_timeout cannot be negative")
	}
	if c.PositiveLabel == c.NegativeLabel {
		return errors.ConfigInvalid("positive_label and negative_label must differ")
	}
	if _, err := c.SeparatorPattern(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if _, err := c.Schema(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if _, err := c.Matrix(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// SeparatorPattern compiles the field separator. It is a regular expression,
// so "," and ";" work as-is and "\\s*,\\s*" trims around commas.
func (c *Config) SeparatorPattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.Separator)
	if err != nil {
		return nil, fmt.Errorf("separator %q: %w", c.Separator, err)
	}
	return re, nil
}

// LabelTokens returns the literal label tokens
func (c *Config) LabelTokens() dataset.LabelTokens {
	return dataset.LabelTokens{Defective: c.PositiveLabel, Clean: c.NegativeLabel}
}

// Schema parses the attribute declarations and checks the class attribute
// against the label tokens
func (c *Config) Schema() (dataset.Schema, error) {
	schema, err := dataset.NewSchema(c.Attributes)
	if err != nil {
		return dataset.Schema{}, err
	}
	if schema.Class.Type == dataset.AttributeNominal {
		declared := make(map[string]bool, len(schema.Class.Values))
		for _, v := range schema.Class.Values {
			declared[v] = true
		}
		for _, token := range []string{c.PositiveLabel, c.NegativeLabel} {
			if !declared[token] {
				return dataset.Schema{}, fmt.Errorf("class attribute %q does not declare label %q", schema.Class.Name, token)
			}
		}
	}
	return schema, nil
}

// Matrix parses the configured policy and classifier subsets
func (c *Config) Matrix() (evaluation.Matrix, error) {
	var selections []evaluation.FeatureSelectionPolicy
	for _, s := range c.FeatureSelection {
		p, err := evaluation.ParseFeatureSelectionPolicy(s)
		if err != nil {
			return evaluation.Matrix{}, err
		}
		selections = append(selections, p)
	}

	var balancings []evaluation.BalancingPolicy
	for _, s := range c.Balancing {
		p, err := evaluation.ParseBalancingPolicy(s)
		if err != nil {
			return evaluation.Matrix{}, err
		}
		balancings = append(balancings, p)
	}

	var classifiers []evaluation.ClassifierKind
	for _, s := range c.Classifiers {
		k, err := evaluation.ParseClassifierKind(s)
		if err != nil {
			return evaluation.Matrix{}, err
		}
		classifiers = append(classifiers, k)
	}

	return evaluation.NewMatrix(selections, balancings, classifiers), nil
}

// HasFormat reports whether a report format is enabled
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Hash fingerprints every setting that influences the produced records
func (c *Config) Hash() core.ConfigHash {
	matrix, _ := c.Matrix()
	var sel, bal, cls []string
	for _, p := range matrix.Selections {
		sel = append(sel, p.ID())
	}
	for _, p := range matrix.Balancings {
		bal = append(bal, p.ID())
	}
	for _, k := range matrix.Classifiers {
		cls = append(cls, k.ID())
	}

	return core.ComputeConfigHash(map[string]string{
		"project":           c.Project,
		"releases":          strconv.Itoa(c.Releases),
		"separator":         c.Separator,
		"attributes":        strings.Join(c.Attributes, "|"),
		"positive_label":    c.PositiveLabel,
		"negative_label":    c.NegativeLabel,
		"feature_selection": strings.Join(sel, ","),
		"balancing":         strings.Join(bal, ","),
		"classifiers":       strings.Join(cls, ","),
		"seed":              strconv.FormatInt(c.Seed, 10),
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
