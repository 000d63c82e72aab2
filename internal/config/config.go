package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	// Server configuration
	Server ServerConfig `toml:"server"`

	// Salesforce connection configuration
	Salesforce SalesforceConfig `toml:"salesforce"`

	// Collector configurations
	Collectors CollectorConfig `toml:"collectors"`

	// Schedule overrides
	Schedules ScheduleConfig `toml:"schedules"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Listen address (default: ":9001")
	ListenAddress string `toml:"listen_address"`

	// Metrics endpoint path (default: "/metrics")
	MetricsPath string `toml:"metrics_path"`
}

// SalesforceConfig contains org connection settings.
type SalesforceConfig struct {
	// SFDX auth URL. Usually supplied via SALESFORCE_AUTH_URL instead of the file.
	AuthURL string `toml:"auth_url"`

	// Timeout in seconds for SOQL and Tooling API queries (default: 30)
	QueryTimeoutSeconds int `toml:"query_timeout_seconds"`

	// Timeout in seconds for log-file downloads and Trust API calls (default: 300)
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// CollectorConfig defines per-collector thresholds and filters.
type CollectorConfig struct {
	// Compliance collector configuration
	Compliance ComplianceConfig `toml:"compliance"`

	// Login collector configuration
	Logins LoginConfig `toml:"logins"`

	// Tech-debt collector configuration
	TechDebt TechDebtConfig `toml:"tech_debt"`
}

// ComplianceConfig contains settings for audit-trail and large-query monitoring.
type ComplianceConfig struct {
	// Rows-processed threshold above which a query counts as "large" (default: 10000)
	LargeQueryRowThreshold int `toml:"large_query_row_threshold"`

	// User names whose audit-trail actions are trusted and never flagged.
	ExcludeUsers []string `toml:"exclude_users"`

	// Profile names that must never be assigned to active production users.
	ForbiddenProfiles []string `toml:"forbidden_profiles"`
}

// LoginConfig contains settings for login and integration-user monitoring.
type LoginConfig struct {
	// Integration user names monitored for password expiration.
	IntegrationUserNames []string `toml:"integration_user_names"`

	// Password policy in days (default: 90)
	PasswordExpiryDays int `toml:"password_expiry_days"`

	// Chunk size for resolving user names during geolocation analysis (default: 100)
	GeolocationChunkSize int `toml:"geolocation_chunk_size"`
}

// TechDebtConfig contains settings for technical-debt inventories.
type TechDebtConfig struct {
	// Days of inactivity after which a user counts as dormant (default: 90)
	DormancyDays int `toml:"dormancy_days"`

	// Apex classes/triggers at or below this API version are flagged as deprecated (default: 50)
	APIVersionFloor float64 `toml:"api_version_floor"`
}

// ScheduleConfig controls per-job trigger overrides.
type ScheduleConfig struct {
	// Optional path to a JSON override file with a "schedules" map of
	// job-id -> schedule expression, plus optional integration_user_names
	// and exclude_users arrays.
	OverridesFile string `toml:"overrides_file"`
}

// ScheduleOverrides is the decoded form of the JSON override file.
type ScheduleOverrides struct {
	Schedules            map[string]string `json:"schedules"`
	IntegrationUserNames []string          `json:"integration_user_names"`
	ExcludeUsers         []string          `json:"exclude_users"`
}

// LoggingConfig contains the complete logging configuration
type LoggingConfig struct {
	// Default logging settings applied to all loggers
	Defaults LogDefaults `toml:"defaults"`

	// Output configurations - can have multiple outputs
	Outputs []LogOutput `toml:"outputs"`
}

// LogDefaults contains default logger settings
type LogDefaults struct {
	// Log level (default: "info")
	Level string `toml:"level"`

	// Include caller information (default: 0)
	Caller int `toml:"caller"`

	// Time field name (default: "time")
	TimeField string `toml:"time_field"`

	// Time format (default: "" = RFC3339 with milliseconds)
	TimeFormat string `toml:"time_format"`

	// Time zone (default: "Local")
	TimeLocation string `toml:"time_location"`
}

// LogOutput represents a single output configuration
type LogOutput struct {
	// Output type: "console", "file", "syslog"
	Type string `toml:"type"`

	// Enable this output (default: true)
	Enabled bool `toml:"enabled"`

	// Configuration specific to the output type
	Console *ConsoleConfig `toml:"console,omitempty"`
	File    *FileConfig    `toml:"file,omitempty"`
	Syslog  *SyslogConfig  `toml:"syslog,omitempty"`
}

// ConsoleConfig contains console/terminal output settings
type ConsoleConfig struct {
	// Use fast JSON output (default: false)
	FastIO bool `toml:"fast_io"`

	// Output format when fast_io=false (default: "auto")
	Format string `toml:"format"`

	// Enable colored output (default: true)
	ColorOutput bool `toml:"color_output"`

	// Quote string values (default: true)
	QuoteString bool `toml:"quote_string"`

	// Output destination (default: "stderr")
	Writer string `toml:"writer"`

	// Use asynchronous writing (default: false)
	Async bool `toml:"async"`
}

// FileConfig contains file output settings
type FileConfig struct {
	// Log file path (required)
	Filename string `toml:"filename"`

	// Maximum file size in megabytes (default: 10)
	MaxSize int64 `toml:"max_size"`

	// Maximum number of old log files to keep (default: 7)
	MaxBackups int `toml:"max_backups"`

	// Time format for rotated filenames (default: "2006-01-02T15-04-05")
	TimeFormat string `toml:"time_format"`

	// Use local time for rotation timestamps (default: true)
	LocalTime bool `toml:"local_time"`

	// Include hostname in filename (default: true)
	HostName bool `toml:"host_name"`

	// Include process ID in filename (default: true)
	ProcessID bool `toml:"process_id"`

	// Create directory if it doesn't exist (default: true)
	EnsureFolder bool `toml:"ensure_folder"`

	// Use asynchronous writing (default: true)
	Async bool `toml:"async"`
}

// SyslogConfig contains syslog output settings
type SyslogConfig struct {
	// Network protocol (default: "udp")
	Network string `toml:"network"`

	// Syslog server address (default: "localhost:514")
	Address string `toml:"address"`

	// Hostname for syslog messages (default: system hostname)
	Hostname string `toml:"hostname"`

	// Syslog tag/program name (default: "sfmon_exporter")
	Tag string `toml:"tag"`

	// Message prefix marker (default: "@cee:")
	Marker string `toml:"marker"`

	// Use asynchronous writing (default: true)
	Async bool `toml:"async"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			ListenAddress: ":9001",
			MetricsPath:   "/metrics",
		},
		Salesforce: SalesforceConfig{
			QueryTimeoutSeconds:   30,
			RequestTimeoutSeconds: 300,
		},
		Collectors: CollectorConfig{
			Compliance: ComplianceConfig{
				LargeQueryRowThreshold: 10000,
				ExcludeUsers:           []string{},
				ForbiddenProfiles:      []string{},
			},
			Logins: LoginConfig{
				IntegrationUserNames: []string{},
				PasswordExpiryDays:   90,
				GeolocationChunkSize: 100,
			},
			TechDebt: TechDebtConfig{
				DormancyDays:    90,
				APIVersionFloor: 50.0,
			},
		},
		Logging: LoggingConfig{
			Defaults: LogDefaults{
				Level:        "info",
				Caller:       0,
				TimeField:    "time",
				TimeFormat:   "",
				TimeLocation: "Local",
			},
			Outputs: []LogOutput{
				{
					Type:    "console",
					Enabled: true,
					Console: &ConsoleConfig{
						FastIO:      false,
						Format:      "auto",
						ColorOutput: true,
						QuoteString: true,
						Writer:      "stderr",
						Async:       false,
					},
				},
				{
					Type:    "file",
					Enabled: false,
					File: &FileConfig{
						Filename:     "logs/app.log",
						MaxSize:      10, // 10MB
						MaxBackups:   7,
						TimeFormat:   "2006-01-02T15-04-05",
						LocalTime:    true,
						HostName:     true,
						ProcessID:    true,
						EnsureFolder: true,
						Async:        true,
					},
				},
				{
					Type:    "syslog",
					Enabled: false,
					Syslog: &SyslogConfig{
						Network:  "udp",
						Address:  "localhost:514",
						Tag:      "sfmon_exporter",
						Hostname: "", // Uses system hostname by default
						Marker:   "@cee:",
						Async:    true,
					},
				},
			},
		},
	}
}

// LoadConfig loads configuration from a TOML file, falling back to defaults
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	// If no config file specified, use defaults
	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("config file not found: %s", configPath)
	}

	// Parse TOML file
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return config, nil
}

// ApplyEnv overlays environment variables on top of the file configuration.
// Environment always wins: these are the operational knobs the service is
// deployed with.
func (c *AppConfig) ApplyEnv() error {
	if v := os.Getenv("SALESFORCE_AUTH_URL"); v != "" {
		c.Salesforce.AuthURL = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_PORT %q: %w", v, err)
		}
		c.Server.ListenAddress = fmt.Sprintf(":%d", port)
	}
	if v := os.Getenv("QUERY_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid QUERY_TIMEOUT_SECONDS %q: %w", v, err)
		}
		c.Salesforce.QueryTimeoutSeconds = secs
	}
	if v := os.Getenv("INTEGRATION_USER_NAMES"); v != "" {
		c.Collectors.Logins.IntegrationUserNames = splitList(v)
	}
	if v := os.Getenv("EXCLUDE_USERS"); v != "" {
		c.Collectors.Compliance.ExcludeUsers = splitList(v)
	}
	if v := os.Getenv("FORBIDDEN_PROD_PROFILES"); v != "" {
		c.Collectors.Compliance.ForbiddenProfiles = splitList(v)
	}
	if v := os.Getenv("SFMON_SCHEDULE_FILE"); v != "" {
		c.Schedules.OverridesFile = v
	}
	return nil
}

// LoadScheduleOverrides reads the optional JSON override file. A missing
// path returns empty overrides, not an error.
func (c *AppConfig) LoadScheduleOverrides() (*ScheduleOverrides, error) {
	overrides := &ScheduleOverrides{Schedules: map[string]string{}}
	if c.Schedules.OverridesFile == "" {
		return overrides, nil
	}

	data, err := os.ReadFile(c.Schedules.OverridesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule override file %s: %w", c.Schedules.OverridesFile, err)
	}
	if err := json.Unmarshal(data, overrides); err != nil {
		return nil, fmt.Errorf("failed to parse schedule override file %s: %w", c.Schedules.OverridesFile, err)
	}
	if overrides.Schedules == nil {
		overrides.Schedules = map[string]string{}
	}

	// The override file may also carry collector filters.
	if len(overrides.IntegrationUserNames) > 0 {
		c.Collectors.Logins.IntegrationUserNames = overrides.IntegrationUserNames
	}
	if len(overrides.ExcludeUsers) > 0 {
		c.Collectors.Compliance.ExcludeUsers = overrides.ExcludeUsers
	}
	return overrides, nil
}

// Validate checks the configuration for errors
func (c *AppConfig) Validate() error {
	if c.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}
	if c.Server.MetricsPath == "" {
		return fmt.Errorf("server.metrics_path cannot be empty")
	}
	if c.Salesforce.AuthURL == "" {
		return fmt.Errorf("salesforce auth URL is required: set SALESFORCE_AUTH_URL or salesforce.auth_url")
	}
	if c.Salesforce.QueryTimeoutSeconds <= 0 {
		return fmt.Errorf("salesforce.query_timeout_seconds must be positive")
	}
	if c.Collectors.Compliance.LargeQueryRowThreshold <= 0 {
		return fmt.Errorf("collectors.compliance.large_query_row_threshold must be positive")
	}
	if c.Collectors.TechDebt.DormancyDays <= 0 {
		return fmt.Errorf("collectors.tech_debt.dormancy_days must be positive")
	}

	// Validate that at least one output is enabled
	hasEnabledOutput := false
	for _, output := range c.Logging.Outputs {
		if output.Enabled {
			hasEnabledOutput = true
			break
		}
	}
	if !hasEnabledOutput {
		return fmt.Errorf("at least one logging output must be enabled")
	}

	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
