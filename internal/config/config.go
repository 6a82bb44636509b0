// Package config loads the exporter's environment-style configuration.
//
// All settings come from the process environment; a .env file in the working
// directory is loaded first when present (missing files are not an error).
// Validation failures here are configuration errors: fatal, reported before
// any remote call is made or any file is opened.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface of the export + remap pipeline.
type Config struct {
	// Salesforce credentials. Username, Password and SecurityToken are
	// required; Domain defaults to "login" ("test" for sandboxes).
	Username      string
	Password      string
	SecurityToken string
	Domain        string

	// Export outputs. The TSV name is always derived from the CSV name.
	OutputDir string
	JSONName  string
	CSVName   string

	// PricebookID optionally restricts the entry query to one price book.
	// When set it must be a valid 15/18-character Salesforce id: the value
	// is interpolated into SOQL text, so the format check here is what makes
	// that interpolation safe.
	PricebookID string

	// IncludeProductCustomFields toggles Product2 custom-field discovery.
	IncludeProductCustomFields bool

	// Optional relational mirror sink for the flat rows.
	SinkKind  string
	SinkDSN   string
	SinkTable string

	// Remap step.
	RemapOutputDir   string
	RemapFixedUserID string
}

// salesforce ids are 15 or 18 alphanumeric characters.
var sfIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{15}([a-zA-Z0-9]{3})?$`)

// Load reads configuration from the environment. It returns an error listing
// every missing required variable at once rather than failing one at a time.
func Load() (Config, error) {
	// Best-effort: a missing .env simply means "use the real environment".
	_ = godotenv.Load()

	cfg := Config{
		Username:      os.Getenv("SF_USERNAME"),
		Password:      os.Getenv("SF_PASSWORD"),
		SecurityToken: os.Getenv("SF_SECURITY_TOKEN"),
		Domain:        strings.ToLower(envDefault("SF_DOMAIN", "login")),

		OutputDir: envDefault("OUTPUT_DIR", filepath.Join("files", "pricebook")),
		JSONName:  envDefault("OUTPUT_JSON_NAME", "pricebooks_export.json"),
		CSVName:   envDefault("OUTPUT_CSV_NAME", "pricebooks_export.csv"),

		PricebookID:                strings.TrimSpace(os.Getenv("PRICEBOOK2_ID")),
		IncludeProductCustomFields: Truthy(envDefault("INCLUDE_PRODUCT2_FIELDS", "true")),

		SinkKind:  strings.ToLower(strings.TrimSpace(os.Getenv("SINK_KIND"))),
		SinkDSN:   os.Getenv("SINK_DSN"),
		SinkTable: envDefault("SINK_TABLE", "pricebook_entry_rows"),

		RemapOutputDir:   envDefault("REMAP_OUTPUT_DIR", filepath.Join("files", "salesforce")),
		RemapFixedUserID: envDefault("REMAP_FIXED_USER_ID", "005N1000006UI0rIAG"),
	}

	var missing []string
	for _, kv := range []struct{ key, val string }{
		{"SF_USERNAME", cfg.Username},
		{"SF_PASSWORD", cfg.Password},
		{"SF_SECURITY_TOKEN", cfg.SecurityToken},
	} {
		if kv.val == "" {
			missing = append(missing, kv.key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if cfg.PricebookID != "" && !sfIDPattern.MatchString(cfg.PricebookID) {
		return Config{}, fmt.Errorf("PRICEBOOK2_ID %q is not a valid salesforce id", cfg.PricebookID)
	}

	if cfg.SinkKind != "" {
		switch cfg.SinkKind {
		case "postgres", "sqlite", "mssql":
			if cfg.SinkDSN == "" {
				return Config{}, fmt.Errorf("SINK_KIND=%s requires SINK_DSN", cfg.SinkKind)
			}
		default:
			return Config{}, fmt.Errorf("unsupported SINK_KIND %q", cfg.SinkKind)
		}
	}

	return cfg, nil
}

// LoadRemap reads only the settings the remap step needs. It never requires
// credentials: remapping works from a finished document on disk.
func LoadRemap() RemapConfig {
	_ = godotenv.Load()

	return RemapConfig{
		InputJSON: filepath.Join(
			envDefault("OUTPUT_DIR", filepath.Join("files", "pricebook")),
			envDefault("OUTPUT_JSON_NAME", "pricebooks_export.json"),
		),
		OutputDir:   envDefault("REMAP_OUTPUT_DIR", filepath.Join("files", "salesforce")),
		FixedUserID: envDefault("REMAP_FIXED_USER_ID", "005N1000006UI0rIAG"),
	}
}

// RemapConfig is the standalone configuration of the remap step.
type RemapConfig struct {
	InputJSON   string
	OutputDir   string
	FixedUserID string
}

// Truthy reports whether an env value means "yes".
// Accepted: 1, true, yes, y (case-insensitive).
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
