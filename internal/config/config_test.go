package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SF_USERNAME", "user@example.com")
	t.Setenv("SF_PASSWORD", "secret")
	t.Setenv("SF_SECURITY_TOKEN", "token")
}

func clearOptional(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SF_DOMAIN", "OUTPUT_DIR", "OUTPUT_JSON_NAME", "OUTPUT_CSV_NAME",
		"PRICEBOOK2_ID", "INCLUDE_PRODUCT2_FIELDS",
		"SINK_KIND", "SINK_DSN", "SINK_TABLE",
		"REMAP_OUTPUT_DIR", "REMAP_FIXED_USER_ID",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	clearOptional(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Domain != "login" {
		t.Fatalf("Domain: %q", cfg.Domain)
	}
	if cfg.JSONName != "pricebooks_export.json" || cfg.CSVName != "pricebooks_export.csv" {
		t.Fatalf("output names: %q %q", cfg.JSONName, cfg.CSVName)
	}
	if !cfg.IncludeProductCustomFields {
		t.Fatal("product custom fields should default on")
	}
	if cfg.SinkKind != "" {
		t.Fatalf("SinkKind: %q", cfg.SinkKind)
	}
	if cfg.RemapFixedUserID == "" {
		t.Fatal("remap fixed user id default missing")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	clearOptional(t)
	t.Setenv("SF_USERNAME", "")
	t.Setenv("SF_PASSWORD", "")
	t.Setenv("SF_SECURITY_TOKEN", "tok")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	// Both missing variables are reported at once.
	if !strings.Contains(err.Error(), "SF_USERNAME") || !strings.Contains(err.Error(), "SF_PASSWORD") {
		t.Fatalf("err = %v", err)
	}
	if strings.Contains(err.Error(), "SF_SECURITY_TOKEN") {
		t.Fatalf("present variable reported missing: %v", err)
	}
}

func TestLoadPricebookIDValidation(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"01s000000000001", true},
		{"01s000000000001AAA", true},
		{"", true},
		{"01s00000000000", false},       // 14 chars
		{"01s000000000001AA", false},    // 17 chars
		{"01s000000000001'; --", false}, // injection shape
		{"01s0000000 0001AAA", false},   // embedded space
		{"01s000000000001AAAX", false},  // 19 chars
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			setRequired(t)
			clearOptional(t)
			t.Setenv("PRICEBOOK2_ID", tt.id)

			_, err := Load()
			if tt.ok && err != nil {
				t.Fatalf("id %q rejected: %v", tt.id, err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("id %q accepted", tt.id)
			}
		})
	}
}

func TestLoadSinkValidation(t *testing.T) {
	setRequired(t)
	clearOptional(t)

	t.Setenv("SINK_KIND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("postgres without DSN should fail")
	}

	t.Setenv("SINK_DSN", "postgres://localhost/export")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SinkTable != "pricebook_entry_rows" {
		t.Fatalf("SinkTable default: %q", cfg.SinkTable)
	}

	t.Setenv("SINK_KIND", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("unknown sink kind should fail")
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"1", "true", "TRUE", "yes", "Y", " y "} {
		if !Truthy(s) {
			t.Fatalf("Truthy(%q) = false", s)
		}
	}
	for _, s := range []string{"", "0", "false", "no", "on"} {
		if Truthy(s) {
			t.Fatalf("Truthy(%q) = true", s)
		}
	}
}
