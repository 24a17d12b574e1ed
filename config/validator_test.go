package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Test structs for validating custom validators
type FileExistsTestStruct struct {
	Path string `validate:"file_exists"`
}

type EnvTestStruct struct {
	Environment string `validate:"env"`
}

func TestValidateFileExists(t *testing.T) {
	// Create a temp file
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"empty path (optional)", "", true},
		{"existing file", tmpFile, true},
		{"non-existent file", "/nonexistent/file.txt", false},
		{"directory instead of file", tmpDir, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FileExistsTestStruct{Path: tt.path}
			err := validate.Struct(s)
			if tt.expected && err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
			if !tt.expected && err == nil {
				t.Errorf("expected invalid for path %q, got valid", tt.path)
			}
		})
	}
}

func TestValidateEnvironment(t *testing.T) {
	tests := []struct {
		env      string
		expected bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"", false},
		{"prod", false},
		{"Production", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			err := validate.Struct(EnvTestStruct{Environment: tt.env})
			if tt.expected && err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
			if !tt.expected && err == nil {
				t.Errorf("expected invalid for %q, got valid", tt.env)
			}
		})
	}
}

func TestValidateWithDetails(t *testing.T) {
	t.Run("valid defaults", func(t *testing.T) {
		if err := ValidateWithDetails(DefaultConfig()); err != nil {
			t.Fatalf("expected defaults to validate, got %v", err)
		}
	})

	t.Run("collects field errors", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Bridge.ResponseTimeout = 0
		cfg.Bridge.Identity = "root"

		err := ValidateWithDetails(cfg)
		var details ValidationErrors
		if !errors.As(err, &details) {
			t.Fatalf("expected ValidationErrors, got %T", err)
		}
		if len(details) != 2 {
			t.Fatalf("expected 2 details, got %d: %v", len(details), details)
		}

		fields := map[string]string{}
		for _, d := range details {
			fields[d.Field] = d.Message
		}
		if msg := fields["Config.Bridge.ResponseTimeout"]; msg != "must be greater than 0" {
			t.Errorf("unexpected response timeout message %q", msg)
		}
		if msg := fields["Config.Bridge.Identity"]; msg != "must be one of [nop system]" {
			t.Errorf("unexpected identity message %q", msg)
		}
	})

	t.Run("redis adapter requires address", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Adapter.Type = "redis"
		cfg.Adapter.Redis.Address = ""

		err := ValidateWithDetails(cfg)
		var details ValidationErrors
		if !errors.As(err, &details) {
			t.Fatalf("expected ValidationErrors, got %T", err)
		}
		if details[0].Field != "Config.Adapter.Redis.Address" {
			t.Errorf("unexpected field %q", details[0].Field)
		}
	})
}

func TestValidationErrors_Error(t *testing.T) {
	if got := (ValidationErrors{}).Error(); got != "no validation errors" {
		t.Errorf("unexpected empty message %q", got)
	}

	errs := ValidationErrors{
		{Field: "Config.Server.Port", Message: "must be at least 1", Value: 0},
		{Field: "Config.Log.Level", Message: "must be one of [debug info warn error]", Value: "trace"},
	}
	msg := errs.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:") {
		t.Errorf("unexpected prefix: %q", msg)
	}
	if !strings.Contains(msg, "Config.Server.Port: must be at least 1 (got 0)") {
		t.Errorf("missing port detail: %q", msg)
	}
	if !strings.Contains(msg, "Config.Log.Level") {
		t.Errorf("missing log detail: %q", msg)
	}
}
