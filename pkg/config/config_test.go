package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sampleConfig struct {
	Name    string `envconfig:"NAME" required:"true"`
	Port    int    `envconfig:"PORT" default:"8080"`
	Feature string `envconfig:"FEATURE" split_words:"true"`
}

type validatedConfig struct {
	Mode string `envconfig:"MODE" default:"bad"`
}

var errBadMode = errors.New("bad mode")

func (c *validatedConfig) Validate() error {
	if c.Mode == "bad" {
		return errBadMode
	}
	return nil
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestNewReadsEnvFile(t *testing.T) {
	path := writeEnvFile(t, "CFGTEST_NAME=laia\nCFGTEST_FEATURE=on\n")
	t.Setenv("CFGTEST_NAME", "")
	os.Unsetenv("CFGTEST_NAME")
	t.Setenv("CFGTEST_FEATURE", "env-wins")

	SetEnvFile(path)
	t.Cleanup(func() { SetEnvFile("") })

	conf, err := New[sampleConfig]("CFGTEST")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Name != "laia" {
		t.Fatalf("Name = %q, want laia", conf.Name)
	}
	if conf.Port != 8080 {
		t.Fatalf("Port = %d, want 8080", conf.Port)
	}
	if conf.Feature != "env-wins" {
		t.Fatalf("Feature = %q, want env-wins", conf.Feature)
	}
}

func TestNewMissingRequired(t *testing.T) {
	SetEnvFile(writeEnvFile(t, "OTHER=1\n"))
	t.Cleanup(func() { SetEnvFile("") })

	if _, err := New[sampleConfig]("CFGMISSING"); err == nil {
		t.Fatal("expected error for missing required variable")
	}
}

func TestNewRunsValidator(t *testing.T) {
	SetEnvFile(writeEnvFile(t, "OTHER=1\n"))
	t.Cleanup(func() { SetEnvFile("") })

	if _, err := New[validatedConfig]("CFGVALID"); !errors.Is(err, errBadMode) {
		t.Fatalf("New() error = %v, want errBadMode", err)
	}

	t.Setenv("CFGVALID_MODE", "good")
	conf, err := New[validatedConfig]("CFGVALID")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Mode != "good" {
		t.Fatalf("Mode = %q, want good", conf.Mode)
	}
}

func TestNewMissingEnvFile(t *testing.T) {
	SetEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	t.Cleanup(func() { SetEnvFile("") })

	if _, err := New[validatedConfig]("CFGVALID"); err == nil {
		t.Fatal("expected error for explicit missing env file")
	}
}
