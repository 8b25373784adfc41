package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, envPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	for _, names := range extraEnv {
		for _, name := range names {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Recognize.Provider != "openai" || cfg.Recognize.Concurrency != 4 {
		t.Errorf("recognize = %+v", cfg.Recognize)
	}
	if cfg.Storage.Provider != "local" || cfg.MaxChars != 56 {
		t.Errorf("storage = %q, max chars = %d", cfg.Storage.Provider, cfg.MaxChars)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.yml")
	yaml := `server:
  addr: ":9000"
recognize:
  provider: gemini
  concurrency: 2
storage:
  provider: s3
  s3:
    bucket: from-file
max_chars: 40
`
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("GEMINI_API_KEY=dotenv-key\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("GEMINI_API_KEY") })

	t.Setenv("CAPTIONER_STORAGE_S3_BUCKET", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("concurrency", 0, "")
	if err := flags.Parse([]string{"--concurrency=8"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(
		WithConfigFile(configPath),
		WithEnvFile(envPath),
		WithFlag("recognize.concurrency", flags.Lookup("concurrency")),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr = %q, want value from file", cfg.Server.Addr)
	}
	if cfg.Recognize.GeminiAPIKey != "dotenv-key" {
		t.Errorf("gemini key = %q, want value from .env", cfg.Recognize.GeminiAPIKey)
	}
	if cfg.Storage.S3.Bucket != "from-env" {
		t.Errorf("bucket = %q, want value from environment", cfg.Storage.S3.Bucket)
	}
	if cfg.Recognize.Concurrency != 8 {
		t.Errorf("concurrency = %d, want flag value", cfg.Recognize.Concurrency)
	}
	if cfg.MaxChars != 40 {
		t.Errorf("max chars = %d", cfg.MaxChars)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if cfg.APIKey() != "dotenv-key" {
		t.Errorf("APIKey = %q", cfg.APIKey())
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "missing.yml"))); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Recognize: RecognizeConfig{Provider: "whisper.cpp", Concurrency: 0},
		Storage:   StorageConfig{Provider: "s3"},
		MaxChars:  -1,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown recognize provider", "concurrency", "max_chars", "bucket"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q: %v", want, err)
		}
	}
}

func TestValidateRequiresProviderKey(t *testing.T) {
	cfg := &Config{
		Recognize: RecognizeConfig{Provider: "openai", Concurrency: 1},
		Storage:   StorageConfig{Provider: "local", LocalDir: "out"},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}

	cfg.Recognize.OpenAIAPIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
