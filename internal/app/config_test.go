package app

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigFile_YAML(t *testing.T) {
	p := writeConfig(t, "goproduct.yaml", `
listen: ":9090"
llm:
  model: gpt-4o
  timeout: 2m
  attachImage: true
markdown:
  url: http://markdown.local/convert
jobs:
  store: redis
  ttl: 1h
  redis:
    addr: redis:6379
    db: 2
images:
  cdnRewrites:
    Staging.CDN.example: cdn.example
http:
  allowedOrigins: [https://shop.example]
`)
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := Defaults()
	if err := ApplyFileConfig(&cfg, fc); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.LLMModel != "gpt-4o" || cfg.LLMTimeout != 2*time.Minute || !cfg.LLMAttachImage {
		t.Fatalf("llm/listen not applied: %+v", cfg)
	}
	if cfg.MarkdownServiceURL != "http://markdown.local/convert" {
		t.Fatalf("markdown url: %q", cfg.MarkdownServiceURL)
	}
	if cfg.JobStore != JobStoreRedis || cfg.JobTTL != time.Hour || cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 2 {
		t.Fatalf("jobs not applied: %+v", cfg)
	}
	if cfg.CDNRewrites["staging.cdn.example"] != "cdn.example" {
		t.Fatalf("rewrites: %v", cfg.CDNRewrites)
	}
	if len(cfg.AllowedOrigins) != 1 {
		t.Fatalf("origins: %v", cfg.AllowedOrigins)
	}
	// Unset file values keep defaults.
	if cfg.FetchAttempts != Defaults().FetchAttempts || cfg.MarkdownTimeout != 60*time.Second {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	p := writeConfig(t, "goproduct.json", `{"llm":{"model":"gpt-4.1","rps":1.5},"fetch":{"attempts":4,"backoffBase":"250ms"}}`)
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := Defaults()
	if err := ApplyFileConfig(&cfg, fc); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.LLMModel != "gpt-4.1" || cfg.LLMRPS != 1.5 || cfg.FetchAttempts != 4 || cfg.FetchBackoffBase != 250*time.Millisecond {
		t.Fatalf("json not applied: %+v", cfg)
	}
}

func TestApplyFileConfig_BadDuration(t *testing.T) {
	var fc FileConfig
	fc.LLM.Timeout = "ninety"
	cfg := Defaults()
	err := ApplyFileConfig(&cfg, fc)
	if err == nil || !strings.Contains(err.Error(), "llm.timeout") {
		t.Fatalf("expected llm.timeout error, got %v", err)
	}
	if cfg.LLMTimeout != Defaults().LLMTimeout {
		t.Fatalf("timeout changed on error: %v", cfg.LLMTimeout)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(Defaults()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cases := map[string]func(*Config){
		"unknown store": func(c *Config) { c.JobStore = "etcd" },
		"redis no addr": func(c *Config) { c.JobStore = JobStoreRedis; c.RedisAddr = "" },
		"no model":      func(c *Config) { c.LLMModel = " " },
		"negative":      func(c *Config) { c.FetchAttempts = -1 },
		"negative rps":  func(c *Config) { c.LLMRPS = -1 },
	}
	for name, mutate := range cases {
		cfg := Defaults()
		mutate(&cfg)
		if err := ValidateConfig(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

// Flags beat env, env beats the file, the file beats defaults.
func TestLoad_Precedence(t *testing.T) {
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("LLM_TIMEOUT", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("FETCH_ATTEMPTS", "7")
	p := writeConfig(t, "c.yaml", "listen: \":7070\"\nllm:\n  model: file-model\n  timeout: 10s\nfetch:\n  attempts: 2\n")

	cfg, err := Load([]string{"-config", p, "-env", "", "-fetch.attempts", "9", "-cdn-rewrites", "x.example=y.example"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Fatalf("file should beat defaults: %q", cfg.ListenAddr)
	}
	if cfg.LLMTimeout != 10*time.Second {
		t.Fatalf("file timeout: %v", cfg.LLMTimeout)
	}
	if cfg.LLMModel != "env-model" {
		t.Fatalf("env should beat file: %q", cfg.LLMModel)
	}
	if cfg.FetchAttempts != 9 {
		t.Fatalf("flag should beat env: %d", cfg.FetchAttempts)
	}
	if cfg.CDNRewrites["x.example"] != "y.example" {
		t.Fatalf("rewrites flag: %v", cfg.CDNRewrites)
	}
}

func TestLoad_HelpAndBadFlags(t *testing.T) {
	if _, err := Load([]string{"-h"}); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
	if _, err := Load([]string{"-no-such-flag"}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
	var b strings.Builder
	Usage(&b)
	if !strings.Contains(b.String(), "llm.model") {
		t.Fatalf("usage missing flags: %q", b.String())
	}
}
