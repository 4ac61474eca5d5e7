package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Durations are Go
// duration strings such as "90s".
type FileConfig struct {
	Listen string `yaml:"listen" json:"listen"`

	LLM struct {
		BaseURL         string  `yaml:"base" json:"base"`
		Model           string  `yaml:"model" json:"model"`
		APIKey          string  `yaml:"key" json:"key"`
		Timeout         string  `yaml:"timeout" json:"timeout"`
		RPS             float64 `yaml:"rps" json:"rps"`
		AttachImage     *bool   `yaml:"attachImage" json:"attachImage"`
		MaxContentChars int     `yaml:"maxContentChars" json:"maxContentChars"`
		MaxOutputTokens int     `yaml:"maxOutputTokens" json:"maxOutputTokens"`
	} `yaml:"llm" json:"llm"`

	Markdown struct {
		URL     string `yaml:"url" json:"url"`
		Token   string `yaml:"token" json:"token"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"markdown" json:"markdown"`

	Fetch struct {
		Timeout       string `yaml:"timeout" json:"timeout"`
		Attempts      int    `yaml:"attempts" json:"attempts"`
		BackoffBase   string `yaml:"backoffBase" json:"backoffBase"`
		BackoffMax    string `yaml:"backoffMax" json:"backoffMax"`
		RespectRobots bool   `yaml:"respectRobots" json:"respectRobots"`
	} `yaml:"fetch" json:"fetch"`

	Jobs struct {
		Store string `yaml:"store" json:"store"`
		TTL   string `yaml:"ttl" json:"ttl"`
		Redis struct {
			Addr     string `yaml:"addr" json:"addr"`
			Password string `yaml:"password" json:"password"`
			DB       int    `yaml:"db" json:"db"`
		} `yaml:"redis" json:"redis"`
	} `yaml:"jobs" json:"jobs"`

	Cache struct {
		Dir         string `yaml:"dir" json:"dir"`
		MaxAge      string `yaml:"maxAge" json:"maxAge"`
		MaxEntries  int    `yaml:"maxEntries" json:"maxEntries"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Images struct {
		CDNRewrites map[string]string `yaml:"cdnRewrites" json:"cdnRewrites"`
	} `yaml:"images" json:"images"`

	HTTP struct {
		AllowedOrigins  []string `yaml:"allowedOrigins" json:"allowedOrigins"`
		RequestTimeout  string   `yaml:"requestTimeout" json:"requestTimeout"`
		ShutdownTimeout string   `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	} `yaml:"http" json:"http"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. Unset file values
// leave cfg untouched, so the caller applies it on top of Defaults.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	overlay := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	positive := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	var errs []error
	duration := func(dst *time.Duration, field, v string) {
		if v = strings.TrimSpace(v); v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", field, err))
			return
		}
		*dst = d
	}

	overlay(&cfg.ListenAddr, fc.Listen)

	overlay(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	overlay(&cfg.LLMModel, fc.LLM.Model)
	overlay(&cfg.LLMAPIKey, fc.LLM.APIKey)
	duration(&cfg.LLMTimeout, "llm.timeout", fc.LLM.Timeout)
	if fc.LLM.RPS > 0 {
		cfg.LLMRPS = fc.LLM.RPS
	}
	if fc.LLM.AttachImage != nil {
		cfg.LLMAttachImage = *fc.LLM.AttachImage
	}
	positive(&cfg.MaxContentChars, fc.LLM.MaxContentChars)
	positive(&cfg.MaxOutputTokens, fc.LLM.MaxOutputTokens)

	overlay(&cfg.MarkdownServiceURL, fc.Markdown.URL)
	overlay(&cfg.MarkdownServiceToken, fc.Markdown.Token)
	duration(&cfg.MarkdownTimeout, "markdown.timeout", fc.Markdown.Timeout)

	duration(&cfg.FetchTimeout, "fetch.timeout", fc.Fetch.Timeout)
	positive(&cfg.FetchAttempts, fc.Fetch.Attempts)
	duration(&cfg.FetchBackoffBase, "fetch.backoffBase", fc.Fetch.BackoffBase)
	duration(&cfg.FetchBackoffMax, "fetch.backoffMax", fc.Fetch.BackoffMax)
	if fc.Fetch.RespectRobots {
		cfg.FetchRespectRobots = true
	}

	overlay(&cfg.JobStore, fc.Jobs.Store)
	duration(&cfg.JobTTL, "jobs.ttl", fc.Jobs.TTL)
	overlay(&cfg.RedisAddr, fc.Jobs.Redis.Addr)
	overlay(&cfg.RedisPassword, fc.Jobs.Redis.Password)
	positive(&cfg.RedisDB, fc.Jobs.Redis.DB)

	overlay(&cfg.CacheDir, fc.Cache.Dir)
	duration(&cfg.CacheMaxAge, "cache.maxAge", fc.Cache.MaxAge)
	positive(&cfg.CacheMaxEntries, fc.Cache.MaxEntries)
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}

	if len(fc.Images.CDNRewrites) > 0 {
		cfg.CDNRewrites = make(map[string]string, len(fc.Images.CDNRewrites))
		for from, to := range fc.Images.CDNRewrites {
			cfg.CDNRewrites[strings.ToLower(strings.TrimSpace(from))] = strings.TrimSpace(to)
		}
	}

	if len(fc.HTTP.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = append([]string{}, fc.HTTP.AllowedOrigins...)
	}
	duration(&cfg.RequestTimeout, "http.requestTimeout", fc.HTTP.RequestTimeout)
	duration(&cfg.ShutdownTimeout, "http.shutdownTimeout", fc.HTTP.ShutdownTimeout)

	if fc.Verbose {
		cfg.Verbose = true
	}
	return errors.Join(errs...)
}

// ValidateConfig performs minimal validation. A missing API key is not an
// error here: the service starts and extraction calls report it.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return errors.New("config: listen address is required")
	}
	if strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required (or set LLM_MODEL)")
	}
	switch cfg.JobStore {
	case JobStoreMemory:
	case JobStoreRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: jobs.redis.addr is required for the redis job store")
		}
	default:
		return fmt.Errorf("config: unknown job store %q (want memory or redis)", cfg.JobStore)
	}
	if cfg.MaxContentChars < 0 || cfg.MaxOutputTokens < 0 || cfg.FetchAttempts < 0 || cfg.CacheMaxEntries < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.LLMRPS < 0 {
		return errors.New("config: llm.rps must not be negative")
	}
	if cfg.RedisDB < 0 {
		return errors.New("config: jobs.redis.db must not be negative")
	}
	return nil
}
