package app

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Load resolves the configuration from args, the environment and an optional
// config file. Precedence is flags, then env, then file, then defaults.
// Dotenv files named by -env are loaded into the environment first.
func Load(args []string) (Config, error) {
	var configPath, envFiles string
	probe := Defaults()
	fs := newFlagSet(&probe, &configPath, &envFiles)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := LoadEnvFiles(splitList(envFiles)...); err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	if configPath != "" {
		fc, err := LoadConfigFile(configPath)
		if err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
		if err := ApplyFileConfig(&cfg, fc); err != nil {
			return Config{}, err
		}
	}
	ApplyEnvOverrides(&cfg)

	// Replaying the same args onto cfg overwrites only what was passed.
	final := newFlagSet(&cfg, new(string), new(string))
	if err := final.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, ValidateConfig(cfg)
}

// Usage prints the flag help to w.
func Usage(w io.Writer) {
	cfg := Defaults()
	fs := newFlagSet(&cfg, new(string), new(string))
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func newFlagSet(cfg *Config, configPath, envFiles *string) *flag.FlagSet {
	fs := flag.NewFlagSet("goproduct", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(configPath, "config", "", "Path to YAML or JSON config file")
	fs.StringVar(envFiles, "env", ".env", "Comma-separated dotenv files; later files win")

	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")

	fs.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL")
	fs.StringVar(&cfg.LLMModel, "llm.model", cfg.LLMModel, "Model name")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", cfg.LLMAPIKey, "API key")
	fs.DurationVar(&cfg.LLMTimeout, "llm.timeout", cfg.LLMTimeout, "Model call timeout")
	fs.Float64Var(&cfg.LLMRPS, "llm.rps", cfg.LLMRPS, "Max model requests per second (0 = unlimited)")
	fs.BoolVar(&cfg.LLMAttachImage, "llm.attach-image", cfg.LLMAttachImage, "Send the first product image to the model")
	fs.IntVar(&cfg.MaxContentChars, "max-content-chars", cfg.MaxContentChars, "Max page characters sent to the model")
	fs.IntVar(&cfg.MaxOutputTokens, "max-output-tokens", cfg.MaxOutputTokens, "Tokens reserved for the model answer")

	fs.StringVar(&cfg.MarkdownServiceURL, "markdown.url", cfg.MarkdownServiceURL, "Markdown extraction service URL")
	fs.StringVar(&cfg.MarkdownServiceToken, "markdown.token", cfg.MarkdownServiceToken, "Markdown extraction service token")
	fs.DurationVar(&cfg.MarkdownTimeout, "markdown.timeout", cfg.MarkdownTimeout, "Markdown service timeout")

	fs.DurationVar(&cfg.FetchTimeout, "fetch.timeout", cfg.FetchTimeout, "Direct fetch timeout per attempt")
	fs.IntVar(&cfg.FetchAttempts, "fetch.attempts", cfg.FetchAttempts, "Direct fetch attempts")
	fs.DurationVar(&cfg.FetchBackoffBase, "fetch.backoff-base", cfg.FetchBackoffBase, "First retry wait")
	fs.DurationVar(&cfg.FetchBackoffMax, "fetch.backoff-max", cfg.FetchBackoffMax, "Retry wait cap")
	fs.BoolVar(&cfg.FetchRespectRobots, "fetch.respect-robots", cfg.FetchRespectRobots, "Skip direct fetches disallowed by robots.txt")

	fs.StringVar(&cfg.JobStore, "jobs.store", cfg.JobStore, "Job store: memory or redis")
	fs.StringVar(&cfg.RedisAddr, "redis.addr", cfg.RedisAddr, "Redis address")
	fs.StringVar(&cfg.RedisPassword, "redis.password", cfg.RedisPassword, "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis.db", cfg.RedisDB, "Redis database")
	fs.DurationVar(&cfg.JobTTL, "jobs.ttl", cfg.JobTTL, "Redis job record TTL (0 = keep)")

	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "Model response cache directory (empty disables)")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.max-age", cfg.CacheMaxAge, "Purge cache entries older than this at startup")
	fs.IntVar(&cfg.CacheMaxEntries, "cache.max-entries", cfg.CacheMaxEntries, "Keep at most this many cache entries")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strict-perms", cfg.CacheStrictPerms, "Restrict cache permissions to 0700/0600")

	fs.Var((*rewritesValue)(&cfg.CDNRewrites), "cdn-rewrites", "Extra CDN host rewrites as from=to,...")
	fs.Var((*listValue)(&cfg.AllowedOrigins), "cors.origins", "Comma-separated allowed CORS origins")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Synchronous /extract timeout")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown bound")

	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	return fs
}

type rewritesValue map[string]string

func (v *rewritesValue) String() string {
	if v == nil || len(*v) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(*v))
	for from, to := range *v {
		pairs = append(pairs, from+"="+to)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (v *rewritesValue) Set(s string) error {
	*v = parseRewrites(s)
	return nil
}

type listValue []string

func (v *listValue) String() string {
	if v == nil {
		return ""
	}
	return strings.Join(*v, ",")
}

func (v *listValue) Set(s string) error {
	*v = splitList(s)
	return nil
}
