package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ApplyEnvOverrides overwrites cfg fields with any non-empty environment
// variables. Values that fail to parse are ignored with a warning.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString(&cfg.ListenAddr, "LISTEN_ADDR")

	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	setDuration(&cfg.LLMTimeout, "LLM_TIMEOUT")
	setFloat(&cfg.LLMRPS, "LLM_RPS")
	setBool(&cfg.LLMAttachImage, "LLM_ATTACH_IMAGE")
	setInt(&cfg.MaxContentChars, "MAX_CONTENT_CHARS")
	setInt(&cfg.MaxOutputTokens, "MAX_OUTPUT_TOKENS")

	setString(&cfg.MarkdownServiceURL, "MARKDOWN_SERVICE_URL")
	setString(&cfg.MarkdownServiceToken, "MARKDOWN_SERVICE_TOKEN")
	setDuration(&cfg.MarkdownTimeout, "MARKDOWN_TIMEOUT")

	setDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	setInt(&cfg.FetchAttempts, "FETCH_ATTEMPTS")
	setDuration(&cfg.FetchBackoffBase, "FETCH_BACKOFF_BASE")
	setDuration(&cfg.FetchBackoffMax, "FETCH_BACKOFF_MAX")
	setBool(&cfg.FetchRespectRobots, "FETCH_RESPECT_ROBOTS")

	setString(&cfg.JobStore, "JOB_STORE")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setInt(&cfg.RedisDB, "REDIS_DB")
	setDuration(&cfg.JobTTL, "JOB_TTL")

	setString(&cfg.CacheDir, "CACHE_DIR")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	setInt(&cfg.CacheMaxEntries, "CACHE_MAX_ENTRIES")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")

	if v := strings.TrimSpace(os.Getenv("CDN_REWRITES")); v != "" {
		cfg.CDNRewrites = parseRewrites(v)
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	setDuration(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT")

	setBool(&cfg.Verbose, "VERBOSE")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring invalid integer")
		return
	}
	*dst = n
}

func setFloat(dst *float64, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring invalid number")
		return
	}
	*dst = f
}

func setDuration(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring invalid duration")
		return
	}
	*dst = d
}

func setBool(dst *bool, key string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

// parseRewrites reads "from=to,from2=to2". Malformed pairs are skipped.
func parseRewrites(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range splitList(s) {
		from, to, ok := strings.Cut(pair, "=")
		from = strings.ToLower(strings.TrimSpace(from))
		to = strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			continue
		}
		out[from] = to
	}
	return out
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
