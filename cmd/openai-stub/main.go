package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goproduct/internal/imageurl"
	"github.com/hyperifyio/goproduct/internal/product"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

// text returns a message's text whether it was sent as a string or as
// multi-part content.
func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// answer builds a deterministic product from the page text: the first
// heading as title, the first currency amount as price and every image URL.
func answer(system, user string) map[string]any {
	pageURL, content, _ := strings.Cut(user, "\n\nPage content:\n")
	pageURL = strings.TrimPrefix(pageURL, "Product page URL: ")

	title := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			break
		}
		if title == "" && line != "" {
			title = line
		}
	}

	description := "<p>" + title + "</p>"
	if strings.Contains(system, "persuasive") {
		description = "<p>Meet " + title + ".</p><ul><li>Made to last</li></ul><p>Discover it today.</p>"
	}

	r := imageurl.New(nil)
	images := r.Dedupe(imageurl.ParseBase(strings.TrimSpace(pageURL)), imageurl.Scan(content))
	return map[string]any{
		"title":             title,
		"price":             product.FindPrice(content),
		"description":       description,
		"mainImages":        images,
		"descriptionImages": []string{},
	}
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	// STUB_BROKEN_JSON=1 wraps answers in prose so callers exercise recovery.
	broken := os.Getenv("STUB_BROKEN_JSON") == "1"

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) < 2 {
			http.Error(w, "expected system and user messages", http.StatusBadRequest)
			return
		}
		system := text(req.Messages[0].Content)
		user := text(req.Messages[len(req.Messages)-1].Content)
		b, _ := json.Marshal(answer(system, user))
		content := string(b)
		if broken {
			content = "Sure! Here is the product:\n```json\n" + content + "\n```"
		}
		log.Debug().Int("user_len", len(user)).Msg("chat completion")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": model,
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}
