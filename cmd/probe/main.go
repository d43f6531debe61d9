package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	auth "farmerconnect/internal/authService"
	"farmerconnect/internal/config"
	"farmerconnect/internal/models"
	"farmerconnect/utils"
)

// Report is what the probe writes for one exchange
type Report struct {
	Request map[string]string   `json:"request"`
	Status  int                 `json:"status"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    json.RawMessage     `json:"body,omitempty"`
	Text    string              `json:"text,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// probe sends one request to a running API (or to the Gemini endpoint) and
// records the raw exchange as JSON, for checking wire formats by hand
func main() {
	target := flag.String("url", "http://localhost:8080/healthz", "request URL")
	method := flag.String("method", http.MethodGet, "HTTP method")
	body := flag.String("body", "", "request body (JSON)")
	user := flag.String("user", "", "sign a bearer token for this user id")
	role := flag.String("role", models.RoleBuyer, "role claim of the signed token")
	secret := flag.String("secret", "", "JWT secret (defaults to JWT_SECRET)")
	out := flag.String("out", "", "write the report to this file instead of stdout")
	gemini := flag.String("gemini", "", "send this prompt to the configured Gemini model instead")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var report Report
	if *gemini != "" {
		report = probeGemini(ctx, cfg, *gemini)
	} else {
		if *secret == "" {
			*secret = cfg.JWTSecret
		}
		report = probeAPI(ctx, strings.ToUpper(*method), *target, *body, *user, *role, *secret)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		utils.Fatal("probe: encode report", map[string]any{"error": err.Error()})
	}
	data = append(data, '\n')
	if *out == "" {
		_, _ = os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		utils.Fatal("probe: write report", map[string]any{"error": err.Error(), "path": *out})
	}
}

func probeAPI(ctx context.Context, method, target, body, user, role, secret string) Report {
	report := Report{Request: map[string]string{"method": method, "url": target}}

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
		report.Request["body"] = body
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		token, _, err := auth.NewTokenManager(secret, time.Hour).IssueFor(user, role, user)
		if err != nil {
			report.Error = err.Error()
			return report
		}
		req.Header.Set("Authorization", "Bearer "+token)
		report.Request["user"] = user
		report.Request["role"] = role
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		report.Error = err.Error()
	}
	report.Status = resp.StatusCode
	report.Headers = resp.Header
	setBody(&report, raw)
	return report
}

// geminiPart and geminiContent mirror the generateContent wire format
type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// probeGemini posts prompt straight to generateContent, bypassing the SDK,
// so the untouched upstream reply can be inspected
func probeGemini(ctx context.Context, cfg config.Config, prompt string) Report {
	report := Report{Request: map[string]string{"model": cfg.GeminiModel, "prompt": prompt}}
	if cfg.GeminiAPIKey == "" {
		report.Error = "GEMINI_API_KEY is not set"
		return report
	}

	payload, err := json.Marshal(map[string]any{
		"contents": []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		report.Error = err.Error()
		return report
	}
	endpoint := fmt.Sprintf("%s%s/models/%s:generateContent", cfg.GeminiBaseURL, cfg.GeminiVersion, url.PathEscape(cfg.GeminiModel))
	report.Request["url"] = endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		report.Error = err.Error()
		return report
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cfg.GeminiAPIKey)

	resp, err := (&http.Client{Timeout: cfg.AITimeout}).Do(req)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		report.Error = err.Error()
	}
	report.Status = resp.StatusCode
	setBody(&report, raw)
	return report
}

func setBody(report *Report, raw []byte) {
	if len(raw) == 0 {
		return
	}
	if json.Valid(raw) {
		report.Body = raw
		return
	}
	report.Text = string(raw)
}
