package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/extraction"
)

// ExtractDocument implements extraction.DocumentExtractor using chat/completions with the
// document attached. The answer is validated against a schema built from columns.
func (c *Client) ExtractDocument(ctx context.Context, doc entity.Document, columns []string) (map[string]string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"document_id", doc.ID,
		"format", string(doc.Format),
		"bytes", doc.Size,
		"columns", len(columns),
	)

	schema := BuildFieldsJSONSchema(columns)
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": BuildSystemPrompt(columns)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
			{"role": "user", "content": BuildUserContent(doc, c.cfg.MaxTextRunes)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, rid, endpoint, body)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, errors.New("no choices in openai response")
	}
	content := []byte(jsonObject(cc.Choices[0].Message.Content))

	// Validate strictly first.
	if err := extraction.ValidateJSONAgainstSchema(schema, content); err != nil {
		if !c.cfg.LenientOptional {
			c.logger.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, fmt.Errorf("schema validation failed: %w", err)
		}
		cleaned, dropped, sErr := sanitize(content)
		if sErr != nil {
			c.logger.Error("llm.extract.sanitize_failed", "req_id", rid, "error", sErr)
			return nil, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := extraction.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.logger.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.logger.Warn("llm.extract.lenient_sanitize_applied",
			"req_id", rid, "dropped", dropped,
		)
		content = cleaned
	}

	fields, _, err := extraction.DecodeFields(content)
	if err != nil {
		return nil, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"document_id", doc.ID,
		"fields", len(fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, nil
}

// post sends body, retrying 429 and 5xx answers with exponential backoff.
func (c *Client) post(ctx context.Context, rid, url string, body map[string]any) ([]byte, error) {
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	delay := c.cfg.RetryDelay
	for attempt := 0; ; attempt++ {
		raw, status, err := extraction.SendJSON(ctx, c.http, url, body, headers, c.logger)
		if err == nil {
			return raw, nil
		}
		if !retryable(status) || attempt >= c.cfg.MaxRetries {
			return nil, fmt.Errorf("openai: %w", err)
		}
		c.logger.Warn("llm.extract.retry", "req_id", rid, "status", status, "attempt", attempt+1, "delay_ms", delay.Milliseconds())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// sanitize turns every value into a non-empty string. Keys outside the requested
// columns are kept for the mapper.
func sanitize(content []byte) ([]byte, []string, error) {
	fields, dropped, err := extraction.DecodeFields(content)
	if err != nil {
		return nil, nil, err
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, dropped, err
	}
	return out, dropped, nil
}

// jsonObject trims code fences or prose around the first JSON object in s.
func jsonObject(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
