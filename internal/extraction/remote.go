package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/joseph-ayodele/docrows/internal/common"
)

// RemoteClient calls an HTTP extraction service with one multipart request per batch.
// The form carries a "files" part per document, a "columns" JSON array and a
// "document_ids" JSON array aligned with the files. The answer is a JSON object keyed by
// document ID (or, for older services, by file name).
type RemoteClient struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// RemoteOption configures a RemoteClient.
type RemoteOption func(*RemoteClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteClient) {
		if c != nil {
			r.http = c
		}
	}
}

// WithRemoteLogger sets the client's logger.
func WithRemoteLogger(l *slog.Logger) RemoteOption {
	return func(r *RemoteClient) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRemoteClient(url string, opts ...RemoteOption) *RemoteClient {
	r := &RemoteClient{
		url: url,
		// Deadlines come from the caller's context.
		http:   &http.Client{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *RemoteClient) Extract(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	if len(req.Documents) == 0 {
		return Response{}, nil
	}

	body, contentType, err := r.encode(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if sid := common.SessionIDFromContext(ctx); sid != "" {
		httpReq.Header.Set("X-Session-ID", sid)
	}

	raw, _, err := Send(r.http, httpReq, r.logger)
	if err != nil {
		return nil, err
	}
	if err := ValidateJSONAgainstSchema(ResponseJSONSchema(), raw); err != nil {
		r.logger.Error("extraction.remote.schema_validation_failed", "error", err, "bytes", len(raw))
		return nil, fmt.Errorf("invalid extraction response: %w", err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}

	out := make(Response, len(req.Documents))
	byName := make(map[string]string, len(req.Documents))
	known := make(map[string]bool, len(req.Documents))
	for _, d := range req.Documents {
		known[d.ID] = true
		if _, dup := byName[d.Name]; !dup {
			byName[d.Name] = d.ID
		}
	}
	var unknown []string
	for key, fields := range decoded {
		id := key
		if !known[id] {
			var ok bool
			if id, ok = byName[key]; !ok {
				unknown = append(unknown, key)
				continue
			}
		}
		values, dropped := NormalizeFields(fields)
		if len(dropped) > 0 {
			r.logger.Debug("extraction.remote.normalize", "document_id", id, "dropped", dropped)
		}
		out[id] = values
	}
	if len(unknown) > 0 {
		r.logger.Warn("extraction.remote.unknown_documents", "keys", unknown)
	}

	r.logger.Info("extraction.remote.ok",
		"documents", len(req.Documents),
		"results", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (r *RemoteClient) encode(req Request) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	ids := make([]string, len(req.Documents))
	for i, d := range req.Documents {
		ids[i] = d.ID
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(d.Name)))
		ct := d.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(d.Content); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}

	columns := req.Columns
	if columns == nil {
		columns = []string{}
	}
	fields := []struct {
		name  string
		value []string
	}{{"columns", columns}, {"document_ids", ids}}
	for _, f := range fields {
		b, err := json.Marshal(f.value)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := w.WriteField(f.name, string(b)); err != nil {
			return nil, "", fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
