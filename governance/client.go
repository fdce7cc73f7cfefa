package governance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"content_governance_client/generator"
)

const (
	generatePath = "/generate-and-govern"
	exportPath   = "/export/"

	maxErrorBody = 64 << 10
)

// Document formats rendered server-side.
const (
	DocumentPDF  = "pdf"
	DocumentWord = "word"
)

// Client talks to the governance service. It implements generator.Service
// for generation and renders PDF/Word documents for the export layer.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	verbose bool
	logger  *log.Logger
}

// New creates a Client. A nil http.Client gets one with cfg's timeout.
func New(cfg Config, client *http.Client, verbose bool, logger *log.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	if logger == nil {
		logger = log.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		limiter: limiter,
		verbose: verbose,
		logger:  logger,
	}, nil
}

func (c *Client) infof(format string, args ...interface{}) {
	if !c.verbose {
		return
	}
	c.logger.Printf("[INFO] "+format, args...)
}

// Generate posts req to /generate-and-govern and unwraps the `data` payload.
func (c *Client) Generate(ctx context.Context, req generator.GenerationRequest) (*generator.GeneratedResult, error) {
	const op = "generate"
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &generator.TransportError{Op: op, Err: err}
	}

	resp, err := c.post(ctx, op, generatePath, body)
	if err != nil {
		return nil, err
	}

	data := gjson.GetBytes(resp, "data")
	if !data.Exists() {
		return nil, &generator.TransportError{Op: op, Err: fmt.Errorf("%w: response has no data field", generator.ErrMalformedResponse)}
	}
	res, err := generator.ParseResult([]byte(data.Raw))
	if err != nil {
		return nil, &generator.TransportError{Op: op, Err: err}
	}
	c.infof("Generated content topic=%q decision_present=%t", req.Topic, res.FinalDecision != nil)
	return res, nil
}

// RenderDocument posts the full result to /export/{format} and returns the
// rendered bytes untouched.
func (c *Client) RenderDocument(ctx context.Context, format string, result *generator.GeneratedResult) ([]byte, error) {
	op := "export " + format
	if format != DocumentPDF && format != DocumentWord {
		return nil, fmt.Errorf("%s: unsupported document format", op)
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, &generator.TransportError{Op: op, Err: err}
	}
	return c.post(ctx, op, exportPath+format, body)
}

func (c *Client) post(ctx context.Context, op, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &generator.TransportError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &generator.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if id := generator.SubmissionID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &generator.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &generator.TransportError{Op: op, StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &generator.TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	c.infof("POST %s -> %d (%s)", path, resp.StatusCode, humanize.Bytes(uint64(len(data))))
	return data, nil
}

// errorDetail extracts the service's message from an error body. FastAPI
// sends either {"detail": "..."} or a validation list
// {"detail": [{"msg": "..."}, ...]}.
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String:
		return strings.TrimSpace(detail.Str)
	case detail.IsArray():
		var msgs []string
		for _, m := range detail.Get("#.msg").Array() {
			if s := strings.TrimSpace(m.String()); s != "" {
				msgs = append(msgs, s)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
