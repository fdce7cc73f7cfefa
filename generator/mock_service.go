package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

// MockService 一个简单的占位实现，便于本地调试，不调用远端服务。
type MockService struct {
	// Now overrides the verdict timestamp; nil means time.Now.
	Now func() time.Time
}

func (m MockService) Generate(ctx context.Context, req GenerationRequest) (*GeneratedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "generate", Err: err}
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}

	// 很简单地把请求参数拼接成正文。
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", req.Topic)
	fmt.Fprintf(&sb, "A %s, %s piece written for %s readers.\n",
		req.StyleGuide.Length, req.StyleGuide.Tone, strings.ReplaceAll(string(req.TargetAudience), "_", " "))

	payload := []byte(`{}`)
	var err error
	for _, kv := range []struct {
		path  string
		value interface{}
	}{
		{"content", sb.String()},
		{"generated_content.metadata.topic", req.Topic},
		{"generated_content.metadata.content_type", req.Kind},
		{"generated_content.metadata.target_audience", req.TargetAudience},
		{"final_decision.final_decision", DecisionApproved},
		{"final_decision.final_score", 0.86},
		{"final_decision.summary", []string{"All checks passed."}},
		{"final_decision.agent_id", "mock"},
		{"final_decision.timestamp", now().UTC().Format(time.RFC3339)},
	} {
		payload, err = sjson.SetBytes(payload, kv.path, kv.value)
		if err != nil {
			return nil, fmt.Errorf("mock payload %s: %w", kv.path, err)
		}
	}
	return ParseResult(payload)
}
