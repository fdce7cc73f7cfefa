package generator

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	fieldContent       = "content"
	fieldLegacyContent = "text_content"
)

// ISO-8601 timestamps, with or without a zone.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"}

// ParseResult normalizes the `data` object returned by the service into a
// GeneratedResult. The legacy `text_content` field is folded into `content`
// so the rest of the client only ever sees the canonical name; when both
// are present `content` wins.
func ParseResult(payload []byte) (*GeneratedResult, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: data is not valid JSON", ErrMalformedResponse)
	}
	if !gjson.ParseBytes(payload).IsObject() {
		return nil, fmt.Errorf("%w: data is not an object", ErrMalformedResponse)
	}

	raw := make([]byte, len(payload))
	copy(raw, payload)

	raw, err := canonicalizeContent(raw)
	if err != nil {
		return nil, err
	}

	res := &GeneratedResult{raw: raw}
	if body := gjson.GetBytes(raw, fieldContent); body.Type == gjson.String {
		res.Body = body.Str
	}
	if fd := gjson.GetBytes(raw, "final_decision"); fd.IsObject() {
		res.FinalDecision = parseFinalDecision(fd)
	}
	return res, nil
}

func canonicalizeContent(raw []byte) ([]byte, error) {
	legacy := gjson.GetBytes(raw, fieldLegacyContent)
	if !legacy.Exists() {
		return raw, nil
	}
	var err error
	if !gjson.GetBytes(raw, fieldContent).Exists() {
		raw, err = sjson.SetRawBytes(raw, fieldContent, []byte(legacy.Raw))
		if err != nil {
			return nil, fmt.Errorf("normalize %s: %w", fieldLegacyContent, err)
		}
	}
	raw, err = sjson.DeleteBytes(raw, fieldLegacyContent)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", fieldLegacyContent, err)
	}
	return raw, nil
}

// 逐字段降级：缺失的字段保持零值，不报错。
func parseFinalDecision(fd gjson.Result) *FinalDecision {
	out := &FinalDecision{}
	if v := firstOf(fd, gjson.String, "final_decision", "decision"); v.Exists() {
		out.Decision = v.Str
	}
	if v := firstOf(fd, gjson.Number, "final_score", "score"); v.Exists() {
		score := v.Num
		out.Score = &score
	}
	if summary := fd.Get("summary"); summary.IsArray() {
		out.Summary = []string{}
		for _, point := range summary.Array() {
			out.Summary = append(out.Summary, point.String())
		}
	}
	if ts := fd.Get("timestamp"); ts.Type == gjson.String {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, ts.Str); err == nil {
				out.Timestamp = t
				break
			}
		}
	}
	return out
}

func firstOf(obj gjson.Result, typ gjson.Type, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := obj.Get(k); v.Type == typ {
			return v
		}
	}
	return gjson.Result{}
}
