package generator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const fullPayload = `{"content":"X","final_decision":{"final_decision":"Approved","final_score":0.82,"summary":["Clear structure.","Facts check out."],"agent_id":"consensus","timestamp":"2025-03-04T10:11:12.123456"},"review_results":[{"agent":"style","score":0.9}]}`

func TestParseResultFull(t *testing.T) {
	res, err := ParseResult([]byte(fullPayload))
	require.NoError(t, err)

	assert.Equal(t, "X", res.Body)
	require.NotNil(t, res.FinalDecision)
	assert.Equal(t, DecisionApproved, res.FinalDecision.Decision)
	require.NotNil(t, res.FinalDecision.Score)
	assert.InDelta(t, 0.82, *res.FinalDecision.Score, 1e-9)
	assert.Equal(t, []string{"Clear structure.", "Facts check out."}, res.FinalDecision.Summary)
	assert.True(t, time.Date(2025, 3, 4, 10, 11, 12, 123456000, time.UTC).Equal(res.FinalDecision.Timestamp))

	// unmodeled fields survive untouched
	assert.JSONEq(t, fullPayload, string(res.Raw()))
}

func TestParseResultLegacyContentField(t *testing.T) {
	res, err := ParseResult([]byte(`{"text_content":"legacy body","final_decision":null}`))
	require.NoError(t, err)

	assert.Equal(t, "legacy body", res.Body)
	assert.Nil(t, res.FinalDecision)
	raw := res.Raw()
	assert.Equal(t, "legacy body", gjson.GetBytes(raw, "content").String())
	assert.False(t, gjson.GetBytes(raw, "text_content").Exists())
}

func TestParseResultPrefersCanonicalContent(t *testing.T) {
	res, err := ParseResult([]byte(`{"content":"current","text_content":"old"}`))
	require.NoError(t, err)

	assert.Equal(t, "current", res.Body)
	assert.JSONEq(t, `{"content":"current"}`, string(res.Raw()))
}

func TestParseResultPartialDecision(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, fd *FinalDecision)
	}{
		{
			name:    "decision without score",
			payload: `{"content":"b","final_decision":{"final_decision":"Needs Revision"}}`,
			check: func(t *testing.T, fd *FinalDecision) {
				assert.Equal(t, DecisionNeedsRevision, fd.Decision)
				assert.Nil(t, fd.Score)
				assert.Nil(t, fd.Summary)
			},
		},
		{
			name:    "score without decision",
			payload: `{"final_decision":{"final_score":0}}`,
			check: func(t *testing.T, fd *FinalDecision) {
				assert.Empty(t, fd.Decision)
				require.NotNil(t, fd.Score)
				assert.Zero(t, *fd.Score)
			},
		},
		{
			name:    "short field names",
			payload: `{"final_decision":{"decision":"Rejected","score":0.1,"summary":[]}}`,
			check: func(t *testing.T, fd *FinalDecision) {
				assert.Equal(t, DecisionRejected, fd.Decision)
				require.NotNil(t, fd.Score)
				assert.InDelta(t, 0.1, *fd.Score, 1e-9)
				assert.NotNil(t, fd.Summary)
				assert.Empty(t, fd.Summary)
			},
		},
		{
			name:    "wrong types are ignored",
			payload: `{"final_decision":{"final_decision":42,"final_score":"high","summary":"none","timestamp":"yesterday"}}`,
			check: func(t *testing.T, fd *FinalDecision) {
				assert.Empty(t, fd.Decision)
				assert.Nil(t, fd.Score)
				assert.Nil(t, fd.Summary)
				assert.True(t, fd.Timestamp.IsZero())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseResult([]byte(tt.payload))
			require.NoError(t, err)
			require.NotNil(t, res.FinalDecision)
			tt.check(t, res.FinalDecision)
		})
	}
}

func TestParseResultNonObjectDecisionIsAbsent(t *testing.T) {
	res, err := ParseResult([]byte(`{"content":"b","final_decision":"Approved"}`))
	require.NoError(t, err)
	assert.Nil(t, res.FinalDecision)
}

func TestParseResultMalformed(t *testing.T) {
	for _, payload := range []string{``, `{"content":`, `[1,2]`, `"text"`, `null`} {
		_, err := ParseResult([]byte(payload))
		assert.ErrorIs(t, err, ErrMalformedResponse, "payload %q", payload)
	}
}

func TestGeneratedResultMarshalJSON(t *testing.T) {
	res, err := ParseResult([]byte(fullPayload))
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, fullPayload, string(data))

	data, err = json.Marshal(&GeneratedResult{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestRawIsACopy(t *testing.T) {
	res, err := ParseResult([]byte(`{"content":"b"}`))
	require.NoError(t, err)

	raw := res.Raw()
	raw[0] = '['
	assert.Equal(t, `{"content":"b"}`, string(res.Raw()))
}
