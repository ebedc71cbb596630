package classifier

import (
	"testing"

	"github.com/bytedance/sonic"
)

func TestUnpackScoreValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		attribute string
		want      float64
		wantOK    bool
	}{
		{
			name:      "present",
			body:      `{"attributeScores":{"PROFANITY":{"summaryScore":{"value":0.82}}}}`,
			attribute: AttributeProfanity,
			want:      0.82,
			wantOK:    true,
		},
		{
			name:      "zero-is-present",
			body:      `{"attributeScores":{"PROFANITY":{"summaryScore":{"value":0,"type":"PROBABILITY"}}}}`,
			attribute: AttributeProfanity,
			want:      0,
			wantOK:    true,
		},
		{
			name:      "missing-attribute",
			body:      `{"attributeScores":{"TOXICITY":{"summaryScore":{"value":0.9}}}}`,
			attribute: AttributeProfanity,
		},
		{
			name:      "missing-summary-value",
			body:      `{"attributeScores":{"PROFANITY":{"summaryScore":{"type":"PROBABILITY"}}}}`,
			attribute: AttributeProfanity,
		},
		{
			name:      "missing-summary",
			body:      `{"attributeScores":{"PROFANITY":{"spanScores":[]}}}`,
			attribute: AttributeProfanity,
		},
		{
			name:      "no-attribute-scores",
			body:      `{"languages":["en"]}`,
			attribute: AttributeProfanity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var resp AnalyzeCommentResponse
			if err := sonic.Unmarshal([]byte(tt.body), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, ok := resp.UnpackScoreValue(tt.attribute)
			if ok != tt.wantOK {
				t.Fatalf("UnpackScoreValue ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("UnpackScoreValue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnpackScoreValueNilResponse(t *testing.T) {
	t.Parallel()

	var resp *AnalyzeCommentResponse
	if _, ok := resp.UnpackScoreValue(AttributeProfanity); ok {
		t.Fatalf("nil response must not yield a score")
	}
}

func TestRequestEncodingOmitsDefaults(t *testing.T) {
	t.Parallel()

	body, err := sonic.Marshal(AnalyzeCommentRequest{
		Comment:             Comment{Text: "hello"},
		RequestedAttributes: map[string]AttributeOptions{AttributeProfanity: {}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"comment":{"text":"hello"},"requestedAttributes":{"PROFANITY":{}}}`
	if string(body) != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", body, want)
	}
}
