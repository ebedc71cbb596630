package classifier

const AttributeProfanity = "PROFANITY"

type Comment struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

type ContextEntry struct {
	Text string `json:"text,omitempty"`
	Type string `json:"type,omitempty"`
}

type CommentContext struct {
	Entries []ContextEntry `json:"entries,omitempty"`
}

type AttributeOptions struct {
	ScoreType      string   `json:"scoreType,omitempty"`
	ScoreThreshold *float64 `json:"scoreThreshold,omitempty"`
}

type AnalyzeCommentRequest struct {
	Comment             Comment                     `json:"comment"`
	Context             *CommentContext             `json:"context,omitempty"`
	RequestedAttributes map[string]AttributeOptions `json:"requestedAttributes"`
	SpanAnnotations     bool                        `json:"spanAnnotations,omitempty"`
	Languages           []string                    `json:"languages,omitempty"`
	DoNotStore          bool                        `json:"doNotStore,omitempty"`
	ClientToken         string                      `json:"clientToken,omitempty"`
	SessionID           string                      `json:"sessionId,omitempty"`
	CommunityID         string                      `json:"communityId,omitempty"`
}

type Score struct {
	Value *float64 `json:"value,omitempty"`
	Type  string   `json:"type,omitempty"`
}

type SpanScore struct {
	Begin *int   `json:"begin,omitempty"`
	End   *int   `json:"end,omitempty"`
	Score *Score `json:"score,omitempty"`
}

type AttributeScore struct {
	SummaryScore *Score      `json:"summaryScore,omitempty"`
	SpanScores   []SpanScore `json:"spanScores,omitempty"`
	Languages    []string    `json:"languages,omitempty"`
	ClientToken  string      `json:"clientToken,omitempty"`
}

type AnalyzeCommentResponse struct {
	AttributeScores map[string]AttributeScore `json:"attributeScores,omitempty"`
	Languages       []string                  `json:"languages,omitempty"`
	ClientToken     string                    `json:"clientToken,omitempty"`
}

// UnpackScoreValue returns the summary score of the named attribute. The
// second result is false when the response has no such attribute, or the
// attribute carries no summary value.
func (r *AnalyzeCommentResponse) UnpackScoreValue(attribute string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	score, ok := r.AttributeScores[attribute]
	if !ok || score.SummaryScore == nil || score.SummaryScore.Value == nil {
		return 0, false
	}
	return *score.SummaryScore.Value, true
}
