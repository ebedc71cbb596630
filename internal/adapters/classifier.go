package adapters

import (
	"context"

	"github.com/iamwavecut/swearbot/internal/adapters/classifier"
)

// Classifier defines the interface for external text analysis
type Classifier interface {
	// Analyze scores text for the attributes the implementation requests
	Analyze(ctx context.Context, text string) (*classifier.AnalyzeCommentResponse, error)
}
