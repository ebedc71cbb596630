package perspective

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	commentanalyzer "google.golang.org/api/commentanalyzer/v1alpha1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"

	"github.com/iamwavecut/swearbot/internal/adapters"
	"github.com/iamwavecut/swearbot/internal/adapters/classifier"
	apperrors "github.com/iamwavecut/swearbot/internal/errors"
	"github.com/iamwavecut/swearbot/internal/observability"
)

const (
	// DefaultEndpoint is the service base path; the client appends
	// v1alpha1/comments:analyze.
	DefaultEndpoint = "https://commentanalyzer.googleapis.com/"

	errorBodyLimit = 512
)

type API struct {
	service    *commentanalyzer.Service
	client     *http.Client
	apiKey     string
	endpoint   string
	languages  []string
	doNotStore bool
	logger     *log.Entry
}

type Option func(*API)

func WithEndpoint(endpoint string) Option {
	return func(a *API) {
		if endpoint != "" {
			a.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the base client. The API key is added on top of its
// transport.
func WithHTTPClient(client *http.Client) Option {
	return func(a *API) {
		if client != nil {
			a.client = client
		}
	}
}

// WithLanguages pins the comment languages instead of letting the service
// auto-detect them.
func WithLanguages(languages ...string) Option {
	return func(a *API) {
		a.languages = languages
	}
}

// WithDoNotStore asks the service not to retain submitted comments.
func WithDoNotStore(doNotStore bool) Option {
	return func(a *API) {
		a.doNotStore = doNotStore
	}
}

func WithLogger(logger *log.Entry) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewPerspective builds a Comment Analyzer client authenticated by API key
// only, so no application default credentials are looked up.
func NewPerspective(apiKey string, opts ...Option) (adapters.Classifier, error) {
	a := &API{
		client:   &http.Client{Timeout: 30 * time.Second},
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		logger:   log.WithField("object", "Perspective"),
	}
	for _, opt := range opts {
		opt(a)
	}

	base := a.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	keyed := *a.client
	keyed.Transport = &transport.APIKey{Key: apiKey, Transport: base}

	service, err := commentanalyzer.NewService(context.Background(),
		option.WithHTTPClient(&keyed),
		option.WithEndpoint(a.endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create comment analyzer service: %w", apperrors.ErrClassifier, err)
	}
	a.service = service
	return a, nil
}

// Analyze requests the PROFANITY attribute for text. Every failure is
// reported as apperrors.ErrClassifier.
func (a *API) Analyze(ctx context.Context, text string) (*classifier.AnalyzeCommentResponse, error) {
	ctx, span := otel.Tracer("swearbot/perspective").Start(ctx, "analyze-comment")
	defer span.End()

	start := time.Now()
	resp, err := a.analyze(ctx, text)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.ObserveClassifierRequest(status, time.Since(start))
	span.SetAttributes(attribute.String("classifier.status", status))
	return resp, err
}

func (a *API) analyze(ctx context.Context, text string) (*classifier.AnalyzeCommentResponse, error) {
	req := toServiceRequest(classifier.AnalyzeCommentRequest{
		Comment: classifier.Comment{Text: text},
		RequestedAttributes: map[string]classifier.AttributeOptions{
			classifier.AttributeProfanity: {},
		},
		Languages:  a.languages,
		DoNotStore: a.doNotStore,
	})

	res, err := a.service.Comments.Analyze(req).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			body := apiErr.Body
			if len(body) > errorBodyLimit {
				body = body[:errorBodyLimit]
			}
			a.logger.WithFields(log.Fields{
				"status": apiErr.Code,
				"body":   body,
			}).Debug("unexpected classifier response")
			return nil, fmt.Errorf("%w: unexpected status code %d", apperrors.ErrClassifier, apiErr.Code)
		}
		return nil, fmt.Errorf("%w: analyze comment: %w", apperrors.ErrClassifier, redactKey(err, a.apiKey))
	}
	return fromServiceResponse(res), nil
}

func toServiceRequest(req classifier.AnalyzeCommentRequest) *commentanalyzer.AnalyzeCommentRequest {
	attributes := make(map[string]commentanalyzer.AttributeParameters, len(req.RequestedAttributes))
	for name, opts := range req.RequestedAttributes {
		params := commentanalyzer.AttributeParameters{ScoreType: opts.ScoreType}
		if opts.ScoreThreshold != nil {
			params.ScoreThreshold = *opts.ScoreThreshold
		}
		attributes[name] = params
	}

	out := &commentanalyzer.AnalyzeCommentRequest{
		Comment:             &commentanalyzer.TextEntry{Text: req.Comment.Text, Type: req.Comment.Type},
		RequestedAttributes: attributes,
		Languages:           req.Languages,
		DoNotStore:          req.DoNotStore,
		SpanAnnotations:     req.SpanAnnotations,
		ClientToken:         req.ClientToken,
		SessionId:           req.SessionID,
		CommunityId:         req.CommunityID,
	}
	if req.Context != nil {
		entries := make([]*commentanalyzer.TextEntry, 0, len(req.Context.Entries))
		for _, entry := range req.Context.Entries {
			entries = append(entries, &commentanalyzer.TextEntry{Text: entry.Text, Type: entry.Type})
		}
		out.Context = &commentanalyzer.Context{Entries: entries}
	}
	return out
}

// fromServiceResponse maps the generated types onto the classifier ones. The
// service omits zero values on the wire, so a zero score is reported as absent.
func fromServiceResponse(res *commentanalyzer.AnalyzeCommentResponse) *classifier.AnalyzeCommentResponse {
	out := &classifier.AnalyzeCommentResponse{
		Languages:   res.Languages,
		ClientToken: res.ClientToken,
	}
	if len(res.AttributeScores) == 0 {
		return out
	}
	out.AttributeScores = make(map[string]classifier.AttributeScore, len(res.AttributeScores))
	for name, scores := range res.AttributeScores {
		attr := classifier.AttributeScore{SummaryScore: fromServiceScore(scores.SummaryScore)}
		for _, span := range scores.SpanScores {
			if span == nil {
				continue
			}
			begin, end := int(span.Begin), int(span.End)
			attr.SpanScores = append(attr.SpanScores, classifier.SpanScore{
				Begin: &begin,
				End:   &end,
				Score: fromServiceScore(span.Score),
			})
		}
		out.AttributeScores[name] = attr
	}
	return out
}

func fromServiceScore(score *commentanalyzer.Score) *classifier.Score {
	if score == nil {
		return nil
	}
	out := &classifier.Score{Type: score.Type}
	if score.Value != 0 {
		value := score.Value
		out.Value = &value
	}
	return out
}

// redactKey keeps the API key out of transport errors, which embed the URL.
func redactKey(err error, key string) error {
	var urlErr *url.Error
	if key == "" || !errors.As(err, &urlErr) {
		return err
	}
	redacted, parseErr := url.Parse(urlErr.URL)
	if parseErr != nil {
		return err
	}
	query := redacted.Query()
	if query.Has("key") {
		query.Set("key", "REDACTED")
	}
	redacted.RawQuery = query.Encode()
	return &url.Error{Op: urlErr.Op, URL: redacted.String(), Err: urlErr.Err}
}
