package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Normalizer turns raw source into normalized code.
type Normalizer interface {
	Normalize(src string) (string, error)
}

// Service runs the submission pipeline:
// validate → normalize → tag → build → append.
type Service struct {
	normalizer    Normalizer
	tagger        Tagger
	aggregator    *Aggregator
	dataset       DocumentID
	taggerTimeout time.Duration
	logger        *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDataset sets the dataset document entries are appended to.
func WithDataset(id DocumentID) ServiceOption {
	return func(s *Service) { s.dataset = id }
}

// WithTaggerTimeout bounds the tagger call. Zero disables the bound.
func WithTaggerTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.taggerTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new Service.
func NewService(n Normalizer, t Tagger, agg *Aggregator, opts ...ServiceOption) *Service {
	s := &Service{
		normalizer: n,
		tagger:     t,
		aggregator: agg,
		dataset:    DefaultDataset,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Dataset returns the dataset document the service appends to.
func (s *Service) Dataset() DocumentID { return s.dataset }

// Aggregator returns the underlying aggregator.
func (s *Service) Aggregator() *Aggregator { return s.aggregator }

// Submit turns one (code, comment) submission into a dataset entry.
//
// Blank fields fail with *ValidationError before anything else runs. Every
// later failure is one of *TokenizationError, *TagGenerationError or
// *StoreError, and the store is written at most once, at the end.
func (s *Service) Submit(ctx context.Context, code, comment string) (Entry, error) {
	if strings.TrimSpace(code) == "" {
		return Entry{}, &ValidationError{Field: "code"}
	}
	if strings.TrimSpace(comment) == "" {
		return Entry{}, &ValidationError{Field: "comment"}
	}

	log := s.logger.With("submission", uuid.NewString(), "dataset", s.dataset.String())

	normalized, err := s.Normalize(code)
	if err != nil {
		log.Debug("tokenization failed", "error", err)
		return Entry{}, err
	}
	if normalized == "" {
		// Only comments were submitted.
		return Entry{}, &ValidationError{Field: "code"}
	}

	cat, err := s.generateTags(ctx, normalized)
	if err != nil {
		log.Debug("tag generation failed", "error", err)
		return Entry{}, err
	}

	entry := BuildEntry(normalized, cat, comment)

	if _, ok := ctx.Value(ChangeReasonKey).(string); !ok {
		ctx = context.WithValue(ctx, ChangeReasonKey, "append entry to "+s.dataset.String())
	}
	if err := s.aggregator.AppendEntry(ctx, s.dataset, entry); err != nil {
		log.Debug("append failed", "error", err)
		return Entry{}, err
	}

	log.Info("entry added", "tokens", len(cat))
	return entry, nil
}

// Normalize runs only the normalizer, for previews.
func (s *Service) Normalize(code string) (string, error) {
	normalized, err := s.normalizer.Normalize(code)
	if err != nil {
		var tokErr *TokenizationError
		if errors.As(err, &tokErr) {
			return "", err
		}
		return "", &TokenizationError{Err: err}
	}
	return normalized, nil
}

func (s *Service) generateTags(ctx context.Context, normalized string) ([]string, error) {
	if s.taggerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.taggerTimeout)
		defer cancel()
	}

	cat, err := s.tagger.GenerateTags(ctx, normalized)
	if err != nil {
		return nil, &TagGenerationError{Err: err}
	}
	if tokens := len(strings.Fields(normalized)); len(cat) != tokens {
		return nil, &TagGenerationError{
			Err: fmt.Errorf("%w: got %d tags for %d tokens", ErrTagCountMismatch, len(cat), tokens),
		}
	}
	return cat, nil
}
