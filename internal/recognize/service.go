package recognize

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gutlog/internal/model"
	"github.com/sells-group/gutlog/internal/resilience"
)

// ErrRecognitionFailed is returned once every attempt has failed. The
// caller is expected to fall back to manual entry.
var ErrRecognitionFailed = eris.New("food recognition failed")

// FailedError carries the last cause behind ErrRecognitionFailed.
type FailedError struct {
	Attempts int
	Err      error
}

func (e *FailedError) Error() string {
	return ErrRecognitionFailed.Error() + ": " + e.Err.Error()
}

func (e *FailedError) Unwrap() error { return e.Err }

// Is matches ErrRecognitionFailed.
func (e *FailedError) Is(target error) bool { return target == ErrRecognitionFailed }

// Options configures Service retries.
type Options struct {
	Attempts       int
	Backoff        time.Duration
	AttemptTimeout time.Duration
	MaxImageDim    int
}

// DefaultOptions returns 3 attempts, 1 s apart, 30 s each, 512 px images.
func DefaultOptions() Options {
	return Options{
		Attempts:       3,
		Backoff:        time.Second,
		AttemptTimeout: 30 * time.Second,
		MaxImageDim:    DefaultMaxDim,
	}
}

// Service wraps a Recognizer with image preparation, parsing and retries.
type Service struct {
	rec  Recognizer
	opts Options
}

// NewService returns a Service. Zero option fields take their defaults.
func NewService(rec Recognizer, opts Options) *Service {
	d := DefaultOptions()
	if opts.Attempts <= 0 {
		opts.Attempts = d.Attempts
	}
	if opts.Backoff < 0 {
		opts.Backoff = d.Backoff
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = d.AttemptTimeout
	}
	if opts.MaxImageDim <= 0 {
		opts.MaxImageDim = d.MaxImageDim
	}
	return &Service{rec: rec, opts: opts}
}

// AnalyzePhoto prepares raw upload bytes and runs Analyze on them.
func (s *Service) AnalyzePhoto(ctx context.Context, photo []byte) (*model.FoodRecognitionResult, error) {
	img, err := PrepareImage(photo, s.opts.MaxImageDim)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, img)
}

// Analyze asks the recognizer about img, retrying transient failures and
// unusable answers a bounded number of times.
func (s *Service) Analyze(ctx context.Context, img Image) (*model.FoodRecognitionResult, error) {
	cfg := resilience.FixedRetryConfig(s.opts.Attempts, s.opts.Backoff)
	cfg.AttemptTimeout = s.opts.AttemptTimeout
	cfg.ShouldRetry = retryable
	cfg.OnRetry = resilience.RetryLogger("recognizer", "analyze")

	res, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*model.FoodRecognitionResult, error) {
		text, err := s.rec.Recognize(ctx, img)
		if err != nil {
			return nil, err
		}
		return ParseResponse(text)
	})
	if err != nil {
		zap.L().Warn("recognition failed", zap.Int("attempts", s.opts.Attempts), zap.Error(err))
		return nil, &FailedError{Attempts: s.opts.Attempts, Err: err}
	}

	zap.L().Info("food recognized",
		zap.String("food_name", res.FoodName),
		zap.Float64("total_mass_g", res.TotalMassG),
	)
	return res, nil
}

func retryable(err error) bool {
	return resilience.IsTransient(err) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrInvalidMass) ||
		errors.Is(err, ErrNonPositiveMass)
}
