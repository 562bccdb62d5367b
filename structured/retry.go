package structured

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentforge/logging"
)

// DefaultMaxRetries is the number of repair rounds performed when a handler
// is constructed without an explicit override.
const DefaultMaxRetries = 3

// GeneratorFunc produces a candidate value for validation. repairPrompt is
// empty on the first attempt; on retries it names the unsatisfied fields so
// the generator (typically a model call) can correct its output.
type GeneratorFunc func(ctx context.Context, repairPrompt string) (any, error)

// RetryOptions configure a RetryHandler.
type RetryOptions struct {
	// MaxRetries is the number of repair rounds after the initial attempt.
	// Zero means exactly one attempt.
	MaxRetries int
	// OnRetry fires before each repair attempt with the attempt number
	// (1-based) and the errors from the previous attempt.
	OnRetry func(attempt int, errs []FieldError)
	// OnSuccess fires once when a valid value is produced.
	OnSuccess func(data any, retryCount int)
	// OnFailure fires once when all attempts are exhausted.
	OnFailure func(errs []FieldError, totalAttempts int)
	// Logger for attempt tracing.
	Logger logging.Logger
}

// RetryHandler drives the generate -> validate -> repair loop.
type RetryHandler struct {
	maxRetries int
	onRetry    func(attempt int, errs []FieldError)
	onSuccess  func(data any, retryCount int)
	onFailure  func(errs []FieldError, totalAttempts int)
	validator  *Validator
	logger     logging.Logger
}

// NewRetryHandler constructs a RetryHandler with optional overrides.
func NewRetryHandler(optFns ...func(o *RetryOptions)) *RetryHandler {
	opts := RetryOptions{MaxRetries: DefaultMaxRetries, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RetryHandler{
		maxRetries: opts.MaxRetries,
		onRetry:    opts.OnRetry,
		onSuccess:  opts.OnSuccess,
		onFailure:  opts.OnFailure,
		validator:  NewValidator(),
		logger:     opts.Logger,
	}
}

// RetryResult is the outcome of a retry loop run.
type RetryResult struct {
	Data       any          // Last generated value (valid when IsValid)
	RetryCount int          // Repair rounds performed (0 = first attempt succeeded)
	Attempts   int          // Total generator invocations
	Errors     []FieldError // Validation errors from the final attempt
	valid      bool
}

// IsValid reports whether the loop converged on schema-conforming data.
func (r *RetryResult) IsValid() bool { return r.valid }

// Generate runs the loop: call the generator, validate, and repair until the
// data conforms or MaxRetries is exhausted. Generator errors abort the loop
// and are returned as errors; validation failures are represented in the
// result, never as errors.
func (h *RetryHandler) Generate(ctx context.Context, schema *Schema, gen GeneratorFunc) (*RetryResult, error) {
	var lastErrors []FieldError

	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		repairPrompt := ""
		if attempt > 0 {
			repairPrompt = buildRepairPrompt(lastErrors)
			if h.onRetry != nil {
				h.onRetry(attempt, lastErrors)
			}
			h.logger.Debug("structured output repair attempt", "attempt", attempt, "errors", len(lastErrors))
		}

		data, err := gen(ctx, repairPrompt)
		if err != nil {
			return nil, fmt.Errorf("structured output generation failed on attempt %d: %w", attempt+1, err)
		}

		res := h.validator.Validate(data, schema)
		if res.IsValid() {
			if h.onSuccess != nil {
				h.onSuccess(data, attempt)
			}
			return &RetryResult{Data: data, RetryCount: attempt, Attempts: attempt + 1, valid: true}, nil
		}
		lastErrors = res.Errors()
	}

	totalAttempts := h.maxRetries + 1
	if h.onFailure != nil {
		h.onFailure(lastErrors, totalAttempts)
	}
	h.logger.Warn("structured output validation exhausted retries", "attempts", totalAttempts)

	return &RetryResult{RetryCount: h.maxRetries, Attempts: totalAttempts, Errors: lastErrors}, nil
}

// buildRepairPrompt names every unsatisfied field so the generator can fix
// its previous output without guessing.
func buildRepairPrompt(errs []FieldError) string {
	var b strings.Builder
	b.WriteString("The previous response did not match the required schema. Fix the following issues and respond again with only the corrected JSON:\n")
	for _, e := range errs {
		b.WriteString(fmt.Sprintf("- %s: %s\n", e.Field, e.Message))
	}
	return b.String()
}
