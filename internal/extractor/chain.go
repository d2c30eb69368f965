package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Strategy is a single way of turning document bytes into text.
type Strategy interface {
	Name() string
	Format() Format
	Disable(reason string)
	IsEnabled() bool

	Extract(ctx context.Context, data []byte) (string, error)
}

// Attempt records the outcome of running one strategy.
type Attempt struct {
	Strategy string
	Duration time.Duration
	Err      error
}

// Status represents runtime information about a strategy.
type Status struct {
	Name    string
	Format  Format
	Enabled bool
	Reason  string
}

// statusProvider is implemented by strategies that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// toggle carries the enable/disable state shared by all strategies.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) DisabledReason() string { return t.reason }

// DisableByName marks a strategy with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Strategy, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided strategies.
func Describe(steps []Strategy) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		st := Status{
			Name:    step.Name(),
			Format:  step.Format(),
			Enabled: step.IsEnabled(),
		}
		if r, ok := step.(interface{ DisabledReason() string }); ok && !st.Enabled {
			st.Reason = r.DisabledReason()
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// run tries the enabled steps in order and stops at the first one that
// produces non-blank text.
func run(ctx context.Context, logger *zap.Logger, timeout time.Duration, data []byte, steps []Strategy) (string, string, []Attempt) {
	attempts := make([]Attempt, 0, len(steps))

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Debug("strategy disabled", zap.String("strategy", step.Name()))
			continue
		}

		started := time.Now()
		text, err := runIsolated(ctx, timeout, step, data)
		text = strings.TrimSpace(text)
		if err == nil && text == "" {
			err = errBlankOutput
		}

		attempt := Attempt{Strategy: step.Name(), Duration: time.Since(started), Err: err}
		attempts = append(attempts, attempt)

		if err != nil {
			logger.Debug("strategy did not match",
				zap.String("strategy", step.Name()),
				zap.Duration("took", attempt.Duration),
				zap.Error(err),
			)
			continue
		}

		logger.Debug("strategy matched",
			zap.String("strategy", step.Name()),
			zap.Duration("took", attempt.Duration),
			zap.Int("chars", len(text)),
		)
		return text, step.Name(), attempts
	}

	return "", "", attempts
}

// runIsolated runs a strategy under its own deadline. Panics become errors.
// A strategy that outlives the deadline keeps running in the background and
// its output is dropped.
func runIsolated(ctx context.Context, timeout time.Duration, step Strategy, data []byte) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()

		text, err := step.Extract(ctx, data)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}
