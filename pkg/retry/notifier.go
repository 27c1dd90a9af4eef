package retry

import (
	"context"
	"log/slog"
)

// Notifier receives the result of every attempt made by a PolicyTemplate
type Notifier interface {
	OnSuccess(ctx context.Context, rc RetryContext)
	OnFailure(ctx context.Context, rc RetryContext, err error)
}

// NotifierFuncs adapts a pair of functions to Notifier. Nil fields are skipped.
type NotifierFuncs struct {
	Success func(ctx context.Context, rc RetryContext)
	Failure func(ctx context.Context, rc RetryContext, err error)
}

func (n NotifierFuncs) OnSuccess(ctx context.Context, rc RetryContext) {
	if n.Success != nil {
		n.Success(ctx, rc)
	}
}

func (n NotifierFuncs) OnFailure(ctx context.Context, rc RetryContext, err error) {
	if n.Failure != nil {
		n.Failure(ctx, rc, err)
	}
}

// LogNotifier writes attempt results to a structured logger
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging through logger
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = discardLogger()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OnSuccess(ctx context.Context, rc RetryContext) {
	n.logger.InfoContext(ctx, "Retry work succeeded",
		"work", rc.Description(),
		"attempts", rc.MetaInfo()[MetaAttempts])
}

func (n *LogNotifier) OnFailure(ctx context.Context, rc RetryContext, err error) {
	n.logger.WarnContext(ctx, "Retry work attempt failed",
		"work", rc.Description(),
		"attempt", rc.MetaInfo()[MetaAttempts],
		"error", err)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type multiNotifier []Notifier

// Notifiers combines several notifiers into one, called in order. Nil
// entries are skipped.
func Notifiers(notifiers ...Notifier) Notifier {
	var m multiNotifier
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multiNotifier) OnSuccess(ctx context.Context, rc RetryContext) {
	for _, n := range m {
		n.OnSuccess(ctx, rc)
	}
}

func (m multiNotifier) OnFailure(ctx context.Context, rc RetryContext, err error) {
	for _, n := range m {
		n.OnFailure(ctx, rc, err)
	}
}
