package eval

import "time"

// LogEvent describes an evaluation attempt.
type LogEvent struct {
	Engine   string
	Expr     string
	Scope    string
	Duration time.Duration
	Err      error
}

// Logger records evaluation events.
type Logger interface {
	LogEvaluation(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvaluation implements Logger.
func (f LoggerFunc) LogEvaluation(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type nopLogger struct{}

func (nopLogger) LogEvaluation(LogEvent) {}
