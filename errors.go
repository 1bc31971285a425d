package audiograph

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// Condition tags the category of a graph-edit-time error (§7).
type Condition int

const (
	// InvalidArgument: unsupported sample rate, excessive channel count,
	// fftSize not a power of two or out of range, and similar constructor
	// failures.
	InvalidArgument Condition = iota
	// BadConnection: a connect request that would create a cycle or exceed
	// maxChannelsPerContext; the graph is left unchanged.
	BadConnection
)

func (c Condition) String() string {
	switch c {
	case InvalidArgument:
		return "InvalidArgument"
	case BadConnection:
		return "BadConnection"
	default:
		return "Unknown"
	}
}

// ConditionError wraps a Condition with a human-readable message. Callers
// match on the condition with errors.As, not string comparison.
type ConditionError struct {
	Condition Condition
	Message   string
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Condition, e.Message)
}

// NewConditionError builds a ConditionError, the sole error kind returned
// synchronously from graph-edit-time calls (§7 Policy).
func NewConditionError(c Condition, format string, args ...any) error {
	return &ConditionError{Condition: c, Message: fmt.Sprintf(format, args...)}
}

// Is supports errors.Is(err, ErrBadConnection) style sentinel matching by
// condition kind.
func (e *ConditionError) Is(target error) bool {
	var other *ConditionError
	if errors.As(target, &other) {
		return e.Condition == other.Condition
	}
	return false
}

// ErrBadConnection and ErrInvalidArgument are sentinels usable with
// errors.Is to test a ConditionError's kind without inspecting its message.
var (
	ErrBadConnection   = &ConditionError{Condition: BadConnection}
	ErrInvalidArgument = &ConditionError{Condition: InvalidArgument}
)

// ErrorHandler receives errors that occur inside the render callback,
// which per §7 are never surfaced synchronously to the caller. Mirrors
// macaudio's ErrorHandler interface exactly.
type ErrorHandler interface {
	HandleError(error)
}

// DefaultErrorHandler logs via a structured leveled logger rather than
// macaudio's bare fmt.Printf.
type DefaultErrorHandler struct {
	Logger *log.Logger
}

// NewDefaultErrorHandler builds a handler logging to the given logger, or
// log.Default() if nil.
func NewDefaultErrorHandler(logger *log.Logger) *DefaultErrorHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultErrorHandler{Logger: logger}
}

func (h *DefaultErrorHandler) HandleError(err error) {
	h.Logger.Error("engine error", "err", err)
}

// LoggingErrorHandler wraps another handler and additionally invokes a
// plain callback, e.g. for test assertions or metrics.
type LoggingErrorHandler struct {
	underlying ErrorHandler
	logger     func(error)
}

// NewLoggingErrorHandler constructs a LoggingErrorHandler.
func NewLoggingErrorHandler(underlying ErrorHandler, logger func(error)) *LoggingErrorHandler {
	return &LoggingErrorHandler{underlying: underlying, logger: logger}
}

func (h *LoggingErrorHandler) HandleError(err error) {
	if h.logger != nil {
		h.logger(err)
	}
	if h.underlying != nil {
		h.underlying.HandleError(err)
	}
}

// PanicErrorHandler panics on any render-time error; useful in tests and
// offline rendering where silent degradation would hide a bug.
type PanicErrorHandler struct{}

func (h *PanicErrorHandler) HandleError(err error) {
	panic(fmt.Sprintf("engine error: %v", err))
}
