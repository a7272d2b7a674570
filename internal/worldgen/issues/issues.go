package issues

import (
	"errors"
	"fmt"
)

const (
	// Hard failures, returned as errors.
	ErrCodeInvalidParameter = "E_INVALID_PARAMETER"

	// Recoverable conditions; the stage substitutes a fallback and continues.
	ErrCodeDegenerateInput = "E_DEGENERATE_INPUT"
	ErrCodeSearchExhausted = "E_SEARCH_EXHAUSTED"
)

var knownCodes = map[string]struct{}{
	ErrCodeInvalidParameter: {},
	ErrCodeDegenerateInput:  {},
	ErrCodeSearchExhausted:  {},
}

func IsKnownCode(code string) bool {
	_, ok := knownCodes[code]
	return ok
}

// ErrInvalidParameter is wrapped by every validation failure at a stage boundary.
var ErrInvalidParameter = errors.New("invalid parameter")

// Invalid builds an error that satisfies errors.Is(err, ErrInvalidParameter).
func Invalid(stage, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", stage, ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// CheckDims rejects non-positive grid dimensions.
func CheckDims(stage string, width, height int) error {
	if width <= 0 || height <= 0 {
		return Invalid(stage, "dimensions must be positive (got %dx%d)", width, height)
	}
	return nil
}

// Issue is a recoverable condition absorbed by a stage.
type Issue struct {
	Code    string `json:"code"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s] %s", i.Stage, i.Code, i.Message)
}

// List collects issues for one stage run. The zero value is ready to use.
type List struct {
	stage string
	items []Issue
}

func NewList(stage string) *List { return &List{stage: stage} }

func (l *List) Degenerate(format string, args ...any) {
	l.add(ErrCodeDegenerateInput, format, args...)
}

func (l *List) Exhausted(format string, args ...any) {
	l.add(ErrCodeSearchExhausted, format, args...)
}

func (l *List) add(code, format string, args ...any) {
	l.items = append(l.items, Issue{Code: code, Stage: l.stage, Message: fmt.Sprintf(format, args...)})
}

func (l *List) Items() []Issue {
	if l == nil {
		return nil
	}
	return l.items
}
