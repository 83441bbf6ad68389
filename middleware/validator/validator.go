package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/middleware"
)

// ValidatorFunc validates input
type ValidatorFunc func(string) error

// FilterFunc transforms or filters responses
type FilterFunc func(*message.Message) error

// InputValidator validates and cleans input
type InputValidator struct {
	validator ValidatorFunc
}

// NewInputValidator creates an input validation middleware
func NewInputValidator(validator ValidatorFunc) *InputValidator {
	return &InputValidator{validator: validator}
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the input
func (m *InputValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.validator != nil {
		if err := m.validator(ctx.Input); err != nil {
			return err
		}
	}
	return next(ctx)
}

// NonEmpty rejects blank input and input longer than maxChars (0 disables the limit).
func NonEmpty(maxChars int) ValidatorFunc {
	return func(input string) error {
		if strings.TrimSpace(input) == "" {
			return fmt.Errorf("%w: input cannot be empty", errors.ErrInvalidInput)
		}
		if maxChars > 0 && utf8.RuneCountInString(input) > maxChars {
			return fmt.Errorf("%w: input exceeds %d characters", errors.ErrInvalidInput, maxChars)
		}
		return nil
	}
}

// ResponseFilter filters or transforms the response
type ResponseFilter struct {
	filter FilterFunc
}

// NewResponseFilter creates a response filtering middleware
func NewResponseFilter(filter FilterFunc) *ResponseFilter {
	return &ResponseFilter{filter: filter}
}

// Name returns the middleware name
func (m *ResponseFilter) Name() string {
	return "ResponseFilter"
}

// Execute filters the response
func (m *ResponseFilter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil {
		return err
	}
	if ctx.Response != nil && m.filter != nil {
		return m.filter(ctx.Response)
	}
	return nil
}

// TrimResponse strips surrounding whitespace from the final answer.
func TrimResponse(msg *message.Message) error {
	msg.Content = strings.TrimSpace(msg.Content)
	return nil
}

var reasoningBlock = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)

// StripReasoning removes <think>...</think> blocks some local models emit
// ahead of their answer.
func StripReasoning(msg *message.Message) error {
	msg.Content = reasoningBlock.ReplaceAllString(msg.Content, "")
	return nil
}

// Filters applies each filter in order, stopping at the first error.
func Filters(filters ...FilterFunc) FilterFunc {
	return func(msg *message.Message) error {
		for _, f := range filters {
			if err := f(msg); err != nil {
				return err
			}
		}
		return nil
	}
}
