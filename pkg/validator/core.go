package validator

import (
	"errors"
	"strings"
)

// Numeric is the set of types the numeric rules accept.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ValidationError is a single failed rule. Code names the rule ("required",
// "max_length", ...) and stays stable when Message is overridden.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

// ValidationErrors is every failure reported by one Apply call, in rule order.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	var b strings.Builder
	b.WriteString(ErrValidationFailed.Error())
	for i, err := range ve {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(err.Field)
		b.WriteString(": ")
		b.WriteString(err.Message)
	}
	return b.String()
}

// Is makes errors.Is(err, ErrValidationFailed) hold for any ValidationErrors.
func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidationFailed
}

// Get returns the messages reported for field.
func (ve ValidationErrors) Get(field string) []string {
	var messages []string
	for _, err := range ve {
		if err.Field == field {
			messages = append(messages, err.Message)
		}
	}
	return messages
}

// Fields returns the failed field names in report order, without duplicates.
func (ve ValidationErrors) Fields() []string {
	var fields []string
	for _, err := range ve {
		if !contains(fields, err.Field) {
			fields = append(fields, err.Field)
		}
	}
	return fields
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Rule pairs a check with the error reported when it fails.
type Rule struct {
	Check func() bool
	Error ValidationError
}

func newRule(field, code, message string, check func() bool) Rule {
	return Rule{Check: check, Error: ValidationError{Field: field, Code: code, Message: message}}
}

// Fail returns a rule that always fails. Use it for checks decided up front,
// such as a missing optional value.
func Fail(field, code, message string) Rule {
	return newRule(field, code, message, func() bool { return false })
}

// WithMessage replaces the rule's default message.
func (r Rule) WithMessage(msg string) Rule {
	r.Error.Message = msg
	return r
}

// When makes rule pass unconditionally unless cond is true.
func When(cond bool, rule Rule) Rule {
	check := rule.Check
	rule.Check = func() bool { return !cond || check() }
	return rule
}

// Apply runs every rule and returns ValidationErrors for the failures, or
// nil when all pass.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if !rule.Check() {
			errs = append(errs, rule.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ExtractValidationErrors returns the ValidationErrors in err's chain, or nil.
func ExtractValidationErrors(err error) ValidationErrors {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return nil
}

func IsValidationError(err error) bool {
	return ExtractValidationErrors(err) != nil
}
