package usecase

import (
	"fmt"
	"strings"
)

const (
	KindInsufficientData = "InsufficientData"
	KindValidation       = "ValidationError"
)

// InsufficientDataError is returned when too few factors were fetched to
// produce a trustworthy signal. Failed is sorted.
type InsufficientDataError struct {
	Symbol   string
	Coverage float64
	Required float64
	Failed   []string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: coverage %.2f below required %.2f; missing factors: %s",
		e.Symbol, e.Coverage, e.Required, strings.Join(e.Failed, ", "))
}

func (e *InsufficientDataError) ErrorType() string { return KindInsufficientData }

// ValidationError marks a fetched factor value outside its domain.
type ValidationError struct {
	Factor string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s value %g out of domain: %s", e.Factor, e.Value, e.Reason)
}

func (e *ValidationError) ErrorType() string { return KindValidation }
