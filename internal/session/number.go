package session

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidNumber is returned by ParseNumber for input that is not a finite decimal.
var ErrInvalidNumber = errors.New("invalid number")

// ParseNumber reads a decimal typed by a user. Both '.' and ',' work as the separator.
func ParseNumber(text string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if s == "" {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidNumber)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, text)
	}
	return v, nil
}

// ComputeResult converts a yuan price into rubles.
func ComputeResult(price, rate float64) float64 {
	return price * rate
}

// FormatAmount renders a ruble total with two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatNumber renders user-entered values in their shortest form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
