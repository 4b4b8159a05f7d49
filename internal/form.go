package internal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"study_timer/internal/apperrors"
)

// MinHours is the smallest target the setup form accepts; targets move in
// steps of the same size.
const MinHours = 0.5

func ParseHours(input string) (float64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("target hours are required: %w", apperrors.ErrInvalidInput)
	}
	h, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return 0, fmt.Errorf("target hours %q is not a number: %w", input, apperrors.ErrInvalidInput)
	}
	if err := ValidateHours(h); err != nil {
		return 0, err
	}
	return h, nil
}

func ValidateHours(h float64) error {
	if math.IsNaN(h) || math.IsInf(h, 0) || h < MinHours {
		return fmt.Errorf("target hours must be at least %v: %w", MinHours, apperrors.ErrInvalidInput)
	}
	if math.Mod(h, MinHours) != 0 {
		return fmt.Errorf("target hours must be a multiple of %v: %w", MinHours, apperrors.ErrInvalidInput)
	}
	return nil
}

func ParseSubject(input string) (string, error) {
	subject := strings.TrimSpace(input)
	if subject == "" {
		return "", fmt.Errorf("subject is required: %w", apperrors.ErrInvalidInput)
	}
	return subject, nil
}
