package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkordes/plan-itinerary/internal/domain"
)

const (
	maxTitleLen = 100
	maxNotesLen = 1000
)

// validateDetail enforces business rules common to detail create and update.
//   - Title must be non-empty and at most 100 characters.
//   - Price, if set, must not be negative and has at most 2 decimal places.
//   - Currency must be supported.
//   - End must be strictly after Start.
func validateDetail(d domain.Detail) error {
	if err := validateTitle(d.Title); err != nil {
		return err
	}
	if d.Price != nil && d.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if d.Price != nil && !d.Price.Equal(d.Price.Round(2)) {
		return fmt.Errorf("%w: price must have at most 2 decimal places", domain.ErrValidation)
	}
	if utf8.RuneCountInString(d.Notes) > maxNotesLen {
		return fmt.Errorf("%w: notes must be at most %d characters", domain.ErrValidation, maxNotesLen)
	}
	if _, err := domain.ParseCurrency(string(d.Currency)); err != nil {
		return err
	}
	if _, err := domain.NewInterval(d.Start, d.End); err != nil {
		return err
	}
	return nil
}

// validatePlan enforces the plan's own rules. Tag and destination names are
// checked separately by validateNames.
func validatePlan(p domain.Plan) error {
	if err := validateTitle(p.Title); err != nil {
		return err
	}
	if _, err := domain.ParseVisibility(string(p.Visibility)); err != nil {
		return err
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", domain.ErrValidation)
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end_date must not be before start_date", domain.ErrValidation)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("%w: title must be at most %d characters", domain.ErrValidation, maxTitleLen)
	}
	return nil
}

// validateNames rejects blank label names. Names are otherwise stored exactly
// as given.
func validateNames(kind domain.TagKind, names []string) error {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: %s names must not be blank", domain.ErrValidation, kind)
		}
	}
	return nil
}
