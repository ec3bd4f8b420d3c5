package pipeline

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/fincal"
)

var (
	// ErrHorizonTooShort is returned when no deposit fits in the horizon.
	ErrHorizonTooShort = errors.New("pipeline: horizon shorter than the minimum deposit")
	// ErrHorizonTooLong is returned when the horizon outlasts the rate sheet.
	ErrHorizonTooLong = errors.New("pipeline: horizon longer than the rate sheet covers")
)

// HorizonTooLongError reports how far a horizon can reach under the loaded
// rate sheet.
type HorizonTooLongError struct {
	Span   int
	Max    int
	Latest civil.Date
}

func (e *HorizonTooLongError) Error() string {
	return fmt.Sprintf("horizon spans %d financial days but rates cover at most %d; latest admissible end date is %s",
		e.Span, e.Max, e.Latest)
}

func (e *HorizonTooLongError) Unwrap() error { return ErrHorizonTooLong }

// ValidateHorizon checks that [start, end] spans at least the minimum deposit
// and, when maxDuration is positive, no more than the rate sheet covers.
func ValidateHorizon(start, end civil.Date, maxDuration int) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrHorizonTooShort, end, start)
	}
	span := fincal.DaysBetween(start, end)
	if span < fincal.MinInvestmentDays {
		return fmt.Errorf("%w: %d financial days, need %d", ErrHorizonTooShort, span, fincal.MinInvestmentDays)
	}
	if maxDuration > 0 && span > maxDuration {
		return &HorizonTooLongError{Span: span, Max: maxDuration, Latest: fincal.AddDays(start, maxDuration)}
	}
	return nil
}
