package validation

import (
	"regexp"
	"strings"

	"github.com/kjstillabower/user-weather-service/internal/apperror"
)

// ErrZipCodeEmpty is returned when the zip code is empty or whitespace-only.
var ErrZipCodeEmpty = apperror.New(apperror.InvalidInput, "Zip code cannot be null or empty")

// ErrZipCodeFormat is returned when the trimmed zip code is not ZIP or ZIP+4.
var ErrZipCodeFormat = apperror.New(apperror.InvalidInput, "Invalid zip code format. Expected format: 12345 or 12345-6789")

var zipCodePattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ValidateZipCode trims the input and checks it against 12345 or 12345-6789.
// Returns the trimmed zip code. Both errors are apperror.InvalidInput.
func ValidateZipCode(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrZipCodeEmpty
	}
	if !zipCodePattern.MatchString(s) {
		return "", ErrZipCodeFormat
	}
	return s, nil
}
