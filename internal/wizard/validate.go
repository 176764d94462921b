package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stuga-cloud/console/internal/domain"
)

// Validators take a pointer so that nil means the field was never touched;
// untouched fields are reported as valid.

// ValidateName checks the application name is a DNS label.
func ValidateName(v *string) error {
	if v == nil {
		return nil
	}
	if !domain.ValidApplicationName(*v) {
		return errors.New("name must contain only lowercase letters, digits and dashes, and start and end with a letter or digit")
	}
	return nil
}

// ValidateImage checks the image is a parseable reference.
func ValidateImage(v *string) error {
	if v == nil {
		return nil
	}
	if strings.TrimSpace(*v) == "" {
		return errors.New("image is required")
	}
	if _, err := domain.NormalizeImage(*v); err != nil {
		return fmt.Errorf("invalid image: %w", err)
	}
	return nil
}

// ValidatePort checks 1 <= port <= 65535.
func ValidatePort(v *int) error {
	if v == nil {
		return nil
	}
	if !domain.ValidPort(*v) {
		return fmt.Errorf("port must be between %d and %d", domain.MinPort, domain.MaxPort)
	}
	return nil
}

// ValidateReplicas checks 1 <= replicas <= 10.
func ValidateReplicas(v *int) error {
	if v == nil {
		return nil
	}
	if !domain.ValidReplicas(*v) {
		return fmt.Errorf("replicas must be between %d and %d", domain.MinReplicas, domain.MaxReplicas)
	}
	return nil
}

// ValidateThreshold checks a usage percentage is not negative.
func ValidateThreshold(v *int) error {
	if v == nil {
		return nil
	}
	if *v < 0 {
		return errors.New("threshold must be a positive percentage")
	}
	return nil
}

// ValidateEmail applies a basic address pattern.
func ValidateEmail(v *string) error {
	if v == nil {
		return nil
	}
	if !domain.ValidEmail(*v) {
		return errors.New("invalid email address")
	}
	return nil
}

// ParseNumber strips leading zeros then parses a decimal integer. Nothing
// left after stripping, including an input of only zeros, is not a number.
func ParseNumber(input string) (int, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(input), "0")
	if trimmed == "" {
		return 0, errors.New("a number is required")
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", input)
	}
	return n, nil
}
