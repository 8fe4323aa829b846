package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// User Management API identifier patterns
var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
	productPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 _\-]*$`)
)

// ValidateEmail validates a user email address
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(email) > 254 {
		return fmt.Errorf("email length cannot exceed 254 characters, got %d", len(email))
	}

	if !emailPattern.MatchString(email) {
		return fmt.Errorf("email must be a valid address like user@example.com")
	}

	return nil
}

// ValidateCountry validates an ISO 3166-1 alpha-2 country code
func ValidateCountry(country string) error {
	if country == "" {
		return fmt.Errorf("country cannot be empty")
	}

	if !countryPattern.MatchString(country) {
		return fmt.Errorf("country must be a two-letter uppercase code like US or DE")
	}

	return nil
}

// ValidateProduct validates a product profile name
func ValidateProduct(product string) error {
	if product == "" {
		return fmt.Errorf("product cannot be empty")
	}

	if len(product) > 255 {
		return fmt.Errorf("product length cannot exceed 255 characters, got %d", len(product))
	}

	if !productPattern.MatchString(product) {
		return fmt.Errorf("product must start with a letter or number and contain only letters, numbers, spaces, hyphens, and underscores")
	}

	return nil
}

// ValidateGroup validates a user group name, which follows product rules
func ValidateGroup(group string) error {
	if err := ValidateProduct(group); err != nil {
		return fmt.Errorf("group %s", strings.TrimPrefix(err.Error(), "product "))
	}
	return nil
}
