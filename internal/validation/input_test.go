package validation

import "testing"

func TestValidateEmail(t *testing.T) {
	validCases := []string{
		"user@example.com",
		"first.last@example.com",
		"user+tag@sub.example.co.uk",
		"user_name%x@example.io",
	}

	invalidCases := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@nodot",
		"user name@example.com",
	}

	for _, valid := range validCases {
		if err := ValidateEmail(valid); err != nil {
			t.Errorf("Expected %s to be valid, got error: %v", valid, err)
		}
	}

	for _, invalid := range invalidCases {
		if err := ValidateEmail(invalid); err == nil {
			t.Errorf("Expected %s to be invalid, but validation passed", invalid)
		}
	}
}

func TestValidateCountry(t *testing.T) {
	validCases := []string{"US", "DE", "JP", "GB"}

	invalidCases := []string{
		"",
		"usa",
		"us",
		"U",
		"USA",
		"1A",
	}

	for _, valid := range validCases {
		if err := ValidateCountry(valid); err != nil {
			t.Errorf("Expected %s to be valid country, got error: %v", valid, err)
		}
	}

	for _, invalid := range invalidCases {
		if err := ValidateCountry(invalid); err == nil {
			t.Errorf("Expected %s to be invalid country, but validation passed", invalid)
		}
	}
}

func TestValidateProduct(t *testing.T) {
	validCases := []string{
		"Photoshop",
		"Creative Cloud",
		"Premiere Pro",
		"XD",
		"after-effects_2024",
	}

	invalidCases := []string{
		"",
		" leading space",
		"-leading-hyphen",
		"product!name",
	}

	for _, valid := range validCases {
		if err := ValidateProduct(valid); err != nil {
			t.Errorf("Expected %s to be valid product, got error: %v", valid, err)
		}
	}

	for _, invalid := range invalidCases {
		if err := ValidateProduct(invalid); err == nil {
			t.Errorf("Expected %s to be invalid product, but validation passed", invalid)
		}
	}
}

func TestValidateGroup(t *testing.T) {
	if err := ValidateGroup("Design Team"); err != nil {
		t.Errorf("Expected valid group, got error: %v", err)
	}

	if err := ValidateGroup(""); err == nil {
		t.Error("Expected empty group to be invalid")
	}
}
