// Package validation provides custom whitelist validation rules for the application.
package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.']{7,9}$`)
	zipCodeRegex  = regexp.MustCompile(`^\d{4}[A-Z]{2}$`)
	phoneRegex    = regexp.MustCompile(`^\d{8}$`)
	licenseRegex  = regexp.MustCompile(`^[A-Z]{1,2}\d{7,8}$`)
	serialRegex   = regexp.MustCompile(`^[a-zA-Z0-9]{10,17}$`)
	nameRegex     = regexp.MustCompile(`^[a-zA-Z\s\-']+$`)
	dateRegex     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Cities is the fixed whitelist of serviceable cities.
var Cities = []string{
	"Rotterdam", "Amsterdam", "The Hague", "Utrecht", "Eindhoven",
	"Groningen", "Tilburg", "Almere", "Breda", "Nijmegen",
}

// GPS bounding region for vehicle coordinates (greater Rotterdam).
const (
	LatitudeMin  = 51.8
	LatitudeMax  = 52.0
	LongitudeMin = 4.3
	LongitudeMax = 4.6
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Username validates staff account usernames: 8-10 characters, starting with a
// letter or underscore, containing only letters, digits, underscore, apostrophe
// and dot. Matching is case-insensitive; canonicalization to lower case happens
// before storage.
var Username = validation.NewStringRuleWithError(
	func(s string) bool {
		return usernameRegex.MatchString(s)
	},
	validation.NewError(
		"validation_username_format",
		"username must be 8-10 characters, start with a letter or underscore, and contain only letters, digits, underscore, apostrophe or dot",
	),
)

// ZipCode validates the 6-character postal code format DDDDXX.
var ZipCode = validation.NewStringRuleWithError(
	func(s string) bool {
		return zipCodeRegex.MatchString(s)
	},
	validation.NewError("validation_zip_code_format", "zip code must be 4 digits followed by 2 uppercase letters"),
)

// Phone validates the raw 8-digit national subscriber number. See
// NormalizePhone for the stored representation.
var Phone = validation.NewStringRuleWithError(
	func(s string) bool {
		return phoneRegex.MatchString(s)
	},
	validation.NewError("validation_phone_format", "phone must be exactly 8 digits"),
)

// DrivingLicense validates license numbers: one or two uppercase letters
// followed by enough digits to total nine characters.
var DrivingLicense = validation.NewStringRuleWithError(
	func(s string) bool {
		return licenseRegex.MatchString(s) && len(s) == 9
	},
	validation.NewError("validation_license_format", "driving license must be XXDDDDDDD or XDDDDDDDD"),
)

// SerialNumber validates vehicle serial numbers: 10-17 alphanumeric characters.
var SerialNumber = validation.NewStringRuleWithError(
	func(s string) bool {
		return serialRegex.MatchString(s)
	},
	validation.NewError("validation_serial_format", "serial number must be 10-17 alphanumeric characters"),
)

// PersonName validates person and product names: letters, spaces, hyphens and
// apostrophes, at most 50 characters.
var PersonName = validation.NewStringRuleWithError(
	func(s string) bool {
		return s != "" && len(s) <= 50 && nameRegex.MatchString(s)
	},
	validation.NewError(
		"validation_name_format",
		"must contain only letters, spaces, hyphens and apostrophes (max 50 characters)",
	),
)

// City validates membership of the fixed city whitelist.
var City = validation.NewStringRuleWithError(
	func(s string) bool {
		for _, city := range Cities {
			if s == city {
				return true
			}
		}
		return false
	},
	validation.NewError("validation_city", "city must be one of: "+strings.Join(Cities, ", ")),
)

// Email validates email format using regex.
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// ISODate validates a calendar date in YYYY-MM-DD form.
var ISODate = validation.NewStringRuleWithError(
	func(s string) bool {
		if !dateRegex.MatchString(s) {
			return false
		}
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	},
	validation.NewError("validation_date_format", "must be a valid date in YYYY-MM-DD format"),
)

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// NormalizePhone converts a validated 8-digit subscriber number to the fixed
// national mobile format used for storage.
func NormalizePhone(digits string) string {
	return "+31-6-" + digits
}

// PasswordStrength validates password meets minimum security requirements.
type PasswordStrength struct {
	MinLength      int
	MaxLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// Validate checks if the password meets the configured requirements.
func (p PasswordStrength) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_strength", "password must be a string")
	}

	if len(s) < p.MinLength || (p.MaxLength > 0 && len(s) > p.MaxLength) {
		return validation.NewError(
			"validation_password_length",
			"password length is outside the allowed range",
		)
	}

	if p.RequireUpper && !hasUpperCase(s) {
		return validation.NewError(
			"validation_password_uppercase",
			"password must contain at least one uppercase letter",
		)
	}

	if p.RequireLower && !hasLowerCase(s) {
		return validation.NewError(
			"validation_password_lowercase",
			"password must contain at least one lowercase letter",
		)
	}

	if p.RequireNumber && !hasNumber(s) {
		return validation.NewError("validation_password_number", "password must contain at least one number")
	}

	if p.RequireSpecial && !hasSpecialChar(s) {
		return validation.NewError(
			"validation_password_special",
			"password must contain at least one special character",
		)
	}

	return nil
}

func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func hasLowerCase(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func hasNumber(s string) bool {
	for _, r := range s {
		if unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

func hasSpecialChar(s string) bool {
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return true
		}
	}
	return false
}
