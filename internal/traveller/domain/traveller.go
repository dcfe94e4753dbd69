// Package domain defines the traveller entities and errors.
package domain

import (
	"time"

	"github.com/urbanfleet/fleetcore/internal/errors"
)

// Traveller genders accepted at registration.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Traveller is a registered customer of the fleet. All identifying fields are
// plaintext in memory only; at rest they are stored as randomized ciphertext,
// with the driving licence number additionally pseudonymized into a
// deterministic uniqueness token. Gender, zip code and city remain plaintext
// since they identify nobody on their own and carry the search indexes.
type Traveller struct {
	ID          int64
	FirstName   string
	LastName    string
	Birthday    string
	Gender      string
	StreetName  string
	HouseNumber string
	ZipCode     string
	City        string
	Email       string
	Phone       string
	License     string
	CreatedAt   time.Time

	// Corrupted marks a record whose ciphertext could not be decrypted with
	// the current master secret.
	Corrupted bool
}

// Domain-specific errors for traveller operations.
var (
	// ErrTravellerNotFound indicates the requested traveller does not exist.
	ErrTravellerNotFound = errors.Wrap(errors.ErrNotFound, "traveller not found")

	// ErrTravellerAlreadyExists indicates a traveller with the same driving
	// licence number is already registered.
	ErrTravellerAlreadyExists = errors.Wrap(errors.ErrConflict, "driving licence number already registered")
)
