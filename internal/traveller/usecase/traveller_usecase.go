// Package usecase implements the traveller business logic and enforces the
// authorization policy on every operation.
package usecase

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/urbanfleet/fleetcore/internal/authz"
	"github.com/urbanfleet/fleetcore/internal/database"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/traveller/domain"
	appValidation "github.com/urbanfleet/fleetcore/internal/validation"
)

// TravellerInput contains the input data for registering or updating a
// traveller. Phone is the raw 8-digit subscriber number; the stored value is
// the normalized national format.
type TravellerInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Birthday    string `json:"birthday"`
	Gender      string `json:"gender"`
	StreetName  string `json:"street_name"`
	HouseNumber string `json:"house_number"`
	ZipCode     string `json:"zip_code"`
	City        string `json:"city"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	License     string `json:"license"`
}

// UseCase defines the interface for traveller business logic operations.
type UseCase interface {
	CreateTraveller(ctx context.Context, actor authz.Actor, input TravellerInput) (*domain.Traveller, error)
	GetTraveller(ctx context.Context, actor authz.Actor, id int64) (*domain.Traveller, error)
	ListTravellers(ctx context.Context, actor authz.Actor) ([]*domain.Traveller, error)
	SearchTravellers(ctx context.Context, actor authz.Actor, query string) ([]*domain.Traveller, error)
	UpdateTraveller(ctx context.Context, actor authz.Actor, id int64, input TravellerInput) (*domain.Traveller, error)
	DeleteTraveller(ctx context.Context, actor authz.Actor, id int64) error
}

// TravellerRepository interface defines traveller repository operations.
type TravellerRepository interface {
	Create(ctx context.Context, t *domain.Traveller) error
	GetByID(ctx context.Context, id int64) (*domain.Traveller, error)
	GetByLicense(ctx context.Context, license string) (*domain.Traveller, error)
	List(ctx context.Context) ([]*domain.Traveller, error)
	ExistsLicense(ctx context.Context, license string) (bool, error)
	Update(ctx context.Context, t *domain.Traveller) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// AuditRecorder records activity and suspicious entries. Recording is
// best-effort and never fails the calling operation.
type AuditRecorder interface {
	Activity(ctx context.Context, actor, description, detail string)
	Suspicious(ctx context.Context, actor, description, detail string)
}

// TravellerUseCase handles traveller-related business logic.
type TravellerUseCase struct {
	txManager     database.TxManager
	travellerRepo TravellerRepository
	audit         AuditRecorder
}

// NewTravellerUseCase creates a new TravellerUseCase.
func NewTravellerUseCase(
	txManager database.TxManager,
	travellerRepo TravellerRepository,
	audit AuditRecorder,
) UseCase {
	return &TravellerUseCase{
		txManager:     txManager,
		travellerRepo: travellerRepo,
		audit:         audit,
	}
}

func (uc *TravellerUseCase) validateInput(input TravellerInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.FirstName,
			validation.Required.Error("first name is required"),
			appValidation.PersonName,
		),
		validation.Field(&input.LastName,
			validation.Required.Error("last name is required"),
			appValidation.PersonName,
		),
		validation.Field(&input.Birthday,
			validation.Required.Error("birthday is required"),
			appValidation.ISODate,
		),
		validation.Field(&input.Gender,
			validation.Required.Error("gender is required"),
			validation.In(domain.GenderMale, domain.GenderFemale).Error("gender must be male or female"),
		),
		validation.Field(&input.StreetName,
			validation.Required.Error("street name is required"),
			appValidation.NotBlank,
			validation.Length(1, 100).Error("street name must be between 1 and 100 characters"),
		),
		validation.Field(&input.HouseNumber,
			validation.Required.Error("house number is required"),
			validation.Length(1, 10).Error("house number must be between 1 and 10 characters"),
		),
		validation.Field(&input.ZipCode,
			validation.Required.Error("zip code is required"),
			appValidation.ZipCode,
		),
		validation.Field(&input.City,
			validation.Required.Error("city is required"),
			appValidation.City,
		),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.Email,
		),
		validation.Field(&input.Phone,
			validation.Required.Error("phone is required"),
			appValidation.Phone,
		),
		validation.Field(&input.License,
			validation.Required.Error("driving licence is required"),
			appValidation.DrivingLicense,
		),
	)
	return appValidation.WrapValidationError(err)
}

// denied converts a negative authorization decision into a forbidden error.
func denied(decision authz.Decision) error {
	return apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
}

// reject audits a client failure as suspicious before surfacing it.
// Infrastructure errors pass through unrecorded.
func (uc *TravellerUseCase) reject(ctx context.Context, actor authz.Actor, description string, err error) error {
	if apperrors.Is(err, apperrors.ErrInvalidInput) ||
		apperrors.Is(err, apperrors.ErrConflict) ||
		apperrors.Is(err, apperrors.ErrNotFound) {
		uc.audit.Suspicious(ctx, actor.Username, description, err.Error())
	}
	return err
}

func (uc *TravellerUseCase) fromInput(input TravellerInput) *domain.Traveller {
	return &domain.Traveller{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Birthday:    input.Birthday,
		Gender:      input.Gender,
		StreetName:  strings.TrimSpace(input.StreetName),
		HouseNumber: strings.TrimSpace(input.HouseNumber),
		ZipCode:     input.ZipCode,
		City:        input.City,
		Email:       strings.TrimSpace(strings.ToLower(input.Email)),
		Phone:       appValidation.NormalizePhone(input.Phone),
		License:     strings.ToUpper(input.License),
	}
}

// CreateTraveller registers a new traveller.
func (uc *TravellerUseCase) CreateTraveller(ctx context.Context, actor authz.Actor, input TravellerInput) (*domain.Traveller, error) {
	decision := authz.CanPerform(actor, authz.ActionCreateTraveller, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied traveller registration", decision.Reason)
		return nil, denied(decision)
	}

	if err := uc.validateInput(input); err != nil {
		return nil, uc.reject(ctx, actor, "rejected traveller registration", err)
	}

	traveller := uc.fromInput(input)

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		exists, err := uc.travellerRepo.ExistsLicense(ctx, traveller.License)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrTravellerAlreadyExists
		}

		return uc.travellerRepo.Create(ctx, traveller)
	})
	if err != nil {
		return nil, uc.reject(ctx, actor, "rejected traveller registration", err)
	}

	uc.audit.Activity(ctx, actor.Username, "registered traveller",
		fmt.Sprintf("traveller_id=%d", traveller.ID))

	return traveller, nil
}

// GetTraveller retrieves a single traveller record.
func (uc *TravellerUseCase) GetTraveller(ctx context.Context, actor authz.Actor, id int64) (*domain.Traveller, error) {
	decision := authz.CanPerform(actor, authz.ActionViewTravellers, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied traveller lookup", decision.Reason)
		return nil, denied(decision)
	}

	return uc.travellerRepo.GetByID(ctx, id)
}

// ListTravellers returns all traveller records.
func (uc *TravellerUseCase) ListTravellers(ctx context.Context, actor authz.Actor) ([]*domain.Traveller, error) {
	decision := authz.CanPerform(actor, authz.ActionViewTravellers, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied traveller listing", decision.Reason)
		return nil, denied(decision)
	}

	return uc.travellerRepo.List(ctx)
}

// SearchTravellers filters travellers by a case-insensitive partial match on
// name, licence, city or email. Records are decrypted before matching, so the
// cost is linear in the number of travellers.
func (uc *TravellerUseCase) SearchTravellers(ctx context.Context, actor authz.Actor, query string) ([]*domain.Traveller, error) {
	decision := authz.CanPerform(actor, authz.ActionViewTravellers, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied traveller search", decision.Reason)
		return nil, denied(decision)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < 2 {
		return nil, uc.reject(ctx, actor, "rejected traveller search",
			apperrors.Wrap(apperrors.ErrInvalidInput, "search query must have at least 2 characters"))
	}

	travellers, err := uc.travellerRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*domain.Traveller, 0)
	for _, traveller := range travellers {
		if traveller.Corrupted {
			continue
		}
		haystack := strings.ToLower(strings.Join([]string{
			traveller.FirstName, traveller.LastName, traveller.License,
			traveller.City, traveller.Email,
		}, " "))
		if strings.Contains(haystack, query) {
			matches = append(matches, traveller)
		}
	}

	return matches, nil
}

// UpdateTraveller replaces the full traveller record.
func (uc *TravellerUseCase) UpdateTraveller(ctx context.Context, actor authz.Actor, id int64, input TravellerInput) (*domain.Traveller, error) {
	decision := authz.CanPerform(actor, authz.ActionUpdateTraveller, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied traveller update", decision.Reason)
		return nil, denied(decision)
	}

	if err := uc.validateInput(input); err != nil {
		return nil, uc.reject(ctx, actor, "rejected traveller update", err)
	}

	traveller := uc.fromInput(input)
	traveller.ID = id

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := uc.travellerRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		// A licence change must not collide with another traveller.
		if current.License != traveller.License {
			exists, err := uc.travellerRepo.ExistsLicense(ctx, traveller.License)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrTravellerAlreadyExists
			}
		}

		updated, err := uc.travellerRepo.Update(ctx, traveller)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrTravellerNotFound
		}

		return nil
	})
	if err != nil {
		return nil, uc.reject(ctx, actor, "rejected traveller update", err)
	}

	uc.audit.Activity(ctx, actor.Username, "updated traveller",
		fmt.Sprintf("traveller_id=%d", id))

	return traveller, nil
}

// DeleteTraveller removes a traveller record.
func (uc *TravellerUseCase) DeleteTraveller(ctx context.Context, actor authz.Actor, id int64) error {
	decision := authz.CanPerform(actor, authz.ActionDeleteTraveller, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied traveller deletion", decision.Reason)
		return denied(decision)
	}

	deleted, err := uc.travellerRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return uc.reject(ctx, actor, "rejected traveller deletion", domain.ErrTravellerNotFound)
	}

	uc.audit.Activity(ctx, actor.Username, "deleted traveller",
		fmt.Sprintf("traveller_id=%d", id))

	return nil
}
