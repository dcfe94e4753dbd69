// Package usecase implements the staff account business logic and enforces
// the authorization policy on every operation.
package usecase

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/urbanfleet/fleetcore/internal/authz"
	"github.com/urbanfleet/fleetcore/internal/database"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/user/domain"
	"github.com/urbanfleet/fleetcore/internal/user/service"
	appValidation "github.com/urbanfleet/fleetcore/internal/validation"
)

// CreateUserInput contains the input data for creating a staff account.
type CreateUserInput struct {
	Username  string     `json:"username"`
	Password  string     `json:"password"`
	Role      authz.Role `json:"role"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
}

// UpdateProfileInput contains the input data for a profile update.
type UpdateProfileInput struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ResetPasswordInput contains the input data for a password reset.
type ResetPasswordInput struct {
	UserID      int64  `json:"user_id"`
	NewPassword string `json:"new_password"`
}

// UseCase defines the interface for staff account business logic operations.
type UseCase interface {
	CreateUser(ctx context.Context, actor authz.Actor, input CreateUserInput) (*domain.UserAccount, error)
	GetUser(ctx context.Context, actor authz.Actor, id int64) (*domain.UserAccount, error)
	ListUsers(ctx context.Context, actor authz.Actor) ([]*domain.UserAccount, error)
	SearchUsers(ctx context.Context, actor authz.Actor, query string) ([]*domain.UserAccount, error)
	UpdateProfile(ctx context.Context, actor authz.Actor, input UpdateProfileInput) error
	ResetPassword(ctx context.Context, actor authz.Actor, input ResetPasswordInput) error
	DeleteUser(ctx context.Context, actor authz.Actor, id int64) error
}

// UserRepository interface defines staff account repository operations.
type UserRepository interface {
	Create(ctx context.Context, user *domain.UserAccount) error
	GetByID(ctx context.Context, id int64) (*domain.UserAccount, error)
	GetByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	List(ctx context.Context) ([]*domain.UserAccount, error)
	ExistsUsername(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, firstName, lastName string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// AuditRecorder records activity and suspicious entries. Recording is
// best-effort and never fails the calling operation.
type AuditRecorder interface {
	Activity(ctx context.Context, actor, description, detail string)
	Suspicious(ctx context.Context, actor, description, detail string)
}

// UserUseCase handles staff account business logic.
type UserUseCase struct {
	txManager   database.TxManager
	userRepo    UserRepository
	credentials service.CredentialService
	audit       AuditRecorder
}

// NewUserUseCase creates a new UserUseCase.
func NewUserUseCase(
	txManager database.TxManager,
	userRepo UserRepository,
	credentials service.CredentialService,
	audit AuditRecorder,
) UseCase {
	return &UserUseCase{
		txManager:   txManager,
		userRepo:    userRepo,
		credentials: credentials,
		audit:       audit,
	}
}

// PasswordPolicy is the strength requirement for staff passwords.
var PasswordPolicy = appValidation.PasswordStrength{
	MinLength:      12,
	MaxLength:      30,
	RequireUpper:   true,
	RequireLower:   true,
	RequireNumber:  true,
	RequireSpecial: true,
}

func (uc *UserUseCase) validateCreateUserInput(input CreateUserInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.Username,
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			PasswordPolicy,
		),
		validation.Field(&input.FirstName,
			validation.Required.Error("first name is required"),
			appValidation.PersonName,
		),
		validation.Field(&input.LastName,
			validation.Required.Error("last name is required"),
			appValidation.PersonName,
		),
	)
	return appValidation.WrapValidationError(err)
}

// createAction maps a target role onto the action required to create it.
func createAction(role authz.Role) (authz.Action, error) {
	switch role {
	case authz.RoleAdministrator:
		return authz.ActionCreateAdmin, nil
	case authz.RoleOperator:
		return authz.ActionCreateOperator, nil
	default:
		return "", domain.ErrInvalidRole
	}
}

// denied converts a negative authorization decision into a forbidden error.
func denied(decision authz.Decision) error {
	return apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
}

// reject audits a client failure as suspicious before surfacing it.
// Infrastructure errors pass through unrecorded.
func (uc *UserUseCase) reject(ctx context.Context, actor authz.Actor, description string, err error) error {
	if apperrors.Is(err, apperrors.ErrInvalidInput) ||
		apperrors.Is(err, apperrors.ErrConflict) ||
		apperrors.Is(err, apperrors.ErrNotFound) {
		uc.audit.Suspicious(ctx, actor.Username, description, err.Error())
	}
	return err
}

// CreateUser creates a new staff account. Only the Owner may create
// Administrators; Administrators may create Operators.
func (uc *UserUseCase) CreateUser(ctx context.Context, actor authz.Actor, input CreateUserInput) (*domain.UserAccount, error) {
	action, err := createAction(input.Role)
	if err != nil {
		return nil, uc.reject(ctx, actor, "rejected account creation", err)
	}

	decision := authz.CanPerform(actor, action, authz.Target{Role: input.Role})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied account creation", decision.Reason)
		return nil, denied(decision)
	}

	if err := uc.validateCreateUserInput(input); err != nil {
		return nil, uc.reject(ctx, actor, "rejected account creation", err)
	}

	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == domain.OwnerUsername {
		return nil, uc.reject(ctx, actor, "rejected account creation", domain.ErrReservedUsername)
	}

	hash, err := uc.credentials.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.UserAccount{
		Username:     username,
		Role:         input.Role,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hash,
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		exists, err := uc.userRepo.ExistsUsername(ctx, username)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrUserAlreadyExists
		}

		return uc.userRepo.Create(ctx, user)
	})
	if err != nil {
		return nil, uc.reject(ctx, actor, "rejected account creation", err)
	}

	uc.audit.Activity(ctx, actor.Username,
		fmt.Sprintf("created %s account", user.Role.Display()),
		fmt.Sprintf("username=%s", user.Username))

	return user, nil
}

// GetUser retrieves a single staff account. The actor must either be allowed
// to view the account list or be the account itself.
func (uc *UserUseCase) GetUser(ctx context.Context, actor authz.Actor, id int64) (*domain.UserAccount, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Username != user.Username {
		decision := authz.CanPerform(actor, authz.ActionViewUsers, user.Target())
		if !decision.Allowed {
			uc.audit.Suspicious(ctx, actor.Username, "denied account lookup", decision.Reason)
			return nil, denied(decision)
		}
	}

	user.PasswordHash = ""
	return user, nil
}

// ListUsers returns all staff accounts without credentials.
func (uc *UserUseCase) ListUsers(ctx context.Context, actor authz.Actor) ([]*domain.UserAccount, error) {
	decision := authz.CanPerform(actor, authz.ActionViewUsers, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied account listing", decision.Reason)
		return nil, denied(decision)
	}

	users, err := uc.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, user := range users {
		user.PasswordHash = ""
	}

	return users, nil
}

// SearchUsers filters accounts by a case-insensitive partial match on
// username or name. Matching happens after decryption, so the cost is linear
// in the number of accounts.
func (uc *UserUseCase) SearchUsers(ctx context.Context, actor authz.Actor, query string) ([]*domain.UserAccount, error) {
	decision := authz.CanPerform(actor, authz.ActionViewUsers, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied account search", decision.Reason)
		return nil, denied(decision)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < 2 {
		return nil, uc.reject(ctx, actor, "rejected account search",
			apperrors.Wrap(apperrors.ErrInvalidInput, "search query must have at least 2 characters"))
	}

	users, err := uc.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*domain.UserAccount, 0)
	for _, user := range users {
		if user.Corrupted {
			continue
		}
		haystack := strings.ToLower(user.Username + " " + user.FirstName + " " + user.LastName)
		if strings.Contains(haystack, query) {
			user.PasswordHash = ""
			matches = append(matches, user)
		}
	}

	return matches, nil
}

// UpdateProfile updates the name fields of an account. Staff may update their
// own profile; the Owner may update anyone's.
func (uc *UserUseCase) UpdateProfile(ctx context.Context, actor authz.Actor, input UpdateProfileInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.FirstName,
			validation.Required.Error("first name is required"),
			appValidation.PersonName,
		),
		validation.Field(&input.LastName,
			validation.Required.Error("last name is required"),
			appValidation.PersonName,
		),
	)
	if err := appValidation.WrapValidationError(err); err != nil {
		return uc.reject(ctx, actor, "rejected profile update", err)
	}

	user, err := uc.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return uc.reject(ctx, actor, "rejected profile update", err)
	}

	decision := authz.CanPerform(actor, authz.ActionUpdateProfile, user.Target())
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied profile update", decision.Reason)
		return denied(decision)
	}

	updated, err := uc.userRepo.UpdateProfile(ctx, input.UserID,
		strings.TrimSpace(input.FirstName), strings.TrimSpace(input.LastName))
	if err != nil {
		return err
	}
	if !updated {
		return uc.reject(ctx, actor, "rejected profile update", domain.ErrUserNotFound)
	}

	uc.audit.Activity(ctx, actor.Username, "updated profile",
		fmt.Sprintf("username=%s", user.Username))
	return nil
}

// ResetPassword replaces an account's credential. Administrators may reset
// their own password, the Owner may reset anyone's.
func (uc *UserUseCase) ResetPassword(ctx context.Context, actor authz.Actor, input ResetPasswordInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.NewPassword,
			validation.Required.Error("password is required"),
			PasswordPolicy,
		),
	)
	if err := appValidation.WrapValidationError(err); err != nil {
		return uc.reject(ctx, actor, "rejected password reset", err)
	}

	user, err := uc.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return uc.reject(ctx, actor, "rejected password reset", err)
	}

	decision := authz.CanPerform(actor, authz.ActionResetPassword, user.Target())
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied password reset", decision.Reason)
		return denied(decision)
	}

	hash, err := uc.credentials.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	updated, err := uc.userRepo.UpdatePassword(ctx, input.UserID, hash)
	if err != nil {
		return err
	}
	if !updated {
		return uc.reject(ctx, actor, "rejected password reset", domain.ErrUserNotFound)
	}

	uc.audit.Activity(ctx, actor.Username, "reset password",
		fmt.Sprintf("username=%s", user.Username))
	return nil
}

// DeleteUser removes a staff account. The Owner may delete anyone,
// Administrators may delete Operators. Nobody deletes themselves.
func (uc *UserUseCase) DeleteUser(ctx context.Context, actor authz.Actor, id int64) error {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return uc.reject(ctx, actor, "rejected account deletion", err)
	}

	if actor.Username == user.Username {
		uc.audit.Suspicious(ctx, actor.Username, "denied account deletion", "accounts cannot delete themselves")
		return apperrors.Wrap(apperrors.ErrForbidden, "accounts cannot delete themselves")
	}

	decision := authz.CanPerform(actor, authz.ActionDeleteUser, user.Target())
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied account deletion", decision.Reason)
		return denied(decision)
	}

	deleted, err := uc.userRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return uc.reject(ctx, actor, "rejected account deletion", domain.ErrUserNotFound)
	}

	uc.audit.Activity(ctx, actor.Username,
		fmt.Sprintf("deleted %s account", user.Role.Display()),
		fmt.Sprintf("username=%s", user.Username))
	return nil
}
