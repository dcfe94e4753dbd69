package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urbanfleet/fleetcore/internal/authz"
	userUsecase "github.com/urbanfleet/fleetcore/internal/user/usecase"
)

// RunCreateAdmin bootstraps a staff account from the command line. A fresh
// deployment has only the fixed Owner identity; this creates the first
// administrator so the application flows can take over.
func RunCreateAdmin(
	ctx context.Context,
	userUseCase userUsecase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
	username, password, firstName, lastName, role string,
) error {
	var accountRole authz.Role
	switch role {
	case "administrator":
		accountRole = authz.RoleAdministrator
	case "operator":
		accountRole = authz.RoleOperator
	default:
		return fmt.Errorf("invalid role: %s (valid options: administrator, operator)", role)
	}

	user, err := userUseCase.CreateUser(ctx, ownerActor(), userUsecase.CreateUserInput{
		Username:  username,
		Password:  password,
		Role:      accountRole,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	logger.Info("account created",
		slog.Int64("id", user.ID),
		slog.String("role", string(user.Role)),
	)
	fmt.Fprintf(writer, "Created %s account %q (id %d)\n", user.Role, user.Username, user.ID)

	return nil
}
