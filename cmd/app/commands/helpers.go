// Package commands contains CLI command implementations for the application.
package commands

import (
	"io"
	"os"

	"github.com/urbanfleet/fleetcore/internal/authz"
	userDomain "github.com/urbanfleet/fleetcore/internal/user/domain"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// ownerActor is the identity the plumbing commands run as. The commands
// require filesystem access to the database and key file, which is the same
// trust level as the Owner account.
func ownerActor() authz.Actor {
	return authz.Actor{Username: userDomain.OwnerUsername, Role: authz.RoleOwner}
}
