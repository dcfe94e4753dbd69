// Package authz implements the central authorization engine. Every repository
// mutation or disclosure is gated by a CanPerform decision; the engine itself
// is a pure function with no storage access.
package authz

// Role is the three-tier staff role hierarchy. Owner strictly contains
// Administrator privileges, which strictly contain Operator privileges.
type Role string

const (
	RoleOwner         Role = "owner"
	RoleAdministrator Role = "administrator"
	RoleOperator      Role = "operator"
)

// Valid reports whether the role is one of the three known tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdministrator, RoleOperator:
		return true
	}
	return false
}

// Display returns the human-readable role name.
func (r Role) Display() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleAdministrator:
		return "Administrator"
	case RoleOperator:
		return "Operator"
	}
	return string(r)
}

// Action enumerates every privileged operation the engine decides on.
type Action string

const (
	ActionCreateAdmin    Action = "create-admin"
	ActionCreateOperator Action = "create-operator"
	ActionDeleteUser     Action = "delete-user"
	ActionResetPassword  Action = "reset-password"
	ActionUpdateProfile  Action = "update-profile"
	ActionViewUsers      Action = "view-users"

	ActionCreateTraveller Action = "create-traveller"
	ActionUpdateTraveller Action = "update-traveller"
	ActionDeleteTraveller Action = "delete-traveller"
	ActionViewTravellers  Action = "view-travellers"

	ActionCreateVehicle Action = "create-vehicle"
	ActionUpdateVehicle Action = "update-vehicle"
	ActionDeleteVehicle Action = "delete-vehicle"
	ActionViewVehicles  Action = "view-vehicles"
	// ActionUpdateVehicleTelemetry covers the restricted field subset:
	// state-of-charge, location, out-of-service flag, mileage and
	// last-maintenance-date. Identity, speed, capacity and SoC bounds are
	// covered by ActionUpdateVehicle only.
	ActionUpdateVehicleTelemetry Action = "update-vehicle-telemetry"

	ActionViewAuditLog        Action = "view-audit-log"
	ActionCreateBackup        Action = "create-backup"
	ActionRestoreBackup       Action = "restore-backup"
	ActionGenerateRestoreCode Action = "generate-restore-code"
	ActionRedeemRestoreCode   Action = "redeem-restore-code"
	ActionRevokeRestoreCode   Action = "revoke-restore-code"
)
