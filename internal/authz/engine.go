package authz

import "fmt"

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	Username string
	Role     Role
}

// Target identifies the record an action is aimed at. For actions without a
// user target (vehicles, travellers, backups) the zero value is passed.
type Target struct {
	Username string
	Role     Role
}

// Decision is the outcome of an authorization check. Denial is an ordinary
// value, not an error: callers log it as suspicious and surface ErrForbidden
// at the API boundary.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the positive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny produces a negative decision carrying the required-vs-actual role
// context so audit entries can record it.
func Deny(actor Actor, action Action, reason string) Decision {
	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("%s denied for %s (%s): %s", action, actor.Username, actor.Role.Display(), reason),
	}
}

// CanPerform is the single source of truth for access control. It is consulted
// before every repository mutation or disclosure.
//
// An unknown actor role is an internal invariant violation, not a denial, and
// panics: roles are validated at account creation and session construction, so
// an unrecognized value here means programmer error.
func CanPerform(actor Actor, action Action, target Target) Decision {
	switch actor.Role {
	case RoleOwner:
		return ownerDecision(actor, action, target)
	case RoleAdministrator:
		return administratorDecision(actor, action, target)
	case RoleOperator:
		return operatorDecision(actor, action, target)
	}
	panic(fmt.Sprintf("authz: unknown actor role %q", actor.Role))
}

// ownerDecision: the Owner may perform every action on every target, except
// that the reserved Owner identity can never be deleted and never has its
// password reset through normal flows.
func ownerDecision(actor Actor, action Action, target Target) Decision {
	if target.Role == RoleOwner {
		switch action {
		case ActionDeleteUser:
			return Deny(actor, action, "the owner account cannot be deleted")
		case ActionResetPassword:
			return Deny(actor, action, "the owner password cannot be reset")
		}
	}
	return Allow()
}

// administratorDecision: administrators fully manage vehicles and travellers,
// manage Operator-role accounts, and update their own profile. They can never
// act on the Owner or on other administrators.
func administratorDecision(actor Actor, action Action, target Target) Decision {
	switch action {
	case ActionCreateOperator,
		ActionViewUsers,
		ActionCreateTraveller, ActionUpdateTraveller, ActionDeleteTraveller, ActionViewTravellers,
		ActionCreateVehicle, ActionUpdateVehicle, ActionDeleteVehicle, ActionViewVehicles,
		ActionUpdateVehicleTelemetry,
		ActionViewAuditLog,
		ActionCreateBackup,
		ActionRedeemRestoreCode:
		return Allow()

	case ActionCreateAdmin:
		return Deny(actor, action, "requires Owner, actor is Administrator")

	case ActionDeleteUser, ActionResetPassword:
		if target.Role == RoleOperator {
			return Allow()
		}
		if action == ActionResetPassword && target.Role == RoleAdministrator && target.Username == actor.Username {
			return Allow()
		}
		return Deny(actor, action, fmt.Sprintf("administrators may only act on Operator accounts, target is %s", target.Role.Display()))

	case ActionUpdateProfile:
		if target.Username == actor.Username || target.Role == RoleOperator {
			return Allow()
		}
		return Deny(actor, action, fmt.Sprintf("administrators may only update their own profile or Operator profiles, target is %s", target.Role.Display()))

	case ActionRestoreBackup, ActionGenerateRestoreCode, ActionRevokeRestoreCode:
		return Deny(actor, action, "requires Owner, actor is Administrator")
	}

	return Deny(actor, action, "action not permitted for Administrator")
}

// operatorDecision: operators update their own profile and password and the
// restricted vehicle telemetry subset, nothing else.
func operatorDecision(actor Actor, action Action, target Target) Decision {
	switch action {
	case ActionUpdateProfile, ActionResetPassword:
		if target.Username == actor.Username {
			return Allow()
		}
		return Deny(actor, action, "operators may only modify their own account")

	case ActionUpdateVehicleTelemetry, ActionViewVehicles:
		return Allow()

	case ActionUpdateVehicle:
		return Deny(actor, action, "operators may only update telemetry fields, requires Administrator")
	}

	return Deny(actor, action, "requires Administrator or Owner, actor is Operator")
}
