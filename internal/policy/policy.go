// Package policy decides whether an actor may perform an operation on an
// account. Decisions are computed from the actor's admin flag and at most one
// membership lookup; a deny is a normal result, not an error.
package policy

import (
	"investment-ledger-go/internal/models"
)

type Operation string

const (
	ReadAccount       Operation = "read_account"
	WriteAccount      Operation = "write_account"
	CreateTransaction Operation = "create_transaction"
	ReadTransaction   Operation = "read_transaction"
	UpdateTransaction Operation = "update_transaction"
	DeleteTransaction Operation = "delete_transaction"
	ReadAggregate     Operation = "read_aggregate"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// MembershipSource resolves the role an actor holds on an account.
// found is false when no membership exists.
type MembershipSource interface {
	RoleFor(userID, accountID uint) (role models.Role, found bool, err error)
}

type Engine struct {
	memberships MembershipSource
}

func NewEngine(memberships MembershipSource) *Engine {
	return &Engine{memberships: memberships}
}

// Authorize evaluates the decision rules in precedence order. Rules that do
// not depend on membership short-circuit before the lookup, so each call hits
// the source at most once.
func (e *Engine) Authorize(actor *models.User, op Operation, accountID uint) (Decision, error) {
	if actor == nil {
		return deny("authentication required"), nil
	}

	if op == ReadAggregate {
		if actor.IsAdmin {
			return allow(), nil
		}
		return deny("administrator required"), nil
	}

	if actor.IsAdmin {
		return allow(), nil
	}

	role, found, err := e.memberships.RoleFor(actor.ID, accountID)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		return deny("not a member of account"), nil
	}

	switch op {
	case ReadAccount:
		// Any membership grants account-level visibility.
		return allow(), nil
	case WriteAccount:
		if role == models.RoleCrud {
			return allow(), nil
		}
		return deny("crud role required"), nil
	case CreateTransaction:
		if role == models.RolePost || role == models.RoleCrud {
			return allow(), nil
		}
		return deny("post or crud role required"), nil
	case ReadTransaction, UpdateTransaction, DeleteTransaction:
		if role == models.RoleCrud {
			return allow(), nil
		}
		return deny("crud role required"), nil
	}

	return deny("unknown operation"), nil
}
