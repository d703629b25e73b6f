package auth

import (
	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
)

// Actor is the authenticated caller threaded explicitly into every service call.
type Actor struct {
	ID   uuid.UUID
	Role enums.Role
}

// Require returns Unauthorized for an anonymous actor and Forbidden when the
// actor's role is not in roles.
func (a Actor) Require(roles ...enums.Role) error {
	if a.ID == uuid.Nil || !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	for _, role := range roles {
		if a.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted for this action")
}

func (a Actor) IsAdmin() bool    { return a.Role == enums.RoleAdmin }
func (a Actor) IsStaff() bool    { return a.Role == enums.RoleStaff }
func (a Actor) IsBorrower() bool { return a.Role == enums.RoleBorrower }

// IDPtr is handy for nullable actor columns such as staff_id.
func (a Actor) IDPtr() *uuid.UUID {
	id := a.ID
	return &id
}
