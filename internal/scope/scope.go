// Package scope carries the resolved request identity. It is passed
// explicitly into every service call that needs authorization, instead of
// being read from ambient session state.
package scope

import (
	"github.com/google/uuid"

	"github.com/perpusda/sipus/internal/entity"
)

type Scope struct {
	UserID uuid.UUID
	Role   string
	RoomID *uuid.UUID
}

func (s Scope) IsSuperAdmin() bool {
	return s.Role == entity.RoleSuperAdmin
}

// CanAccessRoom reports whether the identity may mutate data owned by
// roomID. Super admins may touch everything; room admins only their room.
func (s Scope) CanAccessRoom(roomID *uuid.UUID) bool {
	if s.IsSuperAdmin() {
		return true
	}
	if s.RoomID == nil || roomID == nil {
		return false
	}
	return *s.RoomID == *roomID
}
