package service

import "distribuidora/internal/model"

// Actor identifies the authenticated user on whose behalf an operation runs.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func (a Actor) ref() *uint {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}
