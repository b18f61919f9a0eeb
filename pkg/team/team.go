// Package team implements component B's Team and UserTeam entities: team
// CRUD and membership management with a member/team_admin role pair.
package team

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles — spec.md §3.
const (
	RoleMember    = "member"
	RoleTeamAdmin = "team_admin"
)

// CreateRequest is the JSON body for POST /api/v1/teams.
type CreateRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// UpdateRequest is the JSON body for PUT /api/v1/teams/:id.
type UpdateRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// Response is the JSON response for a single team.
type Response struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddMemberRequest is the JSON body for POST /api/v1/teams/:id/members.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"required,oneof=member team_admin"`
}

// UpdateMemberRequest is the JSON body for PUT /api/v1/teams/:id/members/:userId.
type UpdateMemberRequest struct {
	Role string `json:"role" validate:"required,oneof=member team_admin"`
}

// MemberResponse is the JSON response for a team member.
type MemberResponse struct {
	TeamID   uuid.UUID `json:"team_id"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     string     `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func isValidRole(role string) bool {
	return role == RoleMember || role == RoleTeamAdmin
}
