// Package policy holds the access rules for projects and tasks. Every function
// is a pure decision over the current aggregate state and the acting user.
package policy

import (
	"github.com/google/uuid"

	"taskhub/internal/model"
)

// CanReadProject: owner or any member.
func CanReadProject(p *model.Project, userID uuid.UUID) bool {
	if p.IsOwner(userID) {
		return true
	}
	_, ok := p.MemberRole(userID)
	return ok
}

// CanWriteProject: owner or admin member. Plain members and viewers are denied.
func CanWriteProject(p *model.Project, userID uuid.UUID) bool {
	if p.IsOwner(userID) {
		return true
	}
	role, ok := p.MemberRole(userID)
	return ok && role == model.RoleAdmin
}

// CanManageMembers gates adding members: owner or admin.
func CanManageMembers(p *model.Project, userID uuid.UUID) bool {
	return CanWriteProject(p, userID)
}

// CanRemoveMembers is owner-only; adding and removing are deliberately asymmetric.
func CanRemoveMembers(p *model.Project, userID uuid.UUID) bool {
	return p.IsOwner(userID)
}

// CanDeleteProject is owner-only.
func CanDeleteProject(p *model.Project, userID uuid.UUID) bool {
	return p.IsOwner(userID)
}

// CanCreateTaskInProject: owner or a member of any role, viewers included.
func CanCreateTaskInProject(p *model.Project, userID uuid.UUID) bool {
	return CanReadProject(p, userID)
}

// CanDeleteTask: the task's creator or the owning project's owner.
func CanDeleteTask(t *model.Task, p *model.Project, userID uuid.UUID) bool {
	return t.CreatedBy == userID || p.IsOwner(userID)
}
