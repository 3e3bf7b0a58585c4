package httptransport

import (
	"prmanager/internal/domain"
)

type teamRequest struct {
	TeamName string              `json:"team_name" validate:"required"`
	Members  []teamMemberRequest `json:"members" validate:"required,dive"`
}

type teamMemberRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username" validate:"required"`
	IsActive bool   `json:"is_active"`
}

func (t teamRequest) toDomain() domain.Team {
	members := make([]domain.User, 0, len(t.Members))
	for _, member := range t.Members {
		members = append(members, domain.User{
			ID:       member.UserID,
			Username: member.Username,
			TeamName: t.TeamName,
			IsActive: member.IsActive,
		})
	}

	return domain.Team{
		Name:    t.TeamName,
		Members: members,
	}
}

type setUserActiveRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	IsActive *bool  `json:"is_active" validate:"required"`
}

type massDeactivateRequest struct {
	UserIDs []string `json:"user_ids"`
}

type createPRRequest struct {
	ID       string `json:"pull_request_id" validate:"required"`
	Name     string `json:"pull_request_name" validate:"required"`
	AuthorID string `json:"author_id" validate:"required"`
}

type mergePRRequest struct {
	ID string `json:"pull_request_id" validate:"required"`
}

type reassignRequest struct {
	PullRequestID string `json:"pull_request_id" validate:"required"`
	OldUserID     string `json:"old_user_id" validate:"required"`
}
