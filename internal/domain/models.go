package domain

import "time"

type PRStatus string

const (
	StatusOpen   PRStatus = "OPEN"
	StatusMerged PRStatus = "MERGED"
)

// MaxReviewers is the number of reviewers assigned to a freshly created
// pull request when the team has enough eligible members.
const MaxReviewers = 2

type Team struct {
	Name    string
	Members []User
}

// User belongs to exactly one team at a time; a team/add carrying an
// existing user_id moves the user to the new team.
type User struct {
	ID       string
	Username string
	TeamName string
	IsActive bool
}

type PullRequest struct {
	ID                string
	Name              string
	AuthorID          string
	Status            PRStatus
	AssignedReviewers []string
	CreatedAt         time.Time
	MergedAt          *time.Time
}

// Stats is a best-effort snapshot; the three counts are not read in a
// single transaction.
type Stats struct {
	TeamsCount int64
	UsersCount int64
	PRsCount   int64
}
