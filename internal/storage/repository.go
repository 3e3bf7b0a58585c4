package storage

import (
	"context"

	"prmanager/internal/domain"
)

// Repository is the persistence contract. Mutating methods that touch a
// pull request's reviewer set run inside a single transaction with the
// PR row locked, so concurrent merges and reassignments serialize per
// pull_request_id.
type Repository interface {
	CreateTeam(ctx context.Context, team domain.Team) (domain.Team, error)
	GetTeam(ctx context.Context, name string) (domain.Team, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
	ListUsersByTeam(ctx context.Context, teamName string) ([]domain.User, error)

	// SetUserActive flips the flag and, when deactivating, removes the
	// user from reviewer sets of OPEN pull requests in the same
	// transaction. Merged PRs keep their historical reviewer sets.
	SetUserActive(ctx context.Context, userID string, isActive bool) (domain.User, error)
	// DeactivateUsers deactivates every id that exists, skipping unknown
	// ids, and returns how many rows were touched.
	DeactivateUsers(ctx context.Context, userIDs []string) (int64, error)

	CreatePullRequest(ctx context.Context, pr domain.PullRequest) (domain.PullRequest, error)
	GetPullRequest(ctx context.Context, id string) (domain.PullRequest, error)
	// MergePullRequest stamps merged_at exactly once; repeated calls
	// return the stored row unchanged.
	MergePullRequest(ctx context.Context, id string) (domain.PullRequest, error)
	// ReplaceReviewer swaps oldUserID for newUserID atomically,
	// re-checking under the row lock that the PR is still open and the
	// old reviewer is still assigned.
	ReplaceReviewer(ctx context.Context, prID, oldUserID, newUserID string) (domain.PullRequest, error)
	ListPullRequestsByReviewer(ctx context.Context, userID string) ([]domain.PullRequest, error)

	Stats(ctx context.Context) (domain.Stats, error)
	Health(ctx context.Context) error
}
