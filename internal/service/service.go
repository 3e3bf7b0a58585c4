package service

import (
	"context"
	"time"

	"prmanager/internal/domain"
	"prmanager/internal/storage"
)

type Service interface {
	CreateTeam(ctx context.Context, team domain.Team) (domain.Team, error)
	GetTeam(ctx context.Context, name string) (domain.Team, error)
	SetUserActive(ctx context.Context, userID string, isActive bool) (domain.User, error)
	MassDeactivate(ctx context.Context, userIDs []string) (int64, error)

	CreatePullRequest(ctx context.Context, pr domain.PullRequest) (domain.PullRequest, error)
	MergePullRequest(ctx context.Context, prID string) (domain.PullRequest, error)
	ReassignReviewer(ctx context.Context, prID, oldUserID string) (domain.PullRequest, string, error)
	ListUserReviews(ctx context.Context, userID string) ([]domain.PullRequest, error)

	Stats(ctx context.Context) (domain.Stats, error)
	Health(ctx context.Context) error
}

type ReviewerService struct {
	repo storage.Repository
}

func New(repo storage.Repository) *ReviewerService {
	return &ReviewerService{repo: repo}
}

func (s *ReviewerService) CreateTeam(ctx context.Context, team domain.Team) (domain.Team, error) {
	return s.repo.CreateTeam(ctx, team)
}

func (s *ReviewerService) GetTeam(ctx context.Context, name string) (domain.Team, error) {
	return s.repo.GetTeam(ctx, name)
}

// SetUserActive flips the flag; deactivation also removes the user from
// every open PR's reviewer set (the store does both in one
// transaction). No automatic backfill happens; an explicit reassign is
// required to restore reviewer coverage.
func (s *ReviewerService) SetUserActive(ctx context.Context, userID string, isActive bool) (domain.User, error) {
	return s.repo.SetUserActive(ctx, userID, isActive)
}

// MassDeactivate deactivates every listed user that exists. Unknown ids
// are skipped rather than failing the batch.
func (s *ReviewerService) MassDeactivate(ctx context.Context, userIDs []string) (int64, error) {
	return s.repo.DeactivateUsers(ctx, userIDs)
}

func (s *ReviewerService) CreatePullRequest(ctx context.Context, pr domain.PullRequest) (domain.PullRequest, error) {
	author, err := s.repo.GetUser(ctx, pr.AuthorID)
	if err != nil {
		return domain.PullRequest{}, err
	}

	members, err := s.repo.ListUsersByTeam(ctx, author.TeamName)
	if err != nil {
		return domain.PullRequest{}, err
	}

	// Zero candidates is fine: the PR opens without reviewers.
	candidates := eligibleReviewers(members, pr.AuthorID)
	pr.AssignedReviewers = pickRandom(candidates, domain.MaxReviewers)
	pr.Status = domain.StatusOpen
	pr.CreatedAt = time.Now().UTC()

	return s.repo.CreatePullRequest(ctx, pr)
}

func (s *ReviewerService) MergePullRequest(ctx context.Context, prID string) (domain.PullRequest, error) {
	// Idempotence lives in the store: the first call stamps merged_at
	// under a row lock, later calls return the stored row untouched.
	return s.repo.MergePullRequest(ctx, prID)
}

func (s *ReviewerService) ReassignReviewer(ctx context.Context, prID, oldUserID string) (domain.PullRequest, string, error) {
	pr, err := s.repo.GetPullRequest(ctx, prID)
	if err != nil {
		return domain.PullRequest{}, "", err
	}

	if pr.Status == domain.StatusMerged {
		return domain.PullRequest{}, "", domain.ErrPRMerged
	}
	if !contains(pr.AssignedReviewers, oldUserID) {
		return domain.PullRequest{}, "", domain.ErrNotAssigned
	}

	author, err := s.repo.GetUser(ctx, pr.AuthorID)
	if err != nil {
		return domain.PullRequest{}, "", err
	}

	members, err := s.repo.ListUsersByTeam(ctx, author.TeamName)
	if err != nil {
		return domain.PullRequest{}, "", err
	}

	candidates := replacementCandidates(members, pr.AuthorID, oldUserID, pr.AssignedReviewers)
	if len(candidates) == 0 {
		return domain.PullRequest{}, "", domain.ErrNoCandidate
	}

	replacement := pickRandom(candidates, 1)[0]
	updatedPR, err := s.repo.ReplaceReviewer(ctx, prID, oldUserID, replacement)
	if err != nil {
		return domain.PullRequest{}, "", err
	}

	return updatedPR, replacement, nil
}

func (s *ReviewerService) ListUserReviews(ctx context.Context, userID string) ([]domain.PullRequest, error) {
	return s.repo.ListPullRequestsByReviewer(ctx, userID)
}

func (s *ReviewerService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *ReviewerService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}
