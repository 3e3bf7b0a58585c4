package domain

import "errors"

var (
	ErrTeamExists          = errors.New("team already exists")
	ErrTeamNotFound        = errors.New("team not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrPullRequestNotFound = errors.New("pull request not found")
	ErrPRExists            = errors.New("pull request already exists")
	ErrPRMerged            = errors.New("pull request already merged")
	ErrNotAssigned         = errors.New("reviewer is not assigned to this pull request")
	ErrNoCandidate         = errors.New("no eligible replacement candidate in team")
)
