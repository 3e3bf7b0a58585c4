package service

import (
	"math/rand"

	"prmanager/internal/domain"
)

// eligibleReviewers returns the ids of active team members who may
// review a pull request authored by authorID.
func eligibleReviewers(members []domain.User, authorID string) []string {
	candidates := make([]string, 0, len(members))
	for _, member := range members {
		if member.ID == authorID {
			continue
		}
		if !member.IsActive {
			continue
		}
		candidates = append(candidates, member.ID)
	}
	return candidates
}

// replacementCandidates narrows the pool further for reassignment: the
// departing reviewer and everyone currently assigned are out, so the
// replacement is always a new face on the PR.
func replacementCandidates(members []domain.User, authorID, departingID string, assigned []string) []string {
	candidates := make([]string, 0, len(members))
	for _, member := range members {
		if member.ID == authorID || member.ID == departingID {
			continue
		}
		if !member.IsActive {
			continue
		}
		if contains(assigned, member.ID) {
			continue
		}
		candidates = append(candidates, member.ID)
	}
	return candidates
}

// pickRandom samples up to limit ids without replacement. Callers must
// treat the result as a set; no ordering is guaranteed.
func pickRandom(ids []string, limit int) []string {
	if len(ids) == 0 || limit <= 0 {
		return nil
	}

	shuffled := append([]string(nil), ids...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if len(shuffled) < limit {
		limit = len(shuffled)
	}
	return shuffled[:limit]
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
