package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prmanager/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService returns canned values so handler behavior can be checked
// without a database.
type stubService struct {
	team  domain.Team
	user  domain.User
	pr    domain.PullRequest
	prs   []domain.PullRequest
	stats domain.Stats
	count int64
	err   error
}

func (s *stubService) CreateTeam(context.Context, domain.Team) (domain.Team, error) {
	return s.team, s.err
}

func (s *stubService) GetTeam(context.Context, string) (domain.Team, error) {
	return s.team, s.err
}

func (s *stubService) SetUserActive(context.Context, string, bool) (domain.User, error) {
	return s.user, s.err
}

func (s *stubService) MassDeactivate(context.Context, []string) (int64, error) {
	return s.count, s.err
}

func (s *stubService) CreatePullRequest(context.Context, domain.PullRequest) (domain.PullRequest, error) {
	return s.pr, s.err
}

func (s *stubService) MergePullRequest(context.Context, string) (domain.PullRequest, error) {
	return s.pr, s.err
}

func (s *stubService) ReassignReviewer(context.Context, string, string) (domain.PullRequest, string, error) {
	return s.pr, "u-new", s.err
}

func (s *stubService) ListUserReviews(context.Context, string) ([]domain.PullRequest, error) {
	return s.prs, s.err
}

func (s *stubService) Stats(context.Context) (domain.Stats, error) {
	return s.stats, s.err
}

func (s *stubService) Health(context.Context) error {
	return s.err
}

func doRequest(t *testing.T, svc *stubService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	handler := NewHandler(svc, nil)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestCreateTeamResponses(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"team_name":"backend","members":[{"user_id":"u1","username":"Alice","is_active":true}]}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "duplicate",
			body:       `{"team_name":"backend","members":[{"user_id":"u1","username":"Alice","is_active":true}]}`,
			svcErr:     domain.ErrTeamExists,
			wantStatus: http.StatusBadRequest,
			wantCode:   "TEAM_EXISTS",
		},
		{
			name:       "missing team_name",
			body:       `{"members":[{"user_id":"u1","username":"Alice"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "malformed json",
			body:       `{"team_name":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{err: tc.svcErr, team: domain.Team{Name: "backend"}}
			rec := doRequest(t, svc, http.MethodPost, "/team/add", tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(t, rec))
			}
		})
	}
}

func TestGetTeamResponses(t *testing.T) {
	svc := &stubService{team: domain.Team{
		Name:    "backend",
		Members: []domain.User{{ID: "u1", Username: "Alice", IsActive: true}},
	}}

	rec := doRequest(t, svc, http.MethodGet, "/team/get?team_name=backend", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TeamName string `json:"team_name"`
		Members  []struct {
			UserID string `json:"user_id"`
		} `json:"members"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "backend", resp.TeamName)
	require.Len(t, resp.Members, 1)
	assert.Equal(t, "u1", resp.Members[0].UserID)

	rec = doRequest(t, svc, http.MethodGet, "/team/get", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc = &stubService{err: domain.ErrTeamNotFound}
	rec = doRequest(t, svc, http.MethodGet, "/team/get?team_name=ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestCreatePullRequestResponses(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"created", nil, http.StatusCreated, ""},
		{"author missing", domain.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"duplicate id", domain.ErrPRExists, http.StatusConflict, "PR_EXISTS"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				err: tc.svcErr,
				pr: domain.PullRequest{
					ID:                "pr-1",
					Name:              "Feature",
					AuthorID:          "u1",
					Status:            domain.StatusOpen,
					AssignedReviewers: []string{"u2", "u3"},
					CreatedAt:         now,
				},
			}
			rec := doRequest(t, svc, http.MethodPost, "/pullRequest/create",
				`{"pull_request_id":"pr-1","pull_request_name":"Feature","author_id":"u1"}`)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(t, rec))
			}
		})
	}
}

func TestMergePullRequestResponse(t *testing.T) {
	mergedAt := time.Now().UTC()
	svc := &stubService{pr: domain.PullRequest{
		ID:                "pr-1",
		Name:              "Feature",
		AuthorID:          "u1",
		Status:            domain.StatusMerged,
		AssignedReviewers: []string{"u2"},
		MergedAt:          &mergedAt,
	}}

	rec := doRequest(t, svc, http.MethodPost, "/pullRequest/merge", `{"pull_request_id":"pr-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		PR struct {
			Status   string  `json:"status"`
			MergedAt *string `json:"mergedAt"`
		} `json:"pr"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MERGED", resp.PR.Status)
	assert.NotNil(t, resp.PR.MergedAt)

	svc = &stubService{err: domain.ErrPullRequestNotFound}
	rec = doRequest(t, svc, http.MethodPost, "/pullRequest/merge", `{"pull_request_id":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestReassignResponses(t *testing.T) {
	cases := []struct {
		name       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"replaced", nil, http.StatusOK, ""},
		{"merged", domain.ErrPRMerged, http.StatusConflict, "PR_MERGED"},
		{"not assigned", domain.ErrNotAssigned, http.StatusConflict, "NOT_ASSIGNED"},
		{"no candidate", domain.ErrNoCandidate, http.StatusConflict, "NO_CANDIDATE"},
		{"unknown pr", domain.ErrPullRequestNotFound, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				err: tc.svcErr,
				pr: domain.PullRequest{
					ID:                "pr-1",
					Status:            domain.StatusOpen,
					AssignedReviewers: []string{"u-new", "u3"},
				},
			}
			rec := doRequest(t, svc, http.MethodPost, "/pullRequest/reassign",
				`{"pull_request_id":"pr-1","old_user_id":"u2"}`)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(t, rec))
				return
			}

			var resp struct {
				ReplacedBy string `json:"replaced_by"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "u-new", resp.ReplacedBy)
		})
	}
}

func TestSetUserActiveResponses(t *testing.T) {
	svc := &stubService{user: domain.User{ID: "u1", Username: "Alice", TeamName: "backend"}}

	rec := doRequest(t, svc, http.MethodPost, "/users/setIsActive", `{"user_id":"u1","is_active":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// is_active must be present, not defaulted.
	rec = doRequest(t, svc, http.MethodPost, "/users/setIsActive", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc = &stubService{err: domain.ErrUserNotFound}
	rec = doRequest(t, svc, http.MethodPost, "/users/setIsActive", `{"user_id":"ghost","is_active":false}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestMassDeactivateResponse(t *testing.T) {
	svc := &stubService{count: 3}

	rec := doRequest(t, svc, http.MethodPost, "/users/massDeactivate", `{"user_ids":["u1","u2","u3"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		DeactivatedCount int64 `json:"deactivated_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.DeactivatedCount)
}

func TestGetUserReviewsResponses(t *testing.T) {
	svc := &stubService{prs: []domain.PullRequest{
		{ID: "pr-1", Name: "Feature", AuthorID: "u1", Status: domain.StatusOpen},
	}}

	rec := doRequest(t, svc, http.MethodGet, "/users/getReview?user_id=u2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID       string `json:"user_id"`
		PullRequests []struct {
			ID string `json:"pull_request_id"`
		} `json:"pull_requests"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u2", resp.UserID)
	require.Len(t, resp.PullRequests, 1)
	assert.Equal(t, "pr-1", resp.PullRequests[0].ID)

	rec = doRequest(t, svc, http.MethodGet, "/users/getReview", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, rec))
}

func TestStatsResponse(t *testing.T) {
	svc := &stubService{stats: domain.Stats{TeamsCount: 2, UsersCount: 7, PRsCount: 4}}

	rec := doRequest(t, svc, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TeamsCount int64 `json:"teams_count"`
		UsersCount int64 `json:"users_count"`
		PRsCount   int64 `json:"prs_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.TeamsCount)
	assert.Equal(t, int64(7), resp.UsersCount)
	assert.Equal(t, int64(4), resp.PRsCount)
}

func TestPing(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
