package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"prmanager/internal/config"
	"prmanager/internal/domain"
	"prmanager/internal/storage"
	"prmanager/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var _ storage.Repository = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := applyMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func applyMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Files)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) CreateTeam(ctx context.Context, team domain.Team) (domain.Team, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var name string
		err := tx.QueryRow(ctx, `SELECT name FROM teams WHERE name = $1`, team.Name).Scan(&name)
		if err == nil {
			return domain.ErrTeamExists
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		if _, err := tx.Exec(ctx, `INSERT INTO teams (name) VALUES ($1)`, team.Name); err != nil {
			return err
		}

		// Upsert keyed on user_id: a member known to another team is
		// moved here, keeping "one team per user" without a separate
		// membership table.
		for _, member := range team.Members {
			if _, err := tx.Exec(ctx, `
				INSERT INTO users (user_id, username, team_name, is_active)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_id) DO UPDATE
				SET username = EXCLUDED.username,
				    team_name = EXCLUDED.team_name,
				    is_active = EXCLUDED.is_active,
				    updated_at = NOW()
			`, member.ID, member.Username, team.Name, member.IsActive); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return domain.Team{}, translateError(err)
	}

	return s.GetTeam(ctx, team.Name)
}

func (s *Store) GetTeam(ctx context.Context, name string) (domain.Team, error) {
	var teamName string
	err := s.pool.QueryRow(ctx, `SELECT name FROM teams WHERE name = $1`, name).Scan(&teamName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Team{}, domain.ErrTeamNotFound
		}
		return domain.Team{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT user_id, username, is_active
		FROM users
		WHERE team_name = $1
		ORDER BY user_id`, name)
	if err != nil {
		return domain.Team{}, err
	}
	defer rows.Close()

	var members []domain.User
	for rows.Next() {
		var u domain.User
		u.TeamName = name
		if err := rows.Scan(&u.ID, &u.Username, &u.IsActive); err != nil {
			return domain.Team{}, err
		}
		members = append(members, u)
	}
	if rows.Err() != nil {
		return domain.Team{}, rows.Err()
	}

	return domain.Team{
		Name:    teamName,
		Members: members,
	}, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var user domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, username, team_name, is_active
		FROM users
		WHERE user_id = $1`, userID).Scan(&user.ID, &user.Username, &user.TeamName, &user.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *Store) ListUsersByTeam(ctx context.Context, teamName string) ([]domain.User, error) {
	var name string
	if err := s.pool.QueryRow(ctx, `SELECT name FROM teams WHERE name = $1`, teamName).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT user_id, username, team_name, is_active
		FROM users
		WHERE team_name = $1`, teamName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.TeamName, &user.IsActive); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

func (s *Store) SetUserActive(ctx context.Context, userID string, isActive bool) (domain.User, error) {
	var user domain.User
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE users
			SET is_active = $2,
			    updated_at = NOW()
			WHERE user_id = $1
			RETURNING user_id, username, team_name, is_active
		`, userID, isActive).Scan(&user.ID, &user.Username, &user.TeamName, &user.IsActive)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrUserNotFound
			}
			return err
		}

		if !isActive {
			return scrubReviewer(ctx, tx, userID)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Store) DeactivateUsers(ctx context.Context, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	var count int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE users
			SET is_active = FALSE,
			    updated_at = NOW()
			WHERE user_id = ANY($1)
			RETURNING user_id
		`, userIDs)
		if err != nil {
			return err
		}

		var deactivated []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			deactivated = append(deactivated, id)
		}
		rows.Close()
		if rows.Err() != nil {
			return rows.Err()
		}

		for _, id := range deactivated {
			if err := scrubReviewer(ctx, tx, id); err != nil {
				return err
			}
		}

		count = int64(len(deactivated))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// scrubReviewer drops the user from reviewer sets of open pull
// requests only; merged PRs keep their history.
func scrubReviewer(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM pull_request_reviewers r
		USING pull_requests pr
		WHERE r.pull_request_id = pr.pull_request_id
		  AND pr.status = 'OPEN'
		  AND r.reviewer_id = $1
	`, userID)
	return err
}

func (s *Store) CreatePullRequest(ctx context.Context, pr domain.PullRequest) (domain.PullRequest, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO pull_requests (pull_request_id, pull_request_name, author_id, status, created_at, merged_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, pr.ID, pr.Name, pr.AuthorID, string(pr.Status), pr.CreatedAt, pr.MergedAt)
		if err != nil {
			return err
		}

		for _, reviewer := range pr.AssignedReviewers {
			if _, err := tx.Exec(ctx, `
				INSERT INTO pull_request_reviewers (pull_request_id, reviewer_id)
				VALUES ($1, $2)
			`, pr.ID, reviewer); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.PullRequest{}, translateError(err)
	}

	return s.GetPullRequest(ctx, pr.ID)
}

func (s *Store) GetPullRequest(ctx context.Context, id string) (domain.PullRequest, error) {
	var pr domain.PullRequest
	var mergedAt sql.NullTime
	err := s.pool.QueryRow(ctx, `
		SELECT pull_request_id, pull_request_name, author_id, status, created_at, merged_at
		FROM pull_requests
		WHERE pull_request_id = $1
	`, id).Scan(&pr.ID, &pr.Name, &pr.AuthorID, &pr.Status, &pr.CreatedAt, &mergedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PullRequest{}, domain.ErrPullRequestNotFound
		}
		return domain.PullRequest{}, err
	}
	if mergedAt.Valid {
		pr.MergedAt = &mergedAt.Time
	}

	reviewers, err := s.listReviewers(ctx, id)
	if err != nil {
		return domain.PullRequest{}, err
	}
	pr.AssignedReviewers = reviewers

	return pr, nil
}

func (s *Store) listReviewers(ctx context.Context, prID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT reviewer_id
		FROM pull_request_reviewers
		WHERE pull_request_id = $1
		ORDER BY reviewer_id
	`, prID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviewers []string
	for rows.Next() {
		var reviewer string
		if err := rows.Scan(&reviewer); err != nil {
			return nil, err
		}
		reviewers = append(reviewers, reviewer)
	}
	return reviewers, rows.Err()
}

func (s *Store) MergePullRequest(ctx context.Context, id string) (domain.PullRequest, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		// Lock the row so a concurrent merge cannot stamp merged_at a
		// second time.
		var status string
		err := tx.QueryRow(ctx, `
			SELECT status FROM pull_requests WHERE pull_request_id = $1 FOR UPDATE
		`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrPullRequestNotFound
			}
			return err
		}

		if domain.PRStatus(status) == domain.StatusMerged {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE pull_requests
			SET status = $2, merged_at = NOW()
			WHERE pull_request_id = $1
		`, id, string(domain.StatusMerged))
		return err
	})
	if err != nil {
		return domain.PullRequest{}, err
	}

	return s.GetPullRequest(ctx, id)
}

func (s *Store) ReplaceReviewer(ctx context.Context, prID, oldUserID, newUserID string) (domain.PullRequest, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		// Re-check state under the row lock: the PR must still be open
		// and the departing reviewer still assigned, otherwise a
		// concurrent merge or reassign won the race.
		var status string
		err := tx.QueryRow(ctx, `
			SELECT status FROM pull_requests WHERE pull_request_id = $1 FOR UPDATE
		`, prID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrPullRequestNotFound
			}
			return err
		}
		if domain.PRStatus(status) == domain.StatusMerged {
			return domain.ErrPRMerged
		}

		tag, err := tx.Exec(ctx, `
			DELETE FROM pull_request_reviewers
			WHERE pull_request_id = $1 AND reviewer_id = $2
		`, prID, oldUserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotAssigned
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO pull_request_reviewers (pull_request_id, reviewer_id)
			VALUES ($1, $2)
		`, prID, newUserID)
		return err
	})
	if err != nil {
		return domain.PullRequest{}, err
	}

	return s.GetPullRequest(ctx, prID)
}

func (s *Store) ListPullRequestsByReviewer(ctx context.Context, userID string) ([]domain.PullRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pr.pull_request_id, pr.pull_request_name, pr.author_id, pr.status, pr.created_at, pr.merged_at
		FROM pull_requests pr
		JOIN pull_request_reviewers r ON r.pull_request_id = pr.pull_request_id
		WHERE r.reviewer_id = $1
		ORDER BY pr.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PullRequest
	for rows.Next() {
		var pr domain.PullRequest
		var mergedAt sql.NullTime
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.AuthorID, &pr.Status, &pr.CreatedAt, &mergedAt); err != nil {
			return nil, err
		}
		if mergedAt.Valid {
			pr.MergedAt = &mergedAt.Time
		}
		result = append(result, pr)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return result, nil
}

func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&stats.TeamsCount); err != nil {
		return domain.Stats{}, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.UsersCount); err != nil {
		return domain.Stats{}, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pull_requests`).Scan(&stats.PRsCount); err != nil {
		return domain.Stats{}, err
	}
	return stats, nil
}

func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			switch {
			case pgErr.ConstraintName == "teams_pkey":
				return domain.ErrTeamExists
			case pgErr.ConstraintName == "pull_requests_pkey":
				return domain.ErrPRExists
			}
		}
		if pgErr.Code == "23503" && pgErr.ConstraintName == "pull_requests_author_id_fkey" {
			return domain.ErrUserNotFound
		}
	}
	return err
}
