package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/treefix50/showtracker/internal/server"
)

func (s *SQLiteStore) Create(ctx context.Context, in server.ShowInput) (server.Show, error) {
	if s == nil || s.db == nil {
		return server.Show{}, errNoConnection
	}

	show := server.Show{Name: in.Name, EpisodesSeen: in.EpisodesSeen}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO shows (name, episodes_seen)
		VALUES (?, ?)
		RETURNING id
	`, in.Name, in.EpisodesSeen).Scan(&show.ID)
	if err != nil {
		return server.Show{}, fmt.Errorf("storage: insert show: %w", err)
	}
	return show, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]server.Show, error) {
	if s == nil || s.db == nil {
		return nil, errNoConnection
	}
	return s.queryShows(ctx, `
		SELECT id, name, episodes_seen
		FROM shows
		ORDER BY id
	`)
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (server.Show, bool, error) {
	if s == nil || s.db == nil {
		return server.Show{}, false, errNoConnection
	}

	var show server.Show
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, episodes_seen
		FROM shows
		WHERE id = ?
	`, id).Scan(&show.ID, &show.Name, &show.EpisodesSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return server.Show{}, false, nil
		}
		return server.Show{}, false, fmt.Errorf("storage: get show %d: %w", id, err)
	}
	return show, true, nil
}

func (s *SQLiteStore) GetByEpisodes(ctx context.Context, minEpisodes int) ([]server.Show, error) {
	if s == nil || s.db == nil {
		return nil, errNoConnection
	}
	return s.queryShows(ctx, `
		SELECT id, name, episodes_seen
		FROM shows
		WHERE episodes_seen >= ?
		ORDER BY id
	`, minEpisodes)
}

func (s *SQLiteStore) UpdateByID(ctx context.Context, id int64, patch server.ShowPatch) (server.Show, bool, error) {
	if s == nil || s.db == nil {
		return server.Show{}, false, errNoConnection
	}

	var show server.Show
	err := s.db.QueryRowContext(ctx, `
		UPDATE shows SET
			name = COALESCE(?, name),
			episodes_seen = COALESCE(?, episodes_seen)
		WHERE id = ?
		RETURNING id, name, episodes_seen
	`, nullString(patch.Name), nullInt(patch.EpisodesSeen), id).Scan(&show.ID, &show.Name, &show.EpisodesSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return server.Show{}, false, nil
		}
		return server.Show{}, false, fmt.Errorf("storage: update show %d: %w", id, err)
	}
	return show, true, nil
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, errNoConnection
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("storage: delete show %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: delete show %d: %w", id, err)
	}
	return affected > 0, nil
}

func (s *SQLiteStore) queryShows(ctx context.Context, query string, args ...any) ([]server.Show, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query shows: %w", err)
	}
	defer rows.Close()

	shows := []server.Show{}
	for rows.Next() {
		var show server.Show
		if err := rows.Scan(&show.ID, &show.Name, &show.EpisodesSeen); err != nil {
			return nil, fmt.Errorf("storage: scan show: %w", err)
		}
		shows = append(shows, show)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: query shows: %w", err)
	}
	return shows, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
