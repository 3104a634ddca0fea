// Package journal 访客参观记录：位置变化写入 PostgreSQL，可导出为 xlsx。
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Visit 一次位置登记
type Visit struct {
	VisitID        string
	UserID         int
	LocationID     int
	ParentID       int
	LocationTypeID int
	Description    string
	VisitedAt      time.Time
}

// Repository 参观记录仓库
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRepository 创建参观记录仓库
func NewRepository(db *sql.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert 写入一条参观记录
func (r *Repository) Insert(ctx context.Context, v Visit) error {
	if v.VisitID == "" {
		return fmt.Errorf("visit_id is required")
	}

	query := `
		INSERT INTO guide_visits (
			visit_id, user_id, location_id, parent_id, location_type_id, description, visited_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (visit_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		v.VisitID,
		v.UserID,
		v.LocationID,
		sql.NullInt64{Int64: int64(v.ParentID), Valid: v.ParentID != 0},
		v.LocationTypeID,
		v.Description,
		v.VisitedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// ListByUser 按时间顺序列出某访客的参观记录
func (r *Repository) ListByUser(ctx context.Context, userID int, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `
		SELECT
			visit_id,
			user_id,
			location_id,
			parent_id,
			location_type_id,
			description,
			visited_at
		FROM guide_visits
		WHERE user_id = $1
		ORDER BY visited_at ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		var parentID sql.NullInt64
		if err := rows.Scan(
			&v.VisitID,
			&v.UserID,
			&v.LocationID,
			&parentID,
			&v.LocationTypeID,
			&v.Description,
			&v.VisitedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		if parentID.Valid {
			v.ParentID = int(parentID.Int64)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visits: %w", err)
	}
	return visits, nil
}
