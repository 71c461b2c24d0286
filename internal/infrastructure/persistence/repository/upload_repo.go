package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"go.uber.org/zap"
)

// UploadRepository implements port.UploadRepository. The parsed row payload
// is stored as a JSON blob; uploads are immutable once created.
type UploadRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUploadRepository creates a new upload repository
func NewUploadRepository(db *sql.DB, logger *zap.Logger) port.UploadRepository {
	return &UploadRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new upload
func (r *UploadRepository) Create(ctx context.Context, upload *entity.RawUpload) error {
	payload, err := json.Marshal(upload.RowsByBadgeKey)
	if err != nil {
		return fmt.Errorf("failed to encode upload rows: %w", err)
	}

	query := `
		INSERT INTO uploads (file_name, classification, rows_payload, target_year, target_month, uploaded_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := pickExecutor(ctx, r.db).ExecContext(ctx, query,
		upload.FileName,
		upload.Classification.String(),
		string(payload),
		upload.TargetYear,
		upload.TargetMonth,
		upload.UploadedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create upload", zap.Error(err))
		return fmt.Errorf("failed to create upload: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	upload.ID = id
	return nil
}

// GetByID retrieves an upload with its parsed rows
func (r *UploadRepository) GetByID(ctx context.Context, id int64) (*entity.RawUpload, error) {
	query := `
		SELECT id, file_name, classification, rows_payload, target_year, target_month, uploaded_by, created_at
		FROM uploads WHERE id = ?
	`

	var upload entity.RawUpload
	var classification, payload string
	err := pickExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&upload.ID,
		&upload.FileName,
		&classification,
		&payload,
		&upload.TargetYear,
		&upload.TargetMonth,
		&upload.UploadedBy,
		&upload.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get upload", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	upload.Classification = entity.Classification(classification)
	if err := json.Unmarshal([]byte(payload), &upload.RowsByBadgeKey); err != nil {
		return nil, fmt.Errorf("failed to decode upload rows: %w", err)
	}
	return &upload, nil
}

// List retrieves uploads with pagination, newest first, without row payloads
func (r *UploadRepository) List(ctx context.Context, limit, offset int) ([]*entity.RawUpload, error) {
	query := `
		SELECT id, file_name, classification, target_year, target_month, uploaded_by, created_at
		FROM uploads ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?
	`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list uploads", zap.Error(err))
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*entity.RawUpload
	for rows.Next() {
		var upload entity.RawUpload
		var classification string
		err := rows.Scan(
			&upload.ID,
			&upload.FileName,
			&classification,
			&upload.TargetYear,
			&upload.TargetMonth,
			&upload.UploadedBy,
			&upload.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		upload.Classification = entity.Classification(classification)
		uploads = append(uploads, &upload)
	}
	return uploads, rows.Err()
}

// Verify interface compliance
var _ port.UploadRepository = (*UploadRepository)(nil)
