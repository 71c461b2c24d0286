package service

import (
	"context"
	"fmt"
	"io"

	"github.com/worktally/attendance-backend/internal/application/dispatcher"
	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"github.com/worktally/attendance-backend/internal/domain/event"
	"github.com/worktally/attendance-backend/pkg/utils"
)

// UploadService ingests spreadsheet exports: parse, classify, persist the
// raw payload untouched. Reconciliation happens later as a separate step so
// an operator can inspect what was ingested first.
type UploadService interface {
	Ingest(ctx context.Context, r io.Reader, fileName string, targetYear, targetMonth int, uploadedBy string) (*entity.RawUpload, error)
	Get(ctx context.Context, id int64) (*entity.RawUpload, error)
	List(ctx context.Context, limit, offset int) ([]*entity.RawUpload, error)
}

type uploadServiceImpl struct {
	parser     port.UploadParser
	uploadRepo port.UploadRepository
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewUploadService creates a new UploadService
func NewUploadService(parser port.UploadParser, uploadRepo port.UploadRepository, disp dispatcher.Dispatcher, logger Logger) UploadService {
	return &uploadServiceImpl{
		parser:     parser,
		uploadRepo: uploadRepo,
		dispatcher: disp,
		logger:     logger,
	}
}

// Ingest parses and stores one export file
func (s *uploadServiceImpl) Ingest(ctx context.Context, r io.Reader, fileName string, targetYear, targetMonth int, uploadedBy string) (*entity.RawUpload, error) {
	if targetYear != 0 || targetMonth != 0 {
		if err := utils.ValidateYearMonth(targetYear, targetMonth); err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
		}
	}

	upload, err := s.parser.Parse(r, fileName)
	if err != nil {
		s.logger.Error("Failed to parse upload", "file_name", fileName, "error", err)
		return nil, err
	}
	upload.UploadedBy = uploadedBy
	if targetYear != 0 {
		upload.TargetYear = &targetYear
		upload.TargetMonth = &targetMonth
	}

	if err := s.uploadRepo.Create(ctx, upload); err != nil {
		return nil, err
	}

	s.logger.Info("Upload ingested",
		"id", upload.ID, "file_name", fileName,
		"classification", upload.Classification.String(), "rows", upload.RowCount())

	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeUploadIngested, upload.ID, map[string]interface{}{
		"file_name":      fileName,
		"classification": upload.Classification.String(),
		"rows":           upload.RowCount(),
	}))

	return upload, nil
}

// Get retrieves an upload by ID
func (s *uploadServiceImpl) Get(ctx context.Context, id int64) (*entity.RawUpload, error) {
	return s.uploadRepo.GetByID(ctx, id)
}

// List retrieves uploads with pagination
func (s *uploadServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.RawUpload, error) {
	return s.uploadRepo.List(ctx, limit, offset)
}
