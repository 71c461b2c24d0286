// Package ingest parses human-exported attendance spreadsheets into the raw
// upload payload the reconciliation engine consumes.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"github.com/worktally/attendance-backend/pkg/utils"
)

// Badge-system and request-system exports are produced by different vendors;
// classification is detected from the header shape rather than the file name.
// Vendor header variants are mapped onto entity.Field* canonical keys.

// XLSXParser implements port.UploadParser for .xlsx exports
type XLSXParser struct {
	logger *zap.Logger
}

// NewXLSXParser creates a new spreadsheet parser
func NewXLSXParser(logger *zap.Logger) *XLSXParser {
	return &XLSXParser{logger: logger}
}

// Parse reads the first sheet, classifies it by header shape, and groups data
// rows by the badge-key column. Rows with an empty badge key are dropped.
func (p *XLSXParser) Parse(r io.Reader, fileName string) (*entity.RawUpload, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable spreadsheet: %v", entity.ErrInvalidInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet has no sheets", entity.ErrInvalidInput)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: spreadsheet has no data rows", entity.ErrInvalidInput)
	}

	headers := normalizeHeaders(rows[0])
	classification := classify(headers)

	badgeCol := indexOf(headers, entity.FieldBadgeKey)
	if badgeCol < 0 {
		return nil, fmt.Errorf("%w: missing %q column", entity.ErrInvalidInput, entity.FieldBadgeKey)
	}

	grouped := make(map[string][]entity.RawRow)
	dropped := 0
	for _, cells := range rows[1:] {
		var key string
		if badgeCol < len(cells) {
			key = strings.TrimSpace(cells[badgeCol])
		}
		if err := utils.ValidateBadgeKey(key); err != nil {
			dropped++
			continue
		}
		row := make(entity.RawRow, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(cells) {
				row[header] = strings.TrimSpace(cells[i])
			} else {
				row[header] = ""
			}
		}
		grouped[key] = append(grouped[key], row)
	}

	if dropped > 0 {
		p.logger.Warn("Dropped rows without a badge key",
			zap.String("file", fileName),
			zap.Int("dropped", dropped))
	}

	return &entity.RawUpload{
		FileName:       fileName,
		Classification: classification,
		RowsByBadgeKey: grouped,
	}, nil
}

func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		headers[i] = canonicalHeader(strings.TrimSpace(h))
	}
	return headers
}

// canonicalHeader maps vendor header variants onto the names the
// reconciliation engine looks up
func canonicalHeader(h string) string {
	switch strings.ToLower(h) {
	case "badge no", "badge no.", "badge number", "card no", "employee no":
		return entity.FieldBadgeKey
	case "name", "employee name":
		return entity.FieldName
	case "event time", "access time", "date/time", "datetime":
		return entity.FieldEventTime
	case "leave type", "attendance type", "request type":
		return entity.FieldLeaveType
	case "period", "date range", "leave period":
		return entity.FieldPeriod
	default:
		return h
	}
}

func classify(headers []string) entity.Classification {
	hasEventTime := indexOf(headers, entity.FieldEventTime) >= 0
	hasPeriod := indexOf(headers, entity.FieldPeriod) >= 0
	hasLeaveType := indexOf(headers, entity.FieldLeaveType) >= 0

	switch {
	case hasEventTime:
		return entity.ClassificationEventHistory
	case hasPeriod && hasLeaveType:
		return entity.ClassificationAttendanceRequest
	default:
		return entity.ClassificationOther
	}
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Verify interface compliance
var _ port.UploadParser = (*XLSXParser)(nil)
