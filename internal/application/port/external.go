package port

import (
	"context"
	"io"

	"github.com/worktally/attendance-backend/internal/domain/entity"
)

// MessageSender defines ops-channel message delivery (Lark in production).
// Implementations must be safe to call with a nil-op when messaging is
// disabled in configuration.
type MessageSender interface {
	SendText(ctx context.Context, receiveID string, content string) error
}

// UploadParser turns an exported spreadsheet into a RawUpload payload:
// rows grouped by the employee badge-key column, classification detected
// from the header shape.
type UploadParser interface {
	Parse(r io.Reader, fileName string) (*entity.RawUpload, error)
}
