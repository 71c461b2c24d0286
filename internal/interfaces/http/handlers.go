package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/worktally/attendance-backend/internal/application/service"
	"github.com/worktally/attendance-backend/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	uploadService    service.UploadService
	reconcileService service.ReconcileService
	restoreService   service.RestoreService
	ledgerService    service.LedgerService
	snapshotService  service.SnapshotService
	reportService    service.ReportService
	logger           Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	uploadService service.UploadService,
	reconcileService service.ReconcileService,
	restoreService service.RestoreService,
	ledgerService service.LedgerService,
	snapshotService service.SnapshotService,
	reportService service.ReportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		uploadService:    uploadService,
		reconcileService: reconcileService,
		restoreService:   restoreService,
		ledgerService:    ledgerService,
		snapshotService:  snapshotService,
		reportService:    reportService,
		logger:           logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// UploadResponse represents an ingested upload in API responses
type UploadResponse struct {
	ID             int64  `json:"id"`
	FileName       string `json:"file_name"`
	Classification string `json:"classification"`
	RowCount       int    `json:"row_count"`
	TargetYear     *int   `json:"target_year,omitempty"`
	TargetMonth    *int   `json:"target_month,omitempty"`
	UploadedBy     string `json:"uploaded_by,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// ReconcileRequest represents the reconciliation request body
type ReconcileRequest struct {
	UploadID    int64   `json:"upload_id" binding:"required"`
	EmployeeIDs []int64 `json:"employee_ids"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	PerformedBy string  `json:"performed_by"`
}

// CaptureSnapshotRequest represents the snapshot capture request body
type CaptureSnapshotRequest struct {
	Year         int    `json:"year" binding:"required"`
	Month        int    `json:"month" binding:"required"`
	DepartmentID int64  `json:"department_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	CreatedBy    string `json:"created_by"`
}

// ActorRequest carries the acting user of a state-changing call
type ActorRequest struct {
	PerformedBy string `json:"performed_by"`
}

// respondError maps domain sentinel errors onto HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidState):
		status = http.StatusConflict
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// IngestUpload handles POST /api/v1/uploads
func (h *Handlers) IngestUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "file is required"})
		return
	}

	targetYear := 0
	targetMonth := 0
	if raw := c.PostForm("target_year"); raw != "" {
		targetYear, _ = strconv.Atoi(raw)
	}
	if raw := c.PostForm("target_month"); raw != "" {
		targetMonth, _ = strconv.Atoi(raw)
	}
	uploadedBy := c.PostForm("uploaded_by")

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "file_name", fileHeader.Filename, "error", err)
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unreadable file"})
		return
	}
	defer file.Close()

	upload, err := h.uploadService.Ingest(c.Request.Context(), file, fileHeader.Filename, targetYear, targetMonth, uploadedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toUploadResponse(upload)})
}

// ListUploads handles GET /api/v1/uploads
func (h *Handlers) ListUploads(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	uploads, err := h.uploadService.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	responses := make([]UploadResponse, 0, len(uploads))
	for _, u := range uploads {
		responses = append(responses, toUploadResponse(u))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: responses})
}

// GetUpload handles GET /api/v1/uploads/:id
func (h *Handlers) GetUpload(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	upload, err := h.uploadService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toUploadResponse(upload)})
}

// Reconcile handles POST /api/v1/reconciliations
func (h *Handlers) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	result, err := h.reconcileService.Reconcile(c.Request.Context(), service.ReconcileInput{
		UploadID:    req.UploadID,
		EmployeeIDs: req.EmployeeIDs,
		Year:        req.Year,
		Month:       req.Month,
		PerformedBy: req.PerformedBy,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListLedgerEntries handles GET /api/v1/ledger?upload_id=
func (h *Handlers) ListLedgerEntries(c *gin.Context) {
	uploadID, err := strconv.ParseInt(c.Query("upload_id"), 10, 64)
	if err != nil || uploadID <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "upload_id is required"})
		return
	}

	entries, err := h.ledgerService.ListByUpload(c.Request.Context(), uploadID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// GetLedgerEntry handles GET /api/v1/ledger/:id
func (h *Handlers) GetLedgerEntry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	entry, err := h.ledgerService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: entry})
}

// Restore handles POST /api/v1/ledger/:id/restore
func (h *Handlers) Restore(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req ActorRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.restoreService.Restore(c.Request.Context(), id, req.PerformedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// CaptureSnapshot handles POST /api/v1/snapshots
func (h *Handlers) CaptureSnapshot(c *gin.Context) {
	var req CaptureSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	snapshot, err := h.snapshotService.Capture(c.Request.Context(), req.Year, req.Month, req.DepartmentID, req.Name, req.Description, req.CreatedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: snapshot})
}

// ListSnapshots handles GET /api/v1/snapshots
func (h *Handlers) ListSnapshots(c *gin.Context) {
	year := queryInt(c, "year", 0)
	month := queryInt(c, "month", 0)
	departmentID := int64(queryInt(c, "department_id", 0))

	list, err := h.snapshotService.List(c.Request.Context(), year, month, departmentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: list})
}

// GetSnapshot handles GET /api/v1/snapshots/:id
func (h *Handlers) GetSnapshot(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	snapshot, err := h.snapshotService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: snapshot})
}

// GetSnapshotChildren handles GET /api/v1/snapshots/:id/children
func (h *Handlers) GetSnapshotChildren(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	children, err := h.snapshotService.GetChildren(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: children})
}

// SubmitSnapshot handles POST /api/v1/snapshots/:id/submit
func (h *Handlers) SubmitSnapshot(c *gin.Context) {
	h.decideSnapshot(c, h.snapshotService.Submit)
}

// ApproveSnapshot handles POST /api/v1/snapshots/:id/approve
func (h *Handlers) ApproveSnapshot(c *gin.Context) {
	h.decideSnapshot(c, h.snapshotService.Approve)
}

// RejectSnapshot handles POST /api/v1/snapshots/:id/reject
func (h *Handlers) RejectSnapshot(c *gin.Context) {
	h.decideSnapshot(c, h.snapshotService.Reject)
}

func (h *Handlers) decideSnapshot(c *gin.Context, fn func(ctx context.Context, id int64, performedBy string) error) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req ActorRequest
	_ = c.ShouldBindJSON(&req)

	if err := fn(c.Request.Context(), id, req.PerformedBy); err != nil {
		h.respondError(c, err)
		return
	}

	snapshot, err := h.snapshotService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: snapshot})
}

// MonthlyReport handles GET /api/v1/reports/monthly
func (h *Handlers) MonthlyReport(c *gin.Context) {
	year := queryInt(c, "year", 0)
	month := queryInt(c, "month", 0)

	report, err := h.reportService.Monthly(c.Request.Context(), year, month)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

func toUploadResponse(u *entity.RawUpload) UploadResponse {
	return UploadResponse{
		ID:             u.ID,
		FileName:       u.FileName,
		Classification: u.Classification.String(),
		RowCount:       u.RowCount(),
		TargetYear:     u.TargetYear,
		TargetMonth:    u.TargetMonth,
		UploadedBy:     u.UploadedBy,
		CreatedAt:      u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
