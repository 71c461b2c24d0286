package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/worktally/attendance-backend/internal/application/dispatcher"
	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"github.com/worktally/attendance-backend/internal/domain/event"
	"github.com/worktally/attendance-backend/internal/domain/workflow"
	"github.com/worktally/attendance-backend/pkg/utils"
)

// SnapshotList is the result of a snapshot listing: the most recent parent,
// every parent for the scope, and the total count.
type SnapshotList struct {
	Latest     *entity.Snapshot   `json:"latest"`
	All        []*entity.Snapshot `json:"all"`
	TotalCount int                `json:"total_count"`
}

// AuthoritativeChild is one employee's winning snapshot child after
// tie-break selection, paired with its parent for provenance.
type AuthoritativeChild struct {
	Child  *entity.SnapshotChild `json:"child"`
	Parent *entity.Snapshot      `json:"parent"`
}

// SnapshotService captures monthly summary snapshots, drives their approval
// lifecycle, and selects the authoritative child when several snapshots
// cover the same employee and period.
type SnapshotService interface {
	Capture(ctx context.Context, year, month int, departmentID int64, name, description, createdBy string) (*entity.Snapshot, error)
	Get(ctx context.Context, id int64) (*entity.Snapshot, error)
	GetChildren(ctx context.Context, id int64) ([]*entity.SnapshotChild, error)
	List(ctx context.Context, year, month int, departmentID int64) (*SnapshotList, error)
	Submit(ctx context.Context, id int64, performedBy string) error
	Approve(ctx context.Context, id int64, performedBy string) error
	Reject(ctx context.Context, id int64, performedBy string) error
	SelectAuthoritative(ctx context.Context, year, month int) (map[int64]AuthoritativeChild, error)
}

type snapshotServiceImpl struct {
	snapshotRepo   port.SnapshotRepository
	employeeRepo   port.EmployeeRepository
	typeRepo       port.AttendanceTypeRepository
	eventRepo      port.AccessEventRepository
	attendanceRepo port.UsedAttendanceRepository
	txManager      port.TransactionManager
	dispatcher     dispatcher.Dispatcher
	logger         Logger
}

// NewSnapshotService creates a new SnapshotService
func NewSnapshotService(
	snapshotRepo port.SnapshotRepository,
	employeeRepo port.EmployeeRepository,
	typeRepo port.AttendanceTypeRepository,
	eventRepo port.AccessEventRepository,
	attendanceRepo port.UsedAttendanceRepository,
	txManager port.TransactionManager,
	disp dispatcher.Dispatcher,
	logger Logger,
) SnapshotService {
	return &snapshotServiceImpl{
		snapshotRepo:   snapshotRepo,
		employeeRepo:   employeeRepo,
		typeRepo:       typeRepo,
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		txManager:      txManager,
		dispatcher:     disp,
		logger:         logger,
	}
}

// Capture computes every department employee's monthly summary from the
// current facts and stores parent plus children in one transaction. The new
// snapshot starts in DRAFT.
func (s *snapshotServiceImpl) Capture(ctx context.Context, year, month int, departmentID int64, name, description, createdBy string) (*entity.Snapshot, error) {
	if err := utils.ValidateYearMonth(year, month); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}
	if departmentID <= 0 {
		return nil, fmt.Errorf("%w: department id required", entity.ErrInvalidInput)
	}

	employees, err := s.employeeRepo.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, fmt.Errorf("%w: department %d has no active employees", entity.ErrInvalidInput, departmentID)
	}

	badgeKeys := make([]string, len(employees))
	employeeIDs := make([]int64, len(employees))
	for i, emp := range employees {
		badgeKeys[i] = emp.BadgeKey
		employeeIDs[i] = emp.ID
	}

	events, err := s.eventRepo.ListScoped(ctx, year, month, badgeKeys)
	if err != nil {
		return nil, err
	}
	attendances, err := s.attendanceRepo.ListScoped(ctx, year, month, employeeIDs)
	if err != nil {
		return nil, err
	}
	types, err := s.typeRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	typeNames := make(map[int64]string, len(types))
	for _, at := range types {
		typeNames[at.ID] = at.DisplayName
	}
	eventsByBadge := make(map[string][]entity.AccessEvent)
	for _, ev := range events {
		eventsByBadge[ev.BadgeKey] = append(eventsByBadge[ev.BadgeKey], ev)
	}
	attendancesByEmployee := make(map[int64][]entity.UsedAttendance)
	for _, ua := range attendances {
		attendancesByEmployee[ua.EmployeeID] = append(attendancesByEmployee[ua.EmployeeID], ua)
	}

	snapshot := &entity.Snapshot{
		Year:           year,
		Month:          month,
		DepartmentID:   departmentID,
		Name:           name,
		Description:    description,
		ApprovalStatus: entity.SnapshotStatusDraft,
		CreatedBy:      createdBy,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.snapshotRepo.Create(txCtx, snapshot); err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		for _, emp := range employees {
			summary := computeMonthlySummary(emp, year, month, eventsByBadge[emp.BadgeKey], attendancesByEmployee[emp.ID], typeNames)
			raw, err := json.Marshal(summary)
			if err != nil {
				return fmt.Errorf("marshal summary: %w", err)
			}
			child := &entity.SnapshotChild{
				SnapshotID: snapshot.ID,
				EmployeeID: emp.ID,
				Year:       year,
				Month:      month,
				Summary:    string(raw),
			}
			if err := s.snapshotRepo.CreateChild(txCtx, child); err != nil {
				return fmt.Errorf("create snapshot child: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Snapshot capture failed",
			"year", year, "month", month, "department_id", departmentID, "error", err)
		return nil, err
	}

	s.logger.Info("Snapshot captured",
		"id", snapshot.ID, "year", year, "month", month,
		"department_id", departmentID, "employees", len(employees))
	return snapshot, nil
}

// Get retrieves a snapshot by ID
func (s *snapshotServiceImpl) Get(ctx context.Context, id int64) (*entity.Snapshot, error) {
	return s.snapshotRepo.GetByID(ctx, id)
}

// GetChildren retrieves the per-employee children of a snapshot
func (s *snapshotServiceImpl) GetChildren(ctx context.Context, id int64) ([]*entity.SnapshotChild, error) {
	if _, err := s.snapshotRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.snapshotRepo.GetChildren(ctx, id)
}

// List returns all snapshots of a scope, newest first, plus the latest one
func (s *snapshotServiceImpl) List(ctx context.Context, year, month int, departmentID int64) (*SnapshotList, error) {
	if err := utils.ValidateYearMonth(year, month); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}

	all, err := s.snapshotRepo.List(ctx, year, month, departmentID)
	if err != nil {
		return nil, err
	}

	list := &SnapshotList{All: all, TotalCount: len(all)}
	if len(all) > 0 {
		list.Latest = all[0]
	}
	return list, nil
}

// Submit moves a snapshot into SUBMITTED, stamping the submission time the
// tie-break rule orders by. A rejected snapshot resubmits through the same
// call.
func (s *snapshotServiceImpl) Submit(ctx context.Context, id int64, performedBy string) error {
	snapshot, err := s.snapshotRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	children, err := s.snapshotRepo.GetChildren(ctx, id)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		return fmt.Errorf("%w: snapshot %d has no children", entity.ErrInvalidState, id)
	}

	machine := workflow.NewApprovalMachine(workflow.State(snapshot.ApprovalStatus))
	trigger := workflow.TriggerSubmit
	if !machine.CanFire(trigger) {
		trigger = workflow.TriggerResubmit
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		return fmt.Errorf("%w: cannot submit snapshot in state %s", entity.ErrInvalidState, snapshot.ApprovalStatus)
	}

	now := time.Now()
	if err := s.snapshotRepo.UpdateApproval(ctx, id, machine.State().String(), &now); err != nil {
		return err
	}

	s.logger.Info("Snapshot submitted", "id", id, "performed_by", performedBy)
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeSnapshotSubmitted, id, map[string]interface{}{
		"year":         snapshot.Year,
		"month":        snapshot.Month,
		"performed_by": performedBy,
	}))
	return nil
}

// Approve moves a submitted snapshot into its terminal APPROVED state
func (s *snapshotServiceImpl) Approve(ctx context.Context, id int64, performedBy string) error {
	return s.decide(ctx, id, performedBy, workflow.TriggerApprove, event.TypeSnapshotApproved)
}

// Reject moves a submitted snapshot into REJECTED; it may be resubmitted
func (s *snapshotServiceImpl) Reject(ctx context.Context, id int64, performedBy string) error {
	return s.decide(ctx, id, performedBy, workflow.TriggerReject, event.TypeSnapshotRejected)
}

func (s *snapshotServiceImpl) decide(ctx context.Context, id int64, performedBy string, trigger workflow.Trigger, eventType event.Type) error {
	snapshot, err := s.snapshotRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	machine := workflow.NewApprovalMachine(workflow.State(snapshot.ApprovalStatus))
	if err := machine.Fire(ctx, trigger); err != nil {
		return fmt.Errorf("%w: cannot %s snapshot in state %s", entity.ErrInvalidState, trigger, snapshot.ApprovalStatus)
	}

	if err := s.snapshotRepo.UpdateApproval(ctx, id, machine.State().String(), snapshot.SubmittedAt); err != nil {
		return err
	}

	s.logger.Info("Snapshot decision recorded",
		"id", id, "trigger", trigger.String(), "state", machine.State().String(), "performed_by", performedBy)
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(eventType, id, map[string]interface{}{
		"year":         snapshot.Year,
		"month":        snapshot.Month,
		"performed_by": performedBy,
	}))
	return nil
}

// SelectAuthoritative resolves, per employee, the winning child among every
// snapshot covering (year, month). Children whose parent is SUBMITTED with a
// submission time beat everything else, newest submission first; otherwise
// the child of the most recently created parent wins. The winner is derived
// from raw rows on every call, never cached.
func (s *snapshotServiceImpl) SelectAuthoritative(ctx context.Context, year, month int) (map[int64]AuthoritativeChild, error) {
	children, parents, err := s.snapshotRepo.GetChildrenForPeriod(ctx, year, month)
	if err != nil {
		return nil, err
	}

	winners := make(map[int64]AuthoritativeChild)
	for _, child := range children {
		parent := parents[child.SnapshotID]
		if parent == nil {
			continue
		}
		current, ok := winners[child.EmployeeID]
		if !ok || beats(parent, current.Parent) {
			winners[child.EmployeeID] = AuthoritativeChild{Child: child, Parent: parent}
		}
	}
	return winners, nil
}

// beats reports whether candidate outranks incumbent. Exact timestamp ties
// keep the incumbent, so the first-inserted row wins consistently.
func beats(candidate, incumbent *entity.Snapshot) bool {
	candSubmitted := candidate.ApprovalStatus == entity.SnapshotStatusSubmitted && candidate.SubmittedAt != nil
	incSubmitted := incumbent.ApprovalStatus == entity.SnapshotStatusSubmitted && incumbent.SubmittedAt != nil

	if candSubmitted != incSubmitted {
		return candSubmitted
	}
	if candSubmitted {
		return candidate.SubmittedAt.After(*incumbent.SubmittedAt)
	}
	return candidate.CreatedAt.After(incumbent.CreatedAt)
}
