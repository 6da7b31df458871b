package handler

import "schoolpool/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Group        *GroupHandler
	Membership   *MembershipHandler
	Slot         *SlotHandler
	Week         *WeekHandler
	Preference   *PreferenceHandler
	Planning     *PlanningHandler
	Fairness     *FairnessHandler
	Swap         *SwapHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Group:        NewGroupHandler(svc.Group),
		Membership:   NewMembershipHandler(svc.Membership),
		Slot:         NewSlotHandler(svc.Slot),
		Week:         NewWeekHandler(svc.Week),
		Preference:   NewPreferenceHandler(svc.Preference, svc.CalendarImport),
		Planning:     NewPlanningHandler(svc.Planner),
		Fairness:     NewFairnessHandler(svc.Fairness),
		Swap:         NewSwapHandler(svc.Swap),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
