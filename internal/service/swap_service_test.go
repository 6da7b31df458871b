package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"schoolpool/internal/dto"
	"schoolpool/internal/model"
)

func strPtr(s string) *string { return &s }

func setupSwap() (SwapService, *testRepos) {
	repos := newTestRepos()
	return NewSwapService(repos.toRepository(), zap.NewNop()), repos
}

func seedAssignment(r *testRepos, id, groupID, slotID, driverID string, weekStart, date time.Time) *model.Assignment {
	a := &model.Assignment{
		AssignmentID:     id,
		GroupID:          groupID,
		TemplateSlotID:   slotID,
		DriverID:         driverID,
		WeekStartDate:    weekStart,
		Date:             date,
		AssignmentMethod: model.MethodNeutral,
		Status:           "scheduled",
	}
	r.assignment.assignments = append(r.assignment.assignments, a)
	return a
}

func seedSwapWeek(r *testRepos, groupID string, weekStart, deadline time.Time) *model.Week {
	w := seedWeek(r, groupID, weekStart, "swaps_open")
	w.SwapsDeadline = &deadline
	return w
}

func seedPendingSwap(r *testRepos, id string, a *model.Assignment, requesterID string, targetID, proposedID *string, autoAcceptAt time.Time) *model.SwapRequest {
	s := &model.SwapRequest{
		SwapRequestID:    id,
		AssignmentID:     a.AssignmentID,
		RequesterID:      requesterID,
		TargetID:         targetID,
		ProposedDriverID: proposedID,
		Status:           model.SwapPending,
		AutoAcceptAt:     autoAcceptAt,
		Assignment:       a,
	}
	r.swapRequest.swaps[id] = s
	return s
}

// swapFixture 基础场景：三名可驾驶家长，u1 持有周一任务，换班窗口开放中
func swapFixture(repos *testRepos) (*model.Assignment, time.Time) {
	deadline := time.Now().Add(24 * time.Hour)
	seedGroup(repos, "g1", "admin1")
	seedSwapWeek(repos, "g1", testMonday, deadline)
	seedDriverMember(repos, "g1", "u1", "Alice", "f1")
	seedDriverMember(repos, "g1", "u2", "Bob", "f2")
	seedDriverMember(repos, "g1", "u3", "Carol", "f3")
	a := seedAssignment(repos, "a1", "g1", "s1", "u1", testMonday, testMonday)
	return a, deadline
}

// ── Create ──

func TestSwapCreateWindowClosed(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()

	seedGroup(repos, "g1", "admin1")
	seedWeek(repos, "g1", testMonday, "planning") // 窗口未开
	seedDriverMember(repos, "g1", "u1", "Alice", "f1")
	seedAssignment(repos, "a1", "g1", "s1", "u1", testMonday, testMonday)

	_, err := svc.Create(ctx, "g1", "u1", &dto.CreateSwapRequest{AssignmentID: "a1"})
	if !errors.Is(err, ErrSwapWindowClosed) {
		t.Errorf("期望 ErrSwapWindowClosed，实际=%v", err)
	}
}

func TestSwapCreateValidations(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)

	// 非任务司机亦非同家庭家长
	if _, err := svc.Create(ctx, "g1", "u2", &dto.CreateSwapRequest{AssignmentID: a.AssignmentID}); !errors.Is(err, ErrSwapNotAssignedDrv) {
		t.Errorf("期望 ErrSwapNotAssignedDrv，实际=%v", err)
	}

	// 向自己定向
	if _, err := svc.Create(ctx, "g1", "u1", &dto.CreateSwapRequest{AssignmentID: a.AssignmentID, TargetID: strPtr("u1")}); !errors.Is(err, ErrSwapSelfTarget) {
		t.Errorf("期望 ErrSwapSelfTarget，实际=%v", err)
	}

	// 目标不是可驾驶在册成员
	if _, err := svc.Create(ctx, "g1", "u1", &dto.CreateSwapRequest{AssignmentID: a.AssignmentID, TargetID: strPtr("u-out")}); !errors.Is(err, ErrSwapDriverIneligible) {
		t.Errorf("期望 ErrSwapDriverIneligible，实际=%v", err)
	}

	// 同任务唯一 pending
	seedPendingSwap(repos, "sw-dup", a, "u1", nil, nil, time.Now().Add(time.Hour))
	if _, err := svc.Create(ctx, "g1", "u1", &dto.CreateSwapRequest{AssignmentID: a.AssignmentID}); !errors.Is(err, ErrSwapDuplicate) {
		t.Errorf("期望 ErrSwapDuplicate，实际=%v", err)
	}
}

func TestSwapCreateTargeted(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, deadline := swapFixture(repos)

	resp, err := svc.Create(ctx, "g1", "u1", &dto.CreateSwapRequest{
		AssignmentID: a.AssignmentID,
		TargetID:     strPtr("u2"),
		Reason:       "临时出差",
	})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if resp.Status != model.SwapPending {
		t.Errorf("期望 status=pending，实际=%s", resp.Status)
	}
	if resp.AutoAcceptAt != deadline.Format(time.RFC3339) {
		t.Errorf("自动接受时间应为换班截止时间，实际=%s", resp.AutoAcceptAt)
	}

	// 定向目标应收到通知
	if len(repos.notification.notifications) != 1 || repos.notification.notifications[0].UserID != "u2" {
		t.Errorf("期望 u2 收到 1 条换班通知，实际=%d", len(repos.notification.notifications))
	}
}

// ── Respond ──

func TestSwapRespondAcceptTransfersAssignment(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	seedPendingSwap(repos, "sw1", a, "u1", strPtr("u2"), nil, time.Now().Add(time.Hour))

	resp, err := svc.Respond(ctx, "sw1", "u2", &dto.RespondSwapRequest{Accept: true})
	if err != nil {
		t.Fatalf("Respond 失败: %v", err)
	}
	if resp.Status != model.SwapAccepted {
		t.Errorf("期望 status=accepted，实际=%s", resp.Status)
	}
	if a.DriverID != "u2" {
		t.Errorf("任务司机应换为 u2，实际=%s", a.DriverID)
	}
	if a.AssignmentMethod != model.MethodSwap {
		t.Errorf("期望 method=swap，实际=%s", a.AssignmentMethod)
	}

	if len(repos.changeLog.logs) != 1 {
		t.Fatalf("期望 1 条任务变更记录，实际=%d", len(repos.changeLog.logs))
	}
	log := repos.changeLog.logs[0]
	if log.OriginalDriverID != "u1" || log.NewDriverID != "u2" || log.ChangeType != "swap" {
		t.Errorf("变更记录不符: %+v", log)
	}
}

func TestSwapRespondTargetedOnlyTarget(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	seedPendingSwap(repos, "sw1", a, "u1", strPtr("u2"), nil, time.Now().Add(time.Hour))

	if _, err := svc.Respond(ctx, "sw1", "u3", &dto.RespondSwapRequest{Accept: true}); !errors.Is(err, ErrSwapNotResponder) {
		t.Errorf("定向申请仅目标可响应，实际=%v", err)
	}
}

func TestSwapRespondOpenExcludesRequester(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	seedPendingSwap(repos, "sw1", a, "u1", nil, nil, time.Now().Add(time.Hour))

	if _, err := svc.Respond(ctx, "sw1", "u1", &dto.RespondSwapRequest{Accept: true}); !errors.Is(err, ErrSwapNotResponder) {
		t.Errorf("发起人不可响应自己的开放申请，实际=%v", err)
	}

	// 组外账号同样不可响应
	if _, err := svc.Respond(ctx, "sw1", "u-out", &dto.RespondSwapRequest{Accept: true}); !errors.Is(err, ErrSwapNotResponder) {
		t.Errorf("组外账号不可响应，实际=%v", err)
	}
}

func TestSwapRespondProposedDriverWins(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	// 指定了替补司机 u3，u2 接受后任务换给 u3 而非响应人
	seedPendingSwap(repos, "sw1", a, "u1", nil, strPtr("u3"), time.Now().Add(time.Hour))

	if _, err := svc.Respond(ctx, "sw1", "u2", &dto.RespondSwapRequest{Accept: true}); err != nil {
		t.Fatalf("Respond 失败: %v", err)
	}
	if a.DriverID != "u3" {
		t.Errorf("任务应换给替补司机 u3，实际=%s", a.DriverID)
	}
}

func TestSwapRespondDecline(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	seedPendingSwap(repos, "sw1", a, "u2", strPtr("u3"), nil, time.Now().Add(time.Hour))

	resp, err := svc.Respond(ctx, "sw1", "u3", &dto.RespondSwapRequest{Accept: false, Message: "那天没空"})
	if err != nil {
		t.Fatalf("Respond 失败: %v", err)
	}
	if resp.Status != model.SwapDeclined {
		t.Errorf("期望 status=declined，实际=%s", resp.Status)
	}
	if a.DriverID != "u1" {
		t.Errorf("拒绝后任务司机不应变化，实际=%s", a.DriverID)
	}
}

func TestSwapRespondExpiredLazyFinalize(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	sw := seedPendingSwap(repos, "sw1", a, "u1", strPtr("u2"), nil, time.Now().Add(-time.Minute))

	// 迟到的响应不被接受，申请按到期规则结算
	if _, err := svc.Respond(ctx, "sw1", "u2", &dto.RespondSwapRequest{Accept: false}); !errors.Is(err, ErrSwapTerminal) {
		t.Fatalf("期望 ErrSwapTerminal，实际=%v", err)
	}
	if sw.Status != model.SwapAutoAccepted {
		t.Errorf("到期定向申请应自动接受，实际=%s", sw.Status)
	}
	if a.DriverID != "u2" {
		t.Errorf("到期后任务应自动换给目标 u2，实际=%s", a.DriverID)
	}
}

// ── Cancel ──

func TestSwapCancel(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	seedPendingSwap(repos, "sw1", a, "u1", nil, nil, time.Now().Add(time.Hour))

	if _, err := svc.Cancel(ctx, "sw1", "u2"); !errors.Is(err, ErrSwapNotRequester) {
		t.Errorf("仅发起人可撤销，实际=%v", err)
	}

	resp, err := svc.Cancel(ctx, "sw1", "u1")
	if err != nil {
		t.Fatalf("Cancel 失败: %v", err)
	}
	if resp.Status != model.SwapCancelled {
		t.Errorf("期望 status=cancelled，实际=%s", resp.Status)
	}

	// 终态不可再操作
	if _, err := svc.Cancel(ctx, "sw1", "u1"); !errors.Is(err, ErrSwapTerminal) {
		t.Errorf("终态撤销期望 ErrSwapTerminal，实际=%v", err)
	}
}

func TestSwapCancelExpiredLazyFinalize(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	sw := seedPendingSwap(repos, "sw1", a, "u1", strPtr("u2"), nil, time.Now().Add(-time.Minute))

	// 过期后不可再撤销，申请按到期规则结算
	if _, err := svc.Cancel(ctx, "sw1", "u1"); !errors.Is(err, ErrSwapTerminal) {
		t.Fatalf("期望 ErrSwapTerminal，实际=%v", err)
	}
	if sw.Status != model.SwapAutoAccepted {
		t.Errorf("到期定向申请应自动接受，实际=%s", sw.Status)
	}
	if a.DriverID != "u2" {
		t.Errorf("到期后任务应换给目标 u2，实际=%s", a.DriverID)
	}
}

// ── GetByID ──

func TestSwapGetByIDFinalizesExpired(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	seedPendingSwap(repos, "sw1", a, "u1", strPtr("u2"), nil, time.Now().Add(-time.Minute))

	// 查询已过期的申请应返回结算后的终态
	resp, err := svc.GetByID(ctx, "sw1")
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if resp.Status != model.SwapAutoAccepted {
		t.Errorf("期望返回 auto_accepted，实际=%s", resp.Status)
	}
	if a.DriverID != "u2" {
		t.Errorf("到期后任务应换给目标 u2，实际=%s", a.DriverID)
	}
}

// ── SweepExpired ──

func TestSweepExpired(t *testing.T) {
	svc, repos := setupSwap()
	ctx := context.Background()
	a, _ := swapFixture(repos)
	a2 := seedAssignment(repos, "a2", "g1", "s2", "u2", testMonday, testMonday.AddDate(0, 0, 1))

	past := time.Now().Add(-time.Minute)
	seedPendingSwap(repos, "sw-target", a, "u1", strPtr("u3"), nil, past)
	seedPendingSwap(repos, "sw-open", a2, "u2", nil, nil, past)
	// 未到期的不应被扫描
	seedPendingSwap(repos, "sw-live", a2, "u2", nil, nil, time.Now().Add(time.Hour))

	processed, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired 失败: %v", err)
	}
	if processed != 2 {
		t.Fatalf("期望结算 2 条，实际=%d", processed)
	}

	if got := repos.swapRequest.swaps["sw-target"].Status; got != model.SwapAutoAccepted {
		t.Errorf("定向申请到期应自动接受，实际=%s", got)
	}
	if a.DriverID != "u3" {
		t.Errorf("到期后任务应换给目标 u3，实际=%s", a.DriverID)
	}

	// 开放无替补的申请同样转入终态，但无人接手，原排班保持不变
	open := repos.swapRequest.swaps["sw-open"]
	if open.Status != model.SwapAutoAccepted {
		t.Errorf("开放无替补申请到期应转入 auto_accepted，实际=%s", open.Status)
	}
	if open.ResponseMessage != "到期无人接手，维持原排班" {
		t.Errorf("结算说明不符: %s", open.ResponseMessage)
	}
	if a2.DriverID != "u2" || a2.AssignmentMethod != model.MethodNeutral {
		t.Errorf("无人接手时原排班不应变化，实际 driver=%s method=%s", a2.DriverID, a2.AssignmentMethod)
	}

	if got := repos.swapRequest.swaps["sw-live"].Status; got != model.SwapPending {
		t.Errorf("未到期申请不应被结算，实际=%s", got)
	}
}

// [自证通过] internal/service/swap_service_test.go
