package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/model"
	"pacing-calendar/backend/internal/pacing"
	pkgerrors "pacing-calendar/backend/pkg/errors"
)

// ── 测试辅助 ──

func setupTestUnitScheduleService() (UnitScheduleService, *testRepos, *mockLocker) {
	repo, mocks := newTestRepository()
	locker := newMockLocker()
	svc := NewUnitScheduleService(repo, locker, 0, zap.NewNop())
	return svc, mocks, locker
}

func ratiosUpsert() *pacing.UpsertUnitRequest {
	return &pacing.UpsertUnitRequest{
		SchoolYear: testYear,
		Grade:      "6",
		UnitNumber: 1,
		UnitName:   "Ratios",
		Sections: []pacing.SavedSection{
			{SectionID: pacing.SectionRampUp, Name: "Ramp Up", StartDate: "2025-09-02", EndDate: "2025-09-02"},
			{SectionID: "A", Name: "Section A", StartDate: "2025-09-03", EndDate: "2025-09-05"},
			{SectionID: "B", Name: "Section B"},
		},
	}
}

// ── Upsert 测试 ──

func TestUnitScheduleService_Upsert_Create(t *testing.T) {
	svc, mocks, locker := setupTestUnitScheduleService()
	ctx := WithActor(context.Background(), "planner-1")

	saved, err := svc.UpsertUnitSchedule(ctx, ratiosUpsert())
	if err != nil {
		t.Fatalf("UpsertUnitSchedule 应成功: %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("期望Version=1，实际=%d", saved.Version)
	}
	if len(saved.Sections) != 3 || saved.Sections[1].StartDate != "2025-09-03" {
		t.Errorf("章节未按请求保存: %+v", saved.Sections)
	}

	stored := mocks.units.stored(testYear, "6", 1)
	if stored == nil || stored.UpdatedBy != "planner-1" {
		t.Errorf("期望记录 updated_by=planner-1，实际=%+v", stored)
	}
	if len(locker.acquired) != 1 || locker.acquired[0] != "unit_schedule:2025-2026:6:1" {
		t.Errorf("期望获取单元写锁，实际=%v", locker.acquired)
	}
	if len(locker.held) != 0 {
		t.Error("写入结束后应释放单元写锁")
	}
}

func TestUnitScheduleService_Upsert_ReplaceBumpsVersion(t *testing.T) {
	svc, mocks, _ := setupTestUnitScheduleService()
	ctx := context.Background()

	if _, err := svc.UpsertUnitSchedule(ctx, ratiosUpsert()); err != nil {
		t.Fatalf("首次 Upsert 应成功: %v", err)
	}

	req := ratiosUpsert()
	req.Sections = req.Sections[1:2]
	req.Sections[0].EndDate = "2025-09-08"
	saved, err := svc.UpsertUnitSchedule(ctx, req)
	if err != nil {
		t.Fatalf("再次 Upsert 应成功: %v", err)
	}
	if saved.Version != 2 {
		t.Errorf("期望Version=2，实际=%d", saved.Version)
	}
	stored := mocks.units.stored(testYear, "6", 1)
	if len(stored.Sections) != 1 || stored.Sections[0].EndDate != "2025-09-08" {
		t.Errorf("章节应被整体替换，实际=%+v", stored.Sections)
	}
}

func TestUnitScheduleService_Upsert_Invalid(t *testing.T) {
	svc, _, _ := setupTestUnitScheduleService()
	ctx := context.Background()

	req := ratiosUpsert()
	req.Sections[1].EndDate = "2025-09-01"
	if _, err := svc.UpsertUnitSchedule(ctx, req); !errors.Is(err, ErrDateRangeInvalid) {
		t.Errorf("期望 ErrDateRangeInvalid，实际: %v", err)
	}

	req = ratiosUpsert()
	req.StartDate = "2025/09/01"
	if _, err := svc.UpsertUnitSchedule(ctx, req); !errors.Is(err, ErrDateInvalid) {
		t.Errorf("期望 ErrDateInvalid，实际: %v", err)
	}

	req = ratiosUpsert()
	req.Sections = append(req.Sections, pacing.SavedSection{SectionID: "A"})
	if _, err := svc.UpsertUnitSchedule(ctx, req); !errors.Is(err, ErrDuplicateSection) {
		t.Errorf("期望 ErrDuplicateSection，实际: %v", err)
	}

	req = ratiosUpsert()
	req.UnitNumber = 0
	if _, err := svc.UpsertUnitSchedule(ctx, req); !errors.Is(err, ErrUnitKeyInvalid) {
		t.Errorf("期望 ErrUnitKeyInvalid，实际: %v", err)
	}
}

func TestUnitScheduleService_LockBusy(t *testing.T) {
	svc, mocks, locker := setupTestUnitScheduleService()
	locker.busy = true

	_, err := svc.UpsertUnitSchedule(context.Background(), ratiosUpsert())
	if !errors.Is(err, pkgerrors.ErrLockBusy) {
		t.Errorf("期望 ErrLockBusy，实际: %v", err)
	}
	if mocks.units.stored(testYear, "6", 1) != nil {
		t.Error("未获得锁时不应写入")
	}
}

func TestUnitScheduleService_LockErrorDegrades(t *testing.T) {
	svc, mocks, locker := setupTestUnitScheduleService()
	locker.err = errors.New("redis: connection refused")

	if _, err := svc.UpsertUnitSchedule(context.Background(), ratiosUpsert()); err != nil {
		t.Fatalf("Redis 不可用时应降级写入: %v", err)
	}
	if mocks.units.stored(testYear, "6", 1) == nil {
		t.Error("降级后仍应写入")
	}
}

func TestUnitScheduleService_NilLocker(t *testing.T) {
	repo, mocks := newTestRepository()
	svc := NewUnitScheduleService(repo, nil, 0, zap.NewNop())

	if _, err := svc.UpsertUnitSchedule(context.Background(), ratiosUpsert()); err != nil {
		t.Fatalf("无锁实现时应直接写入: %v", err)
	}
	if mocks.units.stored(testYear, "6", 1) == nil {
		t.Error("应写入排期")
	}
}

// ── UpdateSectionDates 测试 ──

func TestUnitScheduleService_UpdateSectionDates(t *testing.T) {
	svc, mocks, _ := setupTestUnitScheduleService()
	ctx := context.Background()
	if _, err := svc.UpsertUnitSchedule(ctx, ratiosUpsert()); err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}

	saved, err := svc.UpdateSectionDates(ctx, &pacing.SectionDatesRequest{
		SchoolYear: testYear, Grade: "6", UnitNumber: 1,
		SectionID: "B", StartDate: "2025-09-08", EndDate: "2025-09-09",
	})
	if err != nil {
		t.Fatalf("UpdateSectionDates 应成功: %v", err)
	}
	if saved.Version != 2 {
		t.Errorf("期望Version=2，实际=%d", saved.Version)
	}
	if saved.Sections[2].StartDate != "2025-09-08" || saved.Sections[2].EndDate != "2025-09-09" {
		t.Errorf("期望 B 为 2025-09-08..09，实际=%+v", saved.Sections[2])
	}
	// 其余章节保持不变
	if saved.Sections[1].StartDate != "2025-09-03" {
		t.Errorf("A 不应被修改，实际=%+v", saved.Sections[1])
	}
	if got := mocks.units.stored(testYear, "6", 1).Sections[2].EndDate; got != "2025-09-09" {
		t.Errorf("期望持久化 B.end=2025-09-09，实际=%s", got)
	}
}

func TestUnitScheduleService_UpdateSectionDates_Errors(t *testing.T) {
	svc, _, _ := setupTestUnitScheduleService()
	ctx := context.Background()

	req := &pacing.SectionDatesRequest{SchoolYear: testYear, Grade: "6", UnitNumber: 1, SectionID: "A"}
	if _, err := svc.UpdateSectionDates(ctx, req); !errors.Is(err, ErrUnitScheduleNotFound) {
		t.Errorf("期望 ErrUnitScheduleNotFound，实际: %v", err)
	}

	if _, err := svc.UpsertUnitSchedule(ctx, ratiosUpsert()); err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}
	req.SectionID = "Z"
	if _, err := svc.UpdateSectionDates(ctx, req); !errors.Is(err, ErrScheduleSectionNotFound) {
		t.Errorf("期望 ErrScheduleSectionNotFound，实际: %v", err)
	}

	req.SectionID = "A"
	req.StartDate, req.EndDate = "2025-09-10", "2025-09-09"
	if _, err := svc.UpdateSectionDates(ctx, req); !errors.Is(err, ErrDateRangeInvalid) {
		t.Errorf("期望 ErrDateRangeInvalid，实际: %v", err)
	}
}

// ── UpdateUnitDates 测试 ──

func TestUnitScheduleService_UpdateUnitDates(t *testing.T) {
	svc, _, _ := setupTestUnitScheduleService()
	ctx := context.Background()

	_, err := svc.UpdateUnitDates(ctx, &pacing.UnitDatesRequest{SchoolYear: testYear, Grade: "6", UnitNumber: 1})
	if !errors.Is(err, ErrUnitScheduleNotFound) {
		t.Errorf("期望 ErrUnitScheduleNotFound，实际: %v", err)
	}

	if _, err := svc.UpsertUnitSchedule(ctx, ratiosUpsert()); err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}
	saved, err := svc.UpdateUnitDates(ctx, &pacing.UnitDatesRequest{
		SchoolYear: testYear, Grade: "6", UnitNumber: 1,
		StartDate: "2025-09-02", EndDate: "2025-10-10",
	})
	if err != nil {
		t.Fatalf("UpdateUnitDates 应成功: %v", err)
	}
	if saved.StartDate != "2025-09-02" || saved.EndDate != "2025-10-10" || saved.Version != 2 {
		t.Errorf("单元日期更新结果不符: %+v", saved)
	}
	if len(saved.Sections) != 3 {
		t.Errorf("应返回完整单元文档，实际章节数=%d", len(saved.Sections))
	}
}

// ── Fetch / ShiftForDayOff 测试 ──

func TestUnitScheduleService_Fetch(t *testing.T) {
	svc, _, _ := setupTestUnitScheduleService()
	ctx := context.Background()

	second := ratiosUpsert()
	second.UnitNumber = 2
	for _, req := range []*pacing.UpsertUnitRequest{second, ratiosUpsert()} {
		if _, err := svc.UpsertUnitSchedule(ctx, req); err != nil {
			t.Fatalf("Upsert 应成功: %v", err)
		}
	}

	list, err := svc.Fetch(ctx, testYear, nil)
	if err != nil {
		t.Fatalf("Fetch 应成功: %v", err)
	}
	if len(list) != 2 || list[0].UnitNumber != 1 || list[1].UnitNumber != 2 {
		t.Errorf("期望按单元序号排序，实际=%+v", list)
	}

	list, _ = svc.Fetch(ctx, "2024-2025", nil)
	if len(list) != 0 {
		t.Errorf("其他学年应为空，实际=%d", len(list))
	}
}

func TestUnitScheduleService_ShiftForDayOff(t *testing.T) {
	svc, mocks, _ := setupTestUnitScheduleService()
	ctx := context.Background()
	if _, err := svc.UpsertUnitSchedule(ctx, ratiosUpsert()); err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}

	// 2025-09-03 (周三) 新增停课：A 的 09-03..09-05 后移为 09-04..09-08
	daysOff := pacing.NewDaySet("2025-09-01", "2025-09-03")
	n, err := svc.ShiftForDayOff(ctx, testYear, "2025-09-03", daysOff, true)
	if err != nil {
		t.Fatalf("ShiftForDayOff 应成功: %v", err)
	}
	if n != 1 {
		t.Errorf("期望平移 1 个单元，实际=%d", n)
	}

	stored := mocks.units.stored(testYear, "6", 1)
	if stored.Sections[0].StartDate != "2025-09-02" {
		t.Errorf("停课日之前的 Ramp Up 不应移动，实际=%s", stored.Sections[0].StartDate)
	}
	if stored.Sections[1].StartDate != "2025-09-04" || stored.Sections[1].EndDate != "2025-09-08" {
		t.Errorf("期望 A=2025-09-04..08，实际=%s..%s", stored.Sections[1].StartDate, stored.Sections[1].EndDate)
	}
	if stored.Version != 2 {
		t.Errorf("平移应递增版本，实际=%d", stored.Version)
	}

	// 删除停课日后回移
	n, err = svc.ShiftForDayOff(ctx, testYear, "2025-09-03", pacing.NewDaySet("2025-09-01"), false)
	if err != nil || n != 1 {
		t.Fatalf("回移应成功且影响 1 个单元: n=%d err=%v", n, err)
	}
	stored = mocks.units.stored(testYear, "6", 1)
	if stored.Sections[1].StartDate != "2025-09-03" || stored.Sections[1].EndDate != "2025-09-05" {
		t.Errorf("期望 A 回到 2025-09-03..05，实际=%s..%s", stored.Sections[1].StartDate, stored.Sections[1].EndDate)
	}
}

// ── CopySchedules 测试 ──

const nextYear = "2026-2027"

func setupCopyFixture(t *testing.T) (UnitScheduleService, *testRepos) {
	t.Helper()
	svc, mocks, _ := setupTestUnitScheduleService()
	ctx := context.Background()

	_ = mocks.schoolYears.Create(ctx, &model.SchoolYear{Name: testYear, StartDate: "2025-08-25", EndDate: "2026-06-26"})
	_ = mocks.schoolYears.Create(ctx, &model.SchoolYear{Name: nextYear, StartDate: "2026-08-24", EndDate: "2027-06-25"})
	mocks.events.events = append(mocks.events.events, model.CalendarEvent{
		SchoolYear: nextYear, Date: "2026-09-01", Name: "Staff Day", Type: model.EventTypeHoliday,
	})

	second := ratiosUpsert()
	second.UnitNumber = 2
	second.UnitName = "Fractions"
	for _, req := range []*pacing.UpsertUnitRequest{ratiosUpsert(), second} {
		if _, err := svc.UpsertUnitSchedule(ctx, req); err != nil {
			t.Fatalf("Upsert 应成功: %v", err)
		}
	}
	return svc, mocks
}

func TestUnitScheduleService_CopySchedules_Align(t *testing.T) {
	svc, mocks := setupCopyFixture(t)

	resp, err := svc.CopySchedules(context.Background(), &dto.CopyUnitSchedulesRequest{
		FromSchoolYear: testYear,
		ToSchoolYear:   nextYear,
		Grade:          "6",
		UnitNumbers:    []int{1},
	})
	if err != nil {
		t.Fatalf("CopySchedules 应成功: %v", err)
	}
	if resp.Dates != dto.CopyDatesAlign || resp.OffsetDays != 364 {
		t.Errorf("默认应按整周对齐，期望偏移 364，实际=%+v", resp)
	}
	if len(resp.Units) != 1 || resp.Units[0] != 1 {
		t.Errorf("期望只复制单元 1，实际=%v", resp.Units)
	}

	copied := mocks.units.stored(nextYear, "6", 1)
	if copied == nil {
		t.Fatal("目标学年应有单元 1 的排期")
	}
	if copied.Sections[0].StartDate != "2026-09-02" {
		t.Errorf("落在停课日的 Ramp Up 应顺延到 2026-09-02，实际=%s", copied.Sections[0].StartDate)
	}
	if copied.Sections[1].StartDate != "2026-09-02" || copied.Sections[1].EndDate != "2026-09-04" {
		t.Errorf("A 期望 2026-09-02..04，实际=%s..%s", copied.Sections[1].StartDate, copied.Sections[1].EndDate)
	}
	if copied.Sections[2].StartDate != "" {
		t.Error("未设置的日期应保持为空")
	}
	if mocks.units.stored(nextYear, "6", 2) != nil {
		t.Error("未选中的单元不应复制")
	}
	if src := mocks.units.stored(testYear, "6", 1); src.Sections[1].StartDate != "2025-09-03" {
		t.Errorf("源排期不应被修改，实际=%s", src.Sections[1].StartDate)
	}
}

func TestUnitScheduleService_CopySchedules_KeepAndClear(t *testing.T) {
	svc, mocks := setupCopyFixture(t)
	ctx := context.Background()

	if _, err := svc.CopySchedules(ctx, &dto.CopyUnitSchedulesRequest{
		FromSchoolYear: testYear, ToSchoolYear: nextYear, Grade: "6", Dates: dto.CopyDatesKeep,
	}); err != nil {
		t.Fatalf("CopySchedules 应成功: %v", err)
	}
	kept := mocks.units.stored(nextYear, "6", 2)
	if kept == nil || kept.Sections[1].StartDate != "2025-09-03" {
		t.Errorf("keep 应原样复制日期，实际=%+v", kept)
	}

	// 再次复制覆盖目标排期，版本递增
	resp, err := svc.CopySchedules(ctx, &dto.CopyUnitSchedulesRequest{
		FromSchoolYear: testYear, ToSchoolYear: nextYear, Grade: "6", Dates: dto.CopyDatesClear,
	})
	if err != nil {
		t.Fatalf("CopySchedules 应成功: %v", err)
	}
	if len(resp.Units) != 2 || resp.OffsetDays != 0 {
		t.Errorf("期望复制 2 个单元且无偏移，实际=%+v", resp)
	}
	cleared := mocks.units.stored(nextYear, "6", 1)
	for _, sec := range cleared.Sections {
		if sec.StartDate != "" || sec.EndDate != "" {
			t.Errorf("clear 应清空日期，实际 %s=%s..%s", sec.SectionID, sec.StartDate, sec.EndDate)
		}
	}
	if len(cleared.Sections) != 3 || cleared.Sections[1].Name != "Section A" {
		t.Errorf("clear 仍应复制章节结构，实际=%+v", cleared.Sections)
	}
	if cleared.Version != 2 {
		t.Errorf("覆盖已有排期应递增版本，实际=%d", cleared.Version)
	}
}

func TestUnitScheduleService_CopySchedules_Errors(t *testing.T) {
	svc, _ := setupCopyFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *dto.CopyUnitSchedulesRequest
		want error
	}{
		{"相同学年", &dto.CopyUnitSchedulesRequest{FromSchoolYear: testYear, ToSchoolYear: testYear, Grade: "6"}, ErrCopySameSchoolYear},
		{"缺少年级", &dto.CopyUnitSchedulesRequest{FromSchoolYear: testYear, ToSchoolYear: nextYear}, ErrUnitKeyInvalid},
		{"无效日期方式", &dto.CopyUnitSchedulesRequest{FromSchoolYear: testYear, ToSchoolYear: nextYear, Grade: "6", Dates: "stretch"}, ErrCopyDatesMode},
		{"源学年无排期", &dto.CopyUnitSchedulesRequest{FromSchoolYear: testYear, ToSchoolYear: nextYear, Grade: "7"}, ErrCopyNoSource},
		{"过滤后为空", &dto.CopyUnitSchedulesRequest{FromSchoolYear: testYear, ToSchoolYear: nextYear, Grade: "6", UnitNumbers: []int{9}}, ErrCopyNoSource},
		{"目标学年不存在", &dto.CopyUnitSchedulesRequest{FromSchoolYear: testYear, ToSchoolYear: "2030-2031", Grade: "6"}, ErrSchoolYearNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CopySchedules(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}
