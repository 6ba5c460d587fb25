package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"pacing-calendar/backend/internal/model"
	"pacing-calendar/backend/internal/repository"
	pkgerrors "pacing-calendar/backend/pkg/errors"
)

// ── Mock SchoolYearRepository ──

type mockSchoolYearRepo struct {
	years map[string]*model.SchoolYear
}

func newMockSchoolYearRepo() *mockSchoolYearRepo {
	return &mockSchoolYearRepo{years: make(map[string]*model.SchoolYear)}
}

func (m *mockSchoolYearRepo) Create(_ context.Context, year *model.SchoolYear) error {
	if year.SchoolYearID == "" {
		year.SchoolYearID = "sy-" + year.Name
	}
	m.years[year.SchoolYearID] = year
	return nil
}

func (m *mockSchoolYearRepo) GetByID(_ context.Context, id string) (*model.SchoolYear, error) {
	if y, ok := m.years[id]; ok {
		cp := *y
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSchoolYearRepo) GetByName(_ context.Context, name string) (*model.SchoolYear, error) {
	for _, y := range m.years {
		if y.Name == name {
			cp := *y
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSchoolYearRepo) GetCurrent(_ context.Context) (*model.SchoolYear, error) {
	for _, y := range m.years {
		if y.IsActive {
			cp := *y
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSchoolYearRepo) List(_ context.Context) ([]model.SchoolYear, error) {
	var result []model.SchoolYear
	for _, y := range m.years {
		result = append(result, *y)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name > result[j].Name })
	return result, nil
}

func (m *mockSchoolYearRepo) Update(_ context.Context, year *model.SchoolYear) error {
	cp := *year
	m.years[year.SchoolYearID] = &cp
	return nil
}

func (m *mockSchoolYearRepo) ClearActive(_ context.Context) error {
	for _, y := range m.years {
		y.IsActive = false
	}
	return nil
}

// ── Mock CalendarEventRepository ──

type mockCalendarEventRepo struct {
	mu      sync.Mutex
	events  []model.CalendarEvent
	listErr error
	calls   int // ListDaysOff 调用次数
}

func newMockCalendarEventRepo(events ...model.CalendarEvent) *mockCalendarEventRepo {
	return &mockCalendarEventRepo{events: events}
}

func (m *mockCalendarEventRepo) ListBySchoolYear(_ context.Context, schoolYear string) ([]model.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.CalendarEvent
	for _, e := range m.events {
		if e.SchoolYear == schoolYear {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *mockCalendarEventRepo) ListDaysOff(_ context.Context, schoolYear string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.events {
		if e.SchoolYear == schoolYear && !e.HasMathClass && !seen[e.Date] {
			seen[e.Date] = true
			out = append(out, e.Date)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockCalendarEventRepo) BatchCreate(_ context.Context, events []model.CalendarEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var created int64
	for _, e := range events {
		dup := false
		for _, existing := range m.events {
			if existing.SchoolYear == e.SchoolYear && existing.Date == e.Date && existing.Name == e.Name {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		e.EventID = fmt.Sprintf("evt-%d", len(m.events)+1)
		m.events = append(m.events, e)
		created++
	}
	return created, nil
}

func (m *mockCalendarEventRepo) DeleteDaysOff(_ context.Context, schoolYear, date string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var deleted int64
	for _, e := range m.events {
		if e.SchoolYear == schoolYear && e.Date == date && !e.HasMathClass {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return deleted, nil
}

// ── Mock LessonRepository ──

type mockLessonRepo struct {
	mu      sync.Mutex
	lessons []model.Lesson
	err     error
}

func newMockLessonRepo(lessons ...model.Lesson) *mockLessonRepo {
	return &mockLessonRepo{lessons: lessons}
}

func (m *mockLessonRepo) ListByTag(_ context.Context, tag string) ([]model.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Lesson
	for _, l := range m.lessons {
		if l.ScopeSequenceTag == tag {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLessonRepo) ListTags(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, l := range m.lessons {
		if !seen[l.ScopeSequenceTag] {
			seen[l.ScopeSequenceTag] = true
			out = append(out, l.ScopeSequenceTag)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockLessonRepo) Upsert(_ context.Context, lessons []model.Lesson) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range lessons {
		replaced := false
		for i := range m.lessons {
			if m.lessons[i].Grade == in.Grade && m.lessons[i].UnitLessonID == in.UnitLessonID {
				m.lessons[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			m.lessons = append(m.lessons, in)
		}
	}
	return int64(len(lessons)), nil
}

// ── Mock UnitScheduleRepository ──

type mockUnitScheduleRepo struct {
	mu       sync.Mutex
	units    map[string]*model.UnitSchedule
	writeErr error
	nextID   int
}

func newMockUnitScheduleRepo() *mockUnitScheduleRepo {
	return &mockUnitScheduleRepo{units: make(map[string]*model.UnitSchedule)}
}

func unitMapKey(schoolYear, grade string, unitNumber int) string {
	return fmt.Sprintf("%s|%s|%d", schoolYear, grade, unitNumber)
}

func cloneUnit(us *model.UnitSchedule) *model.UnitSchedule {
	cp := *us
	cp.Sections = append([]model.UnitScheduleSection(nil), us.Sections...)
	return &cp
}

func (m *mockUnitScheduleRepo) ListBySchoolYear(_ context.Context, schoolYear string, grades []string) ([]model.UnitSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UnitSchedule
	for _, us := range m.units {
		if us.SchoolYear != schoolYear {
			continue
		}
		if len(grades) > 0 && !containsString(grades, us.Grade) {
			continue
		}
		out = append(out, *cloneUnit(us))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Grade != out[j].Grade {
			return out[i].Grade < out[j].Grade
		}
		return out[i].UnitNumber < out[j].UnitNumber
	})
	return out, nil
}

func (m *mockUnitScheduleRepo) GetByKey(_ context.Context, schoolYear, grade string, unitNumber int) (*model.UnitSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if us, ok := m.units[unitMapKey(schoolYear, grade, unitNumber)]; ok {
		return cloneUnit(us), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUnitScheduleRepo) GetByKeyForUpdate(ctx context.Context, schoolYear, grade string, unitNumber int) (*model.UnitSchedule, error) {
	return m.GetByKey(ctx, schoolYear, grade, unitNumber)
}

func (m *mockUnitScheduleRepo) Create(_ context.Context, us *model.UnitSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.nextID++
	us.UnitScheduleID = fmt.Sprintf("us-%d", m.nextID)
	us.Version = 1
	us.UpdatedAt = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := range us.Sections {
		us.Sections[i].UnitScheduleID = us.UnitScheduleID
	}
	m.units[unitMapKey(us.SchoolYear, us.Grade, us.UnitNumber)] = cloneUnit(us)
	return nil
}

func (m *mockUnitScheduleRepo) Update(_ context.Context, us *model.UnitSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	key := unitMapKey(us.SchoolYear, us.Grade, us.UnitNumber)
	stored, ok := m.units[key]
	if !ok || stored.Version != us.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.UnitName = us.UnitName
	stored.StartDate = us.StartDate
	stored.EndDate = us.EndDate
	stored.UpdatedBy = us.UpdatedBy
	stored.Version++
	us.Version = stored.Version
	return nil
}

func (m *mockUnitScheduleRepo) ReplaceSections(_ context.Context, unitScheduleID string, sections []model.UnitScheduleSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, us := range m.units {
		if us.UnitScheduleID == unitScheduleID {
			for i := range sections {
				sections[i].UnitScheduleID = unitScheduleID
			}
			us.Sections = append([]model.UnitScheduleSection(nil), sections...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockUnitScheduleRepo) UpdateSection(_ context.Context, section *model.UnitScheduleSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, us := range m.units {
		if us.UnitScheduleID != section.UnitScheduleID {
			continue
		}
		for i := range us.Sections {
			if us.Sections[i].SectionID == section.SectionID {
				us.Sections[i].StartDate = section.StartDate
				us.Sections[i].EndDate = section.EndDate
				return nil
			}
		}
		us.Sections = append(us.Sections, *section)
		return nil
	}
	return gorm.ErrRecordNotFound
}

// stored 返回仓库中的当前记录（测试断言用）
func (m *mockUnitScheduleRepo) stored(schoolYear, grade string, unitNumber int) *model.UnitSchedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	if us, ok := m.units[unitMapKey(schoolYear, grade, unitNumber)]; ok {
		return cloneUnit(us)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ── Mock UnitLocker / Cache ──

type mockLocker struct {
	mu       sync.Mutex
	held     map[string]string
	acquired []string
	busy     bool
	err      error
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]string)}
}

func (m *mockLocker) AcquireLock(_ context.Context, key string, _, _ time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	if m.busy {
		return "", false, nil
	}
	if _, ok := m.held[key]; ok {
		return "", false, nil
	}
	token := fmt.Sprintf("tok-%d", len(m.acquired)+1)
	m.held[key] = token
	m.acquired = append(m.acquired, key)
	return token, true, nil
}

func (m *mockLocker) ReleaseLock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) CacheGet(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("cache miss: %s", key)
}

func (m *mockCache) CacheSet(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) CacheDelete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// ── 测试用 Repository 聚合 ──

type testRepos struct {
	schoolYears *mockSchoolYearRepo
	events      *mockCalendarEventRepo
	lessons     *mockLessonRepo
	units       *mockUnitScheduleRepo
}

func newTestRepository() (*repository.Repository, *testRepos) {
	m := &testRepos{
		schoolYears: newMockSchoolYearRepo(),
		events:      newMockCalendarEventRepo(),
		lessons:     newMockLessonRepo(),
		units:       newMockUnitScheduleRepo(),
	}
	repo := &repository.Repository{
		SchoolYear:    m.schoolYears,
		CalendarEvent: m.events,
		Lesson:        m.lessons,
		UnitSchedule:  m.units,
	}
	return repo, m
}
