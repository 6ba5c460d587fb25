package pacing

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

// ── 测试辅助 ──

func lessonsFor(grade string, unitNumber int, unitName, section string, n int) []Lesson {
	out := make([]Lesson, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Lesson{
			Grade:        grade,
			Unit:         unitName,
			UnitNumber:   unitNumber,
			UnitLessonID: strconv.Itoa(unitNumber) + "." + strconv.Itoa(i),
			LessonNumber: i,
			LessonName:   section + " lesson " + strconv.Itoa(i),
			Section:      section,
		})
	}
	return out
}

// grade6Lessons 6 年级：单元 1 = Ramp Ups×1, A×5, B×5, Unit Assessment×1；单元 2 = A×3
func grade6Lessons() []Lesson {
	var lessons []Lesson
	lessons = append(lessons, lessonsFor("6", 1, "Ratios", "Ramp Ups", 1)...)
	lessons = append(lessons, lessonsFor("6", 1, "Ratios", "A", 5)...)
	lessons = append(lessons, lessonsFor("6", 1, "Ratios", "B", 5)...)
	lessons = append(lessons, lessonsFor("6", 1, "Ratios", "Unit Assessment", 1)...)
	lessons = append(lessons, lessonsFor("6", 2, "Fractions", "A", 3)...)
	return lessons
}

var unit1 = UnitKey{Grade: "6", UnitNumber: 1}

// errFakeSectionNotFound 与服务层一致：单元存在但章节不存在时拒绝写入
var errFakeSectionNotFound = errors.New("unit schedule section not found")

// fakeGateway 内存版持久化网关
type fakeGateway struct {
	mu          sync.Mutex
	docs        map[UnitKey]*SavedUnitSchedule
	err         error
	calls       []string
	delay       time.Duration
	entered     chan struct{} // 非 nil 时每次进入写入都发送信号
	release     chan struct{} // 非 nil 时写入阻塞直到关闭
	inflight    map[UnitKey]int
	maxInflight int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		docs:     make(map[UnitKey]*SavedUnitSchedule),
		inflight: make(map[UnitKey]int),
	}
}

func (g *fakeGateway) seed(doc SavedUnitSchedule) {
	g.docs[doc.Key()] = &doc
}

func (g *fakeGateway) callNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) enter(key UnitKey, name string) error {
	g.mu.Lock()
	g.calls = append(g.calls, name)
	g.inflight[key]++
	if g.inflight[key] > g.maxInflight {
		g.maxInflight = g.inflight[key]
	}
	err := g.err
	g.mu.Unlock()

	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	return err
}

func (g *fakeGateway) leave(key UnitKey) {
	g.mu.Lock()
	g.inflight[key]--
	g.mu.Unlock()
}

func cloneDoc(doc *SavedUnitSchedule) *SavedUnitSchedule {
	out := *doc
	out.Sections = append([]SavedSection(nil), doc.Sections...)
	return &out
}

func (g *fakeGateway) UpsertUnitSchedule(_ context.Context, req *UpsertUnitRequest) (*SavedUnitSchedule, error) {
	key := UnitKey{Grade: req.Grade, UnitNumber: req.UnitNumber}
	defer g.leave(key)
	if err := g.enter(key, "upsert"); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	version := 1
	if existing, ok := g.docs[key]; ok {
		version = existing.Version + 1
	}
	doc := &SavedUnitSchedule{
		ID:         "doc-" + key.String(),
		SchoolYear: req.SchoolYear,
		Grade:      req.Grade,
		UnitNumber: req.UnitNumber,
		UnitName:   req.UnitName,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Sections:   append([]SavedSection(nil), req.Sections...),
		Version:    version,
	}
	g.docs[key] = doc
	return cloneDoc(doc), nil
}

func (g *fakeGateway) UpdateSectionDates(_ context.Context, req *SectionDatesRequest) (*SavedUnitSchedule, error) {
	key := UnitKey{Grade: req.Grade, UnitNumber: req.UnitNumber}
	defer g.leave(key)
	if err := g.enter(key, "section"); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	doc, ok := g.docs[key]
	if !ok {
		return nil, errors.New("unit schedule not found")
	}
	found := false
	for i := range doc.Sections {
		if doc.Sections[i].SectionID == req.SectionID {
			doc.Sections[i].StartDate = req.StartDate
			doc.Sections[i].EndDate = req.EndDate
			found = true
		}
	}
	if !found {
		return nil, errFakeSectionNotFound
	}
	doc.Version++
	return cloneDoc(doc), nil
}

func (g *fakeGateway) UpdateUnitDates(_ context.Context, req *UnitDatesRequest) (*SavedUnitSchedule, error) {
	key := UnitKey{Grade: req.Grade, UnitNumber: req.UnitNumber}
	defer g.leave(key)
	if err := g.enter(key, "unit"); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	doc, ok := g.docs[key]
	if !ok {
		return nil, errors.New("unit schedule not found")
	}
	doc.StartDate = req.StartDate
	doc.EndDate = req.EndDate
	doc.Version++
	return cloneDoc(doc), nil
}

func newTestSelector(gw *fakeGateway, daysOff DaySet) *Selector {
	saved := make([]SavedUnitSchedule, 0, len(gw.docs))
	for _, d := range gw.docs {
		saved = append(saved, *cloneDoc(d))
	}
	return NewSelector(SelectorConfig{
		SchoolYear: "2025-2026",
		Lessons:    grade6Lessons(),
		Saved:      saved,
		DaysOff:    daysOff,
		Gateway:    gw,
	})
}

func sectionOf(t testing.TB, units []UnitSchedule, key UnitKey, sectionID string) SectionSchedule {
	t.Helper()
	ui := locateUnit(units, key)
	if ui < 0 {
		t.Fatalf("单元 %s 不存在", key)
	}
	s, _, ok := units[ui].Section(sectionID)
	if !ok {
		t.Fatalf("章节 %s 不存在", sectionID)
	}
	return s
}
