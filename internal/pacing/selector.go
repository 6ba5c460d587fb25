package pacing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ── 交互式选日状态机 ──
//
// Idle（mode == nil）→ Arm → Armed → Click → 若设置的是 start 则自动切换为 end，
// 设置 end 后回到 Idle。Cancel 在任意 Armed 状态下回到 Idle，不修改数据。
//
// 本地编辑以 overlay 形式叠加在持久化排期之上，内存模型始终等于
// MergeSchedules(分组, 已保存) + 未完成的 overlay。保存成功后用服务端返回的
// 文档替换对应条目并移除 overlay；保存失败则移除 overlay（回滚）并将字段标记为 failed。

var (
	ErrNotArmed          = errors.New("当前未处于选日状态")
	ErrInvalidDate       = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrDateNotSelectable = errors.New("周末或停课日不可选")
	ErrRangeInverted     = errors.New("结束日期不能早于开始日期")
	ErrSectionNotFound   = errors.New("单元或章节不存在")
	ErrInvalidSelection  = errors.New("选日类型无效，应为 start 或 end")
	ErrSaveFailed        = errors.New("排期保存失败，本地修改已回滚")
)

// SelectionType 选日目标字段
type SelectionType string

const (
	SelectStart SelectionType = "start"
	SelectEnd   SelectionType = "end"
)

// Valid 是否为合法的选日类型
func (t SelectionType) Valid() bool {
	return t == SelectStart || t == SelectEnd
}

// SelectionMode 待选状态；nil 表示 Idle
type SelectionMode struct {
	Type      SelectionType `json:"type"`
	UnitKey   UnitKey       `json:"unit_key"`
	SectionID string        `json:"section_id"`
}

// FieldState 单个日期字段的同步状态
type FieldState string

const (
	FieldClean   FieldState = "clean"
	FieldPending FieldState = "pending"
	FieldFailed  FieldState = "failed"
)

// FieldStatus 非 clean 字段的状态快照；SectionID 为空表示单元级日期
type FieldStatus struct {
	UnitKey   UnitKey       `json:"unit_key"`
	SectionID string        `json:"section_id,omitempty"`
	Field     SelectionType `json:"field"`
	State     FieldState    `json:"state"`
}

// ── 持久化网关 ──

// UpsertUnitRequest 整单元创建或替换
type UpsertUnitRequest struct {
	SchoolYear string         `json:"school_year"`
	Grade      string         `json:"grade"`
	UnitNumber int            `json:"unit_number"`
	UnitName   string         `json:"unit_name"`
	StartDate  string         `json:"start_date"`
	EndDate    string         `json:"end_date"`
	Sections   []SavedSection `json:"sections"`
}

// SectionDatesRequest 更新已存在单元中某章节的日期
type SectionDatesRequest struct {
	SchoolYear string `json:"school_year"`
	Grade      string `json:"grade"`
	UnitNumber int    `json:"unit_number"`
	SectionID  string `json:"section_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// UnitDatesRequest 更新已存在单元的单元级日期
type UnitDatesRequest struct {
	SchoolYear string `json:"school_year"`
	Grade      string `json:"grade"`
	UnitNumber int    `json:"unit_number"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// Gateway 选日状态机依赖的持久化接口，每次写入都返回完整的单元文档
type Gateway interface {
	UpsertUnitSchedule(ctx context.Context, req *UpsertUnitRequest) (*SavedUnitSchedule, error)
	UpdateSectionDates(ctx context.Context, req *SectionDatesRequest) (*SavedUnitSchedule, error)
	UpdateUnitDates(ctx context.Context, req *UnitDatesRequest) (*SavedUnitSchedule, error)
}

// ── Selector ──

// SelectorConfig 构建 Selector 的参数
type SelectorConfig struct {
	SchoolYear  string
	Order       GradeOrder
	Lessons     []Lesson
	Saved       []SavedUnitSchedule
	DaysOff     DaySet
	Gateway     Gateway
	Logger      *zap.Logger
	SaveTimeout time.Duration // 单次保存超时，默认 10s
}

// ClickResult 一次点击的结果
type ClickResult struct {
	Field     SelectionType      `json:"field"`
	UnitKey   UnitKey            `json:"unit_key"`
	SectionID string             `json:"section_id"`
	Date      string             `json:"date"`
	Next      *SelectionMode     `json:"next"`
	Saved     *SavedUnitSchedule `json:"saved,omitempty"`
}

// Snapshot 状态机的只读快照
type Snapshot struct {
	SchoolYear string         `json:"school_year"`
	Mode       *SelectionMode `json:"mode"`
	Units      []UnitSchedule `json:"units"`
	Fields     []FieldStatus  `json:"fields"`
}

type fieldKey struct {
	unit    UnitKey
	section string // 空串表示单元级日期
	field   SelectionType
}

type overlay struct {
	value string
	seq   uint64
}

// Selector 一个编辑会话内的选日状态机，可被多个 goroutine 并发调用
type Selector struct {
	mu         sync.Mutex
	schoolYear string
	groups     []UnitGroup
	saved      []SavedUnitSchedule // 写时复制，只整体替换
	daysOff    DaySet
	mode       *SelectionMode
	overlays   map[fieldKey]overlay
	states     map[fieldKey]FieldState
	writes     map[UnitKey]int // 已发出但未完成的写入数
	seq        uint64

	gateway     Gateway
	logger      *zap.Logger
	saveTimeout time.Duration
	unitLocks   keyedMutex
}

// NewSelector 创建处于 Idle 状态的 Selector
func NewSelector(cfg SelectorConfig) *Selector {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.SaveTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	daysOff := cfg.DaysOff
	if daysOff == nil {
		daysOff = DaySet{}
	}
	return &Selector{
		schoolYear:  cfg.SchoolYear,
		groups:      GroupLessons(cfg.Lessons, cfg.Order),
		saved:       append([]SavedUnitSchedule(nil), cfg.Saved...),
		daysOff:     daysOff,
		overlays:    make(map[fieldKey]overlay),
		states:      make(map[fieldKey]FieldState),
		writes:      make(map[UnitKey]int),
		gateway:     cfg.Gateway,
		logger:      logger,
		saveTimeout: timeout,
	}
}

// Mode 当前待选状态的副本，Idle 时为 nil
func (s *Selector) Mode() *SelectionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeCopyLocked()
}

// Units 当前内存排期模型（已叠加未完成的本地修改）
func (s *Selector) Units() []UnitSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unitsLocked()
}

// Saved 当前持久化排期的副本
func (s *Selector) Saved() []SavedUnitSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SavedUnitSchedule(nil), s.saved...)
}

// DaysOff 停课日集合（只读）
func (s *Selector) DaysOff() DaySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daysOff
}

// FieldState 查询字段同步状态；sectionID 为空表示单元级日期
func (s *Selector) FieldState(key UnitKey, sectionID string, field SelectionType) FieldState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[fieldKey{unit: key, section: sectionID, field: field}]; ok {
		return st
	}
	return FieldClean
}

// Snapshot 返回一致的只读快照
func (s *Selector) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make([]FieldStatus, 0, len(s.states))
	for k, st := range s.states {
		fields = append(fields, FieldStatus{UnitKey: k.unit, SectionID: k.section, Field: k.field, State: st})
	}
	sortFieldStatuses(fields)

	return Snapshot{
		SchoolYear: s.schoolYear,
		Mode:       s.modeCopyLocked(),
		Units:      s.unitsLocked(),
		Fields:     fields,
	}
}

// Arm 进入待选状态；目标章节不存在时状态不变
func (s *Selector) Arm(key UnitKey, sectionID string, typ SelectionType) error {
	if !typ.Valid() {
		return ErrInvalidSelection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	units := s.unitsLocked()
	if _, _, ok := locateSection(units, key, sectionID); !ok {
		return ErrSectionNotFound
	}
	s.mode = &SelectionMode{Type: typ, UnitKey: key, SectionID: sectionID}
	return nil
}

// Cancel 回到 Idle，不取消已发出的保存
func (s *Selector) Cancel() {
	s.mu.Lock()
	s.mode = nil
	s.mu.Unlock()
}

// Click 消费一次日历点击
//
// 校验失败（未待选、日期非法、周末/停课日、区间倒置）时不做任何修改。
// 本地 overlay 与状态切换在发起保存前同步完成；保存失败时返回 ErrSaveFailed，
// 结果中仍包含状态切换后的 Next。
func (s *Selector) Click(ctx context.Context, date string) (*ClickResult, error) {
	s.mu.Lock()

	if s.mode == nil {
		s.mu.Unlock()
		return nil, ErrNotArmed
	}
	t, ok := ParseDate(date)
	if !ok {
		s.mu.Unlock()
		return nil, ErrInvalidDate
	}
	if IsWeekend(t) || s.daysOff.Has(date) {
		s.mu.Unlock()
		return nil, ErrDateNotSelectable
	}

	mode := *s.mode
	units := s.unitsLocked()
	ui, si, ok := locateSection(units, mode.UnitKey, mode.SectionID)
	if !ok {
		s.mode = nil
		s.mu.Unlock()
		return nil, ErrSectionNotFound
	}

	section := units[ui].Sections[si]
	newStart, newEnd := section.StartDate, section.EndDate
	changed := map[SelectionType]string{}

	if mode.Type == SelectStart {
		newStart = date
		changed[SelectStart] = date
		if newEnd != "" && newEnd < date {
			newEnd = ""
			changed[SelectEnd] = ""
		}
	} else {
		if newStart != "" && date < newStart {
			s.mu.Unlock()
			return nil, ErrRangeInverted
		}
		newEnd = date
		changed[SelectEnd] = date
	}

	s.seq++
	seq := s.seq
	keys := make([]fieldKey, 0, len(changed))
	for field, value := range changed {
		k := fieldKey{unit: mode.UnitKey, section: mode.SectionID, field: field}
		s.overlays[k] = overlay{value: value, seq: seq}
		s.states[k] = FieldPending
		keys = append(keys, k)
	}
	units[ui].Sections[si].StartDate = newStart
	units[ui].Sections[si].EndDate = newEnd

	save := s.sectionSaveLocked(units[ui], mode.SectionID, newStart, newEnd)
	s.writes[mode.UnitKey]++

	if mode.Type == SelectStart {
		s.mode = &SelectionMode{Type: SelectEnd, UnitKey: mode.UnitKey, SectionID: mode.SectionID}
	} else {
		s.mode = nil
	}
	result := &ClickResult{
		Field:     mode.Type,
		UnitKey:   mode.UnitKey,
		SectionID: mode.SectionID,
		Date:      date,
		Next:      s.modeCopyLocked(),
	}
	s.mu.Unlock()

	saved, err := s.persist(ctx, mode.UnitKey, save)
	s.finish(mode.UnitKey, keys, seq, saved, err)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	result.Saved = saved
	return result, nil
}

// ClearSectionDates 清空章节起止日期
//
// 单元已保存时通过 UpdateSectionDates 持久化空值。单元未保存且没有进行中的写入时
// 只丢弃本地修改；若首次 upsert 仍在进行，则排在其后执行，落库后再清空。
func (s *Selector) ClearSectionDates(ctx context.Context, key UnitKey, sectionID string) error {
	s.mu.Lock()

	units := s.unitsLocked()
	if _, _, ok := locateSection(units, key, sectionID); !ok {
		s.mu.Unlock()
		return ErrSectionNotFound
	}

	startKey := fieldKey{unit: key, section: sectionID, field: SelectStart}
	endKey := fieldKey{unit: key, section: sectionID, field: SelectEnd}

	if s.findSavedLocked(key) == nil && s.writes[key] == 0 {
		delete(s.overlays, startKey)
		delete(s.overlays, endKey)
		delete(s.states, startKey)
		delete(s.states, endKey)
		s.mu.Unlock()
		return nil
	}

	s.seq++
	seq := s.seq
	keys := []fieldKey{startKey, endKey}
	for _, k := range keys {
		s.overlays[k] = overlay{value: "", seq: seq}
		s.states[k] = FieldPending
	}
	s.writes[key]++
	req := &SectionDatesRequest{
		SchoolYear: s.schoolYear,
		Grade:      key.Grade,
		UnitNumber: key.UnitNumber,
		SectionID:  sectionID,
	}
	gw := s.gateway
	s.mu.Unlock()

	saved, err := s.persist(ctx, key, func(ctx context.Context) (*SavedUnitSchedule, error) {
		// 持有单元锁后再确认：之前的 upsert 失败时服务端没有文档，无需写库
		s.mu.Lock()
		exists := s.findSavedLocked(key) != nil
		s.mu.Unlock()
		if !exists {
			return nil, nil
		}
		return gw.UpdateSectionDates(ctx, req)
	})
	s.finish(key, keys, seq, saved, err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// SetUnitDates 设置单元级起止日期（空串表示清空）
func (s *Selector) SetUnitDates(ctx context.Context, key UnitKey, start, end string) error {
	if (start != "" && !ValidDate(start)) || (end != "" && !ValidDate(end)) {
		return ErrInvalidDate
	}
	if start != "" && end != "" && end < start {
		return ErrRangeInverted
	}

	s.mu.Lock()

	units := s.unitsLocked()
	ui := locateUnit(units, key)
	if ui < 0 {
		s.mu.Unlock()
		return ErrSectionNotFound
	}

	s.seq++
	seq := s.seq
	keys := []fieldKey{
		{unit: key, field: SelectStart},
		{unit: key, field: SelectEnd},
	}
	s.overlays[keys[0]] = overlay{value: start, seq: seq}
	s.overlays[keys[1]] = overlay{value: end, seq: seq}
	s.states[keys[0]] = FieldPending
	s.states[keys[1]] = FieldPending
	units[ui].StartDate = start
	units[ui].EndDate = end

	var save func(context.Context) (*SavedUnitSchedule, error)
	gw := s.gateway
	if s.findSavedLocked(key) != nil {
		req := &UnitDatesRequest{
			SchoolYear: s.schoolYear,
			Grade:      key.Grade,
			UnitNumber: key.UnitNumber,
			StartDate:  start,
			EndDate:    end,
		}
		save = func(ctx context.Context) (*SavedUnitSchedule, error) {
			return gw.UpdateUnitDates(ctx, req)
		}
	} else {
		req := s.upsertRequest(units[ui])
		save = func(ctx context.Context) (*SavedUnitSchedule, error) {
			return gw.UpsertUnitSchedule(ctx, req)
		}
	}
	s.writes[key]++
	s.mu.Unlock()

	saved, err := s.persist(ctx, key, save)
	s.finish(key, keys, seq, saved, err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// Reload 整体重新加载后替换持久化排期与停课日，并清除 failed 标记
// 仍在进行中的保存不受影响
func (s *Selector) Reload(saved []SavedUnitSchedule, daysOff DaySet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved = append([]SavedUnitSchedule(nil), saved...)
	if daysOff != nil {
		s.daysOff = daysOff
	}
	for k, st := range s.states {
		if st == FieldFailed {
			delete(s.states, k)
		}
	}
}

// ── 内部实现 ──

// sectionSaveLocked 单元已保存时增量更新章节，否则以当前全部章节日期整单元 upsert
func (s *Selector) sectionSaveLocked(unit UnitSchedule, sectionID, start, end string) func(context.Context) (*SavedUnitSchedule, error) {
	gw := s.gateway
	if s.findSavedLocked(unit.Key) != nil {
		req := &SectionDatesRequest{
			SchoolYear: s.schoolYear,
			Grade:      unit.Grade,
			UnitNumber: unit.UnitNumber,
			SectionID:  sectionID,
			StartDate:  start,
			EndDate:    end,
		}
		return func(ctx context.Context) (*SavedUnitSchedule, error) {
			return gw.UpdateSectionDates(ctx, req)
		}
	}

	req := s.upsertRequest(unit)
	return func(ctx context.Context) (*SavedUnitSchedule, error) {
		return gw.UpsertUnitSchedule(ctx, req)
	}
}

func (s *Selector) upsertRequest(unit UnitSchedule) *UpsertUnitRequest {
	sections := make([]SavedSection, 0, len(unit.Sections))
	for _, sec := range unit.Sections {
		sections = append(sections, SavedSection{
			SectionID:   sec.SectionID,
			Name:        sec.Name,
			StartDate:   sec.StartDate,
			EndDate:     sec.EndDate,
			PlannedDays: sec.LessonCount,
		})
	}
	return &UpsertUnitRequest{
		SchoolYear: s.schoolYear,
		Grade:      unit.Grade,
		UnitNumber: unit.UnitNumber,
		UnitName:   unit.UnitName,
		StartDate:  unit.StartDate,
		EndDate:    unit.EndDate,
		Sections:   sections,
	}
}

// persist 同一单元的写入串行执行；保存不随调用方 ctx 取消而中断
func (s *Selector) persist(ctx context.Context, key UnitKey, save func(context.Context) (*SavedUnitSchedule, error)) (*SavedUnitSchedule, error) {
	if s.gateway == nil {
		return nil, errors.New("未配置持久化网关")
	}

	unlock := s.unitLocks.Lock(key)
	defer unlock()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	return save(saveCtx)
}

// finish 处理保存结果；已被更新的 overlay 覆盖的字段保持 pending
func (s *Selector) finish(unit UnitKey, keys []fieldKey, seq uint64, saved *SavedUnitSchedule, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes[unit]--
	if s.writes[unit] <= 0 {
		delete(s.writes, unit)
	}

	if err == nil && saved != nil {
		s.replaceSavedLocked(*saved)
	}

	for _, k := range keys {
		ov, ok := s.overlays[k]
		if !ok || ov.seq != seq {
			continue
		}
		delete(s.overlays, k)
		if err == nil {
			delete(s.states, k)
		} else {
			s.states[k] = FieldFailed
		}
	}

	if err != nil && len(keys) > 0 {
		s.logger.Warn("保存排期失败，已回滚本地修改",
			zap.String("school_year", s.schoolYear),
			zap.String("unit", keys[0].unit.String()),
			zap.String("section_id", keys[0].section),
			zap.Error(err),
		)
	}
}

// replaceSavedLocked 以新切片替换匹配条目，不原地修改
func (s *Selector) replaceSavedLocked(doc SavedUnitSchedule) {
	next := make([]SavedUnitSchedule, 0, len(s.saved)+1)
	replaced := false
	for _, existing := range s.saved {
		if existing.Key() == doc.Key() {
			next = append(next, doc)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, doc)
	}
	s.saved = next
}

func (s *Selector) findSavedLocked(key UnitKey) *SavedUnitSchedule {
	for i := range s.saved {
		if s.saved[i].Key() == key {
			return &s.saved[i]
		}
	}
	return nil
}

func (s *Selector) unitsLocked() []UnitSchedule {
	units := MergeSchedules(s.groups, s.saved)
	if len(s.overlays) == 0 {
		return units
	}
	for k, ov := range s.overlays {
		ui := locateUnit(units, k.unit)
		if ui < 0 {
			continue
		}
		if k.section == "" {
			if k.field == SelectStart {
				units[ui].StartDate = ov.value
			} else {
				units[ui].EndDate = ov.value
			}
			continue
		}
		_, si, ok := units[ui].Section(k.section)
		if !ok {
			continue
		}
		if k.field == SelectStart {
			units[ui].Sections[si].StartDate = ov.value
		} else {
			units[ui].Sections[si].EndDate = ov.value
		}
	}
	return units
}

func (s *Selector) modeCopyLocked() *SelectionMode {
	if s.mode == nil {
		return nil
	}
	m := *s.mode
	return &m
}

func locateUnit(units []UnitSchedule, key UnitKey) int {
	for i := range units {
		if units[i].Key == key {
			return i
		}
	}
	return -1
}

func locateSection(units []UnitSchedule, key UnitKey, sectionID string) (int, int, bool) {
	ui := locateUnit(units, key)
	if ui < 0 {
		return -1, -1, false
	}
	_, si, ok := units[ui].Section(sectionID)
	if !ok {
		return -1, -1, false
	}
	return ui, si, true
}
