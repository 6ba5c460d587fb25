package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/pacing"
)

// ── 选日会话模块业务错误 ──

var (
	ErrSessionNotFound  = errors.New("选日会话不存在或已过期")
	ErrSessionLimit     = errors.New("选日会话数量已达上限")
	ErrSessionForbidden = errors.New("无权操作他人的选日会话")
)

const maxSessions = 1000

// SessionService 选日会话业务接口
//
// 每个会话持有一个 pacing.Selector，保存在进程内存中；
// 空闲超过 TTL 的会话由 Run 启动的清理协程回收。
type SessionService interface {
	Create(ctx context.Context, schoolYear, grade string) (*dto.SessionResponse, error)
	Get(ctx context.Context, id string) (*dto.SessionResponse, error)
	Arm(ctx context.Context, id string, req *dto.ArmRequest) (*dto.SessionResponse, error)
	// Click 保存失败时同时返回结果与 pacing.ErrSaveFailed
	Click(ctx context.Context, id, date string) (*dto.ClickResponse, error)
	Cancel(ctx context.Context, id string) (*dto.SessionResponse, error)
	Clear(ctx context.Context, id string, req *dto.ClearSectionRequest) (*dto.SessionResponse, error)
	SetUnitDates(ctx context.Context, id string, req *dto.SessionUnitDatesRequest) (*dto.SessionResponse, error)
	Reload(ctx context.Context, id string) (*dto.SessionResponse, error)
	Month(ctx context.Context, id, month string, selectedUnit *int) (*pacing.MonthView, error)
	Delete(ctx context.Context, id string) error
	// Run 定期清理过期会话，ctx 结束时返回
	Run(ctx context.Context)
}

type session struct {
	id         string
	owner      string // 创建者 user_id，为空时不校验
	schoolYear string
	grade      string
	selector   *pacing.Selector

	mu       sync.Mutex
	events   []pacing.CalendarEvent
	lastUsed time.Time
}

type sessionService struct {
	pacing      PacingService
	gateway     pacing.Gateway
	ttl         time.Duration
	saveTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(
	pacingSvc PacingService,
	gateway pacing.Gateway,
	ttl, saveTimeout time.Duration,
	logger *zap.Logger,
) SessionService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &sessionService{
		pacing:      pacingSvc,
		gateway:     gateway,
		ttl:         ttl,
		saveTimeout: saveTimeout,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
}

// ────────────────────── Create / Get / Delete ──────────────────────

func (s *sessionService) Create(ctx context.Context, schoolYear, grade string) (*dto.SessionResponse, error) {
	in, err := s.pacing.Load(ctx, schoolYear, grade, true)
	if err != nil {
		return nil, err
	}

	sel := pacing.NewSelector(pacing.SelectorConfig{
		SchoolYear:  schoolYear,
		Order:       in.Order,
		Lessons:     in.Lessons,
		Saved:       in.Saved,
		DaysOff:     in.DaysOff,
		Gateway:     s.gateway,
		Logger:      s.logger.With(zap.String("school_year", schoolYear), zap.String("grade", grade)),
		SaveTimeout: s.saveTimeout,
	})
	sess := &session{
		id:         uuid.New().String(),
		owner:      ActorFrom(ctx),
		schoolYear: schoolYear,
		grade:      grade,
		selector:   sel,
		events:     in.Events,
		lastUsed:   s.now(),
	}

	s.mu.Lock()
	if len(s.sessions) >= maxSessions {
		s.mu.Unlock()
		return nil, ErrSessionLimit
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("选日会话已创建",
		zap.String("session_id", sess.id),
		zap.String("owner", sess.owner),
		zap.String("school_year", schoolYear),
		zap.String("grade", grade),
	)
	return s.toResponse(sess), nil
}

func (s *sessionService) Get(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(sess), nil
}

func (s *sessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.lookup(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// ────────────────────── 选日操作 ──────────────────────

func (s *sessionService) Arm(ctx context.Context, id string, req *dto.ArmRequest) (*dto.SessionResponse, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	key := pacing.UnitKey{Grade: req.Grade, UnitNumber: req.UnitNumber}
	if err := sess.selector.Arm(key, req.SectionID, pacing.SelectionType(req.Type)); err != nil {
		return nil, err
	}
	return s.toResponse(sess), nil
}

func (s *sessionService) Click(ctx context.Context, id, date string) (*dto.ClickResponse, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := sess.selector.Click(ctx, date)
	if err != nil && !errors.Is(err, pacing.ErrSaveFailed) {
		return nil, err
	}
	return &dto.ClickResponse{Result: result, Session: s.toResponse(sess)}, err
}

func (s *sessionService) Cancel(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.selector.Cancel()
	return s.toResponse(sess), nil
}

func (s *sessionService) Clear(ctx context.Context, id string, req *dto.ClearSectionRequest) (*dto.SessionResponse, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	key := pacing.UnitKey{Grade: req.Grade, UnitNumber: req.UnitNumber}
	err = sess.selector.ClearSectionDates(ctx, key, req.SectionID)
	return s.afterSave(sess, err)
}

func (s *sessionService) SetUnitDates(ctx context.Context, id string, req *dto.SessionUnitDatesRequest) (*dto.SessionResponse, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	key := pacing.UnitKey{Grade: req.Grade, UnitNumber: req.UnitNumber}
	err = sess.selector.SetUnitDates(ctx, key, req.StartDate, req.EndDate)
	return s.afterSave(sess, err)
}

// Reload 重新读取已保存排期与学校日历，课程分组保持不变
func (s *sessionService) Reload(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err := s.pacing.Load(ctx, sess.schoolYear, sess.grade, true)
	if err != nil {
		return nil, err
	}

	sess.selector.Reload(in.Saved, in.DaysOff)
	sess.mu.Lock()
	sess.events = in.Events
	sess.mu.Unlock()
	return s.toResponse(sess), nil
}

func (s *sessionService) Month(ctx context.Context, id, month string, selectedUnit *int) (*pacing.MonthView, error) {
	year, m, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	events := sess.events
	sess.mu.Unlock()

	view := pacing.RenderMonth(year, m, sess.selector.Units(), pacing.RenderOptions{
		DaysOff:      sess.selector.DaysOff(),
		Events:       events,
		Armed:        sess.selector.Mode() != nil,
		SelectedUnit: selectedIndex(selectedUnit),
	})
	return &view, nil
}

// ────────────────────── 过期清理 ──────────────────────

func (s *sessionService) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.evictExpired(); n > 0 {
				s.logger.Info("已清理过期选日会话", zap.Int("count", n))
			}
		}
	}
}

func (s *sessionService) evictExpired() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// ── 内部辅助 ──

// lookup 取出会话并续期；会话绑定创建者，其他用户访问返回 ErrSessionForbidden
func (s *sessionService) lookup(ctx context.Context, id string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.owner != "" && ActorFrom(ctx) != sess.owner {
		return nil, ErrSessionForbidden
	}

	now := s.now()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if now.Sub(sess.lastUsed) > s.ttl {
		return nil, ErrSessionNotFound
	}
	sess.lastUsed = now
	return sess, nil
}

// afterSave 保存失败时仍返回最新快照，便于前端展示 failed 字段
func (s *sessionService) afterSave(sess *session, err error) (*dto.SessionResponse, error) {
	if err != nil && !errors.Is(err, pacing.ErrSaveFailed) {
		return nil, err
	}
	return s.toResponse(sess), err
}

func (s *sessionService) toResponse(sess *session) *dto.SessionResponse {
	snap := sess.selector.Snapshot()
	daysOff := sess.selector.DaysOff()

	sess.mu.Lock()
	expiresAt := sess.lastUsed.Add(s.ttl)
	sess.mu.Unlock()

	return &dto.SessionResponse{
		ID:         sess.id,
		SchoolYear: sess.schoolYear,
		Grade:      sess.grade,
		ExpiresAt:  formatTime(expiresAt),
		Mode:       snap.Mode,
		DaysOff:    daysOff.Sorted(),
		Units:      buildBoardUnits(snap.Units, daysOff),
		Fields:     snap.Fields,
	}
}
