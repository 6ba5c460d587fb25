package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/model"
	"pacing-calendar/backend/internal/pacing"
	"pacing-calendar/backend/internal/repository"
)

// ── 课程进度表模块业务错误 ──

var (
	ErrGradeRequired   = errors.New("年级不能为空")
	ErrLessonDuplicate = errors.New("导入数据中存在重复的 (grade, unit_lesson_id)")
)

// ScopeSequenceService 课程进度表业务接口
type ScopeSequenceService interface {
	// FetchByGrade 按年级视图（即课程标签）查询课程
	FetchByGrade(ctx context.Context, grade string) ([]pacing.Lesson, error)
	ListGrades(ctx context.Context) ([]string, error)
	Import(ctx context.Context, req *dto.ImportLessonsRequest) (*dto.ImportLessonsResponse, error)
}

type scopeSequenceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewScopeSequenceService 创建 ScopeSequenceService 实例
func NewScopeSequenceService(repo *repository.Repository, logger *zap.Logger) ScopeSequenceService {
	return &scopeSequenceService{repo: repo, logger: logger}
}

func (s *scopeSequenceService) FetchByGrade(ctx context.Context, grade string) ([]pacing.Lesson, error) {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return nil, ErrGradeRequired
	}

	rows, err := s.repo.Lesson.ListByTag(ctx, grade)
	if err != nil {
		s.logger.Error("查询课程进度表失败", zap.String("grade", grade), zap.Error(err))
		return nil, err
	}

	lessons := make([]pacing.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, pacing.Lesson{
			Grade:            r.Grade,
			Unit:             r.Unit,
			UnitLessonID:     r.UnitLessonID,
			UnitNumber:       r.UnitNumber,
			LessonNumber:     r.LessonNumber,
			LessonName:       r.LessonName,
			Section:          r.Section,
			ScopeSequenceTag: r.ScopeSequenceTag,
		})
	}
	return lessons, nil
}

func (s *scopeSequenceService) ListGrades(ctx context.Context) ([]string, error) {
	tags, err := s.repo.Lesson.ListTags(ctx)
	if err != nil {
		s.logger.Error("查询年级视图失败", zap.Error(err))
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// Import 按 (grade, unit_lesson_id) 批量写入，已存在的课程被覆盖
func (s *scopeSequenceService) Import(ctx context.Context, req *dto.ImportLessonsRequest) (*dto.ImportLessonsResponse, error) {
	type key struct{ grade, id string }
	seen := make(map[key]bool, len(req.Lessons))
	rows := make([]model.Lesson, 0, len(req.Lessons))

	for _, in := range req.Lessons {
		grade := strings.TrimSpace(in.Grade)
		k := key{grade: grade, id: strings.TrimSpace(in.UnitLessonID)}
		if seen[k] {
			return nil, ErrLessonDuplicate
		}
		seen[k] = true

		tag := strings.TrimSpace(in.ScopeSequenceTag)
		if tag == "" {
			tag = grade
		}
		rows = append(rows, model.Lesson{
			Grade:            grade,
			ScopeSequenceTag: tag,
			Unit:             strings.TrimSpace(in.Unit),
			UnitLessonID:     k.id,
			UnitNumber:       in.UnitNumber,
			LessonNumber:     in.LessonNumber,
			LessonName:       strings.TrimSpace(in.LessonName),
			Section:          strings.TrimSpace(in.Section),
		})
	}

	affected, err := s.repo.Lesson.Upsert(ctx, rows)
	if err != nil {
		s.logger.Error("导入课程进度表失败", zap.Int("count", len(rows)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("课程进度表已导入", zap.Int("received", len(rows)), zap.Int64("affected", affected))
	return &dto.ImportLessonsResponse{Received: len(rows), Affected: affected}, nil
}
