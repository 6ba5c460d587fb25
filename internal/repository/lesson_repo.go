package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pacing-calendar/backend/internal/model"
)

// LessonRepository 课程进度表数据访问接口
type LessonRepository interface {
	// ListByTag 按课程标签查询，按 (grade, unit_number, lesson_number) 排序
	ListByTag(ctx context.Context, tag string) ([]model.Lesson, error)
	ListTags(ctx context.Context) ([]string, error)
	// Upsert 按 (grade, unit_lesson_id) 插入或更新，返回影响行数
	Upsert(ctx context.Context, lessons []model.Lesson) (int64, error)
}

type lessonRepo struct {
	db *gorm.DB
}

// NewLessonRepo 创建 LessonRepository 实例
func NewLessonRepo(db *gorm.DB) LessonRepository {
	return &lessonRepo{db: db}
}

func (r *lessonRepo) ListByTag(ctx context.Context, tag string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.db.WithContext(ctx).
		Where("scope_sequence_tag = ?", tag).
		Order("grade ASC, unit_number ASC, lesson_number ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepo) ListTags(ctx context.Context) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Model(&model.Lesson{}).
		Distinct("scope_sequence_tag").
		Order("scope_sequence_tag ASC").
		Pluck("scope_sequence_tag", &tags).Error
	return tags, err
}

func (r *lessonRepo) Upsert(ctx context.Context, lessons []model.Lesson) (int64, error) {
	if len(lessons) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "grade"}, {Name: "unit_lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"scope_sequence_tag", "unit", "unit_number", "lesson_number", "lesson_name", "section", "updated_at",
			}),
		}).
		CreateInBatches(lessons, 200)
	return result.RowsAffected, result.Error
}
