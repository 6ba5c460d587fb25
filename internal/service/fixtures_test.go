package service

import (
	"strconv"

	"pacing-calendar/backend/config"
	"pacing-calendar/backend/internal/model"
)

const testYear = "2025-2026"

func lessonModels(tag, grade string, unitNumber int, unitName, section string, n int) []model.Lesson {
	out := make([]model.Lesson, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Lesson{
			Grade:            grade,
			ScopeSequenceTag: tag,
			Unit:             unitName,
			UnitLessonID:     strconv.Itoa(unitNumber) + "." + section + strconv.Itoa(i),
			UnitNumber:       unitNumber,
			LessonNumber:     i,
			LessonName:       section + " lesson " + strconv.Itoa(i),
			Section:          section,
		})
	}
	return out
}

// grade6 6 年级视图：单元 1 = Ramp Ups×1, A×3, B×2, Unit Assessment×1；单元 2 = A×2
func grade6() []model.Lesson {
	var lessons []model.Lesson
	lessons = append(lessons, lessonModels("Grade 6", "6", 1, "Ratios", "Ramp Ups", 1)...)
	lessons = append(lessons, lessonModels("Grade 6", "6", 1, "Ratios", "A", 3)...)
	lessons = append(lessons, lessonModels("Grade 6", "6", 1, "Ratios", "B", 2)...)
	lessons = append(lessons, lessonModels("Grade 6", "6", 1, "Ratios", "Unit Assessment", 1)...)
	lessons = append(lessons, lessonModels("Grade 6", "6", 2, "Fractions", "A", 2)...)
	return lessons
}

func laborDay() model.CalendarEvent {
	return model.CalendarEvent{
		SchoolYear: testYear,
		Date:       "2025-09-01",
		Name:       "Labor Day",
		Type:       model.EventTypeHoliday,
	}
}

func testPacingConfig() *config.PacingConfig {
	return &config.PacingConfig{
		DefaultSchoolYear: testYear,
		PrerequisiteGrades: []config.GradePrerequisites{
			{Grade: "Algebra 1", Prerequisites: []string{"8"}},
		},
	}
}
