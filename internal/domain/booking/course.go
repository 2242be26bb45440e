package booking

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

type CourseType string

const (
	CourseOneOnOne    CourseType = "one_on_one"
	CourseLessonsPlan CourseType = "lessons_plan"
	CourseTrialLesson CourseType = "trial_lesson"
)

func (t CourseType) Valid() bool {
	switch t {
	case CourseOneOnOne, CourseLessonsPlan, CourseTrialLesson:
		return true
	}
	return false
}

// NewCourse validates a tutor's offer. Only lesson plans span more than
// one lesson.
func NewCourse(tutorID uuid.UUID, title string, t CourseType, basePrice int64, lessons int) (*models.Course, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", httperr.ErrInvalidInput)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: course type %q", httperr.ErrInvalidInput, t)
	}
	if basePrice <= 0 {
		return nil, fmt.Errorf("%w: base price must be positive", httperr.ErrInvalidAmount)
	}
	if lessons < 1 {
		lessons = 1
	}
	if t != CourseLessonsPlan && lessons != 1 {
		return nil, fmt.Errorf("%w: %s courses have exactly one lesson", httperr.ErrInvalidInput, t)
	}

	return &models.Course{
		ID:           uuid.New(),
		TutorID:      tutorID,
		Title:        title,
		Type:         string(t),
		BasePrice:    basePrice,
		LessonsCount: lessons,
		Active:       true,
	}, nil
}
