package booking

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/pricing"
	"github.com/wemaster/booking-core/internal/models"
)

type CreateCourseInput struct {
	TutorID      uuid.UUID
	Title        string
	Type         bookingdomain.CourseType
	BasePrice    int64
	LessonsCount int
}

type CreateCourse struct {
	Deps
}

func NewCreateCourse(deps Deps) *CreateCourse {
	return &CreateCourse{Deps: deps}
}

func (uc *CreateCourse) Execute(ctx context.Context, in CreateCourseInput) (*models.Course, error) {
	course, err := bookingdomain.NewCourse(in.TutorID, in.Title, in.Type, in.BasePrice, in.LessonsCount)
	if err != nil {
		return nil, err
	}
	if _, err := uc.Pricing.CoursePrice(course.BasePrice); err != nil {
		return nil, err
	}

	now := uc.Clock.Now()
	course.CreatedAt = now
	course.UpdatedAt = now

	if err := uc.Store.Bookings().CreateCourse(ctx, course); err != nil {
		return nil, err
	}

	uc.Log.Info("course created",
		zap.String("course_id", course.ID.String()),
		zap.String("tutor_id", in.TutorID.String()),
		zap.Int64("base_price", course.BasePrice),
	)
	return course, nil
}

// QuoteCourse returns what one lesson of a course costs the student.
type QuoteCourse struct {
	Deps
}

func NewQuoteCourse(deps Deps) *QuoteCourse {
	return &QuoteCourse{Deps: deps}
}

func (uc *QuoteCourse) Execute(ctx context.Context, courseID uuid.UUID) (*models.Course, pricing.CoursePrice, error) {
	course, err := uc.Store.Bookings().GetCourse(ctx, courseID)
	if err != nil {
		return nil, pricing.CoursePrice{}, err
	}

	price, err := uc.Pricing.CoursePrice(course.BasePrice)
	if err != nil {
		return nil, pricing.CoursePrice{}, err
	}
	return course, price, nil
}
