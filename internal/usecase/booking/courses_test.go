package booking_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/usecase/booking"
)

func TestCreateCourseAndQuote(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	course, err := booking.NewCreateCourse(s.deps).Execute(ctx, booking.CreateCourseInput{
		TutorID:   s.TutorID,
		Title:     "  Conversation practice ",
		Type:      bookingdomain.CourseOneOnOne,
		BasePrice: 7500,
	})
	require.NoError(t, err)
	assert.Equal(t, "Conversation practice", course.Title)
	assert.Equal(t, 1, course.LessonsCount)

	got, price, err := booking.NewQuoteCourse(s.deps).Execute(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, got.ID)
	assert.Equal(t, int64(10000), price.TotalPrice)
	assert.Equal(t, int64(2500), price.PlatformFee)
}

func TestCreateCourseValidation(t *testing.T) {
	s := newSuite(t)
	uc := booking.NewCreateCourse(s.deps)

	cases := []struct {
		name string
		in   booking.CreateCourseInput
		want error
	}{
		{"missing title", booking.CreateCourseInput{Type: bookingdomain.CourseOneOnOne, BasePrice: 100}, httperr.ErrInvalidInput},
		{"unknown type", booking.CreateCourseInput{Title: "x", Type: "group", BasePrice: 100}, httperr.ErrInvalidInput},
		{"free", booking.CreateCourseInput{Title: "x", Type: bookingdomain.CourseOneOnOne}, httperr.ErrInvalidAmount},
		{"trial with many lessons", booking.CreateCourseInput{Title: "x", Type: bookingdomain.CourseTrialLesson, BasePrice: 100, LessonsCount: 3}, httperr.ErrInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.TutorID = s.TutorID
			_, err := uc.Execute(context.Background(), tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	plan, err := uc.Execute(context.Background(), booking.CreateCourseInput{
		TutorID: s.TutorID, Title: "Ten lessons", Type: bookingdomain.CourseLessonsPlan, BasePrice: 5000, LessonsCount: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, plan.LessonsCount)
}

func TestQuoteUnknownCourse(t *testing.T) {
	s := newSuite(t)

	_, _, err := booking.NewQuoteCourse(s.deps).Execute(context.Background(), uuid.New())
	assert.ErrorIs(t, err, httperr.ErrNotFound)
}
