package models

import (
	"time"

	"github.com/google/uuid"
)

type Appeal struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	StudentID uuid.UUID `gorm:"type:uuid;index;not null" json:"student_id"`
	TutorID   uuid.UUID `gorm:"type:uuid;index;not null" json:"tutor_id"`

	Status  string `gorm:"size:30;index;not null" json:"status"`
	Reason  string `gorm:"size:255;not null" json:"reason"`
	Content string `gorm:"type:text" json:"content"`

	TutorResponse    *string `gorm:"type:text" json:"tutor_response,omitempty"`
	ProposedRefund   *int64  `json:"proposed_refund,omitempty"`
	StudentAccepted  *bool   `json:"student_accepted,omitempty"`
	PlatformResponse *string `gorm:"type:text" json:"platform_response,omitempty"`
	RefundAmount     *int64  `json:"refund_amount,omitempty"`
	FeeOverride      bool    `gorm:"not null;default:false" json:"fee_override"`

	DeadlineForTutor    time.Time  `gorm:"not null" json:"deadline_for_tutor"`
	DeadlineForStudent  *time.Time `json:"deadline_for_student,omitempty"`
	DeadlineForPlatform *time.Time `json:"deadline_for_platform,omitempty"`

	EscalatedAt       *time.Time `json:"escalated_at,omitempty"`
	EscalationReason  *string    `gorm:"size:30" json:"escalation_reason,omitempty"`
	PlatformOverdueAt *time.Time `json:"platform_overdue_at,omitempty"`
	ResolvedBy        *string    `gorm:"size:20" json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`

	Evidence []AppealEvidence `gorm:"foreignKey:AppealID" json:"evidence"`

	Version int64 `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppealEvidence rows are written once and never updated.
type AppealEvidence struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AppealID uuid.UUID `gorm:"type:uuid;index;not null" json:"appeal_id"`

	Type        string `gorm:"size:20;not null" json:"type"`
	ContentType string `gorm:"size:100" json:"content_type"`
	ObjectKey   string `gorm:"size:255;not null" json:"-"`
	URL         string `gorm:"size:512;not null" json:"url"`

	UploadedBy uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`
	UploadedAt time.Time `gorm:"not null" json:"uploaded_at"`
}
