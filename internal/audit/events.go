package audit

// Actions published to the notification and conferencing collaborators.
const (
	BookingCreated     = "booking.created"
	BookingConfirmed   = "booking.confirmed"
	BookingCancelled   = "booking.cancelled"
	BookingCompleted   = "booking.completed"
	BookingRescheduled = "booking.rescheduled"
	BookingSettled     = "booking.settled"

	RescheduleRequested = "reschedule.requested"
	RescheduleRejected  = "reschedule.rejected"

	AppealOpened          = "appeal.opened"
	AppealResponded       = "appeal.responded"
	AppealEscalated       = "appeal.escalated"
	AppealProcessing      = "appeal.processing"
	AppealResolved        = "appeal.resolved"
	AppealWithdrawn       = "appeal.withdrawn"
	AppealPlatformOverdue = "appeal.platform_overdue"
	AppealEvidenceAdded   = "appeal.evidence_added"

	PaymentSucceeded = "payment.succeeded"
	PaymentFailed    = "payment.failed"
	RefundRequested  = "refund.requested"
	RefundCompleted  = "refund.completed"
	RefundFailed     = "refund.failed"

	WalletTransactionRecorded = "wallet.transaction_recorded"
	WalletTransactionSettled  = "wallet.transaction_settled"
	WalletFundsMoved          = "wallet.funds_moved"

	WithdrawalRequested = "withdrawal.requested"
	WithdrawalCompleted = "withdrawal.completed"
	WithdrawalFailed    = "withdrawal.failed"

	SlotCreated = "slot.created"
)

const (
	EntityBooking     = "booking"
	EntityReschedule  = "reschedule_request"
	EntityAppeal      = "appeal"
	EntityWallet      = "wallet"
	EntityTransaction = "wallet_transaction"
	EntitySlot        = "time_slot"
)
