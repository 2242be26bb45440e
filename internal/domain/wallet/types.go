package wallet

// ===============================
// Transaction vocabulary
// ===============================

type TxType string

const (
	TxDeposit       TxType = "deposit"
	TxWithdrawal    TxType = "withdrawal"
	TxCoursePayment TxType = "course_payment"
	TxCourseRefund  TxType = "course_refund"
	TxCourseEarning TxType = "course_earning"
	TxAppealRefund  TxType = "appeal_refund"
)

func (t TxType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxCoursePayment, TxCourseRefund, TxCourseEarning, TxAppealRefund:
		return true
	}
	return false
}

type TxStatus string

const (
	TxPending    TxStatus = "pending"
	TxProcessing TxStatus = "processing"
	TxCompleted  TxStatus = "completed"
	TxFailed     TxStatus = "failed"
	TxCancelled  TxStatus = "cancelled"
)

func (s TxStatus) IsFinal() bool {
	return s == TxCompleted || s == TxFailed || s == TxCancelled
}

// Bucket doubles as the fundsStatus of a transaction.
type Bucket string

const (
	Available Bucket = "available"
	Frozen    Bucket = "frozen"
	Locked    Bucket = "locked"
)

// effect is the bucket a transaction type touches when it is recorded.
// Credit types add to the bucket, debit types take from it.
type effect struct {
	bucket Bucket
	credit bool
}

var recordEffects = map[TxType]effect{
	TxWithdrawal:    {Available, false},
	TxCourseEarning: {Frozen, true},
	TxCourseRefund:  {Frozen, false},
	TxAppealRefund:  {Locked, false},
}

// EffectOf returns the bucket touched at record time, if any.
func EffectOf(t TxType) (Bucket, bool, bool) {
	e, ok := recordEffects[t]
	return e.bucket, e.credit, ok
}
