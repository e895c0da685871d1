package domain

const (
	RoleQuestioner = "QUESTIONER"
	RoleAnswerer   = "ANSWERER"
	RoleAdmin      = "ADMIN"
)

// Question lifecycle. NOT_PAID -> PENDING -> ANSWERED | EXPIRED.
const (
	QuestionStatusNotPaid  = "NOT_PAID"
	QuestionStatusPending  = "PENDING"
	QuestionStatusAnswered = "ANSWERED"
	QuestionStatusExpired  = "EXPIRED"
)

const (
	QuestionKindText           = "TEXT"
	QuestionKindMultipleChoice = "MULTIPLE_CHOICE"
	QuestionKindPicture        = "PICTURE"
)

// Deadline anchors: which timestamp the SLA window starts from.
const (
	DeadlineAnchorCreated = "created"
	DeadlineAnchorPaid    = "paid"
)

// Payment event kinds, normalized from gateway-specific event types.
const (
	PaymentEventCompleted = "completed"
	PaymentEventExpired   = "expired"
	PaymentEventFailed    = "failed"
)

const (
	RefundStatusPending   = "PENDING"
	RefundStatusSucceeded = "SUCCEEDED"
	RefundStatusFailed    = "FAILED"
)

const (
	WithdrawalStatusPending   = "PENDING"
	WithdrawalStatusCompleted = "COMPLETED"
	WithdrawalStatusFailed    = "FAILED"
)

const (
	NotifQuestionAssigned = "QUESTION_ASSIGNED"
	NotifQuestionAnswered = "QUESTION_ANSWERED"
	NotifQuestionExpired  = "QUESTION_EXPIRED"
	NotifAnswerReviewed   = "ANSWER_REVIEWED"
)

const (
	DefaultResponseTimeHours = 24
	DefaultCurrency          = "usd"
)
