package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden           ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly   ErrCode = "STUDENT_ACCESS_ONLY"
	ErrProfessorAccessOnly ErrCode = "PROFESSOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrNotExamAuthor      ErrCode = "NOT_EXAM_AUTHOR"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrNoCorrectOption    ErrCode = "NO_CORRECT_OPTION"
	ErrTooFewOptions      ErrCode = "TOO_FEW_OPTIONS"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrNoActiveAttempt    ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAttemptFinalized   ErrCode = "ATTEMPT_FINALIZED"
	ErrUnansweredPending  ErrCode = "UNANSWERED_QUESTIONS"
	ErrUnknownQuestion    ErrCode = "UNKNOWN_QUESTION"
	ErrUnknownOption      ErrCode = "UNKNOWN_OPTION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrProfessorAccessOnly:
		return "This resource is restricted to professors."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."

	case ErrNotExamAuthor:
		return "You are not the author of this exam."
	case ErrNoQuestions:
		return "An exam must contain at least one question."
	case ErrNoCorrectOption:
		return "Every question must have an option marked as correct."
	case ErrTooFewOptions:
		return "Every question must have at least two options."
	case ErrAlreadySubmitted:
		return "You have already submitted this exam."
	case ErrNoActiveAttempt:
		return "There is no attempt in progress for this exam."
	case ErrAttemptFinalized:
		return "This attempt has already been finalized."
	case ErrUnansweredPending:
		return "Some questions are unanswered. Confirm to submit anyway."
	case ErrUnknownQuestion:
		return "The question does not belong to this exam."
	case ErrUnknownOption:
		return "The option does not belong to this question."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
