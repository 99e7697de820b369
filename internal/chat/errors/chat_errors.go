package chaterrors

import (
	"net/http"

	"hr-collab/internal/shared/apperror"
)

var (
	// Non-membership is reported as not-found so conversation ids do not leak.
	ErrConversationNotFound = apperror.New(
		apperror.CodeNotFound,
		"conversation not found",
		http.StatusNotFound,
	)
	ErrEmptyMessage = apperror.New(
		apperror.CodeValidationError,
		"message must have a body or an attachment",
		http.StatusUnprocessableEntity,
	)
	ErrBodyTooLong = apperror.New(
		apperror.CodeValidationError,
		"message body must not exceed 2000 characters",
		http.StatusUnprocessableEntity,
	)
	ErrAttachmentTooLarge = apperror.New(
		apperror.CodeValidationError,
		"attachment must not exceed 10MB",
		http.StatusUnprocessableEntity,
	)
	ErrNoRecipients = apperror.New(
		apperror.CodeValidationError,
		"at least one recipient is required",
		http.StatusUnprocessableEntity,
	)
	ErrTooManyParticipants = apperror.New(
		apperror.CodeValidationError,
		"a private conversation holds exactly two participants",
		http.StatusUnprocessableEntity,
	)
	ErrRecipientNotFound = apperror.New(
		apperror.CodeNotFound,
		"recipient not found",
		http.StatusNotFound,
	)
	ErrInvalidConversationID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid conversation id",
		http.StatusBadRequest,
	)
)
