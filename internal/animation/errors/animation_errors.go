package animationerrors

import (
	"net/http"

	"hr-collab/internal/shared/apperror"
)

var (
	ErrFileRequired = apperror.New(
		apperror.CodeValidationError,
		"animation file is required",
		http.StatusUnprocessableEntity,
	)
	ErrFileTooLarge = apperror.New(
		apperror.CodeValidationError,
		"animation file exceeds the 2MB limit",
		http.StatusUnprocessableEntity,
	)
	ErrNotJSON = apperror.New(
		apperror.CodeValidationError,
		"animation file is not valid JSON",
		http.StatusUnprocessableEntity,
	)
	ErrNotLottie = apperror.New(
		apperror.CodeValidationError,
		"animation file is not a valid Lottie animation, version marker missing",
		http.StatusUnprocessableEntity,
	)
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"employee record not found",
		http.StatusNotFound,
	)
)
