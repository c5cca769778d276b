package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The message is shown to end users and must not enable account enumeration.
	ErrInvalidCredentials = errors.New("incorrect email address or password")

	ErrRegistrationFieldsRequired = errors.New("email, password, and name are required")
	ErrEmailAlreadyExists         = errors.New("email already registered")

	// ErrNotAuthenticated is returned by session probes and logout when
	// no valid session backs the presented token.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrUpload wraps any failure to read or store an uploaded image.
	ErrUpload = errors.New("image upload failed")

	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid request")
)
