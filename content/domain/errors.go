package domain

import "errors"

var (
	ErrItemNotFound      = errors.New("content item not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPublishedItemDeletion: borrar un item publicado requiere confirmación del operador
	ErrPublishedItemDeletion = errors.New("deleting a published item requires confirmation")

	// ErrPrecondition envuelve todo rechazo síncrono previo a contactar un sistema externo
	ErrPrecondition = errors.New("precondition failed")

	ErrGenerationInProgress       = errors.New("generation already in progress")
	ErrRetryRequired              = errors.New("item failed, use retry")
	ErrCycleInProgress            = errors.New("a cycle for this client is already running")
	ErrCycleAlreadyProduced       = errors.New("an item already exists for this cycle window")
	ErrOverwriteNeedsConfirmation = errors.New("artifact has external state, confirm overwrite to regenerate")
	ErrNotConfigured              = errors.New("channel is not configured")
	ErrUploadSessionNotFound      = errors.New("upload session not found")
	ErrUploadRange                = errors.New("chunk does not continue the upload")
	ErrUploadIncomplete           = errors.New("upload is incomplete")
)
