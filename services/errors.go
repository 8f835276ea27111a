package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrMissingTemplateOrParams  = errors.New("template or params missing")
	ErrTemplateHydration        = errors.New("template hydration failed")
	ErrHeaderMismatch           = errors.New("csv headers do not match template")
	ErrInvalidRecipient         = errors.New("invalid recipient")
	ErrEmptyUpload              = errors.New("csv contains no data rows")
	ErrPersistence              = errors.New("persistence failure")
	ErrUploadInProgress         = errors.New("upload already in progress for campaign")
	ErrNoMessageToCompose       = errors.New("no message to compose")
	ErrSendFailed               = errors.New("send failed")
	ErrUnknownCredential        = errors.New("unknown credential")
	ErrProtectedMessageNotFound = errors.New("protected message not found")
)

// HeaderMismatchError lists the columns an upload is missing. Unexpected is
// only filled for protected uploads, whose header set is fixed.
type HeaderMismatchError struct {
	Missing    []string
	Unexpected []string
}

func (e *HeaderMismatchError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns "+strings.Join(e.Unexpected, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrHeaderMismatch, strings.Join(parts, "; "))
}

func (e *HeaderMismatchError) Is(target error) bool {
	return target == ErrHeaderMismatch
}

// HydrationError names the placeholder that had no value.
type HydrationError struct {
	Param string
}

func (e *HydrationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: param %q not found", ErrTemplateHydration, e.Param)
}

func (e *HydrationError) Is(target error) bool {
	return target == ErrTemplateHydration
}

// RecipientError points at the CSV line holding a bad recipient.
type RecipientError struct {
	Line      int
	Recipient string
}

func (e *RecipientError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q on line %d", ErrInvalidRecipient, e.Recipient, e.Line)
}

func (e *RecipientError) Is(target error) bool {
	return target == ErrInvalidRecipient
}

// PersistenceError wraps a store failure that aborted an upload transaction.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s during %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
