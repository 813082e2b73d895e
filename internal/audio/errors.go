package audio

import (
	"context"
	"errors"
	"strings"
)

// CaptureErrorKind classifies microphone acquisition failures. The taxonomy
// matters because remediation differs per kind: reconnecting a device, granting
// access, and closing a competing app are different user actions.
type CaptureErrorKind string

const (
	KindDeviceNotFound          CaptureErrorKind = "device-not-found"
	KindPermissionDenied        CaptureErrorKind = "permission-denied"
	KindDeviceBusy              CaptureErrorKind = "device-busy"
	KindConstraintUnsatisfiable CaptureErrorKind = "constraint-unsatisfiable"
	KindSecurityBlocked         CaptureErrorKind = "security-blocked"
	KindAborted                 CaptureErrorKind = "aborted"
	KindUnknown                 CaptureErrorKind = "unknown"
)

// CaptureError wraps an underlying capture failure with its classification.
type CaptureError struct {
	Kind CaptureErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Remediation returns the user-facing guidance for the error kind.
func (e *CaptureError) Remediation() string {
	switch e.Kind {
	case KindDeviceNotFound:
		return "No microphone found. Connect a microphone and try again."
	case KindPermissionDenied:
		return "Microphone access denied. Allow microphone access and try again."
	case KindDeviceBusy:
		return "Microphone is already in use by another application."
	case KindConstraintUnsatisfiable:
		return "Microphone does not meet the required capture constraints."
	case KindSecurityBlocked:
		return "Microphone access is blocked by the sound server's security policy."
	case KindAborted:
		return "Microphone access was interrupted."
	default:
		return "Failed to access microphone. Check your device and permissions."
	}
}

// ClassifyCapture maps an acquisition failure onto the capture taxonomy.
// Already-classified errors pass through unchanged.
func ClassifyCapture(err error) *CaptureError {
	if err == nil {
		return nil
	}

	var classified *CaptureError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &CaptureError{Kind: KindAborted, Err: err}
	}

	text := strings.ToLower(err.Error())
	switch {
	case containsAny(text, "no such entity", "did not match any device", "no audio input devices", "is not available", "default audio source is unavailable"):
		return &CaptureError{Kind: KindDeviceNotFound, Err: err}
	case containsAny(text, "access denied", "permission denied", "not authorized"):
		return &CaptureError{Kind: KindPermissionDenied, Err: err}
	case containsAny(text, "device or resource busy", "busy"):
		return &CaptureError{Kind: KindDeviceBusy, Err: err}
	case containsAny(text, "is muted", "not supported", "invalid argument", "invalid server"):
		return &CaptureError{Kind: KindConstraintUnsatisfiable, Err: err}
	case containsAny(text, "connection refused", "connect pulse server", "cookie"):
		return &CaptureError{Kind: KindSecurityBlocked, Err: err}
	case containsAny(text, "aborted", "interrupted", "canceled", "cancelled"):
		return &CaptureError{Kind: KindAborted, Err: err}
	default:
		return &CaptureError{Kind: KindUnknown, Err: err}
	}
}

func containsAny(text string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
