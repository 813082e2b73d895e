package audio

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyCaptureKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want CaptureErrorKind
	}{
		{name: "missing source", err: errors.New("resolve source \"mic\": no such entity"), want: KindDeviceNotFound},
		{name: "no devices", err: errors.New("no audio input devices found"), want: KindDeviceNotFound},
		{name: "denied", err: errors.New("connect pulse server: access denied"), want: KindPermissionDenied},
		{name: "busy", err: errors.New("open source: device or resource busy"), want: KindDeviceBusy},
		{name: "muted", err: errors.New("audio fallback device \"mic\" is muted"), want: KindConstraintUnsatisfiable},
		{name: "server down", err: errors.New("connect pulse server: dial unix: connection refused"), want: KindSecurityBlocked},
		{name: "interrupted", err: errors.New("record stream aborted"), want: KindAborted},
		{name: "other", err: errors.New("something else entirely"), want: KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			classified := ClassifyCapture(tc.err)
			require.NotNil(t, classified)
			require.Equal(t, tc.want, classified.Kind)
			require.ErrorIs(t, classified, tc.err)
			require.NotEmpty(t, classified.Remediation())
		})
	}
}

func TestClassifyCaptureContextCancel(t *testing.T) {
	classified := ClassifyCapture(fmt.Errorf("start capture: %w", context.Canceled))
	require.Equal(t, KindAborted, classified.Kind)
}

func TestClassifyCapturePassthrough(t *testing.T) {
	original := &CaptureError{Kind: KindDeviceBusy, Err: errors.New("wrapped")}
	classified := ClassifyCapture(fmt.Errorf("outer: %w", original))
	require.Same(t, original, classified)
}

func TestClassifyCaptureNil(t *testing.T) {
	require.Nil(t, ClassifyCapture(nil))
}

func TestRemediationDistinctPerKind(t *testing.T) {
	kinds := []CaptureErrorKind{
		KindDeviceNotFound, KindPermissionDenied, KindDeviceBusy,
		KindConstraintUnsatisfiable, KindSecurityBlocked, KindAborted, KindUnknown,
	}
	seen := make(map[string]CaptureErrorKind)
	for _, kind := range kinds {
		text := (&CaptureError{Kind: kind}).Remediation()
		prior, dup := seen[text]
		require.False(t, dup, "kinds %s and %s share remediation text", prior, kind)
		seen[text] = kind
	}
}
