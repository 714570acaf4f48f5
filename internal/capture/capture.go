package capture

import (
	"context"
	"errors"
	"sync"
)

// Capture errors
var (
	ErrUnsupported      = errors.New("capture: environment does not support audio or speech capture")
	ErrPermissionDenied = errors.New("capture: input device permission denied")
	ErrDeviceBusy       = errors.New("capture: input device already in use")
)

// Clip is a recorded audio clip for one turn.
type Clip struct {
	Data     []byte
	MIMEType string
}

// Len returns the clip size in bytes.
func (c *Clip) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Data)
}

// Adapter is a capture session lifecycle. Only one session may be open at a time.
type Adapter interface {
	// Start acquires the input device and begins recording. onPartial receives
	// every live transcript update until Stop.
	Start(ctx context.Context, onPartial func(string)) error
	// Stop ends the session and releases the device. It returns the clip, or
	// nil when audio was not recorded. Stop without an open session is a no-op.
	Stop(ctx context.Context) (*Clip, error)
	// LiveTranscript returns the latest partial transcript of the current or last session.
	LiveTranscript() string
}

// Device is an exclusive input-device token.
type Device struct {
	mu   sync.Mutex
	held bool
}

// Acquire takes the device or fails with ErrDeviceBusy.
func (d *Device) Acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held {
		return ErrDeviceBusy
	}
	d.held = true
	return nil
}

// Release frees the device. Releasing a free device is a no-op.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = false
}

// Held reports whether the device is currently acquired.
func (d *Device) Held() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held
}

// Nop is an adapter for environments without capture support.
type Nop struct{}

// Start always reports ErrUnsupported.
func (Nop) Start(context.Context, func(string)) error { return ErrUnsupported }

// Stop returns no clip.
func (Nop) Stop(context.Context) (*Clip, error) { return nil, nil }

// LiveTranscript is always empty.
func (Nop) LiveTranscript() string { return "" }
