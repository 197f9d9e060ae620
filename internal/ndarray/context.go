package ndarray

import "fmt"

// DeviceType identifies the kind of device a buffer lives on.
type DeviceType int

// Supported device kinds.
const (
	CPU DeviceType = iota
	GPU
	CPUPinned
)

// String returns a human-readable device name.
func (d DeviceType) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	case CPUPinned:
		return "CPUPinned"
	default:
		return "Unknown"
	}
}

// Context identifies where a buffer physically resides:
// a device kind plus a device index.
type Context struct {
	device DeviceType
	id     int
}

// NewContext creates a context for the given device kind and index.
func NewContext(device DeviceType, id int) Context {
	return Context{device: device, id: id}
}

// DefaultContext is where host-resident data lands unless told otherwise.
func DefaultContext() Context {
	return Context{device: CPU, id: 0}
}

// DeviceType returns the kind of device.
func (c Context) DeviceType() DeviceType {
	return c.device
}

// DeviceID returns the device index.
func (c Context) DeviceID() int {
	return c.id
}

// Equal reports whether two contexts name the same device.
func (c Context) Equal(other Context) bool {
	return c.device == other.device && c.id == other.id
}

// String returns the context in "kind(index)" form.
func (c Context) String() string {
	return fmt.Sprintf("%s(%d)", c.device, c.id)
}
