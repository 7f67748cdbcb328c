//go:build windows

package vjoy

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	hidUsageX     = 0x30
	maxDeviceGain = 255

	statOwn  = 0
	statFree = 1
)

// The driver accepts a single generic FFB callback per process.
var (
	callbackOnce sync.Once
	callback     uintptr
	devices      sync.Map // id -> *driver
)

type driver struct {
	id        uint
	fullScale int
	gain      atomic.Int32

	dll *windows.LazyDLL

	setAxis     *windows.LazyProc
	relinquish  *windows.LazyProc
	ffbDevGain  *windows.LazyProc
	ffbDeviceID *windows.LazyProc
}

// Open loads vJoyInterface.dll, acquires device id and registers for force
// feedback packets.
func Open(dllPath string, id uint) (Device, error) {
	dll := windows.NewLazyDLL(dllPath)
	if err := dll.Load(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %v: %w", dllPath, err, ErrUnavailable)
	}

	d := &driver{
		id:          id,
		dll:         dll,
		setAxis:     dll.NewProc("SetAxis"),
		relinquish:  dll.NewProc("RelinquishVJD"),
		ffbDevGain:  dll.NewProc("Ffb_h_DevGain"),
		ffbDeviceID: dll.NewProc("Ffb_h_DeviceID"),
	}

	if r, _, _ := dll.NewProc("vJoyEnabled").Call(); r == 0 {
		return nil, fmt.Errorf("vJoy driver not enabled: %w", ErrUnavailable)
	}

	switch status, _, _ := dll.NewProc("GetVJDStatus").Call(uintptr(id)); status {
	case statOwn, statFree:
	default:
		return nil, fmt.Errorf("vJoy device %d not free (status %d): %w", id, status, ErrUnavailable)
	}

	if r, _, _ := dll.NewProc("AcquireVJD").Call(uintptr(id)); r == 0 {
		return nil, fmt.Errorf("failed to acquire vJoy device %d: %w", id, ErrUnavailable)
	}

	var axisMax int32
	r, _, _ := dll.NewProc("GetVJDAxisMax").Call(uintptr(id), hidUsageX, uintptr(unsafe.Pointer(&axisMax)))
	if r == 0 || axisMax <= 0 {
		d.relinquish.Call(uintptr(id))
		return nil, fmt.Errorf("vJoy device %d has no X axis: %w", id, ErrUnavailable)
	}
	d.fullScale = int(axisMax)

	callbackOnce.Do(func() {
		callback = windows.NewCallback(ffbCallback)
	})
	devices.Store(id, d)
	if err := dll.NewProc("FfbRegisterGenCB").Find(); err != nil {
		d.Close()
		return nil, fmt.Errorf("vJoy driver has no force feedback support: %v: %w", err, ErrUnavailable)
	}
	dll.NewProc("FfbRegisterGenCB").Call(callback, 0)

	return d, nil
}

// ffbCallback receives every FFB packet of every device.
func ffbCallback(packet, _ uintptr) uintptr {
	devices.Range(func(_, v any) bool {
		d := v.(*driver)
		d.onPacket(packet)
		return true
	})
	return 0
}

func (d *driver) onPacket(packet uintptr) {
	var id uint32
	if r, _, _ := d.ffbDeviceID.Call(packet, uintptr(unsafe.Pointer(&id))); r != 0 || uint(id) != d.id {
		return
	}

	var gain byte
	if r, _, _ := d.ffbDevGain.Call(packet, uintptr(unsafe.Pointer(&gain))); r != 0 {
		return // Not a device gain packet
	}
	d.gain.Store(int32(int(gain) * MaxGain / maxDeviceGain))
}

// SetAxis writes the X axis.
func (d *driver) SetAxis(value int) error {
	if r, _, _ := d.setAxis.Call(uintptr(value), uintptr(d.id), hidUsageX); r == 0 {
		return fmt.Errorf("failed to set axis on vJoy device %d", d.id)
	}
	return nil
}

// FullScale returns the largest X axis value reported by the driver.
func (d *driver) FullScale() int {
	return d.fullScale
}

// MasterGain returns the last device gain received from the game.
func (d *driver) MasterGain() (int, error) {
	return int(d.gain.Load()), nil
}

// Close releases the device.
func (d *driver) Close() error {
	devices.Delete(d.id)
	d.relinquish.Call(uintptr(d.id))
	return nil
}
