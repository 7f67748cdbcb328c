package rotor

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// DefaultBaudRate is the line rate of the peripheral firmware.
const DefaultBaudRate = 115200

// PortInfo describes an available serial port.
type PortInfo struct {
	Name        string
	Description string
}

// OpenSerial opens a hardware serial port. It satisfies Opener.
func OpenSerial(name string, baudRate int) (Port, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		var pe *serial.PortError
		if errors.As(err, &pe) && pe.Code() == serial.PortBusy {
			return nil, fmt.Errorf("%w: %v", ErrPortBusy, err)
		}
		return nil, err
	}
	return port, nil
}

// Ports returns a list of available serial ports.
// USB ports carry their product name and VID:PID as description.
func Ports() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		result := make([]PortInfo, 0, len(details))
		for _, d := range details {
			desc := d.Name
			if d.IsUSB {
				desc = fmt.Sprintf("%s [%s:%s]", d.Product, d.VID, d.PID)
			}
			result = append(result, PortInfo{Name: d.Name, Description: desc})
		}
		return result, nil
	}

	// Fall back to plain names when the enumerator is unsupported
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	result := make([]PortInfo, 0, len(names))
	for _, name := range names {
		result = append(result, PortInfo{Name: name, Description: name})
	}
	return result, nil
}
