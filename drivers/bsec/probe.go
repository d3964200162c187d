package bsec

import "tinygo.org/x/drivers"

// Probe reports whether a device acks at addr. A zero-length write is the
// bus-scan idiom: the device either acknowledges its address or the Tx
// errors out.
func Probe(bus drivers.I2C, addr uint16) bool {
	return bus.Tx(addr, nil, nil) == nil
}

// Scan walks the 7-bit address space and returns every acking address.
func Scan(bus drivers.I2C) []uint16 {
	var found []uint16
	for addr := uint16(1); addr < 127; addr++ {
		if Probe(bus, addr) {
			found = append(found, addr)
		}
	}
	return found
}
