package sim

import (
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
	"github.com/sigurn/crc16"
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Checksum returns the CRC-16/XMODEM of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// Segment is a block of an image written to memory.
type Segment struct {
	Address  uintptr
	Size     int
	Checksum uint16
}

// LoadHex writes the segments of an Intel HEX image to memory. Read-only
// regions such as flash are written as a programmer would.
func (m *Memory) LoadHex(r io.Reader) ([]Segment, error) {
	image := gohex.NewMemory()
	if err := image.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("sim: parse image: %w", err)
	}

	var segments []Segment
	for _, seg := range image.GetDataSegments() {
		addr := uintptr(seg.Address)
		if err := m.Write(addr, seg.Data); err != nil {
			return nil, err
		}
		segments = append(segments, Segment{
			Address:  addr,
			Size:     len(seg.Data),
			Checksum: Checksum(seg.Data),
		})
	}
	return segments, nil
}

// DumpHex writes n bytes at addr as an Intel HEX image.
func (m *Memory) DumpHex(w io.Writer, addr uintptr, n int) error {
	data, err := m.Read(addr, n)
	if err != nil {
		return err
	}
	image := gohex.NewMemory()
	if err := image.AddBinary(uint32(addr), data); err != nil {
		return err
	}
	return image.DumpIntelHex(w, 16)
}

// RegionChecksum returns the checksum of n bytes at addr.
func (m *Memory) RegionChecksum(addr uintptr, n int) (uint16, error) {
	data, err := m.Read(addr, n)
	if err != nil {
		return 0, err
	}
	return Checksum(data), nil
}
