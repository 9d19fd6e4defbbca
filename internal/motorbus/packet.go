// Package motorbus implements the checksummed binary protocol spoken by the
// STS-series geared servos on the shared serial bus.
//
// Packet format: [0xFF, 0xFF, ID, Length, Instruction, Params..., Checksum]
// with Length = len(Params) + 2 and all multi-byte register values
// little-endian on the wire. Velocity-class registers carry sign-magnitude
// encoded values, not two's-complement.
package motorbus

// Instruction is a one-byte command code carried in a packet.
type Instruction byte

const (
	InstrPing      Instruction = 0x01
	InstrRead      Instruction = 0x02
	InstrWrite     Instruction = 0x03
	InstrRegWrite  Instruction = 0x04
	InstrAction    Instruction = 0x05
	InstrSyncWrite Instruction = 0x83
)

// BroadcastID addresses every device on the bus. Broadcast instructions
// receive no acknowledgement.
const BroadcastID byte = 0xFE

// header is the fixed two-byte frame marker.
var header = [2]byte{0xFF, 0xFF}

// Checksum computes the packet checksum over the given bytes: sum everything
// from the device id through the last parameter, take the low byte, and
// complement it. The two-byte header is never included.
func Checksum(data []byte) byte {
	var sum int
	for _, b := range data {
		sum += int(b)
	}
	return byte(^sum)
}

// BuildPacket frames an instruction for the wire.
func BuildPacket(id byte, instr Instruction, params []byte) []byte {
	length := byte(len(params) + 2) // instruction + checksum
	pkt := make([]byte, 0, 6+len(params))
	pkt = append(pkt, header[0], header[1], id, length, byte(instr))
	pkt = append(pkt, params...)
	pkt = append(pkt, Checksum(pkt[2:]))
	return pkt
}

// EncodeSignMagnitude converts a signed value to the sign-magnitude format
// the servo firmware expects for velocity registers: bit 15 is the sign
// (1 = negative), bits 0-14 hold the absolute magnitude.
func EncodeSignMagnitude(v int16) uint16 {
	if v >= 0 {
		return uint16(v)
	}
	return 0x8000 | uint16(-v)
}

// DecodeSignMagnitude is the inverse of EncodeSignMagnitude.
func DecodeSignMagnitude(raw uint16) int16 {
	magnitude := int16(raw & 0x7FFF)
	if raw&0x8000 != 0 {
		return -magnitude
	}
	return magnitude
}
