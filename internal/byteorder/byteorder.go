// Package byteorder provides the big-endian frame-length conversions the
// OSM PBF wire format requires, independent of host byte order.
package byteorder

import (
	"encoding/binary"
	"unsafe"
)

// hostIsLittleEndian is computed once via a static two-byte probe, in the
// spirit of the original C++ detection (this module's own persisted
// records, unlike the wire framing, are little-endian throughout, matching
// the teacher's convention in its Serialize.go).
var hostIsLittleEndian = func() bool {
	var probe uint16 = 1
	return (*[2]byte)(unsafe.Pointer(&probe))[0] == 1
}()

// BigToHost converts a 32-bit big-endian frame-length prefix (as read
// straight off the wire/mmap) into a host-order uint32.
func BigToHost(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// HostToBig serializes a host-order uint32 as the 4-byte big-endian frame
// length prefix the OSM PBF format requires.
func HostToBig(v uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}

// IsHostLittleEndian reports the result of the one-time host-endianness
// probe; exposed for diagnostics.
func IsHostLittleEndian() bool { return hostIsLittleEndian }
