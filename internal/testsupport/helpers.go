package testsupport

import (
	"bytes"
	"encoding/binary"
	"math"
)

func writeFloat64(buf *bytes.Buffer, f float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
	buf.Write(tmp[:])
}

// writeName emits a NUL-padded 32-byte name field.
func writeName(buf *bytes.Buffer, name string) {
	var field [32]byte
	copy(field[:], name)
	buf.Write(field[:])
}
