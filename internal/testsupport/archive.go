package testsupport

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"strconv"
	"strings"
	"testing"
)

// ArchiveEntry is one named member for BuildArchive.
type ArchiveEntry struct {
	Path string
	Data []byte
}

// ArchiveOptions tunes the generated container.
type ArchiveOptions struct {
	// BlockSize defaults to 1024 so small fixtures still exercise the
	// multi-block path.
	BlockSize uint32
}

// BuildArchive assembles a valid container from the given entries, matching
// the layout internal/psarc reads: big-endian header, 30-byte TOC entries
// with uint40 sizes/offsets, uint16 block length table, zlib block data, and
// a name manifest as TOC entry 0.
func BuildArchive(t testing.TB, entries []ArchiveEntry, opts ArchiveOptions) []byte {
	t.Helper()

	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = 1024
	}

	paths := make([]string, len(entries))
	for i, entry := range entries {
		paths[i] = entry.Path
	}
	nameManifest := []byte(strings.Join(paths, "\n"))

	payloads := make([][]byte, 0, len(entries)+1)
	payloads = append(payloads, nameManifest)
	for _, entry := range entries {
		payloads = append(payloads, entry.Data)
	}

	var (
		blockLengths []uint16
		blockData    bytes.Buffer
		firstBlocks  = make([]uint32, len(payloads))
		dataOffsets  = make([]uint64, len(payloads))
	)
	for i, payload := range payloads {
		firstBlocks[i] = uint32(len(blockLengths))
		dataOffsets[i] = uint64(blockData.Len()) // relative; rebased below
		for start := 0; start < len(payload) || (len(payload) == 0 && start == 0); start += int(blockSize) {
			end := start + int(blockSize)
			if end > len(payload) {
				end = len(payload)
			}
			compressed := deflateBlock(t, payload[start:end])
			blockLengths = append(blockLengths, uint16(len(compressed)))
			blockData.Write(compressed)
			if len(payload) == 0 {
				break
			}
		}
	}

	numEntries := uint32(len(payloads))
	tocSize := uint32(32 + int(numEntries)*30 + len(blockLengths)*2)

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, uint32(0x50534152)) // PSAR
	binary.Write(&out, binary.BigEndian, uint16(1))          // major
	binary.Write(&out, binary.BigEndian, uint16(4))          // minor
	binary.Write(&out, binary.BigEndian, uint32(0x7A6C6962)) // zlib
	binary.Write(&out, binary.BigEndian, tocSize)
	binary.Write(&out, binary.BigEndian, uint32(30))
	binary.Write(&out, binary.BigEndian, numEntries)
	binary.Write(&out, binary.BigEndian, blockSize)
	binary.Write(&out, binary.BigEndian, uint32(0)) // flags

	for i, payload := range payloads {
		out.Write(make([]byte, 16)) // name digest, unused by the reader
		binary.Write(&out, binary.BigEndian, firstBlocks[i])
		writeUint40(&out, uint64(len(payload)))
		writeUint40(&out, uint64(tocSize)+dataOffsets[i])
	}
	for _, length := range blockLengths {
		binary.Write(&out, binary.BigEndian, length)
	}
	out.Write(blockData.Bytes())

	return out.Bytes()
}

func deflateBlock(t testing.TB, chunk []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(chunk); err != nil {
		t.Fatalf("deflate block: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close deflater: %v", err)
	}
	return buf.Bytes()
}

func writeUint40(buf *bytes.Buffer, v uint64) {
	buf.Write([]byte{
		byte(v >> 32),
		byte(v >> 24),
		byte(v >> 16),
		byte(v >> 8),
		byte(v),
	})
}

// ManifestJSON renders the manifest body the archive reader expects for one
// arrangement.
func ManifestJSON(persistentID, songName, artistName, arrangementName string, songLength float64) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"Entries":{"`)
	buf.WriteString(persistentID)
	buf.WriteString(`":{"Attributes":{"SongName":`)
	writeJSONString(&buf, songName)
	buf.WriteString(`,"ArtistName":`)
	writeJSONString(&buf, artistName)
	buf.WriteString(`,"ArrangementName":`)
	writeJSONString(&buf, arrangementName)
	buf.WriteString(`,"SongLength":`)
	buf.WriteString(strconv.FormatFloat(songLength, 'f', -1, 64))
	buf.WriteString(`}}}}`)
	return buf.Bytes()
}

func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
