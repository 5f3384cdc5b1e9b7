package psarc

import (
	"encoding/binary"
	"fmt"
	"strings"

	"fretforge/internal/services"
)

const (
	magicPSAR = 0x50534152 // "PSAR"
	magicZlib = 0x7A6C6962 // "zlib"

	headerSize    = 32
	tocEntrySize  = 30
	versionMajor  = 1
	flagPlainTOC  = 0
	zlibFirstByte = 0x78
)

type tocEntry struct {
	nameDigest       [16]byte
	blockIndex       uint32
	uncompressedSize uint64
	offset           uint64
}

// Entry describes one named archive member.
type Entry struct {
	// Path is the internal path recorded in the name manifest.
	Path string
	// Index is the entry's position in List order. Indices are stable for
	// the lifetime of the Archive and are never reused across re-parses.
	Index int
	// UncompressedSize is the decoded byte length the TOC declares.
	UncompressedSize int64
}

// Archive is a parsed container. It retains only the raw compressed buffer
// and the TOC; decoded entries are produced on demand.
type Archive struct {
	data         []byte
	blockSize    uint32
	blockLengths []uint16
	toc          []tocEntry
	entries      []Entry
}

// Open parses the container header and TOC from buffer. The buffer is
// retained by the returned Archive and must not be mutated by the caller.
func Open(buffer []byte) (*Archive, error) {
	if len(buffer) < headerSize {
		return nil, corrupt("header", fmt.Sprintf("buffer is %d bytes, need at least %d", len(buffer), headerSize), nil)
	}

	if magic := binary.BigEndian.Uint32(buffer[0:4]); magic != magicPSAR {
		return nil, corrupt("header", fmt.Sprintf("bad magic 0x%08x", magic), nil)
	}
	major := binary.BigEndian.Uint16(buffer[4:6])
	if major != versionMajor {
		return nil, corrupt("header", fmt.Sprintf("unsupported version %d", major), nil)
	}
	if comp := binary.BigEndian.Uint32(buffer[8:12]); comp != magicZlib {
		return nil, corrupt("header", fmt.Sprintf("unsupported compression 0x%08x", comp), nil)
	}

	tocSize := binary.BigEndian.Uint32(buffer[12:16])
	entrySize := binary.BigEndian.Uint32(buffer[16:20])
	numEntries := binary.BigEndian.Uint32(buffer[20:24])
	blockSize := binary.BigEndian.Uint32(buffer[24:28])
	flags := binary.BigEndian.Uint32(buffer[28:32])

	if entrySize != tocEntrySize {
		return nil, corrupt("toc", fmt.Sprintf("entry size %d, expected %d", entrySize, tocEntrySize), nil)
	}
	if flags != flagPlainTOC {
		return nil, corrupt("toc", fmt.Sprintf("unsupported archive flags 0x%x", flags), nil)
	}
	if blockSize == 0 {
		return nil, corrupt("header", "zero block size", nil)
	}
	if numEntries == 0 {
		return nil, corrupt("toc", "no entries (missing name manifest)", nil)
	}

	tocBytes := uint64(numEntries) * tocEntrySize
	if uint64(tocSize) < headerSize+tocBytes || uint64(tocSize) > uint64(len(buffer)) {
		return nil, corrupt("toc", fmt.Sprintf("declared TOC size %d exceeds buffer of %d bytes", tocSize, len(buffer)), nil)
	}

	a := &Archive{data: buffer, blockSize: blockSize}

	cursor := headerSize
	a.toc = make([]tocEntry, numEntries)
	for i := range a.toc {
		raw := buffer[cursor : cursor+tocEntrySize]
		copy(a.toc[i].nameDigest[:], raw[0:16])
		a.toc[i].blockIndex = binary.BigEndian.Uint32(raw[16:20])
		a.toc[i].uncompressedSize = readUint40(raw[20:25])
		a.toc[i].offset = readUint40(raw[25:30])
		cursor += tocEntrySize
	}

	blockTable := buffer[cursor:tocSize]
	if len(blockTable)%2 != 0 {
		return nil, corrupt("toc", "ragged block length table", nil)
	}
	a.blockLengths = make([]uint16, len(blockTable)/2)
	for i := range a.blockLengths {
		a.blockLengths[i] = binary.BigEndian.Uint16(blockTable[2*i:])
	}

	for i, entry := range a.toc {
		if entry.offset > uint64(len(buffer)) {
			return nil, corrupt("toc", fmt.Sprintf("entry %d offset %d exceeds buffer of %d bytes", i, entry.offset, len(buffer)), nil)
		}
		if entry.uncompressedSize > 0 && entry.blockIndex >= uint32(len(a.blockLengths)) {
			return nil, corrupt("toc", fmt.Sprintf("entry %d block index %d out of range", i, entry.blockIndex), nil)
		}
	}

	if err := a.readNameManifest(); err != nil {
		return nil, err
	}
	return a, nil
}

// readNameManifest inflates TOC entry 0 and binds paths to entries 1..N.
func (a *Archive) readNameManifest() error {
	raw, err := a.inflateTOCEntry(0)
	if err != nil {
		return corrupt("name manifest", "entry 0 unreadable", err)
	}
	var names []string
	if len(raw) > 0 {
		names = strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	}
	if len(names) != len(a.toc)-1 {
		return corrupt("name manifest", fmt.Sprintf("%d names for %d entries", len(names), len(a.toc)-1), nil)
	}
	a.entries = make([]Entry, len(names))
	for i, name := range names {
		a.entries[i] = Entry{
			Path:             name,
			Index:            i,
			UncompressedSize: int64(a.toc[i+1].uncompressedSize),
		}
	}
	return nil
}

// List returns the ordered internal paths. The result is identical on every
// call for the same Archive.
func (a *Archive) List() []string {
	paths := make([]string, len(a.entries))
	for i, entry := range a.entries {
		paths[i] = entry.Path
	}
	return paths
}

// EntryCount returns the number of named entries.
func (a *Archive) EntryCount() int {
	return len(a.entries)
}

// Entry returns the metadata for a named entry by index.
func (a *Archive) Entry(index int) (Entry, error) {
	if index < 0 || index >= len(a.entries) {
		return Entry{}, services.Wrap(services.ErrNotFound, "psarc", "entry", fmt.Sprintf("index %d out of range", index), nil)
	}
	return a.entries[index], nil
}

// Find returns the indices of entries whose path contains substr.
func (a *Archive) Find(substr string) []int {
	var matches []int
	for i, entry := range a.entries {
		if strings.Contains(entry.Path, substr) {
			matches = append(matches, i)
		}
	}
	return matches
}

// FindSuffix returns the indices of entries whose path ends in suffix.
func (a *Archive) FindSuffix(suffix string) []int {
	var matches []int
	for i, entry := range a.entries {
		if strings.HasSuffix(entry.Path, suffix) {
			matches = append(matches, i)
		}
	}
	return matches
}

func readUint40(b []byte) uint64 {
	return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4])
}

func corrupt(operation, message string, err error) error {
	return services.Wrap(services.ErrCorruptArchive, "psarc", operation, message, err)
}
