package psarc

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"fretforge/internal/services"
)

// ReadEntry inflates a named entry and returns a freshly allocated buffer.
// Decompression happens per call; nothing is cached between calls.
func (a *Archive) ReadEntry(index int) ([]byte, error) {
	if index < 0 || index >= len(a.entries) {
		return nil, services.Wrap(services.ErrNotFound, "psarc", "read entry", fmt.Sprintf("index %d out of range", index), nil)
	}
	data, err := a.inflateTOCEntry(index + 1)
	if err != nil {
		if services.ArchiveFatal(err) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrDecompression, "psarc", "read entry", a.entries[index].Path, err)
	}
	return data, nil
}

// inflateTOCEntry walks the entry's block chain, inflating zlib blocks and
// passing stored blocks through, until the declared size is reached.
func (a *Archive) inflateTOCEntry(tocIndex int) ([]byte, error) {
	entry := a.toc[tocIndex]
	if entry.uncompressedSize == 0 {
		return []byte{}, nil
	}

	out := make([]byte, 0, entry.uncompressedSize)
	cursor := entry.offset
	block := int(entry.blockIndex)

	for uint64(len(out)) < entry.uncompressedSize {
		if block >= len(a.blockLengths) {
			return nil, corrupt("inflate entry", fmt.Sprintf("block chain ran past the block table at block %d", block), nil)
		}
		// A zero length marks a full block stored without compression.
		compLen := uint64(a.blockLengths[block])
		if compLen == 0 {
			compLen = uint64(a.blockSize)
		}
		if cursor+compLen > uint64(len(a.data)) {
			return nil, corrupt("inflate entry", fmt.Sprintf("block %d range [%d, %d) exceeds buffer of %d bytes", block, cursor, cursor+compLen, len(a.data)), nil)
		}
		raw := a.data[cursor : cursor+compLen]

		if len(raw) > 0 && raw[0] == zlibFirstByte {
			inflated, err := inflate(raw)
			if err != nil {
				return nil, fmt.Errorf("inflate block %d: %w", block, err)
			}
			out = append(out, inflated...)
		} else {
			out = append(out, raw...)
		}

		cursor += compLen
		block++
	}

	if uint64(len(out)) != entry.uncompressedSize {
		return nil, fmt.Errorf("decoded %d bytes, TOC declares %d", len(out), entry.uncompressedSize)
	}
	return out, nil
}

func inflate(raw []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
