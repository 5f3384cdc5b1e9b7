package sng

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"fretforge/internal/services"
)

// Section tags. Unknown tags are skipped by declared length.
const (
	tagBeats          uint32 = 1
	tagSections       uint32 = 2
	tagPhrases        uint32 = 3
	tagChordTemplates uint32 = 4
	tagNotes          uint32 = 5
	tagMetadata       uint32 = 6
	tagTuning         uint32 = 7
)

// Fixed record sizes per section tag. A known tag with a different element
// size is corruption, not forward compatibility.
const (
	beatRecordSize          = 16
	sectionRecordSize       = 40
	phraseRecordSize        = 40
	chordTemplateRecordSize = 44
	noteRecordSize          = 24
	metadataRecordSize      = 24
	tuningRecordSize        = 12

	chartHeaderSize  = 8
	sectionHeaderLen = 12
	chartVersion     = 1
)

var chartMagic = [4]byte{'C', 'H', 'R', 'T'}

// Decode parses one chart blob into a Song.
func Decode(data []byte) (*Song, error) {
	if len(data) < chartHeaderSize {
		return nil, formatErr("header", fmt.Sprintf("blob is %d bytes, need at least %d", len(data), chartHeaderSize), nil)
	}
	if !bytes.Equal(data[0:4], chartMagic[:]) {
		return nil, formatErr("header", fmt.Sprintf("bad magic %q", data[0:4]), nil)
	}
	if version := binary.LittleEndian.Uint16(data[4:6]); version != chartVersion {
		return nil, formatErr("header", fmt.Sprintf("unsupported chart version %d", version), nil)
	}

	song := &Song{}
	cursor := chartHeaderSize
	for cursor < len(data) {
		if len(data)-cursor < sectionHeaderLen {
			return nil, formatErr("section header", fmt.Sprintf("%d trailing bytes", len(data)-cursor), nil)
		}
		tag := binary.LittleEndian.Uint32(data[cursor:])
		count := binary.LittleEndian.Uint32(data[cursor+4:])
		elemSize := binary.LittleEndian.Uint32(data[cursor+8:])
		cursor += sectionHeaderLen

		payloadLen := uint64(count) * uint64(elemSize)
		if payloadLen > uint64(len(data)-cursor) {
			return nil, formatErr("section payload", fmt.Sprintf("tag %d declares %d bytes, %d remain", tag, payloadLen, len(data)-cursor), nil)
		}
		payload := data[cursor : cursor+int(payloadLen)]
		cursor += int(payloadLen)

		var err error
		switch tag {
		case tagBeats:
			err = song.decodeBeats(payload, count, elemSize)
		case tagSections:
			err = song.decodeSections(payload, count, elemSize)
		case tagPhrases:
			err = song.decodePhrases(payload, count, elemSize)
		case tagChordTemplates:
			err = song.decodeChordTemplates(payload, count, elemSize)
		case tagNotes:
			err = song.decodeNotes(payload, count, elemSize)
		case tagMetadata:
			err = song.decodeMetadata(payload, count, elemSize)
		case tagTuning:
			err = song.decodeTuning(payload, count, elemSize)
		default:
			// Forward compatibility: unrecognized sections are length-
			// prefixed precisely so older readers can step over them.
		}
		if err != nil {
			return nil, err
		}
	}

	if len(song.Beats) == 0 {
		return nil, formatErr("validate", "chart has no beat grid", nil)
	}
	for i := 1; i < len(song.Sections); i++ {
		if song.Sections[i].StartTimeSeconds < song.Sections[i-1].StartTimeSeconds {
			return nil, formatErr("validate", fmt.Sprintf("section %q starts before its predecessor", song.Sections[i].Name), nil)
		}
	}
	return song, nil
}

func (s *Song) decodeBeats(payload []byte, count, elemSize uint32) error {
	if elemSize != beatRecordSize {
		return sizeMismatch("beats", elemSize, beatRecordSize)
	}
	s.Beats = make([]Beat, count)
	for i := range s.Beats {
		rec := payload[i*beatRecordSize:]
		s.Beats[i] = Beat{
			TimeSeconds:  readFloat64(rec),
			Measure:      int32(binary.LittleEndian.Uint32(rec[8:])),
			MeasureStart: binary.LittleEndian.Uint32(rec[12:])&1 != 0,
		}
	}
	return nil
}

func (s *Song) decodeSections(payload []byte, count, elemSize uint32) error {
	if elemSize != sectionRecordSize {
		return sizeMismatch("sections", elemSize, sectionRecordSize)
	}
	s.Sections = make([]Section, count)
	for i := range s.Sections {
		rec := payload[i*sectionRecordSize:]
		s.Sections[i] = Section{
			Name:             readName(rec[:32]),
			StartTimeSeconds: readFloat64(rec[32:]),
		}
	}
	return nil
}

func (s *Song) decodePhrases(payload []byte, count, elemSize uint32) error {
	if elemSize != phraseRecordSize {
		return sizeMismatch("phrases", elemSize, phraseRecordSize)
	}
	s.Phrases = make([]Phrase, count)
	for i := range s.Phrases {
		rec := payload[i*phraseRecordSize:]
		s.Phrases[i] = Phrase{
			Name:           readName(rec[:32]),
			MaxDifficulty:  int32(binary.LittleEndian.Uint32(rec[32:])),
			IterationCount: int32(binary.LittleEndian.Uint32(rec[36:])),
		}
	}
	return nil
}

func (s *Song) decodeChordTemplates(payload []byte, count, elemSize uint32) error {
	if elemSize != chordTemplateRecordSize {
		return sizeMismatch("chord templates", elemSize, chordTemplateRecordSize)
	}
	s.ChordTemplates = make([]ChordTemplate, count)
	for i := range s.ChordTemplates {
		rec := payload[i*chordTemplateRecordSize:]
		template := ChordTemplate{Name: readName(rec[:32])}
		for j := 0; j < 6; j++ {
			template.Frets[j] = int8(rec[32+j])
			template.Fingers[j] = int8(rec[38+j])
		}
		s.ChordTemplates[i] = template
	}
	return nil
}

func (s *Song) decodeNotes(payload []byte, count, elemSize uint32) error {
	if elemSize != noteRecordSize {
		return sizeMismatch("notes", elemSize, noteRecordSize)
	}
	s.Notes = make([]Note, count)
	for i := range s.Notes {
		rec := payload[i*noteRecordSize:]
		s.Notes[i] = Note{
			TimeSeconds:    readFloat64(rec),
			SustainSeconds: readFloat64(rec[8:]),
			String:         int8(rec[16]),
			Fret:           int8(rec[17]),
			Techniques:     TechniqueFlags(rec[18]),
			ChordID:        int32(binary.LittleEndian.Uint32(rec[20:])),
		}
	}
	return nil
}

func (s *Song) decodeMetadata(payload []byte, count, elemSize uint32) error {
	if elemSize != metadataRecordSize {
		return sizeMismatch("metadata", elemSize, metadataRecordSize)
	}
	if count == 0 {
		return nil
	}
	// Later metadata records win; charts normally carry exactly one.
	rec := payload[(count-1)*metadataRecordSize:]
	s.Metadata = Metadata{
		SongLengthSeconds: readFloat64(rec),
		FirstNoteSeconds:  readFloat64(rec[8:]),
		CapoFret:          int32(binary.LittleEndian.Uint32(rec[16:])),
	}
	return nil
}

func (s *Song) decodeTuning(payload []byte, count, elemSize uint32) error {
	if elemSize != tuningRecordSize {
		return sizeMismatch("tuning", elemSize, tuningRecordSize)
	}
	if count == 0 {
		return nil
	}
	rec := payload[(count-1)*tuningRecordSize:]
	for i := 0; i < 6; i++ {
		s.Tuning[i] = int16(binary.LittleEndian.Uint16(rec[2*i:]))
	}
	return nil
}

func readFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func readName(b []byte) string {
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		b = b[:idx]
	}
	return string(b)
}

func sizeMismatch(section string, got, want uint32) error {
	return formatErr(section, fmt.Sprintf("element size %d, expected %d", got, want), nil)
}

func formatErr(operation, message string, err error) error {
	return services.Wrap(services.ErrChartFormat, "sng", operation, message, err)
}
