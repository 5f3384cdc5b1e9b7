package testsupport

import (
	"bytes"
	"encoding/binary"

	"fretforge/internal/sng"
)

// ChartBuilder assembles chart blobs in the wire layout internal/sng decodes.
// The zero value emits a header-only chart.
type ChartBuilder struct {
	sections []chartSection
}

type chartSection struct {
	tag      uint32
	count    uint32
	elemSize uint32
	payload  []byte
}

// RawSection appends an arbitrary section, useful for unknown-tag tests.
func (b *ChartBuilder) RawSection(tag, count, elemSize uint32, payload []byte) *ChartBuilder {
	b.sections = append(b.sections, chartSection{tag: tag, count: count, elemSize: elemSize, payload: payload})
	return b
}

// Beats appends a beat-grid section.
func (b *ChartBuilder) Beats(beats []sng.Beat) *ChartBuilder {
	var buf bytes.Buffer
	for _, beat := range beats {
		writeFloat64(&buf, beat.TimeSeconds)
		binary.Write(&buf, binary.LittleEndian, beat.Measure)
		var flags uint32
		if beat.MeasureStart {
			flags = 1
		}
		binary.Write(&buf, binary.LittleEndian, flags)
	}
	return b.RawSection(1, uint32(len(beats)), 16, buf.Bytes())
}

// Sections appends a song-section list.
func (b *ChartBuilder) Sections(sections []sng.Section) *ChartBuilder {
	var buf bytes.Buffer
	for _, section := range sections {
		writeName(&buf, section.Name)
		writeFloat64(&buf, section.StartTimeSeconds)
	}
	return b.RawSection(2, uint32(len(sections)), 40, buf.Bytes())
}

// ChordTemplates appends a chord-template section.
func (b *ChartBuilder) ChordTemplates(templates []sng.ChordTemplate) *ChartBuilder {
	var buf bytes.Buffer
	for _, template := range templates {
		writeName(&buf, template.Name)
		for _, fret := range template.Frets {
			buf.WriteByte(byte(fret))
		}
		for _, finger := range template.Fingers {
			buf.WriteByte(byte(finger))
		}
	}
	return b.RawSection(4, uint32(len(templates)), 44, buf.Bytes())
}

// Notes appends a note-event section.
func (b *ChartBuilder) Notes(notes []sng.Note) *ChartBuilder {
	var buf bytes.Buffer
	for _, note := range notes {
		writeFloat64(&buf, note.TimeSeconds)
		writeFloat64(&buf, note.SustainSeconds)
		buf.WriteByte(byte(note.String))
		buf.WriteByte(byte(note.Fret))
		buf.WriteByte(byte(note.Techniques))
		buf.WriteByte(0)
		binary.Write(&buf, binary.LittleEndian, note.ChordID)
	}
	return b.RawSection(5, uint32(len(notes)), 24, buf.Bytes())
}

// Metadata appends a metadata section.
func (b *ChartBuilder) Metadata(meta sng.Metadata) *ChartBuilder {
	var buf bytes.Buffer
	writeFloat64(&buf, meta.SongLengthSeconds)
	writeFloat64(&buf, meta.FirstNoteSeconds)
	binary.Write(&buf, binary.LittleEndian, meta.CapoFret)
	binary.Write(&buf, binary.LittleEndian, int32(0))
	return b.RawSection(6, 1, 24, buf.Bytes())
}

// Tuning appends a tuning section.
func (b *ChartBuilder) Tuning(offsets [6]int16) *ChartBuilder {
	var buf bytes.Buffer
	for _, offset := range offsets {
		binary.Write(&buf, binary.LittleEndian, offset)
	}
	return b.RawSection(7, 1, 12, buf.Bytes())
}

// Build renders the chart blob.
func (b *ChartBuilder) Build() []byte {
	var out bytes.Buffer
	out.WriteString("CHRT")
	binary.Write(&out, binary.LittleEndian, uint16(1))
	binary.Write(&out, binary.LittleEndian, uint16(0))
	for _, section := range b.sections {
		binary.Write(&out, binary.LittleEndian, section.tag)
		binary.Write(&out, binary.LittleEndian, section.count)
		binary.Write(&out, binary.LittleEndian, section.elemSize)
		out.Write(section.payload)
	}
	return out.Bytes()
}

// StandardChart builds a small, well-formed chart: four measures of 4/4 at
// 120 BPM, a handful of notes, one chord template, standard tuning.
func StandardChart() []byte {
	var beats []sng.Beat
	for i := 0; i < 16; i++ {
		beats = append(beats, sng.Beat{
			TimeSeconds:  float64(i) * 0.5,
			Measure:      int32(i / 4),
			MeasureStart: i%4 == 0,
		})
	}
	builder := &ChartBuilder{}
	builder.Beats(beats).
		Sections([]sng.Section{
			{Name: "intro", StartTimeSeconds: 0},
			{Name: "verse", StartTimeSeconds: 2},
		}).
		ChordTemplates([]sng.ChordTemplate{
			{Name: "E5", Frets: [6]int8{0, 2, 2, -1, -1, -1}},
		}).
		Notes([]sng.Note{
			{TimeSeconds: 2.0, SustainSeconds: 0.5, String: 0, Fret: 3, ChordID: sng.NoChord},
			{TimeSeconds: 2.5, SustainSeconds: 0.5, String: 1, Fret: 5, ChordID: sng.NoChord, Techniques: sng.TechBend},
			{TimeSeconds: 3.0, SustainSeconds: 1.0, ChordID: 0},
		}).
		Metadata(sng.Metadata{SongLengthSeconds: 8, FirstNoteSeconds: 2}).
		Tuning([6]int16{0, 0, 0, 0, 0, 0})
	return builder.Build()
}
