package logging

// Standardized attribute keys shared by pipeline components.
const (
	FieldComponent   = "component"
	FieldArchive     = "archive"
	FieldEntry       = "entry"
	FieldEntryIndex  = "entry_index"
	FieldSong        = "song"
	FieldArtist      = "artist"
	FieldArrangement = "arrangement"
	FieldManifest    = "manifest"
	FieldDuration    = "duration"
)
