// Package importer drives the archive import pipeline: read the container,
// decode each song's arrangements, transcode the full mix, generate notation
// and timing artifacts, and commit the song to the library. Archive-level
// failures abort the run; song-level failures are collected so a multi-song
// archive reports partial success.
package importer
