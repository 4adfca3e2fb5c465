// Package fanout distributes completed transcripts to the storage sinks and
// the downstream file-drop queue. Every artifact is written with a temp-file
// and rename, so re-running fan-out for the same recording replaces the
// artifacts instead of corrupting or duplicating them.
package fanout
