// Package subtitles renders burned-in captions. Each spoken word opens a cue
// showing a small window of neighbouring words with the current one
// highlighted.
package subtitles
