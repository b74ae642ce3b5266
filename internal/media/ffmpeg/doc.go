// Package ffmpeg drives the ffmpeg binary for the background and composition
// stages. Output is produced in the stage's leased work directory and moved
// into the artifact layout only when ffmpeg succeeds.
package ffmpeg
