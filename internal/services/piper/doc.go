// Package piper implements the speech stage on top of the piper TTS CLI.
// Passage text is written to piper's stdin and the WAV it produces is moved
// into the audio artifact directory.
package piper
