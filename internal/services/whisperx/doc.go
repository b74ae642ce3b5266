// Package whisperx implements the alignment stage by running WhisperX through
// uvx and flattening its word-level output into stage.WordTiming records.
//
// Model, device and VAD settings come from config.Alignment. A pyannote VAD
// run picks up HF_TOKEN from the environment.
package whisperx
