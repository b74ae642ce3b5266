package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"versereel/internal/stage"
)

// Stage names used by FakeStages to count calls and inject failures.
const (
	FakeBackground  = "background"
	FakeSpeech      = "speech"
	FakeAlignment   = "alignment"
	FakeSubtitles   = "subtitles"
	FakeComposition = "composition"
	FakeUpload      = "upload"
)

// ErrInjected is returned by fake stages told to fail.
var ErrInjected = errors.New("injected stage failure")

// FakeStages implements every stage contract by writing small placeholder
// files under a temp directory. Failures can be injected per stage and call
// number.
type FakeStages struct {
	dir string

	mu         sync.Mutex
	calls      map[string][]string
	failOnCall map[string]map[int]error
	uploads    []stage.UploadRequest
	measured   float64
}

// NewFakeStages returns fakes writing artifacts under a fresh temp dir.
func NewFakeStages(t testing.TB) *FakeStages {
	t.Helper()
	return &FakeStages{
		dir:        t.TempDir(),
		calls:      make(map[string][]string),
		failOnCall: make(map[string]map[int]error),
	}
}

// FailOnCall makes the n-th call (1-based) to the named stage return err
// (ErrInjected when nil).
func (f *FakeStages) FailOnCall(name string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	if f.failOnCall[name] == nil {
		f.failOnCall[name] = make(map[int]error)
	}
	f.failOnCall[name][n] = err
}

// Calls returns the keys passed to the named stage, in call order.
func (f *FakeStages) Calls(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls[name]...)
}

// Uploads returns every upload request received.
func (f *FakeStages) Uploads() []stage.UploadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stage.UploadRequest(nil), f.uploads...)
}

// SetMeasuredDuration sets the value returned by the fake prober.
func (f *FakeStages) SetMeasuredDuration(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.measured = seconds
}

func (f *FakeStages) record(name, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name] = append(f.calls[name], key)
	return f.failOnCall[name][len(f.calls[name])]
}

func (f *FakeStages) write(name, key, ext string) (string, error) {
	if err := f.record(name, key); err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, name, key+ext)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(name+":"+key), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Background returns the fake background stage.
func (f *FakeStages) Background() stage.Background { return fakeBackground{f} }

// Speech returns the fake speech stage.
func (f *FakeStages) Speech() stage.Speech { return fakeSpeech{f} }

// Aligner returns the fake alignment stage. It writes a valid timings file.
func (f *FakeStages) Aligner() stage.Aligner { return fakeAligner{f} }

// Subtitler returns the fake subtitle stage.
func (f *FakeStages) Subtitler() stage.Subtitler { return fakeSubtitler{f} }

// Composer returns the fake composition stage.
func (f *FakeStages) Composer() stage.Composer { return fakeComposer{f} }

// Uploader returns the fake uploader. Remote ids are "remote-<n>".
func (f *FakeStages) Uploader() stage.Uploader { return fakeUploader{f} }

// Prober returns a prober reporting the value set by SetMeasuredDuration.
func (f *FakeStages) Prober() stage.DurationProber { return fakeProber{f} }

type fakeBackground struct{ f *FakeStages }

func (b fakeBackground) Render(_ context.Context, req stage.BackgroundRequest) (string, error) {
	return b.f.write(FakeBackground, req.Key, ".mp4")
}

type fakeSpeech struct{ f *FakeStages }

func (s fakeSpeech) Synthesize(_ context.Context, req stage.SpeechRequest) (string, error) {
	return s.f.write(FakeSpeech, req.Key, ".wav")
}

type fakeAligner struct{ f *FakeStages }

func (a fakeAligner) Align(_ context.Context, req stage.AlignRequest) (string, error) {
	if err := a.f.record(FakeAlignment, req.Key); err != nil {
		return "", err
	}
	path := filepath.Join(a.f.dir, FakeAlignment, req.Key+".json")
	timings := []stage.WordTiming{{Word: "word", Start: 0, End: 0.4}}
	if err := stage.WriteWordTimings(path, timings); err != nil {
		return "", err
	}
	return path, nil
}

type fakeSubtitler struct{ f *FakeStages }

func (s fakeSubtitler) Render(_ context.Context, req stage.SubtitleRequest) (string, error) {
	return s.f.write(FakeSubtitles, req.Key, ".ass")
}

type fakeComposer struct{ f *FakeStages }

func (c fakeComposer) Compose(_ context.Context, req stage.ComposeRequest) (string, error) {
	return c.f.write(FakeComposition, req.Key, ".mp4")
}

type fakeUploader struct{ f *FakeStages }

func (u fakeUploader) Upload(_ context.Context, req stage.UploadRequest) (stage.UploadResult, error) {
	if err := u.f.record(FakeUpload, filepath.Base(req.Path)); err != nil {
		return stage.UploadResult{}, err
	}
	u.f.mu.Lock()
	u.f.uploads = append(u.f.uploads, req)
	n := len(u.f.uploads)
	u.f.mu.Unlock()
	id := fmt.Sprintf("remote-%d", n)
	return stage.UploadResult{RemoteID: id, RemoteURL: "https://youtube.com/shorts/" + id}, nil
}

type fakeProber struct{ f *FakeStages }

func (p fakeProber) Duration(context.Context, string) (float64, error) {
	p.f.mu.Lock()
	defer p.f.mu.Unlock()
	if p.f.measured <= 0 {
		return 0, errors.New("no measured duration configured")
	}
	return p.f.measured, nil
}
