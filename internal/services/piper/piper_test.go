package piper_test

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"versereel/internal/logging"
	"versereel/internal/services"
	"versereel/internal/services/piper"
	"versereel/internal/stage"
	"versereel/internal/storage"
	"versereel/internal/testsupport"
)

func TestSynthesizeWritesAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Speech.Speaker = 2
	cfg.Speech.LengthScale = 1.1
	layout := storage.NewLayout(cfg.Paths.OutputDir)

	var gotStdin string
	var gotArgs []string
	svc := piper.New("", cfg.Speech, layout, logging.NewNop()).WithRunner(
		func(_ context.Context, stdin, _ string, args ...string) error {
			gotStdin = stdin
			gotArgs = args
			return os.WriteFile(args[slices.Index(args, "--output_file")+1], []byte("RIFF"), 0o644)
		})

	path, err := svc.Synthesize(context.Background(), stage.SpeechRequest{
		Key:     "JOHN_11_35",
		Text:    "  Jesus wept. ",
		WorkDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if path != layout.Path(storage.KindAudio, "JOHN_11_35", ".wav") || !testsupport.Exists(t, path) {
		t.Fatalf("unexpected audio path %q", path)
	}
	if gotStdin != "Jesus wept." {
		t.Fatalf("unexpected stdin %q", gotStdin)
	}
	for _, flag := range []string{"--model", "--speaker", "--length_scale"} {
		if !slices.Contains(gotArgs, flag) {
			t.Fatalf("missing %s in %v", flag, gotArgs)
		}
	}
}

func TestSynthesizeEmptyOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := piper.New("piper", cfg.Speech, storage.NewLayout(cfg.Paths.OutputDir), nil).WithRunner(
		func(context.Context, string, string, ...string) error { return nil })

	_, err := svc.Synthesize(context.Background(), stage.SpeechRequest{Key: "JOHN_11_35", Text: "Jesus wept."})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestSynthesizeRejectsBlankText(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	called := false
	svc := piper.New("", cfg.Speech, storage.NewLayout(cfg.Paths.OutputDir), nil).WithRunner(
		func(context.Context, string, string, ...string) error { called = true; return nil })
	if _, err := svc.Synthesize(context.Background(), stage.SpeechRequest{Key: "X_1_1", Text: " "}); err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Fatal("piper should not run for blank text")
	}
}
