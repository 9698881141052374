package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"distill/internal/config"
	"distill/internal/ingest"
	"distill/internal/logging"
	"distill/internal/services"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestExtractTextFile(t *testing.T) {
	extractor := NewExtractor(config.Tools{}, logging.NewNop())
	path := writeFile(t, "notes.md", "# Heading\n\nBody text.")
	text, err := extractor.Extract(context.Background(), path, ingest.KindDocument)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "# Heading\n\nBody text." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractWebpage(t *testing.T) {
	extractor := NewExtractor(config.Tools{}, logging.NewNop())
	path := writeFile(t, "page.html", `<html><head><style>p{}</style><script>alert(1)</script></head>
<body><nav>menu</nav><h1>Title</h1><p>First paragraph.</p><footer>footer</footer></body></html>`)
	text, err := extractor.Extract(context.Background(), path, ingest.KindWebpage)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "Title") || !strings.Contains(text, "First paragraph.") {
		t.Fatalf("expected body text, got %q", text)
	}
	for _, boilerplate := range []string{"menu", "footer", "alert"} {
		if strings.Contains(text, boilerplate) {
			t.Fatalf("boilerplate %q leaked into %q", boilerplate, text)
		}
	}
}

func TestExtractAudioRunsTranscriber(t *testing.T) {
	extractor := NewExtractor(config.Tools{TranscriberCommand: "whisper-cli --output txt"}, logging.NewNop())
	var gotName string
	var gotArgs []string
	extractor.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		return []byte("transcribed words\n"), nil
	})
	text, err := extractor.Extract(context.Background(), "/data/uploads/talk.mp3", ingest.KindAudio)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "transcribed words" {
		t.Fatalf("unexpected text: %q", text)
	}
	if gotName != "whisper-cli" {
		t.Fatalf("unexpected command: %q", gotName)
	}
	want := []string{"--output", "txt", "/data/uploads/talk.mp3"}
	if len(gotArgs) != len(want) {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Fatalf("arg %d: expected %q, got %q", i, want[i], gotArgs[i])
		}
	}
}

func TestExtractImageWithoutOCRConfigured(t *testing.T) {
	extractor := NewExtractor(config.Tools{}, logging.NewNop())
	_, err := extractor.Extract(context.Background(), "scan.png", ingest.KindImage)
	if err == nil {
		t.Fatal("expected error without ocr command")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestExtractToolFailure(t *testing.T) {
	extractor := NewExtractor(config.Tools{ConverterCommand: "markitdown"}, logging.NewNop())
	toolErr := errors.New("exit status 2")
	extractor.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, toolErr
	})
	_, err := extractor.Extract(context.Background(), "report.pdf", ingest.KindDocument)
	if err == nil {
		t.Fatal("expected tool failure to propagate")
	}
	if !errors.Is(err, toolErr) {
		t.Fatalf("expected wrapped tool error, got %v", err)
	}
	if services.Kind(err) != services.KindStageFailure {
		t.Fatalf("expected stage_failure kind, got %q", services.Kind(err))
	}
}

func TestExtractEmptyToolOutput(t *testing.T) {
	extractor := NewExtractor(config.Tools{OCRCommand: "tess"}, logging.NewNop())
	extractor.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("   \n"), nil
	})
	if _, err := extractor.Extract(context.Background(), "scan.jpg", ingest.KindImage); err == nil {
		t.Fatal("expected error for empty tool output")
	}
}
