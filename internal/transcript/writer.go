package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/fileutil"
	langpkg "github.com/mwidera/plenum/internal/language"
	"github.com/mwidera/plenum/internal/services"
	"github.com/mwidera/plenum/internal/services/whisper"
)

// Writer renders transcription results into markdown artifacts.
type Writer struct {
	dir        string
	model      string
	timestamps bool
}

// NewWriter constructs a writer targeting dir. When timestamps is set, the
// body carries one [HH:MM:SS] line per segment instead of flowing prose.
func NewWriter(dir, model string, timestamps bool) *Writer {
	return &Writer{dir: dir, model: model, timestamps: timestamps}
}

// PathFor returns the deterministic artifact path for a session. Reruns
// overwrite the same file.
func (w *Writer) PathFor(identifier string) string {
	return filepath.Join(w.dir, "sesja_"+identifier+".md")
}

// Write renders the artifact and returns its path. The file appears
// atomically; a crash mid-write never leaves a truncated transcript behind.
func (w *Writer) Write(item catalog.Item, res whisper.Result, fetchDur, transcribeDur time.Duration) (string, error) {
	if strings.TrimSpace(res.Text) == "" {
		return "", services.Wrap(services.ErrEmptyResult, "transcript", "write",
			fmt.Sprintf("refusing to write empty transcript for session %s", item.Identifier), nil)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "transcript", "write",
			fmt.Sprintf("create transcript directory %s", w.dir), err)
	}

	path := w.PathFor(item.Identifier)
	content := w.render(item, res, fetchDur, transcribeDur)
	if err := fileutil.WriteAtomic(path, []byte(content), 0o644); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "transcript", "write",
			fmt.Sprintf("write transcript %s", path), err)
	}
	return path, nil
}

func (w *Writer) render(item catalog.Item, res whisper.Result, fetchDur, transcribeDur time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", item.Title)
	fmt.Fprintf(&b, "- **Sesja:** %s\n", item.Identifier)
	if item.Publisher != "" {
		fmt.Fprintf(&b, "- **Organ:** %s\n", item.Publisher)
	}
	fmt.Fprintf(&b, "- **Data publikacji:** %s\n", item.PublishedDisplay())
	fmt.Fprintf(&b, "- **Źródło:** %s\n", item.SourceURL)
	fmt.Fprintf(&b, "- **Model:** %s\n", w.model)
	if res.DetectedLanguage != "" {
		fmt.Fprintf(&b, "- **Język:** %s\n", langpkg.DisplayName(res.DetectedLanguage))
	}
	if fetchDur > 0 {
		fmt.Fprintf(&b, "- **Czas pobierania:** %s\n", fetchDur.Round(time.Second))
	}
	if transcribeDur > 0 {
		fmt.Fprintf(&b, "- **Czas transkrypcji:** %s\n", transcribeDur.Round(time.Second))
	}
	fmt.Fprintf(&b, "- **Wygenerowano:** %s\n", time.Now().Format("2006-01-02 15:04"))
	b.WriteString("\n---\n\n")

	if w.timestamps && len(res.Segments) > 0 {
		for _, seg := range res.Segments {
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				continue
			}
			fmt.Fprintf(&b, "[%s] %s\n", formatTimestamp(seg.Start), text)
		}
	} else {
		b.WriteString(strings.TrimSpace(res.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
