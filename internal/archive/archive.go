// Package archive keeps a plain-file copy of stored summaries under a base
// directory, one markdown file per owner, period and period start, plus an
// append-only JSONL index of everything written.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

const indexFile = "index.jsonl"

// Archive writes summaries below basePath
type Archive struct {
	basePath  string
	indexLock sync.Mutex
}

// IndexEntry is one line of index.jsonl
type IndexEntry struct {
	Owner       string `json:"owner"`
	Period      string `json:"period"`
	PeriodStart string `json:"period_start"`
	Path        string `json:"path"`
	CreatedAt   string `json:"created_at"`
}

// New creates the base directory if needed
func New(basePath string) (*Archive, error) {
	if basePath == "" {
		return nil, fmt.Errorf("archive directory is empty")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &Archive{basePath: basePath}, nil
}

// BasePath returns the archive root
func (a *Archive) BasePath() string {
	return a.basePath
}

// WriteSummary stores the summary as Summaries/{owner}/{period}/{period_start}.md,
// replacing any earlier copy for the same key, and returns the relative path.
func (a *Archive) WriteSummary(record models.SummaryRecord) (string, error) {
	if record.Period == "" {
		return "", fmt.Errorf("summary needs a period")
	}
	day, err := signals.ParseDate(record.PeriodStart)
	if err != nil {
		return "", fmt.Errorf("summary period start %q must be YYYY-MM-DD: %w", record.PeriodStart, err)
	}
	record.PeriodStart = signals.DateKey(day)

	relPath := filepath.Join("Summaries", slugify(record.UserID), slugify(record.Period), record.PeriodStart+".md")
	if err := WriteFileAtomic(filepath.Join(a.basePath, relPath), []byte(summaryContent(record))); err != nil {
		return "", fmt.Errorf("writing summary: %w", err)
	}

	if err := a.appendIndex(IndexEntry{
		Owner:       record.UserID,
		Period:      record.Period,
		PeriodStart: record.PeriodStart,
		Path:        filepath.ToSlash(relPath),
		CreatedAt:   record.CreatedAt,
	}); err != nil {
		return relPath, err
	}

	return relPath, nil
}

func (a *Archive) appendIndex(entry IndexEntry) error {
	a.indexLock.Lock()
	defer a.indexLock.Unlock()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling index entry: %w", err)
	}
	if err := AppendLine(filepath.Join(a.basePath, indexFile), line); err != nil {
		return fmt.Errorf("appending index: %w", err)
	}
	return nil
}

func summaryContent(record models.SummaryRecord) string {
	return fmt.Sprintf("---\nowner: %s\nperiod: %s\nperiod_start: %s\ncreated: %s\n---\n\n%s\n",
		record.UserID,
		record.Period,
		record.PeriodStart,
		record.CreatedAt,
		record.Text,
	)
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// slugify maps an owner or period onto a safe single path segment
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "_", "-", ".", "-").Replace(s)
	s = nonSlugChars.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	if s == "" {
		s = "unknown"
	}
	return s
}
