package teardown

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"profile_teardown/model"
)

// Artifact names under a subject directory. Collaborators read these paths.
const (
	RawProfileFile    = "screenshot.png"
	PostScreenshotDir = "post_screenshots"
	CleanDir          = "clean_content"
	TeardownDir       = "editorial_teardown"

	OCRFile       = "ocr.json"
	DiagnosesFile = "diagnoses.json"
	EvidenceFile  = "evidence.json"
	PlaybooksFile = "playbooks.json"
	RenderedFile  = "rendered.json"
	SummaryFile   = "teardown_summary.json"
)

var postFile = regexp.MustCompile(`^post_(\d+)\.png$`)

// Discover lists the content items of a subject: the profile screenshot
// first, then post screenshots in numeric order keyed post_1..N.
func Discover(dir string) ([]model.ContentItem, error) {
	var items []model.ContentItem
	profile := filepath.Join(dir, RawProfileFile)
	if _, err := os.Stat(profile); err == nil {
		items = append(items, model.ContentItem{Key: model.ProfileKey, RawPath: profile, State: model.StatePending})
	}

	entries, err := os.ReadDir(filepath.Join(dir, PostScreenshotDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list post screenshots: %w", err)
	}
	type post struct {
		n    int
		path string
	}
	var posts []post
	for _, e := range entries {
		m := postFile.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		posts = append(posts, post{n: n, path: filepath.Join(dir, PostScreenshotDir, e.Name())})
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].n < posts[j].n })
	for i, p := range posts {
		items = append(items, model.ContentItem{Key: model.PostKey(i + 1), RawPath: p.path, State: model.StatePending})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no screenshots found in %s", dir)
	}
	return items, nil
}

// Store reads and writes the per-subject artifacts. Every per-item file is
// namespaced by its content key.
type Store struct {
	dir string
}

func NewStore(dir string) *Store { return &Store{dir: dir} }

func (s *Store) Dir() string { return s.dir }

func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

func (s *Store) CleanPath(key model.ContentKey) string {
	return filepath.Join(s.dir, CleanDir, fmt.Sprintf("clean_%s.png", key))
}

func (s *Store) TeardownPath(key model.ContentKey) string {
	return filepath.Join(s.dir, TeardownDir, fmt.Sprintf("%s_teardown.png", key))
}

func (s *Store) PlaybookTextPath(key model.ContentKey) string {
	return filepath.Join(s.dir, TeardownDir, fmt.Sprintf("%s_playbook.txt", key))
}

func (s *Store) BriefPath(key model.ContentKey) string {
	return filepath.Join(s.dir, TeardownDir, fmt.Sprintf("%s_brief.html", key))
}

// WriteJSON writes v indented to the named artifact.
func (s *Store) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return s.WriteFile(s.Path(name), data)
}

// ReadJSON decodes the named artifact. A missing file returns an error
// matching fs.ErrNotExist.
func (s *Store) ReadJSON(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Summary is teardown_summary.json.
type Summary struct {
	RunID           string                           `json:"run_id"`
	Timestamp       time.Time                        `json:"timestamp"`
	DurationSeconds float64                          `json:"duration_seconds"`
	SubjectDir      string                           `json:"subject_dir"`
	ResumedFrom     Stage                            `json:"resumed_from,omitempty"`
	ContentCount    int                              `json:"content_count"`
	States          map[model.ContentKey]model.State `json:"states"`
	Errors          map[model.ContentKey]string      `json:"errors,omitempty"`
	QualityScore    int                              `json:"quality_score"`
	QualityPassed   bool                             `json:"quality_passed"`
	Quality         model.QualityReport              `json:"quality"`
	Outputs         SummaryOutputs                   `json:"outputs"`
}

type SummaryOutputs struct {
	CleanContent   map[model.ContentKey]model.IsolatedImage `json:"clean_content"`
	OCRFile        string                                   `json:"ocr_file"`
	DiagnosesFile  string                                   `json:"diagnoses_file"`
	EvidenceFile   string                                   `json:"evidence_file"`
	PlaybooksFile  string                                   `json:"playbooks_file"`
	RenderedFile   string                                   `json:"rendered_file"`
	TeardownImages map[model.ContentKey]string              `json:"teardown_images"`
	PlaybookTexts  map[model.ContentKey]string              `json:"playbook_texts"`
	Briefs         map[model.ContentKey]string              `json:"briefs,omitempty"`
}

// artifacts is what a resumed run reuses from an earlier one.
type artifacts struct {
	Clean     map[model.ContentKey]model.IsolatedImage
	OCR       map[model.ContentKey][]model.OCRElement
	Diagnoses map[model.ContentKey]model.Verdict
	Evidence  map[model.ContentKey]model.EvidenceResult
	Playbooks map[model.ContentKey]model.Playbook
	Rendered  map[model.ContentKey]string
}

// loadArtifacts reads whatever earlier stages persisted. Missing files leave
// the corresponding map empty.
func (s *Store) loadArtifacts() (*artifacts, error) {
	a := &artifacts{}
	var sum Summary
	files := []struct {
		name string
		v    any
	}{
		{SummaryFile, &sum},
		{OCRFile, &a.OCR},
		{DiagnosesFile, &a.Diagnoses},
		{EvidenceFile, &a.Evidence},
		{PlaybooksFile, &a.Playbooks},
		{RenderedFile, &a.Rendered},
	}
	for _, f := range files {
		if err := s.ReadJSON(f.name, f.v); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	a.Clean = sum.Outputs.CleanContent
	return a, nil
}
