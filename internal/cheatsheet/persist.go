package cheatsheet

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/sozercan/cheatsheet-ai/internal/config"
)

const (
	ModeTimestamped = "timestamped"
	ModeFixed       = "fixed"

	fixedName       = "cheatsheet.md"
	timestampLayout = "20060102_150405"
	lockName        = ".cheatsheet.lock"
)

var (
	ErrOutsideRoot = errors.New("output folder is outside the storage root")
	ErrInvalidName = errors.New("invalid cheatsheet name")
)

var unsafeLanguage = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileInfo describes a saved cheatsheet.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Persister writes cheatsheets to disk.
type Persister struct {
	defaultDir string
	root       string
	mode       string
	now        func() time.Time
}

func NewPersister(cfg config.StorageConfig) *Persister {
	mode := cfg.FilenameMode
	if mode == "" {
		mode = ModeTimestamped
	}
	dir := cfg.OutputDir
	if dir == "" {
		dir = "./cheatsheets/"
	}
	return &Persister{
		defaultDir: dir,
		root:       cfg.Root,
		mode:       mode,
		now:        time.Now,
	}
}

// Resolve maps a requested folder to the directory that will be written.
// An empty folder means the configured default.
func (p *Persister) Resolve(folder string) (string, error) {
	if strings.TrimSpace(folder) == "" {
		folder = p.defaultDir
	}
	if p.root == "" {
		return filepath.Clean(folder), nil
	}

	root := filepath.Clean(p.root)
	if !filepath.IsAbs(folder) {
		folder = filepath.Join(root, folder)
	}
	folder = filepath.Clean(folder)

	rel, err := filepath.Rel(root, folder)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, folder)
	}
	return folder, nil
}

// Filename returns the name a cheatsheet in language gets at the current time.
func (p *Persister) Filename(language string) string {
	if p.mode == ModeFixed {
		return fixedName
	}
	lang := unsafeLanguage.ReplaceAllString(language, "-")
	if lang == "" {
		lang = "xx"
	}
	return fmt.Sprintf("cheatsheet_%s_%s.md", lang, p.now().Format(timestampLayout))
}

// Save writes content into folder, creating it if needed, and returns the
// file name. Writers to the same folder are serialized with a lock file.
func (p *Persister) Save(content, folder, language string) (string, error) {
	dir, err := p.Resolve(folder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output folder: %w", err)
	}

	name := p.Filename(language)
	path := filepath.Join(dir, name)

	lock := flock.New(filepath.Join(dir, lockName))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("locking output folder: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release output folder lock", "dir", dir, "error", err)
		}
	}()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing cheatsheet: %w", err)
	}

	slog.Info("Cheatsheet saved", "path", path)
	return name, nil
}

// List returns the cheatsheets in folder, newest first.
func (p *Persister) List(folder string) ([]FileInfo, error) {
	dir, err := p.Resolve(folder)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !validName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Modified.Equal(files[j].Modified) {
			return files[i].Name > files[j].Name
		}
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Read returns the content of a saved cheatsheet. name must be a bare file name.
func (p *Persister) Read(folder, name string) ([]byte, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	dir, err := p.Resolve(folder)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(dir, name))
}

func validName(name string) bool {
	return name != "" &&
		filepath.Base(name) == name &&
		!strings.HasPrefix(name, ".") &&
		strings.HasSuffix(name, ".md")
}
