package cheatsheet

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sozercan/cheatsheet-ai/internal/config"
)

func TestSummarize(t *testing.T) {
	assert.Equal(t, "# Cheatsheet\n\n", Summarize(nil).Markdown)
	assert.Equal(t, "# Cheatsheet\n\n", Summarize([]string{}).Markdown)

	doc := Summarize([]string{"a", "b"})
	assert.Equal(t, "# Cheatsheet\n\na\n\nb\n\n", doc.Markdown)
	assert.Empty(t, doc.Warnings)
}

func TestSummarizeReportsRepairs(t *testing.T) {
	doc := Summarize([]string{"a", "  ", "b\xff"})

	assert.Equal(t, "# Cheatsheet\n\na\n\nb\uFFFD\n\n", doc.Markdown)
	require.Len(t, doc.Warnings, 2)
	assert.Contains(t, doc.Warnings[0], "result 2 is empty")
	assert.Contains(t, doc.Warnings[1], "result 3 contained invalid UTF-8")
}

func fixedClock(ts ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestSaveCreatesMissingFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sheets")
	p := NewPersister(config.StorageConfig{OutputDir: dir, FilenameMode: ModeTimestamped})
	p.now = fixedClock(time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local))

	name, err := p.Save("# Cheatsheet\n\n", "", "en")
	require.NoError(t, err)
	assert.Equal(t, "cheatsheet_en_20240309_140507.md", name)
	assert.Regexp(t, regexp.MustCompile(`^cheatsheet_en_\d{8}_\d{6}\.md$`), name)

	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "# Cheatsheet\n\n", string(content))
}

func TestSaveTimestampedProducesDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	p := NewPersister(config.StorageConfig{FilenameMode: ModeTimestamped})
	p.now = fixedClock(
		time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local),
		time.Date(2024, 3, 9, 14, 5, 8, 0, time.Local),
	)

	first, err := p.Save("one", dir, "en")
	require.NoError(t, err)
	second, err := p.Save("two", dir, "en")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	files, err := p.List(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestSaveFixedOverwrites(t *testing.T) {
	dir := t.TempDir()
	p := NewPersister(config.StorageConfig{FilenameMode: ModeFixed})

	first, err := p.Save("one", dir, "en")
	require.NoError(t, err)
	second, err := p.Save("two", dir, "fr")
	require.NoError(t, err)

	assert.Equal(t, "cheatsheet.md", first)
	assert.Equal(t, first, second)

	content, err := os.ReadFile(filepath.Join(dir, "cheatsheet.md"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(content))

	files, err := p.List(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1, "lock file is not listed")
}

func TestFilenameSanitizesLanguage(t *testing.T) {
	p := NewPersister(config.StorageConfig{})
	p.now = fixedClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local))

	assert.Equal(t, "cheatsheet_-etc-passwd_20240102_030405.md", p.Filename("../etc/passwd"))
	assert.Equal(t, "cheatsheet_pt-BR_20240102_030405.md", p.Filename("pt-BR"))
	assert.Equal(t, "cheatsheet_xx_20240102_030405.md", p.Filename(""))
}

func TestResolveWithinRoot(t *testing.T) {
	root := t.TempDir()
	p := NewPersister(config.StorageConfig{Root: root, OutputDir: "default"})

	dir, err := p.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "default"), dir)

	dir, err = p.Resolve("team/a")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "team", "a"), dir)

	_, err = p.Resolve("../escape")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = p.Resolve("/somewhere/else")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = p.Save("x", "../../tmp", "en")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestSaveReportsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	p := NewPersister(config.StorageConfig{})
	_, err := p.Save("content", filepath.Join(blocker, "sub"), "en")
	assert.Error(t, err)
}

func TestReadRejectsPaths(t *testing.T) {
	dir := t.TempDir()
	p := NewPersister(config.StorageConfig{OutputDir: dir})

	name, err := p.Save("hello", "", "en")
	require.NoError(t, err)

	content, err := p.Read("", name)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	for _, bad := range []string{"../secret.md", ".cheatsheet.lock", "notes.txt", ""} {
		_, err := p.Read("", bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}

func TestConcurrentSavesToFixedName(t *testing.T) {
	dir := t.TempDir()
	p := NewPersister(config.StorageConfig{FilenameMode: ModeFixed})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Save("same content", dir, "en")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(filepath.Join(dir, "cheatsheet.md"))
	require.NoError(t, err)
	assert.Equal(t, "same content", string(content))
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML([]byte(Summarize([]string{"**bold** answer", "- https://go.dev"}).Markdown))
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<h1>Cheatsheet</h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, `<a href="https://go.dev">https://go.dev</a>`)
}
