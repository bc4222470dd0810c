package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkgarden/internal/domain"
	"linkgarden/internal/storage"
)

func setupIngestTest(t *testing.T) (*Service, *storage.BadgerLinkRepository) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)

	store, err := storage.OpenBadger(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	links := store.Links()
	return NewService(links, log), links
}

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "single url",
			text:     "https://example.com/gallery/1",
			expected: []string{"https://example.com/gallery/1"},
		},
		{
			name: "urls embedded in prose",
			text: "check https://example.com/a and also http://example.org/b today",
			expected: []string{
				"https://example.com/a",
				"http://example.org/b",
			},
		},
		{
			name:     "trailing punctuation stripped",
			text:     "see https://example.com/a, then https://example.com/b.",
			expected: []string{"https://example.com/a", "https://example.com/b"},
		},
		{
			name:     "query strings kept intact",
			text:     "https://example.com/search?tags=cat&page=2",
			expected: []string{"https://example.com/search?tags=cat&page=2"},
		},
		{
			name: "one per line",
			text: "https://example.com/a\nhttps://example.com/b\n\nhttps://example.com/c\n",
			expected: []string{
				"https://example.com/a",
				"https://example.com/b",
				"https://example.com/c",
			},
		},
		{
			name:     "no urls",
			text:     "nothing to see here",
			expected: []string{},
		},
		{
			name:     "non-http schemes ignored",
			text:     "ftp://example.com/file mailto:someone@example.com",
			expected: []string{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, ExtractURLs(test.text))
		})
	}
}

func TestAddFromText(t *testing.T) {
	svc, links := setupIngestTest(t)
	ctx := context.Background()

	added, err := svc.AddFromText(ctx, "https://example.com/a and https://example.com/b", SourceClipboard, "")
	require.NoError(t, err)
	require.Len(t, added, 2)

	for _, link := range added {
		assert.Equal(t, domain.StatusPending, link.Status)
		assert.Equal(t, SourceClipboard, link.Source)
	}

	active, err := links.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	// Re-ingesting the same text must not create duplicates.
	again, err := svc.AddFromText(ctx, "https://example.com/a", SourceManual, "")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, added[0].ID, again[0].ID)

	active, err = links.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestAddFromFile(t *testing.T) {
	svc, links := setupIngestTest(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "links.txt")
	content := "https://example.com/a\nsome note\nhttps://example.com/b\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	added, err := svc.AddFromFile(ctx, path)
	require.NoError(t, err)
	require.Len(t, added, 2)

	for _, link := range added {
		assert.Equal(t, SourceFile, link.Source)
		assert.Equal(t, path, link.SourceFile)
	}

	active, err := links.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestAddFromFile_MissingFile(t *testing.T) {
	svc, _ := setupIngestTest(t)

	_, err := svc.AddFromFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
