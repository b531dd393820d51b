package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/vision-portal/internal/logger"
)

func setupLayout(t *testing.T) *Layout {
	t.Helper()
	tmpDir := t.TempDir()
	layout, err := NewLayout(
		filepath.Join(tmpDir, "uploads"),
		filepath.Join(tmpDir, "outputs"),
		[]string{"png", "jpg", "jpeg", "mp4"},
		logger.NewNopLogger(),
	)
	require.NoError(t, err)
	return layout
}

func TestUserDirsIdempotent(t *testing.T) {
	layout := setupLayout(t)

	up1, out1, err := layout.UserDirs("alice")
	require.NoError(t, err)
	assert.DirExists(t, up1)
	assert.DirExists(t, out1)

	up2, out2, err := layout.UserDirs("alice")
	require.NoError(t, err)
	assert.Equal(t, up1, up2)
	assert.Equal(t, out1, out2)
}

func TestUserDirsArePartitioned(t *testing.T) {
	layout := setupLayout(t)

	upA, outA, err := layout.UserDirs("alice")
	require.NoError(t, err)
	upB, outB, err := layout.UserDirs("bob")
	require.NoError(t, err)

	assert.NotEqual(t, upA, upB)
	assert.NotEqual(t, outA, outB)
}

func TestAllowedExtensions(t *testing.T) {
	layout := setupLayout(t)

	tests := []struct {
		name    string
		allowed bool
	}{
		{"photo.png", true},
		{"photo.jpg", true},
		{"photo.jpeg", true},
		{"clip.mp4", true},
		{"PHOTO.PNG", true},
		{"Clip.MP4", true},
		{"archive.zip", false},
		{"script.sh", false},
		{"noextension", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, layout.Allowed(tt.name), "filename %q", tt.name)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.png", "photo.png"},
		{"../../etc/passwd", "passwd"},
		{"..\\..\\boot.ini", "boot.ini"},
		{"dir/sub/name.jpg", "name.jpg"},
		{"we ird na$me!.png", "weirdname.png"},
		{"..", ""},
		{".", ""},
		{"...", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestUniqueNameInjective(t *testing.T) {
	layout := setupLayout(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name, err := layout.UniqueName("same.png")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(name, ".png"))
		assert.False(t, seen[name], "duplicate generated name %q", name)
		seen[name] = true
	}
}

func TestUniqueNameRejectsBadType(t *testing.T) {
	layout := setupLayout(t)

	_, err := layout.UniqueName("evil.exe")
	assert.ErrorIs(t, err, ErrInvalidFileType)

	_, err = layout.UniqueName("..")
	assert.ErrorIs(t, err, ErrEmptyFilename)
}

func TestSaveUpload(t *testing.T) {
	layout := setupLayout(t)

	name, err := layout.SaveUpload("alice", "photo.PNG", strings.NewReader("imagedata"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))

	path, err := layout.UploadPath("alice", name)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "imagedata", string(data))
}

func TestSaveUploadRejectsInvalidType(t *testing.T) {
	layout := setupLayout(t)

	_, err := layout.SaveUpload("alice", "malware.exe", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidFileType)

	// No side effects in the upload dir
	uploadDir, _, err := layout.UserDirs("alice")
	require.NoError(t, err)
	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPathsStayInsideUserDirs(t *testing.T) {
	layout := setupLayout(t)

	path, err := layout.OutputPath("alice", "../../bob/secret.png")
	require.NoError(t, err)
	_, outputDir, err := layout.UserDirs("alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "secret.png"), path)
}

func TestListOutputs(t *testing.T) {
	layout := setupLayout(t)
	_, outputDir, err := layout.UserDirs("alice")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "b.mp4"), []byte("v"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "a.png"), []byte("i"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "a.png.json"), []byte("{}"), 0644))

	files, err := layout.ListOutputs("alice")
	require.NoError(t, err)
	require.Len(t, files, 2)

	// Sorted by name, sidecar excluded
	assert.Equal(t, "a.png", files[0].Name)
	assert.Equal(t, KindImage, files[0].Kind)
	assert.Equal(t, "b.mp4", files[1].Name)
	assert.Equal(t, KindVideo, files[1].Kind)
}

func TestClearUser(t *testing.T) {
	layout := setupLayout(t)
	uploadDir, outputDir, err := layout.UserDirs("alice")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "raw.png"), []byte("r"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "out.png"), []byte("o"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "out.png.json"), []byte("{}"), 0644))

	require.NoError(t, layout.ClearUser("alice"))

	for _, dir := range []string{uploadDir, outputDir} {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.DirExists(t, dir)
	}
}

func TestClearOutputsLeavesUploads(t *testing.T) {
	layout := setupLayout(t)
	uploadDir, outputDir, err := layout.UserDirs("alice")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "raw.png"), []byte("r"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "out.png"), []byte("o"), 0644))

	require.NoError(t, layout.ClearOutputs("alice"))

	upEntries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Len(t, upEntries, 1)

	outEntries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Empty(t, outEntries)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindVideo, KindOf("a.mp4"))
	assert.Equal(t, KindVideo, KindOf("a.MP4"))
	assert.Equal(t, KindImage, KindOf("a.png"))
	assert.Equal(t, KindImage, KindOf("a.jpeg"))
}
