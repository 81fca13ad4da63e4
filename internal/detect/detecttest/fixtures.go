// Package detecttest locates real Haar cascades and face photos for tests
// that run the OpenCV detector end to end.
package detecttest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gocv.io/x/gocv"
)

const (
	FaceCascade = "haarcascade_frontalface_default.xml"
	EyeCascade  = "haarcascade_eye.xml"
)

var (
	moduleOnce sync.Once
	moduleDir  string
)

// gocvDir is the gocv module source directory. The module ships the frontal
// face cascade under data/ and a one-person photo at images/face.jpg.
func gocvDir() string {
	moduleOnce.Do(func() {
		out, err := exec.Command("go", "list", "-m", "-f", "{{.Dir}}", "gocv.io/x/gocv").Output()
		if err == nil {
			moduleDir = strings.TrimSpace(string(out))
		}
	})
	return moduleDir
}

// CascadeDir returns the first directory holding the frontal face cascade,
// or skips the test when none is installed.
func CascadeDir(t testing.TB) string {
	t.Helper()
	candidates := []string{
		os.Getenv("HAARCASCADE_DIR"),
		"testdata",
		"/usr/share/opencv4/haarcascades",
		"/usr/local/share/opencv4/haarcascades",
	}
	if dir := gocvDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "data"))
	}
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, FaceCascade)); err == nil {
			return dir
		}
	}
	t.Skip("haarcascade files not found, skipping test")
	return ""
}

// FacePhoto returns the path of a photo with exactly one frontal face:
// testdata/face.jpg when present, otherwise the one shipped with gocv.
func FacePhoto(t testing.TB) string {
	t.Helper()
	candidates := []string{filepath.Join("testdata", "face.jpg")}
	if dir := gocvDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "images", "face.jpg"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Fatalf("no face photo found in %v", candidates)
	return ""
}

// Faces returns BGR frames showing one and two faces. The two-face frame is
// the photo placed next to itself. Both Mats are closed on test cleanup.
func Faces(t testing.TB) (one, two gocv.Mat) {
	t.Helper()
	path := FacePhoto(t)
	one = gocv.IMRead(path, gocv.IMReadColor)
	if one.Empty() {
		one.Close()
		t.Fatalf("cannot decode %s", path)
	}
	two = gocv.NewMat()
	gocv.Hconcat(one, one, &two)
	t.Cleanup(func() {
		one.Close()
		two.Close()
	})
	return one, two
}
