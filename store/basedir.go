package store

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// Platform selects which set of default model store locations to probe.
// Keeping this explicit instead of branching on runtime.GOOS inside the
// resolver makes base directory resolution testable on any host.
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformDarwin
	PlatformWindows
)

var ErrNoBaseDir = errors.New("no model store directory found")

func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return PlatformDarwin
	case "windows":
		return PlatformWindows
	default:
		return PlatformLinux
	}
}

// DefaultBaseDirs returns the ordered candidate locations of the model
// store for a platform. Earlier entries win. Candidates that depend on
// the home directory are omitted when it cannot be determined.
func DefaultBaseDirs(platform Platform) []string {
	var dirs []string

	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".ollama", "models"))
	}

	if platform == PlatformLinux {
		dirs = append(dirs,
			filepath.Join("/var/lib/ollama", "models"),
			"/var/lib/ollama",
			filepath.Join("/usr/share/ollama", ".ollama", "models"),
			"/usr/share/ollama",
		)
	}

	return dirs
}

// ResolveBaseDir returns the model store root. A non-empty override is
// returned unchanged without probing the disk; the caller may be about
// to create it. Otherwise the first existing candidate directory for
// the platform wins, and ErrNoBaseDir is returned when none exist.
func ResolveBaseDir(override string, platform Platform) (string, error) {
	if override != "" {
		return override, nil
	}

	return firstExistingDir(DefaultBaseDirs(platform))
}

func firstExistingDir(candidates []string) (string, error) {
	for _, dir := range candidates {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir, nil
		}
	}

	return "", ErrNoBaseDir
}
