package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxFilenameLength is the maximum length for a filename
const MaxFilenameLength = 200

// ErrPathEscapes indicates a relative path would resolve outside its base
var ErrPathEscapes = errors.New("path escapes base directory")

// Windows reserved names
var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// invalidCharsRegex matches invalid filename characters
var invalidCharsRegex = regexp.MustCompile(`[<>:"|?*\\/]`)

// multipleSpacesRegex matches multiple consecutive spaces/dashes
var multipleSpacesRegex = regexp.MustCompile(`[-_\s]+`)

// SanitizeFilename sanitizes a string for use as a filename
func SanitizeFilename(name string) string {
	original := name

	// Remove invalid characters
	name = invalidCharsRegex.ReplaceAllString(name, "-")

	// Replace multiple spaces/dashes with single dash
	name = multipleSpacesRegex.ReplaceAllString(name, "-")

	// Separate extension from base name
	ext := filepath.Ext(name)
	baseName := strings.TrimSuffix(name, ext)

	// Trim leading/trailing dashes and spaces from base name
	baseName = strings.Trim(baseName, "- ")

	// Check if we had invalid character substitutions
	// If original had invalid chars that created dashes before extension,
	// and the extension exists, preserve one dash before extension
	hadSubstitutions := (original != name) && invalidCharsRegex.MatchString(original)
	if hadSubstitutions && ext != "" && strings.HasSuffix(name, "-."+ext[1:]) {
		// Reconstruct with dash before extension
		name = baseName + "-" + ext
	} else {
		// Reconstruct normally
		if ext != "" {
			name = baseName + ext
		} else {
			name = baseName
		}
	}

	// Check for Windows reserved names
	upper := strings.ToUpper(name)
	baseNameUpper := strings.TrimSuffix(upper, filepath.Ext(upper))
	if windowsReserved[baseNameUpper] {
		name = "_" + name
	}

	// Limit length
	if len(name) > MaxFilenameLength {
		ext := filepath.Ext(name)
		name = name[:MaxFilenameLength-len(ext)] + ext
	}

	// Ensure the name is not empty
	if name == "" {
		name = "untitled"
	}

	return name
}

// RepositoryDirName returns a directory name for a namespace/project pair
func RepositoryDirName(namespace, project string) string {
	return SanitizeFilename(namespace + "-" + project)
}

// SafeJoin joins a slash-separated relative path onto baseDir, refusing
// absolute paths and any path that climbs out of baseDir
func SafeJoin(baseDir, relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathEscapes)
	}
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || strings.HasPrefix(relPath, "/") ||
		clean == "." || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, relPath)
	}
	return filepath.Join(baseDir, clean), nil
}

// EnsureDir ensures the parent directory of path exists
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}
