package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver provides robust path resolution for the lexiserve binary
type PathResolver struct {
	executablePath string
	executableDir  string
	configDir      string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}

	// Resolve any symlinks to get the actual binary location
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	execDir := filepath.Dir(execPath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  execDir,
		configDir:      getConfigDir(homeDir),
	}

	log.Debugf("PathResolver initialized: exec=%s, execDir=%s, configDir=%s",
		execPath, execDir, pr.configDir)

	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, ".config", "lexiserve")
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "lexiserve")
		}
		return filepath.Join(homeDir, ".config", "lexiserve")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "lexiserve")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "lexiserve")
	default:
		return filepath.Join(homeDir, ".lexiserve")
	}
}

// GetDataDir resolves the directory holding dictionary and concept files.
// Candidates are tried in order: the user path as given (if absolute),
// relative to the executable, relative to the working directory, then a few
// conventional locations.
func (pr *PathResolver) GetDataDir(userSpecifiedPath string) (string, error) {
	var candidatePaths []string

	if filepath.IsAbs(userSpecifiedPath) {
		candidatePaths = append(candidatePaths, userSpecifiedPath)
	}

	execRelativePath := filepath.Join(pr.executableDir, userSpecifiedPath)
	candidatePaths = append(candidatePaths, execRelativePath)

	if cwd, err := os.Getwd(); err == nil {
		candidatePaths = append(candidatePaths, filepath.Join(cwd, userSpecifiedPath))
	}

	commonPaths := []string{
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
		filepath.Join(pr.configDir, "data"),
	}
	candidatePaths = append(candidatePaths, commonPaths...)

	for _, path := range candidatePaths {
		if pr.isValidDataDir(path) {
			log.Debugf("Found valid data directory: %s", path)
			return path, nil
		}
		log.Debugf("Data directory candidate not valid: %s", path)
	}

	// If nothing found, return the most likely path for error reporting
	return execRelativePath, nil
}

// isValidDataDir checks if a directory contains loadable vocabulary files
func (pr *PathResolver) isValidDataDir(path string) bool {
	if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
		return false
	}

	for _, pattern := range []string{"dict_*.bin", "*.txt", "concepts.toml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}

