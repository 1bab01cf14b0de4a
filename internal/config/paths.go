package config

import (
	"os"
	"path/filepath"
)

// GetItoryHome returns ITORY_HOME or ~/.itory default
func GetItoryHome() string {
	itoryHome := os.Getenv("ITORY_HOME")
	if itoryHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".itory"
		}
		return filepath.Join(homeDir, ".itory")
	}
	return ExpandPath(itoryHome)
}

// GetDBPath returns $ITORY_HOME/state.db
func GetDBPath() string {
	return filepath.Join(GetItoryHome(), "state.db")
}

// GetSettingsPath returns $ITORY_HOME/settings.json
func GetSettingsPath() string {
	return filepath.Join(GetItoryHome(), "settings.json")
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			if len(path) == 1 {
				return homeDir
			}
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}
