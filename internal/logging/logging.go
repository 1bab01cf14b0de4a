package logging

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Logger is shared by every package. It discards everything until Initialize
// enables debug logging.
var Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// Initialize points Logger at a debug log file and returns its path, or ""
// when debug logging is off. Child processes inherit the choice through
// ITORY_DEBUG and ITORY_DEBUG_FILE.
func Initialize(debug bool, debugFile string, maxLogFiles int) (string, error) {
	debug, debugFile, maxLogFiles = fromEnv(debug, debugFile, maxLogFiles)
	if !debug && debugFile == "" {
		Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		return "", nil
	}

	logFilePath, err := logFileFor(debugFile, maxLogFiles)
	if err != nil {
		return "", err
	}

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	Logger = slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With("pid", os.Getpid())

	if os.Getenv("ITORY_DEBUG") == "" {
		Logger.Info("Debug logging initialized", "log_file", logFilePath)
		fmt.Fprintf(os.Stderr, "Debug mode enabled. Logs: %s\n", logFilePath)
	}
	return logFilePath, nil
}

func fromEnv(debug bool, debugFile string, maxLogFiles int) (bool, string, int) {
	if os.Getenv("ITORY_DEBUG") == "1" {
		debug = true
	}
	if debugFile == "" {
		debugFile = os.Getenv("ITORY_DEBUG_FILE")
	}
	if v := os.Getenv("ITORY_MAX_LOG_FILES"); v != "" && maxLogFiles == 1000 {
		if n, err := strconv.Atoi(v); err == nil {
			maxLogFiles = n
		}
	}
	return debug, debugFile, maxLogFiles
}

// logFileFor returns debugFile as is, or a fresh file in the rotated log
// directory when no file was requested
func logFileFor(debugFile string, maxLogFiles int) (string, error) {
	if debugFile != "" {
		if err := os.MkdirAll(filepath.Dir(debugFile), 0755); err != nil {
			return "", fmt.Errorf("failed to create log directory: %w", err)
		}
		return debugFile, nil
	}

	logDir, err := logDirectory()
	if err != nil {
		return "", fmt.Errorf("failed to get log directory: %w", err)
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	if maxLogFiles > 0 {
		if err := rotateLogs(logDir, maxLogFiles); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: log rotation failed: %v\n", err)
		}
	}
	return filepath.Join(logDir, uuid.NewString()+".log"), nil
}

// rotateLogs deletes the oldest .log files so that one more fits under maxLogFiles
func rotateLogs(logDir string, maxLogFiles int) error {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	type logFile struct {
		modTime time.Time
		path    string
	}
	var files []logFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{modTime: info.ModTime(), path: filepath.Join(logDir, entry.Name())})
	}

	excess := len(files) - maxLogFiles + 1
	if excess <= 0 {
		return nil
	}
	slices.SortFunc(files, func(a, b logFile) int { return a.modTime.Compare(b.modTime) })
	for _, f := range files[:excess] {
		if err := os.Remove(f.path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to delete old log file %s: %v\n", f.path, err)
		}
	}
	return nil
}

func logDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "itory"), nil
	case "linux":
		state := cmp.Or(os.Getenv("XDG_STATE_HOME"), filepath.Join(home, ".local", "state"))
		return filepath.Join(state, "itory"), nil
	case "windows":
		local := cmp.Or(os.Getenv("LOCALAPPDATA"), filepath.Join(home, "AppData", "Local"))
		return filepath.Join(local, "itory", "logs"), nil
	default:
		return filepath.Join(home, ".itory", "logs"), nil
	}
}
