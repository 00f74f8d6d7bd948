package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"galleria/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	DataDir          string
	DatabaseDir      string
	Port             string
	MetricsPort      string
	MetricsEnabled   bool
	PageSize         int
	FFmpegPath       string
	ThumbnailTimeout time.Duration
	LogStaticFiles   bool
	LogHealthChecks  bool
	BaseURL          string
	SessionDuration  time.Duration

	// Derived paths
	DatabasePath string
}

// DefaultPageSize is the gallery page size used when PAGE_SIZE is not set.
const DefaultPageSize = 9

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	dataDir := getEnv("DATA_DIR", "/data")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	pageSize := getEnvInt("PAGE_SIZE", DefaultPageSize)
	ffmpegPath := getEnv("FFMPEG_PATH", "ffmpeg")
	thumbnailTimeoutStr := getEnv("THUMBNAIL_TIMEOUT", "30s")
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	baseURL := getEnv("BASE_URL", "http://localhost:8080")
	sessionDurationStr := getEnv("SESSION_DURATION", "168h")

	logging.Info("  DATA_DIR:          %s", dataDir)
	logging.Info("  DATABASE_DIR:      %s", databaseDir)
	logging.Info("  PORT:              %s", port)
	logging.Info("  METRICS_PORT:      %s", metricsPort)
	logging.Info("  METRICS_ENABLED:   %v", metricsEnabled)
	logging.Info("  PAGE_SIZE:         %d", pageSize)
	logging.Info("  FFMPEG_PATH:       %s", ffmpegPath)
	logging.Info("  THUMBNAIL_TIMEOUT: %s", thumbnailTimeoutStr)
	logging.Info("  BASE_URL:          %s", baseURL)
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())

	if pageSize < 1 {
		logging.Warn("  Invalid PAGE_SIZE, using default: %d", DefaultPageSize)
		pageSize = DefaultPageSize
	}

	thumbnailTimeout, err := time.ParseDuration(thumbnailTimeoutStr)
	if err != nil {
		logging.Warn("  Invalid THUMBNAIL_TIMEOUT, using default: 30s")
		thumbnailTimeout = 30 * time.Second
	}

	sessionDuration, err := time.ParseDuration(sessionDurationStr)
	if err != nil {
		logging.Warn("  Invalid SESSION_DURATION, using default: 168h")
		sessionDuration = 168 * time.Hour
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute): %s", dataDir)

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	config := &Config{
		DataDir:          dataDir,
		DatabaseDir:      databaseDir,
		Port:             port,
		MetricsPort:      metricsPort,
		MetricsEnabled:   metricsEnabled,
		PageSize:         pageSize,
		FFmpegPath:       ffmpegPath,
		ThumbnailTimeout: thumbnailTimeout,
		LogStaticFiles:   logStaticFiles,
		LogHealthChecks:  logHealthChecks,
		BaseURL:          strings.TrimRight(baseURL, "/"),
		SessionDuration:  sessionDuration,
		DatabasePath:     filepath.Join(databaseDir, "galleria.db"),
	}

	// Both directories are required: uploads without a writable data dir or a
	// catalog without a writable database dir cannot serve any request.
	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable: %w", err)
	}
	logging.Info("  [OK] Data directory is writable")

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	checkFFmpeg(config.FFmpegPath)

	return config, nil
}

// checkFFmpeg verifies the configured ffmpeg executable is reachable.
// Video ingestion fails without it; photo ingestion is unaffected.
func checkFFmpeg(path string) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		logging.Warn("  FFmpeg not found at %q: %v", path, err)
		logging.Warn("  Video uploads will fail until FFMPEG_PATH points at a working binary")
		return
	}
	logging.Info("  [OK] FFmpeg available: %s", resolved)
}

// LogServerStarted logs the final startup summary
func LogServerStarted(port string, elapsed time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER READY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Listening on :%s (startup took %v)", port, elapsed.Round(time.Millisecond))
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	logging.Printf("============================================================")
	logging.Printf("  Galleria %s (%s)", Version, Commit)
	logging.Printf("  %s %s/%s", GoVersion, runtime.GOOS, runtime.GOARCH)
	logging.Printf("============================================================")
}

func ensureDirectory(path, name string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Info("  Creating %s directory: %s", name, path)
		return os.MkdirAll(path, 0o755)
	}
	if err != nil {
		return fmt.Errorf("cannot stat %s directory: %w", name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path exists but is not a directory: %s", name, path)
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("  failed to remove test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
