package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ronnedahl/video-app-date/transcodes"
)

var gitSHA string
var buildDate string

const (
	DefaultPort           = 3000
	DefaultMaxUploadBytes = 100 * 1024 * 1024
	DefaultSweepInterval  = time.Hour
)

var DefaultAllowedExtensions = []string{".mp4", ".mov", ".avi"}

// Config is everything the server reads from the environment at start.
type Config struct {
	Port              int
	DataDir           string
	UploadDir         string
	CompressedDir     string
	TempDir           string
	ConfigDir         string
	MaxUploadBytes    int64
	AllowedExtensions []string
	Compression       transcodes.Options
	JobTTL            time.Duration
	SweepInterval     time.Duration
	LogLevel          string
	FfmpegPath        string
	FfprobePath       string
	Kafka             KafkaConfig
	Minio             MinioConfig
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func (m MinioConfig) Enabled() bool { return m.Endpoint != "" && m.Bucket != "" }

// Load reads the environment. Malformed numbers and durations are errors.
func Load() (Config, error) {
	port, err := intValue("VIDEO_APP_PORT", DefaultPort)
	if err != nil {
		return Config{}, err
	}
	maxUpload, err := intValue("VIDEO_APP_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return Config{}, err
	}
	width, err := intValue("VIDEO_APP_TARGET_WIDTH", 480)
	if err != nil {
		return Config{}, err
	}
	if width <= 0 {
		return Config{}, fmt.Errorf("VIDEO_APP_TARGET_WIDTH must be positive, got %d", width)
	}
	crf, err := intValue("VIDEO_APP_CRF", 28)
	if err != nil {
		return Config{}, err
	}
	ttl, err := durationValue("VIDEO_APP_JOB_TTL", 0)
	if err != nil {
		return Config{}, err
	}
	sweep, err := durationValue("VIDEO_APP_SWEEP_INTERVAL", DefaultSweepInterval)
	if err != nil {
		return Config{}, err
	}

	dataDir := GetDataDir()
	cfg := Config{
		Port:              port,
		DataDir:           dataDir,
		MaxUploadBytes:    int64(maxUpload),
		AllowedExtensions: listValue("VIDEO_APP_ALLOWED_EXTENSIONS", DefaultAllowedExtensions),
		Compression: transcodes.Options{
			VideoCodec:   stringValue("VIDEO_APP_VIDEO_CODEC", "libx264"),
			AudioCodec:   stringValue("VIDEO_APP_AUDIO_CODEC", "aac"),
			Width:        uint(width),
			VideoBitrate: stringValue("VIDEO_APP_VIDEO_BITRATE", "800k"),
			AudioBitrate: stringValue("VIDEO_APP_AUDIO_BITRATE", "96k"),
			Preset:       stringValue("VIDEO_APP_PRESET", "medium"),
			CRF:          crf,
		},
		JobTTL:        ttl,
		SweepInterval: sweep,
		LogLevel:      stringValue("VIDEO_APP_LOG_LEVEL", "debug"),
		FfmpegPath:    stringValue("FFMPEG_PATH", "ffmpeg"),
		FfprobePath:   stringValue("FFPROBE_PATH", "ffprobe"),
		Kafka: KafkaConfig{
			Brokers: listValue("KAFKA_BROKERS", nil),
			Topic:   stringValue("VIDEO_EVENTS_TOPIC", "video-jobs"),
		},
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    boolValue("MINIO_USE_SSL"),
			Bucket:    os.Getenv("MINIO_BUCKET"),
		},
	}
	cfg.SetDataDir(dataDir)
	return cfg, nil
}

// SetDataDir points every directory that was not set explicitly in the
// environment at dataDir.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	c.UploadDir = stringValue("VIDEO_APP_UPLOAD_DIR", filepath.Join(dataDir, "uploads"))
	c.CompressedDir = stringValue("VIDEO_APP_COMPRESSED_DIR", filepath.Join(dataDir, "compressed"))
	c.TempDir = stringValue("VIDEO_APP_TEMP_DIR", filepath.Join(dataDir, "temp"))
	c.ConfigDir = stringValue("VIDEO_APP_CONFIG_DIR", filepath.Join(dataDir, "config"))
}

// Dirs are created at start.
func (c Config) Dirs() []string {
	return []string{c.UploadDir, c.CompressedDir, c.TempDir, c.ConfigDir}
}

func GetDataDir() string {
	value, exists := os.LookupEnv("VIDEO_APP_DATA_DIR")
	if exists {
		return value
	}
	return "data"
}

func GetGitSHA() string {
	if gitSHA == "" {
		return "<not provided>"
	} else {
		return gitSHA
	}
}

func GetBuildDate() string {
	if buildDate == "" {
		return "<not provided>"
	} else {
		return buildDate
	}
}

func stringValue(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func intValue(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationValue(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func boolValue(key string) bool {
	if value, exists := os.LookupEnv(key); exists {
		lower := strings.ToLower(value)
		if lower == "on" || lower == "1" || lower == "true" || lower == "yes" {
			return true
		}
	}
	return false
}

// listValue splits a comma separated variable.
func listValue(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
