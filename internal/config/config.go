package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `env:"PORT" validate:"required,numeric"`
	MaxContentLength  int64         `env:"MAX_CONTENT_LENGTH" validate:"gt=0"`
	ProcessingTimeout time.Duration `env:"PROCESSING_TIMEOUT" validate:"gt=0"`
	UploadFolder      string        `env:"UPLOAD_FOLDER" validate:"required"`

	Database DatabaseConfig
	Blob     BlobConfig
	STT      STTConfig
	Audio    AudioConfig
	Log      LogConfig
}

// DatabaseConfig selects and addresses the metadata store.
type DatabaseConfig struct {
	Driver         string // sqlite or postgres
	Path           string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" validate:"gte=0"`
}

// BlobConfig selects and addresses the blob store.
type BlobConfig struct {
	Backend        string // local or s3
	Root           string
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// STTConfig configures the speech recognition provider.
type STTConfig struct {
	Provider        string        `env:"STT_PROVIDER" validate:"oneof=google openai fpt"`
	Language        string        `env:"STT_LANGUAGE" validate:"required"`
	HTTPTimeout     time.Duration `env:"STT_HTTP_TIMEOUT" validate:"gt=0"`
	OpenAIKey       string
	OpenAIBaseURL   string
	OpenAIModel     string
	GoogleKeyData   string
	GoogleProjectID string
	GoogleURL       string
	FPTApiKey       string
	FPTSTTURL       string
}

// AudioConfig configures the canonical-format converter.
type AudioConfig struct {
	FFmpegPath string `env:"FFMPEG_PATH" validate:"required"`
	SampleRate int    `env:"AUDIO_SAMPLE_RATE" validate:"gte=0,lte=192000"`
	Channels   int    `env:"AUDIO_CHANNELS" validate:"gte=0,lte=8"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"`
	Format string `env:"LOG_FORMAT" validate:"omitempty,oneof=text json"`
	File   string `env:"LOG_FILE"`
}

var defaults = map[string]any{
	"PORT":                "8080",
	"MAX_CONTENT_LENGTH":  "16MiB",
	"PROCESSING_TIMEOUT":  "30",
	"UPLOAD_FOLDER":       "uploads",
	"DB_DRIVER":           "sqlite",
	"DB_PATH":             "data/transcriptions.db",
	"DB_HOST":             "localhost",
	"DB_PORT":             5432,
	"DB_NAME":             "transcriptions_db",
	"DB_SSLMODE":          "disable",
	"DB_CONNECT_TIMEOUT":  "15s",
	"BLOB_BACKEND":        "local",
	"BLOB_ROOT":           "data/blobs",
	"S3_REGION":           "us-east-1",
	"STT_PROVIDER":        "google",
	"STT_LANGUAGE":        "en-US",
	"STT_HTTP_TIMEOUT":    "90s",
	"OPENAI_STT_MODEL":    "whisper-1",
	"GOOGLE_STT_URL":      "https://speech.googleapis.com",
	"FPT_AI_STT_URL":      "https://api.fpt.ai/hmi/asr/v1",
	"FFMPEG_PATH":         "ffmpeg",
	"AUDIO_SAMPLE_RATE":   0,
	"AUDIO_CHANNELS":      0,
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "text",
	"S3_FORCE_PATH_STYLE": false,
}

// NewViper returns a viper instance bound to the process environment with
// every known key defaulted.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return v
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return FromViper(NewViper())
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	maxLen, err := ParseSize(v.GetString("MAX_CONTENT_LENGTH"))
	if err != nil {
		return nil, fmt.Errorf("MAX_CONTENT_LENGTH: %w", err)
	}
	timeout, err := ParseTimeout(v.GetString("PROCESSING_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("PROCESSING_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Port:              v.GetString("PORT"),
		MaxContentLength:  maxLen,
		ProcessingTimeout: timeout,
		UploadFolder:      v.GetString("UPLOAD_FOLDER"),
		Database: DatabaseConfig{
			Driver:         strings.ToLower(v.GetString("DB_DRIVER")),
			Path:           v.GetString("DB_PATH"),
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetInt("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASS"),
			Name:           v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			ConnectTimeout: v.GetDuration("DB_CONNECT_TIMEOUT"),
		},
		Blob: BlobConfig{
			Backend:        strings.ToLower(v.GetString("BLOB_BACKEND")),
			Root:           v.GetString("BLOB_ROOT"),
			Bucket:         v.GetString("S3_BUCKET"),
			Region:         v.GetString("S3_REGION"),
			Endpoint:       v.GetString("S3_ENDPOINT"),
			AccessKey:      v.GetString("S3_ACCESS_KEY"),
			SecretKey:      v.GetString("S3_SECRET_KEY"),
			ForcePathStyle: v.GetBool("S3_FORCE_PATH_STYLE"),
		},
		STT: STTConfig{
			Provider:        strings.ToLower(v.GetString("STT_PROVIDER")),
			Language:        v.GetString("STT_LANGUAGE"),
			HTTPTimeout:     v.GetDuration("STT_HTTP_TIMEOUT"),
			OpenAIKey:       v.GetString("OPENAI_API_KEY"),
			OpenAIBaseURL:   v.GetString("OPENAI_BASE_URL"),
			OpenAIModel:     v.GetString("OPENAI_STT_MODEL"),
			GoogleKeyData:   v.GetString("GOOGLE_STT_KEY_FILE"),
			GoogleProjectID: v.GetString("GOOGLE_STT_PROJECT_ID"),
			GoogleURL:       v.GetString("GOOGLE_STT_URL"),
			FPTApiKey:       v.GetString("FPT_AI_API_KEY"),
			FPTSTTURL:       v.GetString("FPT_AI_STT_URL"),
		},
		Audio: AudioConfig{
			FFmpegPath: v.GetString("FFMPEG_PATH"),
			SampleRate: v.GetInt("AUDIO_SAMPLE_RATE"),
			Channels:   v.GetInt("AUDIO_CHANNELS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			File:   v.GetString("LOG_FILE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator. Field errors are reported under
// the environment key of the field.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get("env"); name != "" {
				return name
			}
			return fld.Name
		})
	})
	return validate
}

// Validate checks field constraints from the struct tags, then the
// driver-specific requirements that tags cannot express.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			if fe.Param() != "" {
				return fmt.Errorf("invalid %s %q: must satisfy %s=%s", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag(), fe.Param())
			}
			return fmt.Errorf("invalid %s %q: %s", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag())
		}
		return err
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s. Supported: sqlite, postgres", c.Database.Driver)
	}
	switch c.Blob.Backend {
	case "local":
		if c.Blob.Root == "" {
			return fmt.Errorf("BLOB_ROOT is required for the local blob backend")
		}
	case "s3":
		if c.Blob.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 blob backend")
		}
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND: %s. Supported: local, s3", c.Blob.Backend)
	}
	return nil
}

// ParseSize parses a byte size such as "16MiB", "16 MB" or "16777216".
// Only a number with an optional unit suffix is accepted.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("size is empty")
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n == 0 || n > 1<<40 {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return int64(n), nil
}

// ParseTimeout parses a whole number of seconds or a Go duration string.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if secs, err := strconv.Atoi(s); err == nil {
		d = time.Duration(secs) * time.Second
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout %q", s)
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %q", s)
	}
	return d, nil
}
