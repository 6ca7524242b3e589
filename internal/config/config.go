package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"contours/internal/services/vision"
)

type Config struct {
	Port            int
	Password        string
	AuthEnabled     bool
	DatabasePath    string
	ImageDirectory  string
	LogDirectory    string
	StaticDirectory string
	MaxImageHeight  int // taller images are downscaled before detection

	// Detection tuning, OpenCV HSV ranges (hue 0-180)
	LowHueMax     int
	HighHueMin    int
	MinSaturation int
	MinValue      int
	OpenKernel    int
	CloseKernel   int
}

// Load reads the configuration from the environment. Values from a .env file
// in the working directory are applied first; a missing file is fine.
func Load() *Config {
	_ = godotenv.Load()

	defaults := vision.DefaultParams()

	return &Config{
		Port:            getEnvAsInt("PORT", 8080),
		Password:        getEnv("PASSWORD", "contours"),
		AuthEnabled:     getEnvAsBool("AUTH_ENABLED", true),
		DatabasePath:    getEnv("DB_PATH", filepath.Join(".", "data", "contours.db")),
		ImageDirectory:  getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory: getEnv("STATIC_DIR", filepath.Join(".", "static")),
		MaxImageHeight:  getEnvAsInt("MAX_IMAGE_HEIGHT", vision.DefaultMaxHeight),
		LowHueMax:       getEnvAsInt("LOW_HUE_MAX", defaults.LowHueMax),
		HighHueMin:      getEnvAsInt("HIGH_HUE_MIN", defaults.HighHueMin),
		MinSaturation:   getEnvAsInt("MIN_SATURATION", defaults.MinSaturation),
		MinValue:        getEnvAsInt("MIN_VALUE", defaults.MinValue),
		OpenKernel:      getEnvAsInt("OPEN_KERNEL", defaults.OpenKernel),
		CloseKernel:     getEnvAsInt("CLOSE_KERNEL", defaults.CloseKernel),
	}
}

// DetectionParams returns the extractor settings.
func (c *Config) DetectionParams() vision.Params {
	return vision.Params{
		LowHueMax:     c.LowHueMax,
		HighHueMin:    c.HighHueMin,
		MinSaturation: c.MinSaturation,
		MinValue:      c.MinValue,
		OpenKernel:    c.OpenKernel,
		CloseKernel:   c.CloseKernel,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
