package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDHeading string
	MQTTClientIDGPS     string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicHeading string
	TopicMag     string
	TopicGPS     string

	// Compass hardware
	CompassI2CBus     string
	CompassI2CAddr    uint16
	CompassODRHz      int
	CompassRangeGauss int
	CompassOSR        int
	CompassMock       bool

	// Heading
	// Degrees east of true north; negative values are west declinations.
	DeclinationDeg float64

	// Calibration
	CalibrationFile    string
	CalibrationSamples int
	CalibrationDelayMS int

	// Timing
	SampleInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int    // milliseconds
	DisplayContent        string // what to show: "heading" or "mag_raw"

	// GPS
	GPSSerialPort string
	GPSBaudRate   int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//     This enforces encapsulation and prevents external code from modifying config without proper locking.
//     Has package-level scope (visible to all functions in this package, persists for program lifetime).
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock (Lock) for initialization,
//     read lock (RLock) for Get() allows multiple concurrent readers without blocking each other.
//
// External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_HEADING":
		c.MQTTClientIDHeading = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_HEADING":
		c.TopicHeading = value
	case "TOPIC_MAG":
		c.TopicMag = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// Compass hardware
	case "COMPASS_I2C_BUS":
		c.CompassI2CBus = value
	case "COMPASS_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_I2C_ADDR %q: %w", value, err)
		}
		c.CompassI2CAddr = uint16(addr)
	case "COMPASS_ODR_HZ":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_ODR_HZ %q: %w", value, err)
		}
		switch val {
		case 10, 50, 100, 200:
		default:
			return fmt.Errorf("COMPASS_ODR_HZ must be 10, 50, 100 or 200, got %d", val)
		}
		c.CompassODRHz = val
	case "COMPASS_RANGE_GAUSS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_RANGE_GAUSS %q: %w", value, err)
		}
		if val != 2 && val != 8 {
			return fmt.Errorf("COMPASS_RANGE_GAUSS must be 2 or 8, got %d", val)
		}
		c.CompassRangeGauss = val
	case "COMPASS_OSR":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_OSR %q: %w", value, err)
		}
		switch val {
		case 64, 128, 256, 512:
		default:
			return fmt.Errorf("COMPASS_OSR must be 64, 128, 256 or 512, got %d", val)
		}
		c.CompassOSR = val
	case "COMPASS_MOCK":
		val, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_MOCK %q: %w", value, err)
		}
		c.CompassMock = val

	// Heading
	case "DECLINATION_DEG":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DECLINATION_DEG %q: %w", value, err)
		}
		if val < -180 || val > 180 {
			return fmt.Errorf("DECLINATION_DEG must be within [-180,180], got %g", val)
		}
		c.DeclinationDeg = val

	// Calibration
	case "CALIBRATION_FILE":
		c.CalibrationFile = value
	case "CALIBRATION_SAMPLES":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_SAMPLES %q: %w", value, err)
		}
		if val <= 0 {
			return fmt.Errorf("CALIBRATION_SAMPLES must be positive, got %d", val)
		}
		c.CalibrationSamples = val
	case "CALIBRATION_DELAY_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_DELAY_MS %q: %w", value, err)
		}
		if val < 0 {
			return fmt.Errorf("CALIBRATION_DELAY_MS must not be negative, got %d", val)
		}
		c.CalibrationDelayMS = val

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval
	case "DISPLAY_CONTENT":
		if value != "heading" && value != "mag_raw" {
			return fmt.Errorf("DISPLAY_CONTENT must be \"heading\" or \"mag_raw\", got %q", value)
		}
		c.DisplayContent = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.CalibrationFile == "" {
		return fmt.Errorf("CALIBRATION_FILE is required")
	}
	if c.SampleInterval == 0 {
		return fmt.Errorf("SAMPLE_INTERVAL is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// Acquires write lock (configMu.Lock) during initialization to prevent concurrent access.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
// Uses read lock (configMu.RLock) to allow multiple concurrent readers without blocking.
// This is thread-safe and efficient for concurrent access across goroutines.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
