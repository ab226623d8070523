// Package config handles configuration loading for the Digipost client.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax). This allows secrets like key
// passwords and token PINs to be injected at runtime.
//
// # Configuration Sections
//
//   - gateway: base URL, user id and HTTP settings
//   - signing: where the signing key lives (pem, pkcs12 or pkcs11)
//   - cache: expiry of entry points, sender information and the print key
//   - delivery: send tracking and content validation
//   - logging: level and format
//
// # Example Configuration
//
//	gateway:
//	  baseURL: https://api.test.digipost.no
//	  userId: ${DIGIPOST_USER_ID}
//	  timeout: 30s
//
//	signing:
//	  mode: pkcs12
//	  pkcs12:
//	    file: /etc/digipost/certificate.p12
//	    password: ${DIGIPOST_CERT_PASSWORD}
//
//	logging:
//	  level: debug
//	  format: json
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the production gateway
const DefaultBaseURL = "https://api.digipost.no"

// Config is the root configuration structure
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Signing  SigningConfig  `yaml:"signing"`
	Cache    CacheConfig    `yaml:"cache"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GatewayConfig holds the gateway address and HTTP settings
type GatewayConfig struct {
	BaseURL string        `yaml:"baseURL"`
	UserID  string        `yaml:"userId"`
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit is the maximum requests per second, 0 for no limit
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
	// CABundle is a PEM file of roots the gateway certificate must chain to
	CABundle  string        `yaml:"caBundle"`
	ClockSkew time.Duration `yaml:"clockSkew"`
}

// SigningConfig holds signing key settings
type SigningConfig struct {
	// Mode determines where the signing key is loaded from
	// - "pem": PEM key and certificate files
	// - "pkcs12": a PKCS#12 bundle as issued for enterprise certificates
	// - "pkcs11": a PKCS#11 token (HSM/smart card)
	Mode string `yaml:"mode"`

	PEM    PEMConfig    `yaml:"pem"`
	PKCS12 PKCS12Config `yaml:"pkcs12"`
	PKCS11 PKCS11Config `yaml:"pkcs11"`
}

// PEMConfig holds file based key settings
type PEMConfig struct {
	KeyFile  string `yaml:"keyFile"`
	CertFile string `yaml:"certFile"`
}

// PKCS12Config holds PKCS#12 bundle settings
type PKCS12Config struct {
	File     string `yaml:"file"`
	Password string `yaml:"password"`
}

// PKCS11Config holds PKCS#11 HSM settings
type PKCS11Config struct {
	// Path to the PKCS#11 library (.so/.dylib/.dll)
	ModulePath string `yaml:"modulePath"`
	// Slot ID or label to use
	SlotID    uint   `yaml:"slotId"`
	SlotLabel string `yaml:"slotLabel"`
	// PIN for authentication (can be env var reference like ${HSM_PIN})
	PIN string `yaml:"pin"`
	// KeyLabel of the signing key pair and its certificate
	KeyLabel string `yaml:"keyLabel"`
}

// CacheConfig holds cache expiry settings. Entries expire when unused for
// the given duration.
type CacheConfig struct {
	EntryPointTTL time.Duration `yaml:"entryPointTTL"`
	SenderInfoTTL time.Duration `yaml:"senderInfoTTL"`
	PrintKeyTTL   time.Duration `yaml:"printKeyTTL"`
}

// DeliveryConfig holds delivery settings
type DeliveryConfig struct {
	// SendWindow is how long sent messages are remembered locally
	SendWindow               time.Duration `yaml:"sendWindow"`
	DisableContentValidation bool          `yaml:"disableContentValidation"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML data
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills in unset values
func (c *Config) ApplyDefaults() {
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = DefaultBaseURL
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = 30 * time.Second
	}
	if c.Gateway.ClockSkew == 0 {
		c.Gateway.ClockSkew = 5 * time.Minute
	}
	if c.Signing.Mode == "" {
		c.Signing.Mode = "pem"
	}
	if c.Cache.EntryPointTTL == 0 {
		c.Cache.EntryPointTTL = 5 * time.Minute
	}
	if c.Cache.SenderInfoTTL == 0 {
		c.Cache.SenderInfoTTL = 5 * time.Minute
	}
	if c.Cache.PrintKeyTTL == 0 {
		c.Cache.PrintKeyTTL = 5 * time.Minute
	}
	if c.Delivery.SendWindow == 0 {
		c.Delivery.SendWindow = 24 * time.Hour
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.Gateway.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("gateway.baseURL must be an absolute http(s) URL, got '%s'", c.Gateway.BaseURL)
	}
	if c.Gateway.UserID == "" {
		return fmt.Errorf("gateway.userId is required")
	}
	if c.Gateway.Timeout < 0 || c.Gateway.ClockSkew < 0 || c.Gateway.RateLimit < 0 {
		return fmt.Errorf("gateway timeout, clockSkew and rateLimit must not be negative")
	}

	switch c.Signing.Mode {
	case "pem":
		if c.Signing.PEM.KeyFile == "" {
			return fmt.Errorf("signing.pem.keyFile is required when mode is 'pem'")
		}
	case "pkcs12":
		if c.Signing.PKCS12.File == "" {
			return fmt.Errorf("signing.pkcs12.file is required when mode is 'pkcs12'")
		}
	case "pkcs11":
		if c.Signing.PKCS11.ModulePath == "" {
			return fmt.Errorf("signing.pkcs11.modulePath is required when mode is 'pkcs11'")
		}
		if c.Signing.PKCS11.KeyLabel == "" {
			return fmt.Errorf("signing.pkcs11.keyLabel is required when mode is 'pkcs11'")
		}
	default:
		return fmt.Errorf("signing.mode must be 'pem', 'pkcs12', or 'pkcs11', got '%s'", c.Signing.Mode)
	}

	if c.Cache.EntryPointTTL < 0 || c.Cache.SenderInfoTTL < 0 || c.Cache.PrintKeyTTL < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got '%s'", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", c.Logging.Format)
	}

	return nil
}
