package r66

import (
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/internal/digest"
)

// Configuration defaults.
const (
	DefaultVersion          = "3.6.0"
	DefaultJSONMinVersion   = "3.0.4"
	DefaultMaxDigestRetries = 3
	DefaultListen           = ":6666"
)

// HostConfig describes one known partner.
type HostConfig struct {
	ID       string `yaml:"id"`
	Password string `yaml:"password"`
	Address  string `yaml:"address"`
	SSL      bool   `yaml:"ssl"`
	Admin    bool   `yaml:"admin"`
}

// RuleConfig restricts a rule name to the modes compatible with Mode.
type RuleConfig struct {
	Name string `yaml:"name"`
	Mode string `yaml:"mode"`
}

// RedisConfig enables the Redis resume store when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// NewRedisClient connects to the Redis server described by cfg.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NATSConfig enables transfer event publishing on NATS when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Config holds everything a server or client needs.
// Nothing is read from globals: a Config is passed explicitly.
type Config struct {
	HostID    string `yaml:"host_id"`
	SSLHostID string `yaml:"ssl_host_id"`
	Password  string `yaml:"password"`

	Listen  string `yaml:"listen"`
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	BlockSize        int32  `yaml:"block_size"`
	Digest           string `yaml:"digest"`
	FieldSeparator   string `yaml:"field_separator"`
	MaxDigestRetries int    `yaml:"max_digest_retries"`
	MaxFrameSize     int    `yaml:"max_frame_size"`

	Version        string `yaml:"version"`
	JSONMinVersion string `yaml:"json_min_version"`

	StoreDir            string `yaml:"store_dir"`
	AdminPassword       string `yaml:"admin_password"`
	AllowRemoteShutdown bool   `yaml:"allow_remote_shutdown"`

	Hosts []HostConfig `yaml:"hosts"`
	Rules []RuleConfig `yaml:"rules"`

	Redis RedisConfig `yaml:"redis"`
	NATS  NATSConfig  `yaml:"nats"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with every optional field set to its default.
func DefaultConfig() *Config {
	return &Config{
		Listen:           DefaultListen,
		BlockSize:        localpacket.DefaultBlockSize,
		Digest:           digest.MD5.String(),
		FieldSeparator:   localpacket.DefaultSeparator,
		MaxDigestRetries: DefaultMaxDigestRetries,
		MaxFrameSize:     localpacket.DefaultMaxFrameSize,
		Version:          DefaultVersion,
		JSONMinVersion:   DefaultJSONMinVersion,
		StoreDir:         ".",
		LogLevel:         logrus.InfoLevel.String(),
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.HostID == "" {
		return errors.New("host_id is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	if c.BlockSize < localpacket.MinBlockSize {
		return errors.Errorf("block_size %d is below %d", c.BlockSize, localpacket.MinBlockSize)
	}
	if int(c.BlockSize)+64 > c.MaxFrameSize {
		return errors.Errorf("block_size %d does not fit in max_frame_size %d", c.BlockSize, c.MaxFrameSize)
	}
	if c.MaxDigestRetries < 0 {
		return errors.New("max_digest_retries must not be negative")
	}
	if c.FieldSeparator == "" {
		return errors.New("field_separator must not be empty")
	}
	if _, err := digest.Parse(c.Digest); err != nil {
		return err
	}
	if _, err := semver.NewVersion(c.Version); err != nil {
		return errors.Wrapf(err, "version %q", c.Version)
	}
	if _, err := semver.NewVersion(c.JSONMinVersion); err != nil {
		return errors.Wrapf(err, "json_min_version %q", c.JSONMinVersion)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("tls_cert and tls_key must be set together")
	}

	seen := make(map[string]bool)
	for _, h := range c.Hosts {
		if h.ID == "" {
			return errors.New("host entry without id")
		}
		if seen[h.ID] {
			return errors.Errorf("host %q declared twice", h.ID)
		}
		seen[h.ID] = true
	}

	if _, err := c.rules(); err != nil {
		return err
	}

	return nil
}

// DecodeOptions returns the frame decoding parameters of c.
func (c *Config) DecodeOptions() localpacket.DecodeOptions {
	return localpacket.DecodeOptions{
		DefaultBlockSize: c.BlockSize,
		MaxFrameSize:     c.MaxFrameSize,
		Separator:        c.FieldSeparator,
	}
}

// DigestAlgorithm returns the configured chunk and file digest.
func (c *Config) DigestAlgorithm() digest.Algorithm {
	algo, err := digest.Parse(c.Digest)
	if err != nil {
		return digest.MD5
	}
	return algo
}

// Host returns the entry of the partner id.
func (c *Config) Host(id string) (HostConfig, bool) {
	for _, h := range c.Hosts {
		if h.ID == id {
			return h, true
		}
	}
	return HostConfig{}, false
}

// localHostID returns the identity presented on plain or TLS connections.
func (c *Config) localHostID(ssl bool) string {
	if ssl && c.SSLHostID != "" {
		return c.SSLHostID
	}
	return c.HostID
}

// Key returns the authentication key this host presents.
func (c *Config) Key(ssl bool) []byte {
	return digest.CryptPassword(c.localHostID(ssl), c.Password)
}

// AdminKey returns the key expected in Shutdown and BlockRequest packets sent to host.
func AdminKey(host, adminPassword string) []byte {
	return digest.CryptPassword(host, adminPassword)
}

func (c *Config) rules() (map[string]localpacket.TransferMode, error) {
	if len(c.Rules) == 0 {
		return nil, nil
	}

	rules := make(map[string]localpacket.TransferMode, len(c.Rules))
	for _, r := range c.Rules {
		if r.Name == "" {
			return nil, errors.New("rule without name")
		}

		mode, err := ParseTransferMode(r.Mode)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %q", r.Name)
		}

		rules[r.Name] = mode
	}

	return rules, nil
}

// ParseTransferMode accepts a mode name with or without its MODE suffix, in any case,
// such as "SENDMD5MODE", "send" or "recvthrough".
func ParseTransferMode(s string) (localpacket.TransferMode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasSuffix(name, "MODE") {
		name += "MODE"
	}

	for m := localpacket.ModeSend; m.Valid(); m++ {
		if m.String() == name {
			return m, nil
		}
	}

	return localpacket.ModeUnknown, errors.Errorf("unknown transfer mode %q", s)
}
