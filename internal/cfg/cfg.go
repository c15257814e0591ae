// Package cfg loads the disk queue agent's YAML configuration, following
// the same "defaults, then overlay" pattern the rest of the house uses for
// its own components.
package cfg

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/yanet-platform/diskqueue/datapage"
	"github.com/yanet-platform/diskqueue/internal/telemetry"
)

// Config is the top-level configuration for a diskqueue-agent process.
type Config struct {
	// Directory is the ring directory on disk.
	Directory string `yaml:"directory"`
	// ExpectedMessageSize sizes each page's record buffer (B = Slots *
	// ExpectedMessageSize).
	ExpectedMessageSize datasize.ByteSize `yaml:"expected_message_size"`
	// Slots is the number of message slots per page (N).
	Slots uint32 `yaml:"slots"`
	// MaxPages bounds ring retention; 0 means unbounded.
	MaxPages uint64 `yaml:"max_pages"`
	// Groups names the grouped-receiver fan-out groups this deployment
	// uses, in index order: Groups[i] is group index i.
	Groups []string `yaml:"groups"`
	// Admin configures the introspection gRPC server.
	Admin AdminConfig `yaml:"admin"`
	// Logging configures the process logger.
	Logging telemetry.Config `yaml:"logging"`
}

// AdminConfig configures the admin/introspection gRPC surface.
type AdminConfig struct {
	// Endpoint is the admin gRPC listen address.
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	params := datapage.DefaultParams()
	return &Config{
		Directory:           "/var/lib/diskqueue",
		ExpectedMessageSize: datasize.ByteSize(params.ExpectedMessageSize),
		Slots:               params.Slots,
		MaxPages:            0,
		Groups:              nil,
		Admin: AdminConfig{
			Endpoint: "[::1]:50151",
		},
		Logging: telemetry.DefaultConfig(),
	}
}

// Load reads and parses the YAML configuration file at path, overlaying it
// onto Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cfg: read %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("cfg: parse %s: %w", path, err)
	}

	return config, nil
}

// Params derives the data page geometry this configuration describes. The
// number of groups is always the fixed G = 64 the design specifies;
// Groups names only give human labels to a subset of those indices.
func (c *Config) Params() datapage.Params {
	return datapage.Params{
		ExpectedMessageSize: uint32(c.ExpectedMessageSize),
		Slots:               c.Slots,
		Groups:              datapage.DefaultParams().Groups,
	}
}

// GroupIndex resolves a configured group name to its fan-out index. It
// returns false if name is not configured.
func (c *Config) GroupIndex(name string) (uint32, bool) {
	for i, g := range c.Groups {
		if g == name {
			return uint32(i), true
		}
	}
	return 0, false
}
