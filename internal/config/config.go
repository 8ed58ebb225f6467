// Package config loads kitchen settings and order batches from YAML or JSON
// files for the example programs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jzx17/kitchenqueue/internal/logger"
	"github.com/jzx17/kitchenqueue/pkg/order"
	"github.com/jzx17/kitchenqueue/pkg/service"

	"gopkg.in/yaml.v3"
)

// FileConfig is the layout of a configuration file
type FileConfig struct {
	Kitchen KitchenConfig `yaml:"kitchen" json:"kitchen"`
	Orders  []OrderBatch  `yaml:"orders" json:"orders"`
}

// KitchenConfig holds the service settings
type KitchenConfig struct {
	Workers       int    `yaml:"workers" json:"workers"`
	PollTimeout   string `yaml:"poll_timeout" json:"poll_timeout"`
	QueueCapacity int    `yaml:"queue_capacity" json:"queue_capacity"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
}

// OrderBatch describes Count orders of one kind with consecutive ids
type OrderBatch struct {
	Kind    string `yaml:"kind" json:"kind"`
	Count   int    `yaml:"count" json:"count"`
	FirstID int    `yaml:"first_id" json:"first_id"`
}

// Default returns the classic demo: two cooks, three burgers, three pizzas
func Default() *FileConfig {
	return &FileConfig{
		Kitchen: KitchenConfig{Workers: 2},
		Orders: []OrderBatch{
			{Kind: string(order.KindBurger), Count: 3},
			{Kind: string(order.KindPizza), Count: 3},
		},
	}
}

// LoadFile reads a .yaml, .yml or .json configuration file
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data according to the file extension
func Parse(data []byte, ext string) (*FileConfig, error) {
	var cfg FileConfig

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &cfg, nil
}

// ToServiceConfig overlays the file settings on service.DefaultConfig
func (f *FileConfig) ToServiceConfig() (*service.Config, error) {
	cfg := service.DefaultConfig()
	k := f.Kitchen

	if k.Workers < 0 {
		return nil, fmt.Errorf("invalid workers: %d", k.Workers)
	}
	if k.Workers > 0 {
		cfg.Workers = k.Workers
	}
	if k.PollTimeout != "" {
		d, err := time.ParseDuration(k.PollTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid poll timeout: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("poll timeout must be positive, got %s", d)
		}
		cfg.PollTimeout = d
	}
	if k.QueueCapacity < 0 {
		return nil, fmt.Errorf("invalid queue capacity: %d", k.QueueCapacity)
	}
	cfg.QueueCapacity = k.QueueCapacity
	if k.LogLevel != "" {
		cfg.LogLevel = logger.ParseLevel(k.LogLevel)
	}

	return cfg, nil
}

// BuildOrders creates every order described by the batches. Kinds are
// resolved case-insensitively; an unknown kind fails the whole build.
func (f *FileConfig) BuildOrders(registry *order.Registry) ([]order.Order, error) {
	if registry == nil {
		registry = order.DefaultRegistry()
	}

	var orders []order.Order
	for i, batch := range f.Orders {
		if batch.Count < 0 {
			return nil, fmt.Errorf("batch %d: invalid count %d", i, batch.Count)
		}
		kind, err := registry.ParseKind(batch.Kind)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		for n := 0; n < batch.Count; n++ {
			o, err := registry.Create(kind, batch.FirstID+n)
			if err != nil {
				return nil, fmt.Errorf("batch %d: %w", i, err)
			}
			orders = append(orders, o)
		}
	}
	return orders, nil
}
