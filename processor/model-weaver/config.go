package modelweaver

import (
	"fmt"
	"reflect"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semweave/graph"
	"github.com/c360studio/semweave/ingest"
)

// modelWeaverSchema defines the configuration schema.
var modelWeaverSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the model-weaver processor component.
type Config struct {
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	// ConfigPath is an explicit semweave config file layered over the user
	// and project configs.
	ConfigPath string `json:"config_path" schema:"type:string,description:Semweave config file layered over user and project config,category:basic"`

	// Store enables persisting woven documents and bundles in KV.
	Store bool `json:"store" schema:"type:bool,description:Persist woven documents and identity bundles,category:basic,default:true"`

	// Publish enables graph entity publication.
	Publish bool `json:"publish" schema:"type:bool,description:Publish graph entities for woven artifacts,category:basic,default:true"`

	// AckWait is how long the consumer waits for an ack, as a duration string.
	AckWait string `json:"ack_wait" schema:"type:string,description:Consumer ack wait,category:advanced,default:30s"`

	// MaxDeliver bounds redeliveries of a failing message.
	MaxDeliver int `json:"max_deliver" schema:"type:int,description:Maximum deliveries per message,category:advanced,default:3"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.AckWait != "" {
		if d, err := time.ParseDuration(c.AckWait); err != nil || d <= 0 {
			return fmt.Errorf("invalid ack_wait: %q", c.AckWait)
		}
	}
	if c.MaxDeliver < 0 {
		return fmt.Errorf("max_deliver must not be negative")
	}
	return nil
}

// GetAckWait returns the ack wait with a default fallback.
func (c *Config) GetAckWait() time.Duration {
	if d, err := time.ParseDuration(c.AckWait); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// GetMaxDeliver returns the max deliveries with a default fallback.
func (c *Config) GetMaxDeliver() int {
	if c.MaxDeliver > 0 {
		return c.MaxDeliver
	}
	return 3
}

// DefaultConfig returns the default configuration for model-weaver.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "models_in",
					Type:        "jetstream",
					Subject:     ingest.Subject,
					StreamName:  ingest.StreamName,
					Required:    true,
					Description: "Vendor model documents to weave",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "entities_out",
					Type:        "jetstream",
					Subject:     graph.GraphIngestSubject,
					StreamName:  "GRAPH",
					Required:    false,
					Description: "Graph entities of woven artifacts",
				},
			},
		},
		Store:      true,
		Publish:    true,
		AckWait:    "30s",
		MaxDeliver: 3,
	}
}
