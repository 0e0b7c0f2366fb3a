// Package config loads the static seed document describing entities, their
// mounted sensors and the fiducial markers of a deployment, and populates a
// fusion graph from it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/frame.fusion/internal/fusion"
	"github.com/banshee-data/frame.fusion/internal/geom"
)

// TransformSpec is the wire form of a fixed transform: a 4-element rotation
// quaternion (x, y, z, w) and a 3-element origin.
type TransformSpec struct {
	Rot    []float64 `yaml:"rot"`
	Origin []float64 `yaml:"origin"`
}

// Transform converts the wire form into a geom.Transform. Validate must
// have passed first; lengths are assumed correct.
func (t TransformSpec) Transform() geom.Transform {
	return geom.Transform{
		Rotation: geom.Quat{X: t.Rot[0], Y: t.Rot[1], Z: t.Rot[2], W: t.Rot[3]},
		Origin:   geom.Vec3{X: t.Origin[0], Y: t.Origin[1], Z: t.Origin[2]},
	}
}

func (t TransformSpec) validate(where string) error {
	if len(t.Rot) != 4 {
		return fmt.Errorf("%s: 'rot' must have 4 elements, got %d", where, len(t.Rot))
	}
	if len(t.Origin) != 3 {
		return fmt.Errorf("%s: 'origin' must have 3 elements, got %d", where, len(t.Origin))
	}
	return nil
}

// Sensor describes one sensor mounted on an entity: its frame name, the
// transport topic its detections arrive on, and its fixed mounting transform
// relative to the entity base frame.
type Sensor struct {
	Name      string        `yaml:"name"`
	Topic     string        `yaml:"topic"`
	Transform TransformSpec `yaml:"transform"`
}

// Entity is a tracked body (robot, rig) carrying zero or more sensors.
type Entity struct {
	Name    string   `yaml:"name"`
	Sensors []Sensor `yaml:"sensors"`
}

// Marker is a fiducial marker at a fixed transform relative to a reference
// frame.
type Marker struct {
	ID        int           `yaml:"id"`
	Ref       string        `yaml:"ref"`
	Transform TransformSpec `yaml:"transform"`
}

// FusionSettings are the recognized tuning knobs for the fusion pipeline.
// Fields are pointers so omitted values fall back to defaults via the Get*
// accessors.
type FusionSettings struct {
	Alpha             *float64 `yaml:"alpha,omitempty"`
	StaleTimeout      *string  `yaml:"stale_timeout,omitempty"` // duration string like "500ms"
	DefaultEdgeWeight *float64 `yaml:"default_edge_weight,omitempty"`
}

// GetAlpha returns the smoothing factor or the default.
func (f FusionSettings) GetAlpha() float64 {
	if f.Alpha == nil {
		return 0.5
	}
	return *f.Alpha
}

// GetStaleTimeout parses and returns the staleness timeout. Zero disables
// expiry.
func (f FusionSettings) GetStaleTimeout() time.Duration {
	if f.StaleTimeout == nil || *f.StaleTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*f.StaleTimeout)
	if err != nil {
		return 0
	}
	return d
}

// GetDefaultEdgeWeight returns the edge weight used when a measurement omits
// one.
func (f FusionSettings) GetDefaultEdgeWeight() float64 {
	if f.DefaultEdgeWeight == nil {
		return fusion.DefaultEdgeWeight
	}
	return *f.DefaultEdgeWeight
}

// Config is the parsed seed document.
type Config struct {
	Entities []Entity       `yaml:"entities"`
	Markers  []Marker       `yaml:"markers"`
	Fusion   FusionSettings `yaml:"fusion"`
}

// Load reads and parses a seed config file. The load aborts on the first
// validation failure, before any graph state is touched.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a seed document from memory.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the document for the structural problems that would
// otherwise produce partial or garbage transforms at seed time.
func (c *Config) Validate() error {
	if len(c.Entities) == 0 {
		return fmt.Errorf("cannot find 'entities'")
	}

	seen := make(map[string]bool)
	for i, entity := range c.Entities {
		if entity.Name == "" {
			return fmt.Errorf("entities[%d]: missing 'name'", i)
		}
		if seen[entity.Name] {
			return fmt.Errorf("entities[%d]: duplicate entity %q", i, entity.Name)
		}
		seen[entity.Name] = true

		for j, sensor := range entity.Sensors {
			where := fmt.Sprintf("entity %q sensor[%d]", entity.Name, j)
			if sensor.Name == "" {
				return fmt.Errorf("%s: missing 'name'", where)
			}
			if err := sensor.Transform.validate(where); err != nil {
				return err
			}
		}
	}

	for i, marker := range c.Markers {
		where := fmt.Sprintf("markers[%d]", i)
		if marker.Ref == "" {
			return fmt.Errorf("%s: missing 'ref'", where)
		}
		if err := marker.Transform.validate(where); err != nil {
			return err
		}
	}

	if c.Fusion.Alpha != nil && (*c.Fusion.Alpha <= 0 || *c.Fusion.Alpha > 1) {
		return fmt.Errorf("fusion.alpha must be in (0,1], got %f", *c.Fusion.Alpha)
	}
	if c.Fusion.StaleTimeout != nil && *c.Fusion.StaleTimeout != "" {
		if _, err := time.ParseDuration(*c.Fusion.StaleTimeout); err != nil {
			return fmt.Errorf("invalid fusion.stale_timeout '%s': %w", *c.Fusion.StaleTimeout, err)
		}
	}
	if c.Fusion.DefaultEdgeWeight != nil && *c.Fusion.DefaultEdgeWeight <= 0 {
		return fmt.Errorf("fusion.default_edge_weight must be positive, got %f", *c.Fusion.DefaultEdgeWeight)
	}

	return nil
}

// SensorFrame returns the graph frame name for a sensor mounted on an
// entity.
func SensorFrame(entity, sensor string) string {
	return entity + "/" + sensor
}

// MarkerFrame returns the graph frame name for a fiducial marker.
func MarkerFrame(id int) string {
	return fmt.Sprintf("marker_%d", id)
}

// Seed populates a fusion graph from the document: one frame per entity,
// one frame per mounted sensor with its fixed mount edge, one frame per
// marker anchored to its reference frame. Reference frames named by markers
// are registered as they appear.
func (c *Config) Seed(g *fusion.Graph) error {
	for _, entity := range c.Entities {
		g.AddFrame(entity.Name)
		for _, sensor := range entity.Sensors {
			frame := SensorFrame(entity.Name, sensor.Name)
			g.AddFrame(frame)
			key := fusion.MeasurementKey("config:" + frame)
			if err := g.UpdateMeasurement(entity.Name, frame, key, sensor.Transform.Transform(), fusion.DefaultEdgeWeight); err != nil {
				return fmt.Errorf("seeding sensor %q: %w", frame, err)
			}
		}
	}

	for _, marker := range c.Markers {
		g.AddFrame(marker.Ref)
		frame := MarkerFrame(marker.ID)
		g.AddFrame(frame)
		key := fusion.MeasurementKey(fmt.Sprintf("config:marker/%d", marker.ID))
		if err := g.UpdateMeasurement(marker.Ref, frame, key, marker.Transform.Transform(), fusion.DefaultEdgeWeight); err != nil {
			return fmt.Errorf("seeding marker %d: %w", marker.ID, err)
		}
	}

	return nil
}
