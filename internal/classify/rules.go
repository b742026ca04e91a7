package classify

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// FieldRules lists candidate field names for each opened-state signal, in priority order.
type FieldRules struct {
	PlayerStorage    []string `yaml:"player_storage"`
	Touched          []string `yaml:"touched"`
	WorldTimeTouched []string `yaml:"world_time_touched"`
}

// Rules is the heuristic catalog.
type Rules struct {
	ContainerKeywords  []string   `yaml:"container_keywords"`
	DoorKeywords       []string   `yaml:"door_keywords"`
	LootListProperties []string   `yaml:"loot_list_properties"`
	Fields             FieldRules `yaml:"fields"`
}

// DefaultRules returns the embedded catalog.
func DefaultRules() Rules {
	r, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules.yaml: %v", err))
	}
	return r
}

// ParseRules decodes and validates a YAML catalog. Keywords are lower-cased.
func ParseRules(raw []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("rules: %w", err)
	}
	if len(r.ContainerKeywords) == 0 {
		return r, fmt.Errorf("rules: container_keywords must not be empty")
	}
	if len(r.Fields.PlayerStorage)+len(r.Fields.Touched)+len(r.Fields.WorldTimeTouched) == 0 {
		return r, fmt.Errorf("rules: at least one opened-state field is required")
	}
	r.ContainerKeywords = lower(r.ContainerKeywords)
	r.DoorKeywords = lower(r.DoorKeywords)
	return r, nil
}

// LoadRules reads a catalog from path.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("reading rules %s: %w", path, err)
	}
	return ParseRules(raw)
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(name string, keywords []string) bool {
	name = strings.ToLower(name)
	for _, k := range keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// IsDoorLike matches door, hatch and gate names.
func (r Rules) IsDoorLike(name string) bool {
	return containsAny(name, r.DoorKeywords)
}

// IsContainerLike matches container, loot and secure-storage names.
func (r Rules) IsContainerLike(name string) bool {
	return containsAny(name, r.ContainerKeywords)
}
