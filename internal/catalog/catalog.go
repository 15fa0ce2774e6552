// Package catalog holds the set of sounds that can be assigned to mixer slots.
package catalog

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

//go:embed builtin.yaml
var builtinDefinition []byte

// Definition is the YAML shape of the built-in catalog.
type Definition struct {
	Sounds []struct {
		Key      string `yaml:"key"`
		Name     string `yaml:"name"`
		Category string `yaml:"category"`
		File     string `yaml:"file"`
	} `yaml:"sounds"`
	Defaults []string `yaml:"defaults"`
}

// Catalog is the in-memory sound catalog. Built-ins are fixed for the life of
// the process; custom sounds may be added and removed at any time.
type Catalog struct {
	mu       sync.RWMutex
	builtins []models.Sound
	custom   map[string]models.Sound
	index    map[string]models.Sound
	defaults []models.Sound
}

// New builds a catalog from built-in sounds and the per-slot default keys.
func New(builtins []models.Sound, defaultKeys []string) (*Catalog, error) {
	if len(builtins) == 0 {
		return nil, fmt.Errorf("catalog needs at least one built-in sound")
	}

	c := &Catalog{
		custom: make(map[string]models.Sound),
		index:  make(map[string]models.Sound),
	}
	for _, s := range builtins {
		s.BuiltIn = true
		if s.Key == "" {
			return nil, fmt.Errorf("built-in sound %q has no key", s.Name)
		}
		if s.ID == "" {
			s.ID = "builtin-" + s.Key
		}
		if _, dup := c.index[s.Key]; dup {
			return nil, fmt.Errorf("duplicate built-in key %q", s.Key)
		}
		c.builtins = append(c.builtins, s)
		c.index[s.Key] = s
	}

	// Slots without a configured default reuse the built-ins in order.
	for i := range models.Slots {
		var key string
		if i < len(defaultKeys) {
			key = defaultKeys[i]
		} else {
			key = c.builtins[i%len(c.builtins)].Key
		}
		s, ok := c.index[key]
		if !ok {
			return nil, fmt.Errorf("default sound %q for %s is not a built-in", key, models.Slots[i])
		}
		c.defaults = append(c.defaults, s)
	}

	return c, nil
}

// LoadBuiltin parses the embedded catalog definition and resolves each file
// under soundsDir.
func LoadBuiltin(soundsDir string) (*Catalog, error) {
	return Parse(builtinDefinition, soundsDir)
}

// Parse builds a catalog from a YAML definition.
func Parse(data []byte, soundsDir string) (*Catalog, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse catalog definition: %w", err)
	}

	sounds := make([]models.Sound, 0, len(def.Sounds))
	for _, s := range def.Sounds {
		sounds = append(sounds, models.Sound{
			Key:         s.Key,
			Name:        s.Name,
			Category:    s.Category,
			AudioSource: filepath.Join(soundsDir, s.File),
			BuiltIn:     true,
		})
	}
	return New(sounds, def.Defaults)
}

// Lookup resolves a symbolic key or opaque id.
func (c *Catalog) Lookup(identifier string) (models.Sound, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if s, ok := c.index[identifier]; ok {
		return s, true
	}
	// Built-ins may also be addressed by their generated id.
	for _, s := range c.builtins {
		if s.ID == identifier {
			return s, true
		}
	}
	return models.Sound{}, false
}

// List returns built-ins in definition order followed by custom sounds,
// oldest first.
func (c *Catalog) List() []models.Sound {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Sound, 0, len(c.builtins)+len(c.custom))
	out = append(out, c.builtins...)

	custom := make([]models.Sound, 0, len(c.custom))
	for _, s := range c.custom {
		custom = append(custom, s)
	}
	sort.Slice(custom, func(i, j int) bool {
		if custom[i].CreatedAt.Equal(custom[j].CreatedAt) {
			return custom[i].ID < custom[j].ID
		}
		return custom[i].CreatedAt.Before(custom[j].CreatedAt)
	})
	return append(out, custom...)
}

// Add registers an uploaded sound.
func (c *Catalog) Add(s models.Sound) error {
	if s.ID == "" {
		return fmt.Errorf("custom sound has no id")
	}
	s.BuiltIn = false
	s.Key = ""

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[s.ID]; exists {
		return fmt.Errorf("sound %q already in catalog", s.ID)
	}
	c.custom[s.ID] = s
	c.index[s.ID] = s
	return nil
}

// Remove drops an uploaded sound. Built-ins cannot be removed.
func (c *Catalog) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.custom[id]; !ok {
		return false
	}
	delete(c.custom, id)
	delete(c.index, id)
	return true
}

// Default returns the canonical built-in for slot.
func (c *Catalog) Default(slot models.SlotID) models.Sound {
	i := slot.Index()
	if i < 0 {
		i = 0
	}
	return c.defaults[i]
}

// DefaultState returns the first-run mix: every slot on its default sound at volume 0.
func (c *Catalog) DefaultState() models.MixState {
	state := models.NewMixState()
	for _, slot := range models.Slots {
		state.Slots[slot] = models.SlotAssignment{Slot: slot, Sound: c.Default(slot)}
	}
	return state
}
