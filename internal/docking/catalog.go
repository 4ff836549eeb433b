package docking

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/dockyard/pkg/core"
	"gopkg.in/yaml.v3"
)

// ErrInvalidBlueprint is returned when a blueprint is missing a name or has a malformed color.
var ErrInvalidBlueprint = errors.New("invalid blueprint")

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Blueprint describes a launchable module.
type Blueprint struct {
	Name    string          `json:"name" yaml:"name"`
	Color   string          `json:"color" yaml:"color"`
	Kind    core.ModuleKind `json:"kind" yaml:"kind"`
	Variant core.Variant    `json:"variant" yaml:"variant"`
	Custom  bool            `json:"custom" yaml:"-"`
}

// Profile holds the production characteristics of a variant.
type Profile struct {
	Energy        int
	Production    int
	ResourceYield int           // resources added per interval
	YieldInterval time.Duration // 0 disables periodic yield
	Telemetry     core.Telemetry
}

var defaultTelemetry = core.Telemetry{
	Temperature: 50,
	CPULoad:     25,
	Efficiency:  95,
	PowerDraw:   12.5,
}

var profiles = map[core.Variant]Profile{
	core.VariantGraphene: {Energy: 25, Production: 100},
	core.VariantPolymer:  {Energy: 30, Production: 5, ResourceYield: 5, YieldInterval: time.Second},
	core.VariantAerogel:  {Energy: 15, Production: 10, ResourceYield: 10, YieldInterval: 5 * time.Second},
	core.VariantHubExpansion: {
		Telemetry: core.Telemetry{Temperature: 45, CPULoad: 15, Efficiency: 98.5, PowerDraw: 8.0},
	},
}

// ProfileFor returns the production profile of a variant.
// Unknown variants fall back to graphene.
func ProfileFor(v core.Variant) Profile {
	p, ok := profiles[v]
	if !ok {
		p = profiles[core.VariantGraphene]
	}
	if p.Telemetry == (core.Telemetry{}) {
		p.Telemetry = defaultTelemetry
	}
	p.Telemetry.Energy = p.Energy
	p.Telemetry.Production = p.Production
	return p
}

// DefaultBlueprints is the built-in launch catalog.
var DefaultBlueprints = []Blueprint{
	{Name: "Graphene", Color: "#2563eb", Kind: core.KindStandard, Variant: core.VariantGraphene},
	{Name: "ZBLAN Fiber", Color: "#d946ef", Kind: core.KindStandard, Variant: core.VariantGraphene},
	{Name: "Ti-Al Alloy", Color: "#f97316", Kind: core.KindStandard, Variant: core.VariantPolymer},
	{Name: "Thermal Ceramic", Color: "#a8a29e", Kind: core.KindStandard, Variant: core.VariantPolymer},
	{Name: "Bio-Printed Tissue", Color: "#10b981", Kind: core.KindStandard, Variant: core.VariantAerogel},
	{Name: "Protein Crystal", Color: "#06b6d4", Kind: core.KindStandard, Variant: core.VariantAerogel},
	{Name: "Expansion Node", Color: "#e2e8f0", Kind: core.KindHubNode, Variant: core.VariantHubExpansion},
}

// Catalog is the set of launchable blueprints, keyed case-insensitively by name.
type Catalog struct {
	mu    sync.RWMutex
	order []string
	items map[string]Blueprint
}

// NewCatalog creates a catalog seeded with the given blueprints.
func NewCatalog(blueprints ...Blueprint) *Catalog {
	c := &Catalog{items: make(map[string]Blueprint)}
	for _, bp := range blueprints {
		c.put(normalize(bp))
	}
	return c
}

// DefaultCatalog returns a catalog holding DefaultBlueprints.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultBlueprints...)
}

// Lookup finds a blueprint by name.
func (c *Catalog) Lookup(name string) (Blueprint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bp, ok := c.items[key(name)]
	return bp, ok
}

// All returns the blueprints in insertion order.
func (c *Catalog) All() []Blueprint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Blueprint, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.items[k])
	}
	return out
}

// AddCustom registers a user-defined standard module. Custom modules use the graphene profile.
func (c *Catalog) AddCustom(name, color string) (Blueprint, error) {
	bp := Blueprint{
		Name:    strings.TrimSpace(name),
		Color:   color,
		Kind:    core.KindStandard,
		Variant: core.VariantGraphene,
		Custom:  true,
	}
	if err := validate(bp); err != nil {
		return Blueprint{}, err
	}
	c.put(bp)
	return bp, nil
}

// Remove deletes a custom blueprint. Built-in blueprints cannot be removed.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(name)
	bp, ok := c.items[k]
	if !ok || !bp.Custom {
		return false
	}
	delete(c.items, k)
	for i, o := range c.order {
		if o == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// LoadFile adds custom blueprints from a YAML file of the form
//
//	blueprints:
//	  - name: Carbon Lattice
//	    color: "#334155"
func (c *Catalog) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading catalog file: %w", err)
	}

	var doc struct {
		Blueprints []Blueprint `yaml:"blueprints"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parsing catalog file: %w", err)
	}

	for i, bp := range doc.Blueprints {
		bp.Custom = true
		bp = normalize(bp)
		if err := validate(bp); err != nil {
			return i, fmt.Errorf("blueprint %d: %w", i, err)
		}
		c.put(bp)
	}
	return len(doc.Blueprints), nil
}

func (c *Catalog) put(bp Blueprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(bp.Name)
	if _, exists := c.items[k]; !exists {
		c.order = append(c.order, k)
	}
	c.items[k] = bp
}

func normalize(bp Blueprint) Blueprint {
	bp.Name = strings.TrimSpace(bp.Name)
	if bp.Kind == "" {
		bp.Kind = core.KindStandard
	}
	if bp.Variant == "" {
		if bp.Kind == core.KindHubNode {
			bp.Variant = core.VariantHubExpansion
		} else {
			bp.Variant = core.VariantGraphene
		}
	}
	if bp.Kind == core.KindHubNode {
		bp.Color = "#e2e8f0"
	}
	return bp
}

func validate(bp Blueprint) error {
	if bp.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBlueprint)
	}
	if !hexColor.MatchString(bp.Color) {
		return fmt.Errorf("%w: color %q is not #rrggbb", ErrInvalidBlueprint, bp.Color)
	}
	if bp.Kind != core.KindStandard && bp.Kind != core.KindHubNode {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidBlueprint, bp.Kind)
	}
	return nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
