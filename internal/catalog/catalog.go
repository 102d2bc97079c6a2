// Package catalog holds the clinic network's static reference data: contact
// channels, clinic locations and per-service booking rules.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Contact is the central contact channel offered whenever automation falls short.
type Contact struct {
	Phone        string `yaml:"phone" json:"phone"`
	PhoneDisplay string `yaml:"phone_display" json:"phone_display"`
	PhoneTel     string `yaml:"phone_tel" json:"phone_tel"`
	Email        string `yaml:"email" json:"email"`
}

// Location is a bookable clinic.
type Location struct {
	ID         string   `yaml:"id" json:"id"`
	Slug       string   `yaml:"slug" json:"slug"`
	Name       string   `yaml:"name" json:"name"`
	ShortName  string   `yaml:"short_name" json:"short_name"`
	Address    string   `yaml:"address" json:"address"`
	City       string   `yaml:"city" json:"city"`
	Province   string   `yaml:"province" json:"province"`
	PostalCode string   `yaml:"postal_code" json:"postal_code"`
	MainHub    bool     `yaml:"main_hub" json:"main_hub"`
	Services   []string `yaml:"services" json:"services"`
}

// ServiceRule describes who may self-book a service.
type ServiceRule struct {
	Slug                 string   `yaml:"slug" json:"slug"`
	Name                 string   `yaml:"name" json:"name"`
	SelfBookable         bool     `yaml:"self_bookable" json:"self_bookable"`
	RequiresCoordination bool     `yaml:"requires_coordination" json:"requires_coordination"`
	AllowedPersonas      []string `yaml:"allowed_personas" json:"allowed_personas"`
	RestrictedMessage    string   `yaml:"restricted_message" json:"restricted_message,omitempty"`
}

// Catalog is the parsed reference data.
type Catalog struct {
	Contact   Contact       `yaml:"contact"`
	Locations []Location    `yaml:"locations"`
	Services  []ServiceRule `yaml:"services"`
}

// Load parses a catalog document.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if len(c.Locations) == 0 {
		return nil, fmt.Errorf("catalog: no locations defined")
	}
	if strings.TrimSpace(c.Contact.PhoneDisplay) == "" {
		return nil, fmt.Errorf("catalog: contact phone is required")
	}
	return &c, nil
}

// Default returns the embedded clinic catalog. It panics on a malformed embed.
func Default() *Catalog {
	c, err := Load(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// LocationBySlug finds a location by its slug.
func (c *Catalog) LocationBySlug(slug string) (Location, bool) {
	for _, loc := range c.Locations {
		if loc.Slug == slug {
			return loc, true
		}
	}
	return Location{}, false
}

// MainHub returns the main hub location, or the first location.
func (c *Catalog) MainHub() Location {
	for _, loc := range c.Locations {
		if loc.MainHub {
			return loc
		}
	}
	return c.Locations[0]
}

// MatchLocation finds the location whose name, short name or slug appears in
// the free-text answer.
func (c *Catalog) MatchLocation(answer string) (Location, bool) {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	if normalized == "" {
		return Location{}, false
	}
	for _, loc := range c.Locations {
		candidates := []string{loc.Name, loc.ShortName, loc.Slug}
		for _, candidate := range candidates {
			candidate = strings.ToLower(candidate)
			if candidate == "" {
				continue
			}
			if strings.Contains(normalized, candidate) {
				return loc, true
			}
			if len(normalized) >= 4 && strings.Contains(candidate, normalized) {
				return loc, true
			}
		}
	}
	return Location{}, false
}

// Service looks up a booking rule.
func (c *Catalog) Service(slug string) (ServiceRule, bool) {
	for _, svc := range c.Services {
		if svc.Slug == slug {
			return svc, true
		}
	}
	return ServiceRule{}, false
}

// CanSelfBook reports whether persona may book the service without
// coordination. Unknown services are bookable; an empty persona falls back
// to the service's self-bookable flag.
func (c *Catalog) CanSelfBook(serviceSlug, persona string) bool {
	rule, ok := c.Service(serviceSlug)
	if !ok {
		return true
	}
	if !rule.SelfBookable {
		return false
	}
	if persona == "" {
		return true
	}
	return slices.Contains(rule.AllowedPersonas, persona)
}

// RestrictionMessage returns the guidance shown when a service cannot be self-booked.
func (c *Catalog) RestrictionMessage(serviceSlug string) string {
	rule, _ := c.Service(serviceSlug)
	return rule.RestrictedMessage
}

// SelfBookableFor lists the service slugs the persona can book directly.
func (c *Catalog) SelfBookableFor(persona string) []string {
	var out []string
	for _, svc := range c.Services {
		if c.CanSelfBook(svc.Slug, persona) {
			out = append(out, svc.Slug)
		}
	}
	return out
}
