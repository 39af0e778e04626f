// Package messages holds the tip banks the comfort engine picks from.
package messages

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-outfit-service/internal/comfort"
)

// Placeholder is shown when no message applies.
const Placeholder = "-"

// Banks groups the three message families.
type Banks struct {
	Outfit   map[comfort.Band][]string             `yaml:"outfit"`
	Tip      map[comfort.TipCategory][]string      `yaml:"tip"`
	Tomorrow map[comfort.TomorrowCategory][]string `yaml:"tomorrow"`
}

// OutfitText picks the outfit tip for band on date.
func (b *Banks) OutfitText(date string, band comfort.Band) string {
	return pick(b.Outfit[band], comfort.OutfitSeed(date, band))
}

// TipText picks the environment tip for category on date.
func (b *Banks) TipText(date string, category comfort.TipCategory) string {
	return pick(b.Tip[category], comfort.TipSeed(date, category))
}

// TomorrowText picks the next-day tip for category on date.
func (b *Banks) TomorrowText(date string, category comfort.TomorrowCategory) string {
	return pick(b.Tomorrow[category], comfort.TomorrowSeed(date, category))
}

func pick(bank []string, seed string) string {
	if len(bank) == 0 {
		return Placeholder
	}
	return comfort.PickMessage(bank, seed)
}

// Load returns the default banks, with any bucket present in the YAML file
// at path replacing the default bucket. An empty path returns the defaults.
func Load(path string) (*Banks, error) {
	b := Default()
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages file: %w", err)
	}
	var override Banks
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse messages file: %w", err)
	}
	for k, v := range override.Outfit {
		if len(v) > 0 {
			b.Outfit[k] = v
		}
	}
	for k, v := range override.Tip {
		if len(v) > 0 {
			b.Tip[k] = v
		}
	}
	for k, v := range override.Tomorrow {
		if len(v) > 0 {
			b.Tomorrow[k] = v
		}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate ensures every bucket of every family has at least one message.
func (b *Banks) Validate() error {
	for _, band := range comfort.Bands {
		if len(b.Outfit[band]) == 0 {
			return fmt.Errorf("messages: outfit bank %q is empty", band)
		}
	}
	for _, c := range comfort.TipCategories {
		if len(b.Tip[c]) == 0 {
			return fmt.Errorf("messages: tip bank %q is empty", c)
		}
	}
	for _, c := range comfort.TomorrowCategories {
		if len(b.Tomorrow[c]) == 0 {
			return fmt.Errorf("messages: tomorrow bank %q is empty", c)
		}
	}
	return nil
}
