package badge

import (
	"fmt"
	"strings"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

// Catalog - версионированный упорядоченный список значков.
// Порядок в каталоге - порядок проверки правил.
type Catalog struct {
	Version int     `yaml:"version"`
	Badges  []Badge `yaml:"badges"`
}

// Validate проверяет каталог целиком и проставляет позиции.
func (c *Catalog) Validate() error {
	if c.Version < 1 {
		return shared.ValidationError("badge", "ValidateCatalog", "catalog version must be >= 1")
	}
	if len(c.Badges) == 0 {
		return shared.ValidationError("badge", "ValidateCatalog", "catalog is empty")
	}

	keys := make(map[string]struct{}, len(c.Badges))
	names := make(map[string]struct{}, len(c.Badges))
	for i := range c.Badges {
		b := &c.Badges[i]
		b.Key = strings.TrimSpace(b.Key)
		b.Name = strings.TrimSpace(b.Name)
		if b.Key == "" || b.Name == "" {
			return shared.ValidationError("badge", "ValidateCatalog", fmt.Sprintf("badge #%d: key and name are required", i+1))
		}
		if _, dup := keys[b.Key]; dup {
			return shared.ValidationError("badge", "ValidateCatalog", "duplicate key "+b.Key)
		}
		if _, dup := names[b.Name]; dup {
			return shared.ValidationError("badge", "ValidateCatalog", "duplicate name "+b.Name)
		}
		keys[b.Key] = struct{}{}
		names[b.Name] = struct{}{}

		if b.XPReward < 0 {
			return shared.ValidationError("badge", "ValidateCatalog", b.Key+": xp_reward cannot be negative")
		}
		if b.Rarity == "" {
			b.Rarity = RarityCommon
		}
		if !b.Rarity.IsValid() {
			return shared.ValidationError("badge", "ValidateCatalog", b.Key+": unknown rarity")
		}
		if err := b.Rule.Validate(); err != nil {
			return fmt.Errorf("badge %s: %w", b.Key, err)
		}
		b.Position = i + 1
		b.IsActive = true
	}
	return nil
}

// ByKey ищет значок по ключу.
func (c *Catalog) ByKey(key string) (Badge, bool) {
	for _, b := range c.Badges {
		if b.Key == key {
			return b, true
		}
	}
	return Badge{}, false
}

// Keys возвращает ключи в порядке каталога.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.Badges))
	for i, b := range c.Badges {
		out[i] = b.Key
	}
	return out
}
