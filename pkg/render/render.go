// Package render defines the card renderer contract. The drawing logic
// itself is pluggable; the core only relies on renders being pure for
// identical inputs so artifacts can be cached by style fingerprint.
package render

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/anicards-project/anicards/pkg/common/structs"
)

// Renderer produces an immutable SVG artifact for one card. The record
// is whatever snapshot is currently persisted; renders must tolerate nil
// parts.
type Renderer interface {
	Render(ctx context.Context, record *structs.UserRecord, cardType, variant, style string) ([]byte, error)
}

// DefaultVariant is used when a card config does not select one.
const DefaultVariant = "default"

// StyleFingerprint derives a stable identifier from the visual
// configuration. Identical variant and colors always map to the same
// fingerprint, making it usable as a cache key component.
func StyleFingerprint(variant string, colors []string) string {
	if variant == "" {
		variant = DefaultVariant
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(variant))
	for _, color := range colors {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(strings.ToLower(color)))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// ConfigFingerprint derives the fingerprint for a stored card config.
// A nil config yields the default style's fingerprint.
func ConfigFingerprint(cfg *structs.CardConfig) string {
	if cfg == nil {
		return StyleFingerprint(DefaultVariant, nil)
	}
	return StyleFingerprint(cfg.Variant, cfg.Colors)
}
