// Package lens holds the procedural face and background effects, the shared
// animation clock and the particle system they draw with.
package lens

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEffect is returned for an effect id that is not registered.
var ErrUnknownEffect = errors.New("unknown effect")

// ID names an effect. Background effects carry BackgroundPrefix.
type ID string

// BackgroundPrefix marks background-replacement effects.
const BackgroundPrefix = "bg_"

// None disables all effects.
const None ID = "none"

// Face lenses
const (
	Dog        ID = "dog"
	Cat        ID = "cat"
	Sunglasses ID = "sunglasses"
	HeartCrown ID = "heart_crown"
	Sparkles   ID = "sparkles"
	Beauty     ID = "beauty"
	Rainbow    ID = "rainbow"
	Cyborg     ID = "cyborg"
	Fire       ID = "fire"
	Astronaut  ID = "astronaut"
)

// Background scenes
const (
	Beach  ID = "bg_beach"
	City   ID = "bg_city"
	Space  ID = "bg_space"
	Forest ID = "bg_forest"
	Neon   ID = "bg_neon"
)

// FaceIDs lists every face lens in display order.
var FaceIDs = []ID{Dog, Cat, Sunglasses, HeartCrown, Sparkles, Beauty, Rainbow, Cyborg, Fire, Astronaut}

// BackgroundIDs lists every background scene in display order.
var BackgroundIDs = []ID{Beach, City, Space, Forest, Neon}

// IsBackground reports whether id names a background effect.
func (id ID) IsBackground() bool {
	return strings.HasPrefix(string(id), BackgroundPrefix)
}

// Kind is "none", "face" or "background".
func (id ID) Kind() string {
	switch {
	case id == None:
		return "none"
	case id.IsBackground():
		return "background"
	default:
		return "face"
	}
}

// Parse validates s against the registered effects.
func Parse(s string) (ID, error) {
	id := ID(s)
	if id == None {
		return id, nil
	}
	for _, known := range FaceIDs {
		if id == known {
			return id, nil
		}
	}
	for _, known := range BackgroundIDs {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEffect, s)
}
