// Package behavior implements the marker filter policy: which interaction
// modes exist, how an interaction turns into a visibility record, and whether
// a marker is currently filtered.
package behavior

import (
	"fmt"
	"strconv"
	"strings"
)

// AttributeName is the point-of-interest attribute carrying the mode.
const AttributeName = "behavior"

// Mode is a reset/visibility policy attached to a marker. Numeric values
// match the values found in marker packs.
type Mode int

const (
	AlwaysVisible               Mode = 0
	ReappearOnMapChange         Mode = 1
	ReappearOnDailyReset        Mode = 2
	OnlyVisibleBeforeActivation Mode = 3
	ReappearAfterTimer          Mode = 4
	OncePerInstance             Mode = 6
	OnceDailyPerCharacter       Mode = 7
	ReappearOnWeeklyReset       Mode = 101
)

var modeNames = map[Mode]string{
	AlwaysVisible:               "AlwaysVisible",
	ReappearOnMapChange:         "ReappearOnMapChange",
	ReappearOnDailyReset:        "ReappearOnDailyReset",
	OnlyVisibleBeforeActivation: "OnlyVisibleBeforeActivation",
	ReappearAfterTimer:          "ReappearAfterTimer",
	OncePerInstance:             "OncePerInstance",
	OnceDailyPerCharacter:       "OnceDailyPerCharacter",
	ReappearOnWeeklyReset:       "ReappearOnWeeklyReset",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Filters reports whether markers with this mode can be filtered at all.
func (m Mode) Filters() bool {
	_, known := modeNames[m]
	return known && m != AlwaysVisible
}

// Permanent reports whether an interaction hides the marker until unload
// rather than until a point in time.
func (m Mode) Permanent() bool {
	switch m {
	case ReappearOnMapChange, OnlyVisibleBeforeActivation, OncePerInstance:
		return true
	}
	return false
}

// ParseMode decodes a behavior attribute value. Both the numeric form ("2")
// and the name ("ReappearOnDailyReset", case-insensitive) are accepted.
func ParseMode(raw string) (Mode, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AlwaysVisible, fmt.Errorf("empty %s attribute", AttributeName)
	}

	if n, err := strconv.Atoi(raw); err == nil {
		m := Mode(n)
		if _, ok := modeNames[m]; !ok {
			return AlwaysVisible, fmt.Errorf("unknown %s value %d", AttributeName, n)
		}
		return m, nil
	}

	for m, name := range modeNames {
		if strings.EqualFold(name, raw) {
			return m, nil
		}
	}
	return AlwaysVisible, fmt.Errorf("unknown %s value %q", AttributeName, raw)
}
