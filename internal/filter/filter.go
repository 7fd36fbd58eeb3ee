// Package filter selects monitors from the cached snapshot by the request
// parameters every bulk endpoint accepts.
package filter

import (
	"fmt"
	"path"
	"sort"

	"github.com/kumabridgehq/bridge/pkg/types"
)

// Params are the filter criteria. Zero-valued fields are absent: an empty
// Params matches every non-group monitor.
type Params struct {
	// Group matches monitors whose parent group's name equals this value.
	// A monitor without a parent never matches.
	Group string `json:"group,omitempty"`
	// Tag matches monitors carrying a tag with this name.
	Tag string `json:"tag,omitempty"`
	// NamePattern is a glob matched against the monitor name.
	NamePattern string `json:"name_pattern,omitempty"`
	// Type matches the monitor kind exactly.
	Type string `json:"type,omitempty"`
	// IncludeGroups keeps group entries in the result; they are skipped
	// otherwise regardless of the other criteria.
	IncludeGroups bool `json:"include_groups,omitempty"`
}

// Empty reports whether no criteria are set.
func (p Params) Empty() bool {
	return p == Params{}
}

// Validate checks the glob pattern, if any.
func (p Params) Validate() error {
	if p.NamePattern == "" {
		return nil
	}
	if _, err := path.Match(p.NamePattern, ""); err != nil {
		return fmt.Errorf("name_pattern %q: %w", p.NamePattern, err)
	}
	return nil
}

// Match returns the monitors satisfying every set criterion, ordered by id.
func Match(monitors map[int64]types.Monitor, p Params) ([]types.Monitor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	matched := make([]types.Monitor, 0, len(monitors))
	for _, monitor := range monitors {
		if monitor.IsGroup() && !p.IncludeGroups {
			continue
		}
		if p.Group != "" {
			if monitor.Parent == nil {
				continue
			}
			parent, ok := monitors[*monitor.Parent]
			if !ok || parent.Name != p.Group {
				continue
			}
		}
		if p.Tag != "" && !monitor.HasTag(p.Tag) {
			continue
		}
		if p.NamePattern != "" {
			ok, err := path.Match(p.NamePattern, monitor.Name)
			if err != nil {
				return nil, fmt.Errorf("name_pattern %q: %w", p.NamePattern, err)
			}
			if !ok {
				continue
			}
		}
		if p.Type != "" && monitor.Type != p.Type {
			continue
		}
		matched = append(matched, monitor)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}
