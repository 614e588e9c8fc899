package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when an item id is absent from a catalog.
var ErrNotFound = errors.New("item not found")

// #region catalog
// Catalog is an immutable, versioned set of items. Safe for concurrent reads.
type Catalog struct {
	version   Version
	fcVersion Version
	items     map[string]Item
	order     []string
	byTag     map[Tag][]string
	pairs     map[string][2]string
	sections  []string
}

// New builds a catalog from items. Item ids must be unique.
func New(version, fcVersion Version, items []Item) (*Catalog, error) {
	c := &Catalog{
		version:   version,
		fcVersion: fcVersion,
		items:     make(map[string]Item, len(items)),
		byTag:     make(map[Tag][]string),
		pairs:     make(map[string][2]string),
	}
	seenSection := map[string]bool{}
	for _, it := range items {
		if it.ID == "" {
			return nil, errors.New("item with empty id")
		}
		if _, dup := c.items[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %s", it.ID)
		}
		c.items[it.ID] = it
		c.order = append(c.order, it.ID)
		c.byTag[it.Tag] = append(c.byTag[it.Tag], it.ID)
		if it.Section != "" && !seenSection[it.Section] {
			seenSection[it.Section] = true
			c.sections = append(c.sections, it.Section)
		}
		if it.Tag == TagInconsistency {
			p := c.pairs[it.PairGroup]
			switch it.PairSide {
			case SideA:
				p[0] = it.ID
			case SideB:
				p[1] = it.ID
			default:
				return nil, fmt.Errorf("item %s: inconsistency side %q", it.ID, it.PairSide)
			}
			c.pairs[it.PairGroup] = p
		}
	}
	for group, p := range c.pairs {
		if p[0] == "" || p[1] == "" {
			return nil, fmt.Errorf("inconsistency pair %s is missing a side", group)
		}
	}
	return c, nil
}

// Version is the catalog revision.
func (c *Catalog) Version() Version { return c.version }

// FCVersion is the forced-choice scoring revision the catalog's weights belong to.
func (c *Catalog) FCVersion() Version { return c.fcVersion }

// Resolve looks up an item by id.
func (c *Catalog) Resolve(id string) (Item, error) {
	it, ok := c.items[id]
	if !ok {
		return Item{}, fmt.Errorf("resolve %s in catalog %s: %w", id, c.version, ErrNotFound)
	}
	return it, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Items returns all items in declaration order.
func (c *Catalog) Items() []Item {
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// ByTag returns the items carrying a tag, in declaration order.
func (c *Catalog) ByTag(tag Tag) []Item {
	ids := c.byTag[tag]
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.items[id])
	}
	return out
}

// Pairs returns inconsistency pairs as [A, B] item ids, sorted by group name.
func (c *Catalog) Pairs() []Pair {
	groups := make([]string, 0, len(c.pairs))
	for g := range c.pairs {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	out := make([]Pair, 0, len(groups))
	for _, g := range groups {
		p := c.pairs[g]
		out = append(out, Pair{Group: g, A: p[0], B: p[1]})
	}
	return out
}

// Sections returns the distinct section names in declaration order.
func (c *Catalog) Sections() []string {
	return append([]string(nil), c.sections...)
}

// Pair is one inconsistency pair.
type Pair struct {
	Group string
	A     string
	B     string
}

// #endregion catalog

// #region registry
// Registry holds several catalog versions side by side so sessions taken under
// an older catalog keep scoring against it during migrations.
type Registry struct {
	mu       sync.RWMutex
	catalogs map[Version]*Catalog
	latest   Version
}

// NewRegistry creates a registry preloaded with the given catalogs.
func NewRegistry(cats ...*Catalog) *Registry {
	r := &Registry{catalogs: make(map[Version]*Catalog)}
	for _, c := range cats {
		r.Add(c)
	}
	return r
}

// Add registers a catalog, replacing any catalog with the same version.
func (r *Registry) Add(c *Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[c.version] = c
	if r.latest.Less(c.version) || r.latest.IsZero() {
		r.latest = c.version
	}
}

// Get returns the catalog for a version.
func (r *Registry) Get(v Version) (*Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.catalogs[v]
	if !ok {
		return nil, fmt.Errorf("catalog %s not registered", v)
	}
	return c, nil
}

// Latest returns the highest registered catalog version.
func (r *Registry) Latest() (*Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.catalogs[r.latest]
	if !ok {
		return nil, errors.New("registry is empty")
	}
	return c, nil
}

// Versions lists registered versions in ascending order.
func (r *Registry) Versions() []Version {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Version, 0, len(r.catalogs))
	for v := range r.catalogs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// #endregion registry

func sortStrings(s []string) { sort.Strings(s) }
