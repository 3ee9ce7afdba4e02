package ui

import (
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID names a toggleable overlay.
type OverlayID string

const (
	OverlayPerf      OverlayID = "perf"
	OverlayFields    OverlayID = "fields"
	OverlayEmitters  OverlayID = "emitters"
	OverlayDomainBox OverlayID = "domain_box"
	OverlayToolbar   OverlayID = "toolbar"
)

// Category groups overlays in the controls panel.
type Category string

const (
	CategoryPanels Category = "panels"
	CategoryScene  Category = "scene"
)

// Label is the heading shown for the category.
func (c Category) Label() string {
	switch c {
	case CategoryPanels:
		return "Panels"
	case CategoryScene:
		return "Scene"
	}
	return string(c)
}

// OverlayDescriptor describes one overlay. Overlays sharing a non-empty
// Slot occupy the same screen area, so enabling one hides the others.
type OverlayDescriptor struct {
	ID       OverlayID
	Name     string
	Key      int32 // toggle key, 0 for none
	KeyLabel string
	Category Category
	Slot     string
}

var defaultOverlays = []OverlayDescriptor{
	{ID: OverlayPerf, Name: "Timing", Key: rl.KeyT, KeyLabel: "T", Category: CategoryPanels, Slot: "right"},
	{ID: OverlayFields, Name: "Field Stats", Key: rl.KeyI, KeyLabel: "I", Category: CategoryPanels, Slot: "right"},
	{ID: OverlayToolbar, Name: "Toolbar", Key: rl.KeyG, KeyLabel: "G", Category: CategoryPanels},
	{ID: OverlayDomainBox, Name: "Domain Box", Key: rl.KeyB, KeyLabel: "B", Category: CategoryScene},
	{ID: OverlayEmitters, Name: "Emitters", Key: rl.KeyE, KeyLabel: "E", Category: CategoryScene},
}

type overlay struct {
	desc OverlayDescriptor
	on   bool
}

// OverlayRegistry tracks which overlays are shown, in registration order.
type OverlayRegistry struct {
	overlays []*overlay
	index    map[OverlayID]*overlay
}

// NewOverlayRegistry returns a registry holding the built-in overlays,
// all disabled.
func NewOverlayRegistry() *OverlayRegistry {
	r := &OverlayRegistry{index: make(map[OverlayID]*overlay)}
	for _, d := range defaultOverlays {
		r.Register(d)
	}
	return r
}

// Register adds an overlay, disabled. Registering an existing ID
// replaces its descriptor.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	if o, ok := r.index[desc.ID]; ok {
		o.desc = desc
		return
	}
	o := &overlay{desc: desc}
	r.overlays = append(r.overlays, o)
	r.index[desc.ID] = o
}

// Toggle flips an overlay and returns its new state. Unknown IDs stay
// off.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	o, ok := r.index[id]
	if !ok {
		return false
	}
	r.SetEnabled(id, !o.on)
	return o.on
}

// SetEnabled shows or hides an overlay.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	o, ok := r.index[id]
	if !ok {
		return
	}
	if enabled && o.desc.Slot != "" {
		for _, other := range r.overlays {
			if other.desc.Slot == o.desc.Slot {
				other.on = false
			}
		}
	}
	o.on = enabled
}

func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	o, ok := r.index[id]
	return ok && o.on
}

// ByCategory returns the descriptors in a category.
func (r *OverlayRegistry) ByCategory(c Category) []OverlayDescriptor {
	var out []OverlayDescriptor
	for _, o := range r.overlays {
		if o.desc.Category == c {
			out = append(out, o.desc)
		}
	}
	return out
}

// Categories lists categories in order of first registration.
func (r *OverlayRegistry) Categories() []Category {
	var cats []Category
	for _, o := range r.overlays {
		if !slices.Contains(cats, o.desc.Category) {
			cats = append(cats, o.desc.Category)
		}
	}
	return cats
}

// HandleKeyPress toggles the overlay bound to key. ok is false when no
// overlay uses the key.
func (r *OverlayRegistry) HandleKeyPress(key int32) (id OverlayID, enabled, ok bool) {
	for _, o := range r.overlays {
		if o.desc.Key != 0 && o.desc.Key == key {
			return o.desc.ID, r.Toggle(o.desc.ID), true
		}
	}
	return "", false, false
}

// EnabledOverlays returns the enabled IDs in registration order.
func (r *OverlayRegistry) EnabledOverlays() []OverlayID {
	var ids []OverlayID
	for _, o := range r.overlays {
		if o.on {
			ids = append(ids, o.desc.ID)
		}
	}
	return ids
}
