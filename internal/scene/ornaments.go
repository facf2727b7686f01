package scene

import "strings"

// Ornaments is an insertion-ordered set of prop names. It is either exactly
// {OrnamentNone} or holds no OrnamentNone at all. Every method returns a new
// value and leaves the receiver untouched.
type Ornaments []string

func NoOrnaments() Ornaments {
	return Ornaments{OrnamentNone}
}

func (o Ornaments) IsNone() bool {
	n := o.normalize()
	return len(n) == 1 && n[0] == OrnamentNone
}

func (o Ornaments) Contains(item string) bool {
	for _, x := range o {
		if x == item {
			return true
		}
	}
	return false
}

func (o Ornaments) Items() []string {
	return append([]string(nil), o.normalize()...)
}

// Add inserts item. Adding OrnamentNone clears every real ornament; adding a
// real ornament drops OrnamentNone.
func (o Ornaments) Add(item string) Ornaments {
	item = strings.TrimSpace(item)
	if item == "" {
		return o.normalize()
	}
	if item == OrnamentNone {
		return NoOrnaments()
	}

	out := make(Ornaments, 0, len(o)+1)
	for _, x := range o.normalize() {
		if x == OrnamentNone {
			continue
		}
		out = append(out, x)
	}
	if !out.Contains(item) {
		out = append(out, item)
	}
	return out
}

// Remove deletes item. Removing the last ornament falls back to OrnamentNone.
func (o Ornaments) Remove(item string) Ornaments {
	item = strings.TrimSpace(item)
	out := make(Ornaments, 0, len(o))
	for _, x := range o {
		if x == item {
			continue
		}
		out = append(out, x)
	}
	return out.normalize()
}

func (o Ornaments) SetNone() Ornaments {
	return NoOrnaments()
}

func (o Ornaments) normalize() Ornaments {
	seen := make(map[string]struct{}, len(o))
	out := make(Ornaments, 0, len(o))
	hasNone := false
	for _, x := range o {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if x == OrnamentNone {
			hasNone = true
			continue
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	if hasNone || len(out) == 0 {
		return NoOrnaments()
	}
	return out
}
