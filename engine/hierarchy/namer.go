package hierarchy

import "github.com/spaghettifunk/strata/engine/layout"

const (
	// PlaceholderName is used for instances without a recognised name.
	PlaceholderName = "???"
	// GDSPropertyName is the property name GDSII attributes are stored under.
	GDSPropertyName = "S_GDS_PROPERTY"
)

// Namer picks the display name of an instance from its reference's
// properties. It reports false when none applies.
type Namer interface {
	InstanceName(props []layout.Property) (string, bool)
}

// NamerFunc adapts a function to the Namer interface.
type NamerFunc func(props []layout.Property) (string, bool)

func (f NamerFunc) InstanceName(props []layout.Property) (string, bool) {
	return f(props)
}

// gdsAttribute returns the attribute number and string value of a GDSII
// property: an unsigned integer followed by a string.
func gdsAttribute(p layout.Property) (uint64, string, bool) {
	if p.Name != GDSPropertyName || len(p.Values) < 2 {
		return 0, "", false
	}
	attr, value := p.Values[0], p.Values[1]
	if attr.Type != layout.PropertyUnsignedInteger || value.Type != layout.PropertyString {
		return 0, "", false
	}
	return attr.Unsigned, value.String, true
}

// FirstGDSProperty names an instance after the first GDSII property found,
// whatever its attribute number. Producers disagree on which attribute
// carries the instance name, so the first match wins.
var FirstGDSProperty Namer = NamerFunc(func(props []layout.Property) (string, bool) {
	for _, p := range props {
		if _, value, ok := gdsAttribute(p); ok {
			return value, true
		}
	}
	return "", false
})

// GDSAttribute names an instance after the GDSII property with the given
// attribute number (61 on SKY130 designs).
func GDSAttribute(attr uint64) Namer {
	return NamerFunc(func(props []layout.Property) (string, bool) {
		for _, p := range props {
			if a, value, ok := gdsAttribute(p); ok && a == attr {
				return value, true
			}
		}
		return "", false
	})
}

// Chain tries each namer in order.
func Chain(namers ...Namer) Namer {
	return NamerFunc(func(props []layout.Property) (string, bool) {
		for _, n := range namers {
			if name, ok := n.InstanceName(props); ok {
				return name, true
			}
		}
		return "", false
	})
}
