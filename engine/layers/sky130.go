package layers

import "github.com/spaghettifunk/strata/engine/layout"

type defaultLayer struct {
	layer, datatype uint32
	name            string
	zmin, zmax      float64
}

// Cross-section of the SkyWater 130nm process in microns.
var sky130 = []defaultLayer{
	{235, 4, "substrate", -2, 0},
	{64, 20, "nwell", -2, 0},
	{65, 20, "diff", -0.5, 0.01},
	{66, 20, "poly", 0, 0.18},
	{66, 44, "licon", 0, 0.936},
	{67, 20, "li1", 0.936, 1.136},
	{67, 16, "li1_pin", 1.136, 1.156},
	{67, 44, "mcon", 1.011, 1.376},
	{68, 20, "met1", 1.376, 1.736},
	{68, 16, "met1_pin", 1.736, 1.756},
	{68, 44, "via", 1.73, 2},
	{69, 20, "met2", 2, 2.36},
	{69, 16, "met2_pin", 2.36, 2.38},
	{69, 44, "via2", 2.36, 2.786},
	{70, 20, "met3", 2.786, 3.631},
	{70, 44, "via3", 3.631, 4.0211},
	{71, 20, "met4", 4.0211, 4.8661},
	{71, 44, "via4", 4.8661, 5.371},
	{72, 20, "met5", 5.371, 6.6311},
	{89, 44, "capm", 3.731, 3.931},
	{97, 44, "cap2m", 4.1211, 4.3211},
}

// Label text layers sit 0.03 above the top of the conductor they annotate.
var sky130Labels = []LabelLayer{
	{Tag: layout.MakeTag(67, 5), Z: 1.136 + 0.03},
	{Tag: layout.MakeTag(68, 5), Z: 1.736 + 0.03},
	{Tag: layout.MakeTag(69, 5), Z: 2.36 + 0.03},
	{Tag: layout.MakeTag(70, 5), Z: 3.631 + 0.03},
	{Tag: layout.MakeTag(71, 5), Z: 4.8661 + 0.03},
	{Tag: layout.MakeTag(72, 5), Z: 6.6311 + 0.03},
}

// Default returns the SKY130 layer stack with its label layers.
func Default() *Stack {
	s := NewStack()
	for _, l := range sky130 {
		s.specs = append(s.specs, Spec{
			Tag:  layout.MakeTag(l.layer, l.datatype),
			Name: l.name,
			ZMin: l.zmin,
			ZMax: l.zmax,
		})
	}
	s.labels = append(s.labels, sky130Labels...)
	return s
}
