package math

// FaceNormal returns the unit normal of triangle (p0, p1, p2) following the
// right-hand rule. Degenerate triangles yield a zero vector.
func FaceNormal(p0, p1, p2 Vec3) Vec3 {
	edge1 := p1.Sub(p0)
	edge2 := p2.Sub(p0)
	return edge1.Cross(edge2).Normalized()
}

// PositionAt reads vertex i out of a flat xyz position array.
func PositionAt(positions []float32, i uint32) Vec3 {
	return Vec3{positions[3*i], positions[3*i+1], positions[3*i+2]}
}

// GeometrySignedVolume returns the signed volume enclosed by an indexed
// triangle list. It is positive when the surface is closed and every face
// winds counter-clockwise seen from outside.
func GeometrySignedVolume(positions []float32, indices []uint32) float64 {
	var volume float64
	for i := 0; i+2 < len(indices); i += 3 {
		p0 := PositionAt(positions, indices[i+0])
		p1 := PositionAt(positions, indices[i+1])
		p2 := PositionAt(positions, indices[i+2])
		volume += float64(p0.Dot(p1.Cross(p2)))
	}
	return volume / 6.0
}

// GeometryExtents returns the axis aligned bounds of a flat xyz array.
func GeometryExtents(positions []float32) Extents3D {
	if len(positions) < 3 {
		return Extents3D{}
	}
	ext := Extents3D{
		Min: Vec3{positions[0], positions[1], positions[2]},
		Max: Vec3{positions[0], positions[1], positions[2]},
	}
	for i := 3; i+2 < len(positions); i += 3 {
		ext.Min.X = min(ext.Min.X, positions[i])
		ext.Min.Y = min(ext.Min.Y, positions[i+1])
		ext.Min.Z = min(ext.Min.Z, positions[i+2])
		ext.Max.X = max(ext.Max.X, positions[i])
		ext.Max.Y = max(ext.Max.Y, positions[i+1])
		ext.Max.Z = max(ext.Max.Z, positions[i+2])
	}
	return ext
}
