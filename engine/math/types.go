package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

/** @brief a 4x4 matrix, typically used to represent object transformations. */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief Represents the extents of a 3d object.
 */
type Extents3D struct {
	/** @brief The minimum extents of the object. */
	Min Vec3
	/** @brief The maximum extents of the object. */
	Max Vec3
}

/**
 * @brief Represents the placement of a cell instance in its parent.
 * Applied in the order reflection, rotation, translation, which is the
 * order layout tools use for references.
 */
type Placement struct {
	/** @brief The translation in the parent cell. */
	Origin Vec2
	/** @brief Counter-clockwise rotation around Z in radians. */
	Rotation float32
	/** @brief Mirror across the X axis before rotating. */
	XReflection bool
}
