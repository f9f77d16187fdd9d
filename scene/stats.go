package scene

import "time"

// BuildStats summarizes an acceleration structure after it has been built.
type BuildStats struct {
	// Number of registered meshes and primitives.
	Meshes     int
	Primitives uint32

	// Tree shape. Structures without a tree report zero values.
	Nodes    uint32
	Leaves   uint32
	MaxDepth uint32

	// Number of primitive references stored in leaves. Spatial subdivision
	// schemes may reference a primitive from more than one leaf.
	LeafPrimitives uint32

	// Expected cost of a random ray according to the surface area heuristic.
	SAHCost float32

	// Time taken by Build.
	BuildTime time.Duration

	// Bytes reserved for nodes and for primitive storage.
	NodeBytes      uint64
	PrimitiveBytes uint64
}
