package hlbvh

const (
	radixBitsPerPass = 6
	radixPasses      = mortonCodeBits / radixBitsPerPass
	radixBuckets     = 1 << radixBitsPerPass
	radixMask        = radixBuckets - 1
)

// A primitive tagged with the Morton code of its centroid.
type mortonPrim struct {
	prim uint32
	code uint32
}

// Sort prims by Morton code with an LSD radix sort. Each pass is a stable
// counting sort over radixBitsPerPass bits; passes alternate between prims
// and a scratch buffer.
func radixSort(prims []mortonPrim) {
	temp := make([]mortonPrim, len(prims))
	in, out := prims, temp
	for pass := 0; pass < radixPasses; pass++ {
		lowBit := uint(pass * radixBitsPerPass)

		var counts [radixBuckets]int
		for _, mp := range in {
			counts[(mp.code>>lowBit)&radixMask]++
		}

		var offsets [radixBuckets]int
		for i := 1; i < radixBuckets; i++ {
			offsets[i] = offsets[i-1] + counts[i-1]
		}

		for _, mp := range in {
			bucket := (mp.code >> lowBit) & radixMask
			out[offsets[bucket]] = mp
			offsets[bucket]++
		}

		in, out = out, in
	}

	// After an odd number of passes the sorted data lives in temp.
	if radixPasses&1 == 1 {
		copy(prims, temp)
	}
}
