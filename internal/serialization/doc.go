// Package serialization implements the binary weight file of a Brain network.
//
// A weight file stores the weights and biases of every layer:
//
//	Format Structure:
//	  [4 bytes: Magic "BRNW"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON metadata]
//	  [Padding: zero bytes up to a 64-byte boundary]
//	  [Layer blocks: float64 LE, one block per layer]
//
// A layer block is neuron-major: the weights of neuron 0 followed by its
// bias, then neuron 1, and so on. The header lists the offset and size of
// every block relative to the start of the data section, and carries the
// SHA-256 checksum of that section.
//
// Example usage:
//
//	// Save
//	f, _ := os.Create("xor.brain")
//	w := serialization.NewWriter(f)
//	err := w.WriteNetwork(header, blocks)
//
//	// Load
//	r, err := serialization.Open("xor.brain")
//	defer r.Close()
//	for i := range r.Header().Layers {
//	    values, err := r.ReadLayer(i)
//	    ...
//	}
package serialization
