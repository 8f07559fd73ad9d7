// Package serialization implements the .born checkpoint format used to save
// and restore model state dictionaries.
//
//	Format Structure (v2):
//	  [0x00-0x03: Magic "BORN"]
//	  [0x04-0x07: Version (uint32 LE, 2)]
//	  [0x08-0x0B: Flags (uint32 LE)]
//	  [0x0C-0x0F: Reserved]
//	  [0x10-0x17: Header size (uint64 LE)]
//	  [0x18-0x1F: Data size (uint64 LE)]
//	  [0x20-0x3F: SHA-256 of the data section]
//	  [Header: JSON metadata]
//	  [Tensor data: raw little-endian bytes, 64-byte aligned]
//
// Tensors are written in state-dict order, so the same model always produces
// the same layout. Float32 tensors may be stored as IEEE half precision to
// halve the file size; they are widened back to float32 on load.
//
// Example usage:
//
//	state := serialization.NewStateDict()
//	state.Set("head.weight", w.Raw())
//	if err := serialization.SaveFile("model.born", state, serialization.WriteOptions{ModelType: "GPT"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	ckpt, err := serialization.LoadFile("model.born", serialization.ReaderOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w, _ := ckpt.State.Get("head.weight")
package serialization
