// Package serialization provides the versioned container used to save and load
// plugin state.
//
// A saved model is an Envelope: a compatibility stamp, the plugin identity,
// scalar attributes, array state and free-form metadata. On the wire it is laid
// out as:
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00-0x03 Magic "SYNB"
//	    0x04-0x07 Container format version (uint32 LE)
//	    0x08-0x0B Flags (uint32 LE)
//	    0x0C-0x0F Reserved
//	    0x10-0x17 JSON header size (uint64 LE)
//	    0x18-0x1F Data section size (uint64 LE)
//	    0x20-0x3F SHA-256 of the data section
//	  [JSON header]
//	  [Padding to 64 bytes]
//	  [Data section: msgpack attributes, then raw tensor bytes]
//
// Decoding checks the container itself (magic, format version, checksum, tensor
// bounds). The library compatibility stamp is checked separately by CheckVersion,
// so tools can still inspect files written by other releases.
//
// Example usage:
//
//	env := serialization.NewEnvelope("uniform_sampler", "generic")
//	_ = env.Set("n_rows", 150)
//	data, err := serialization.Save(env)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	loaded, err := serialization.Load(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := serialization.CheckVersion(loaded); err != nil {
//	    log.Fatal(err)
//	}
package serialization
