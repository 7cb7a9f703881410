package ed2k

// HashSize is the length of an ed2k content hash in bytes.
const HashSize = 16

// FileKey derives the 64-bit catalog key for a content hash using the
// sdbm hash. The key is not collision-free; files whose hashes collide
// are treated as the same catalog entry. It is stable across restarts
// of the same build, which is all the catalog needs from it.
func FileKey(hash [HashSize]byte) uint64 {
	var h uint64
	for _, b := range hash {
		h = uint64(b) + (h << 6) + (h << 16) - h
	}
	return h
}

// SourceKey packs a peer endpoint into a 64-bit catalog key: the
// address occupies the high 32 bits, the port the low 16 bits, and the
// 16 bits in between are zero.
func SourceKey(addr uint32, port uint16) uint64 {
	return uint64(addr)<<32 | uint64(port)
}

// DecodeSourceKey is the exact inverse of SourceKey.
func DecodeSourceKey(key uint64) (addr uint32, port uint16) {
	return uint32(key >> 32), uint16(key)
}
