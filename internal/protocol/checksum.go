package protocol

// Checksum computes the 8-bit protection checksum of a command frame:
// 0xFF minus the byte sum of the level and the masked rolling counter.
// Senders store it in the third payload byte.
func Checksum(level, counter uint8) uint8 {
	return 0xFF - (level + counter&CounterMask)
}

// VerifyChecksum reports whether sum protects the given level and counter.
func VerifyChecksum(level, counter, sum uint8) bool {
	return Checksum(level, counter) == sum
}
