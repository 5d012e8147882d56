package protocol

// HeartbeatLen is the fixed heartbeat payload length.
const HeartbeatLen = 8

// Heartbeat is a decoded heartbeat payload.
type Heartbeat struct {
	// Alive is the rolling alive counter, incremented by one per emission.
	Alive uint8
	// Faults is the fault flag byte current at emission time.
	Faults FaultBits
}

// EncodeHeartbeat builds the heartbeat payload: byte0 alive counter,
// byte1 fault flags, bytes 2..7 reserved as zero.
func EncodeHeartbeat(alive uint8, faults FaultBits) [HeartbeatLen]byte {
	return [HeartbeatLen]byte{alive, uint8(faults)}
}

// ParseHeartbeat decodes a heartbeat payload. ok is false when the
// payload is shorter than HeartbeatLen.
func ParseHeartbeat(payload []byte) (Heartbeat, bool) {
	if len(payload) < HeartbeatLen {
		return Heartbeat{}, false
	}

	return Heartbeat{
		Alive:  payload[0],
		Faults: FaultBits(payload[1]),
	}, true
}
