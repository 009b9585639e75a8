package mqtt

// bufferedMsg is a serialized publish held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO of pending publishes. When full, the
// oldest message is overwritten. Callers synchronize access.
type ringBuffer struct {
	msgs     []bufferedMsg
	next     int
	count    int
	overflow bool
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

// push stores msg. It reports true only for the first drop since the last
// drain, so callers can log the overflow once.
func (r *ringBuffer) push(msg bufferedMsg) (firstDrop bool) {
	r.msgs[r.next] = msg
	r.next = (r.next + 1) % len(r.msgs)
	if r.count < len(r.msgs) {
		r.count++
		return false
	}
	firstDrop = !r.overflow
	r.overflow = true
	return firstDrop
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	out := make([]bufferedMsg, 0, r.count)
	oldest := (r.next - r.count + len(r.msgs)) % len(r.msgs)
	for i := 0; i < r.count; i++ {
		out = append(out, r.msgs[(oldest+i)%len(r.msgs)])
	}
	r.next, r.count, r.overflow = 0, 0, false
	return out
}

func (r *ringBuffer) cap() int {
	return len(r.msgs)
}

func (r *ringBuffer) len() int {
	return r.count
}
