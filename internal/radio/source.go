package radio

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
)

// Source is the receive side of the transceiver. PacketAvailable starts the
// next packet and returns its size, 0 when nothing arrived. ReadByte returns
// io.EOF once the current packet is drained.
type Source interface {
	PacketAvailable() int
	ReadByte() (byte, error)
}

// Queue buffers whole packets handed over by a receiver goroutine until the
// state machine pulls them.
type Queue struct {
	mu       sync.Mutex
	packets  [][]byte
	current  []byte
	capacity int
	dropped  uint64
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{capacity: capacity}
}

// Push enqueues a copy of packet. When the queue is full the oldest packet is
// dropped.
func (q *Queue) Push(packet []byte) {
	if len(packet) == 0 {
		return
	}
	buf := make([]byte, len(packet))
	copy(buf, packet)

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.packets) >= q.capacity {
		q.packets = q.packets[1:]
		q.dropped++
		log.Debug().Uint64("dropped", q.dropped).Msg("radio: queue full, dropping oldest packet")
	}
	q.packets = append(q.packets, buf)
}

func (q *Queue) PacketAvailable() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.packets) == 0 {
		q.current = nil
		return 0
	}
	q.current = q.packets[0]
	q.packets = q.packets[1:]
	return len(q.current)
}

func (q *Queue) ReadByte() (byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.current) == 0 {
		return 0, io.EOF
	}
	b := q.current[0]
	q.current = q.current[1:]
	return b, nil
}

func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets)
}

func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// ReadPacket drains the packet started by a successful PacketAvailable.
func ReadPacket(src Source, size int) []byte {
	buf := make([]byte, 0, size)
	for {
		b, err := src.ReadByte()
		if err != nil {
			return buf
		}
		buf = append(buf, b)
	}
}

var bands = []struct {
	name   string
	center float64
}{
	{"433", 433e6},
	{"868", 868e6},
	{"915", 915e6},
}

// ValidateFrequency accepts frequencies within 10 MHz of a LoRa ISM band.
func ValidateFrequency(hz float64) (string, error) {
	for _, band := range bands {
		if math.Abs(hz-band.center) <= 10e6 {
			return band.name, nil
		}
	}
	return "", fmt.Errorf("radio: frequency %.0f Hz is outside the 433/868/915 MHz bands", hz)
}
