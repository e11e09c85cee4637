package radio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PacketFraming(t *testing.T) {
	q := NewQueue(4)
	assert.Equal(t, 0, q.PacketAvailable())

	q.Push([]byte("first"))
	q.Push([]byte("second"))

	n := q.PacketAvailable()
	require.Equal(t, 5, n)
	assert.Equal(t, []byte("first"), ReadPacket(q, n))

	_, err := q.ReadByte()
	assert.ErrorIs(t, err, io.EOF)

	n = q.PacketAvailable()
	require.Equal(t, 6, n)
	assert.Equal(t, []byte("second"), ReadPacket(q, n))
	assert.Equal(t, 0, q.PacketAvailable())
}

func TestQueue_NextPacketDiscardsUnreadBytes(t *testing.T) {
	q := NewQueue(4)
	q.Push([]byte("abc"))
	q.Push([]byte("xyz"))

	require.Equal(t, 3, q.PacketAvailable())
	b, err := q.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)

	require.Equal(t, 3, q.PacketAvailable())
	assert.Equal(t, []byte("xyz"), ReadPacket(q, 3))
}

func TestQueue_DropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)
	q.Push([]byte("1"))
	q.Push([]byte("2"))
	q.Push([]byte("3"))
	q.Push(nil)

	assert.Equal(t, 2, q.Pending())
	assert.Equal(t, uint64(1), q.Dropped())
	require.Equal(t, 1, q.PacketAvailable())
	assert.Equal(t, []byte("2"), ReadPacket(q, 1))
}

func TestQueue_PushCopies(t *testing.T) {
	q := NewQueue(1)
	buf := []byte("Lat: 1")
	q.Push(buf)
	buf[0] = 'X'

	n := q.PacketAvailable()
	assert.Equal(t, "Lat: 1", string(ReadPacket(q, n)))
}

func TestValidateFrequency(t *testing.T) {
	band, err := ValidateFrequency(915e6)
	require.NoError(t, err)
	assert.Equal(t, "915", band)

	band, err = ValidateFrequency(868.1e6)
	require.NoError(t, err)
	assert.Equal(t, "868", band)

	_, err = ValidateFrequency(2.4e9)
	assert.Error(t, err)
}

func TestReaderSource_LinesBecomePackets(t *testing.T) {
	input := "Lat: 40.712800, Lon: -74.006000, Temp: 25.5, Hum: 60.5\r\n\nLat: 0, Lon: 0, Temp: 22.0, Hum: 50.0\n"
	src := NewReaderSource(8)
	src.Start(context.Background(), strings.NewReader(input))

	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader source did not finish")
	}
	require.NoError(t, src.Err())
	require.Equal(t, 2, src.Pending())

	n := src.PacketAvailable()
	assert.Equal(t, "Lat: 40.712800, Lon: -74.006000, Temp: 25.5, Hum: 60.5", string(ReadPacket(src, n)))
	n = src.PacketAvailable()
	assert.Equal(t, "Lat: 0, Lon: 0, Temp: 22.0, Hum: 50.0", string(ReadPacket(src, n)))
}

func TestReaderSource_KeepsNewestLine(t *testing.T) {
	src := NewReaderSource(1)
	src.Start(context.Background(), strings.NewReader("Temp: 1\nTemp: 2\nTemp: 3\n"))

	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader source did not finish")
	}
	require.NoError(t, src.Err())
	assert.Equal(t, 1, src.Pending())
	assert.Equal(t, uint64(2), src.Dropped())

	n := src.PacketAvailable()
	assert.Equal(t, "Temp: 3", string(ReadPacket(src, n)))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("serial: device unplugged")
}

func TestReaderSource_ReportsReadError(t *testing.T) {
	src := NewReaderSource(1)
	src.Start(context.Background(), failingReader{})

	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader source did not finish")
	}
	assert.EqualError(t, src.Err(), "serial: device unplugged")
	assert.Equal(t, 0, src.Pending())
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestMQTTSource_OnPacket(t *testing.T) {
	src := NewMQTTSource("lora/rx", 1, 4)

	handlers := src.Handlers()
	require.Len(t, handlers, 1)
	topic, qos, handle := handlers[0]()
	assert.Equal(t, "lora/rx", topic)
	assert.Equal(t, byte(1), qos)

	handle(nil, fakeMessage{topic: "lora/rx", payload: []byte("Lat: 1, Lon: 2, Temp: 3, Hum: 4")})
	handle(nil, fakeMessage{topic: "lora/rx"})

	require.Equal(t, 1, src.Pending())
	n := src.PacketAvailable()
	assert.Equal(t, "Lat: 1, Lon: 2, Temp: 3, Hum: 4", string(ReadPacket(src, n)))
}
