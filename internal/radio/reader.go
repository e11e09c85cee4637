package radio

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog/log"
)

// ReaderSource frames packets as lines of an io.Reader, such as the serial
// console of a LoRa module or a capture file replayed on stdin.
type ReaderSource struct {
	*Queue
	done chan struct{}
	err  error
}

func NewReaderSource(capacity int) *ReaderSource {
	return &ReaderSource{Queue: NewQueue(capacity), done: make(chan struct{})}
}

// Start scans r in the background until EOF or ctx is done. Call it once.
func (s *ReaderSource) Start(ctx context.Context, r io.Reader) {
	go func() {
		defer close(s.done)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := bytes.TrimRight(scanner.Bytes(), "\r")
			if len(line) == 0 {
				continue
			}
			s.Push(line)
		}
		if err := scanner.Err(); err != nil {
			s.err = err
			return
		}
		log.Debug().Msg("radio: reader source reached end of input")
	}()
}

// Done is closed once the reader is exhausted.
func (s *ReaderSource) Done() <-chan struct{} {
	return s.done
}

// Err is valid after Done is closed. A reader that hit EOF reports nil.
func (s *ReaderSource) Err() error {
	return s.err
}
