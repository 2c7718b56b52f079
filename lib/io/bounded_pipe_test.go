package iolib

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

var errWatchdog = errors.New("timeout exceeded")

// BoundedPipeTestSuite feeds a bounded reader from a writer goroutine,
// so that the reader blocks on the source like it would on a connection.
type BoundedPipeTestSuite struct {
	suite.Suite
	Clock clock.Clock

	pr *io.PipeReader
	pw *io.PipeWriter
	wg sync.WaitGroup

	watchdog *clock.Timer
}

func TestBoundedPipeTestSuite(t *testing.T) {
	suite.Run(t, new(BoundedPipeTestSuite))
}

func (s *BoundedPipeTestSuite) SetupTest() {
	s.Clock = clock.New() // Use real-time timer for now.
	s.pr, s.pw = io.Pipe()

	s.watchdog = s.Clock.AfterFunc(time.Second, func() {
		// Unblock everything, the test fails on the resulting error.
		_ = s.pr.CloseWithError(errWatchdog)
		_ = s.pw.CloseWithError(errWatchdog)
	})
}

func (s *BoundedPipeTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	s.watchdog.Stop()
	s.NoError(s.pr.Close())
	s.wg.Wait()
}

// write writes chunks one by one and closes the writer afterwards.
func (s *BoundedPipeTestSuite) write(chunks ...string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, chunk := range chunks {
			if _, err := s.pw.Write([]byte(chunk)); err != nil {
				// Reader gave up.
				return
			}
		}
		_ = s.pw.Close()
	}()
}

func (s *BoundedPipeTestSuite) TestExact() {
	s.write("Hel", "lo, ", "World", "!")

	br, err := NewBoundedReader(AdaptSource(s.pr), 13)
	s.Require().NoError(err)

	b, err := io.ReadAll(br)
	s.Require().NoError(err)
	s.Equal("Hello, World!", string(b))
}

func (s *BoundedPipeTestSuite) TestByteByByte() {
	s.write("a", "b", "c")

	br, err := NewBoundedReader(AdaptSource(s.pr), 3)
	s.Require().NoError(err)

	for _, expected := range []byte("abc") {
		c, err := br.ReadByte()
		s.Require().NoError(err)
		s.Equal(expected, c)
	}

	_, err = br.ReadByte()
	s.Equal(io.EOF, err)
}

func (s *BoundedPipeTestSuite) TestWriterShorter() {
	s.write("abc")

	br, err := NewBoundedReader(AdaptSource(s.pr), 5)
	s.Require().NoError(err)

	b, err := io.ReadAll(br)
	s.ErrorIs(err, io.ErrUnexpectedEOF)
	s.Equal("abc", string(b))
}

func (s *BoundedPipeTestSuite) TestWriterLonger() {
	s.write("abc", "de")

	br, err := NewBoundedReader(AdaptSource(s.pr), 3)
	s.Require().NoError(err)

	b, err := io.ReadAll(br)
	s.ErrorIs(err, ErrStreamTooLong)
	s.Equal("abc", string(b))
}

func (s *BoundedPipeTestSuite) TestCloseClosesPipe() {
	s.write("abc", "def")

	br, err := NewBoundedReader(AdaptSource(s.pr), 6)
	s.Require().NoError(err)

	c, err := br.ReadByte()
	s.Require().NoError(err)
	s.Equal(byte('a'), c)

	s.NoError(br.Close())

	// Writer is released by the closed reader.
	s.wg.Wait()
}
