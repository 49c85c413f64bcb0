package listener

import (
	"bufio"
	"bytes"
	"io"
)

// lineConn frames a byte stream as newline-delimited messages, one JSON
// message per line. Blank lines are skipped so interactive clients can
// hit return without producing malformed-message noise.
type lineConn struct {
	rw io.ReadWriter
	br *bufio.Reader
}

func newLineConn(rw io.ReadWriter) *lineConn {
	return &lineConn{
		rw: rw,
		br: bufio.NewReader(rw),
	}
}

func (c *lineConn) ReadFrame() ([]byte, error) {
	for {
		line, err := c.br.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			return trimmed, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (c *lineConn) WriteFrame(data []byte) error {
	if _, err := c.rw.Write(data); err != nil {
		return err
	}
	_, err := c.rw.Write([]byte{'\n'})
	return err
}

func (c *lineConn) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
