package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const (
	headerSize  = 12 // requestID (8) + part count (4)
	maxParts    = 16
	maxPartSize = 512 * 1024 * 1024
)

// writeFrame writes a multipart frame with the format:
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: part count (uint32, big endian)
// - per part: 4 bytes length (uint32, big endian) followed by the data
func writeFrame(w io.Writer, requestID uint64, parts [][]byte) error {
	header := make([]byte, headerSize+4*len(parts))
	binary.BigEndian.PutUint64(header[:8], requestID)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(parts)))

	b := make(net.Buffers, 0, 2*len(parts)+1)
	b = append(b, header[:headerSize])
	for i, part := range parts {
		lenBuf := header[headerSize+4*i : headerSize+4*(i+1)]
		binary.BigEndian.PutUint32(lenBuf, uint32(len(part)))
		b = append(b, lenBuf)
		if len(part) > 0 {
			b = append(b, part)
		}
	}
	_, err := b.WriteTo(w)
	return err
}

// readFrame reads one multipart frame. Every part is freshly allocated and
// owned by the caller.
func readFrame(r io.Reader) (uint64, [][]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	requestID := binary.BigEndian.Uint64(header[:8])
	count := binary.BigEndian.Uint32(header[8:12])
	if count > maxParts {
		return requestID, nil, fmt.Errorf("frame has %d parts, at most %d allowed", count, maxParts)
	}

	parts := make([][]byte, count)
	var lenBuf [4]byte
	for i := range parts {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return requestID, nil, err
		}
		size := binary.BigEndian.Uint32(lenBuf[:])
		if size > maxPartSize {
			return requestID, nil, fmt.Errorf("frame part of %d bytes exceeds limit", size)
		}
		parts[i] = make([]byte, size)
		if _, err := io.ReadFull(r, parts[i]); err != nil {
			return requestID, nil, err
		}
	}
	return requestID, parts, nil
}
