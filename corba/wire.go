// Package corba provides a CORBA implementation in Go
package corba

import (
	"encoding/binary"
	"io"

	"github.com/ifabos/go-corba/giop"
)

// readGIOPFrame reads one complete GIOP message (the fixed 12-byte header
// plus its body) from r and returns the header and the raw, still-encoded
// body bytes.
func readGIOPFrame(r io.Reader) (giop.MessageHeader, []byte, error) {
	headerBytes := make([]byte, 12)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return giop.MessageHeader{}, nil, err
	}

	hu := giop.NewCDRUnmarshaller(headerBytes, binary.BigEndian)
	header, err := hu.ReadMessageHeader()
	if err != nil {
		return giop.MessageHeader{}, nil, err
	}
	if err := header.Validate(); err != nil {
		return giop.MessageHeader{}, nil, err
	}

	body := make([]byte, header.MsgSize)
	if header.MsgSize > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return giop.MessageHeader{}, nil, err
		}
	}

	return header, body, nil
}

// writeGIOPFrame writes a GIOP message header followed by an already-encoded
// body to w. GIOP headers in this module are always big endian (NewMessageHeader
// never sets the endianness flag), so the body must be encoded the same way.
func writeGIOPFrame(w io.Writer, msgType byte, body []byte) error {
	header := giop.NewMessageHeader(msgType, uint32(len(body)))
	hm := giop.NewCDRMarshaller(binary.BigEndian)
	hm.WriteMessageHeader(header)

	if _, err := w.Write(hm.Bytes()); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}
