// Package row provides the fixed-width binary layout of a table row.
package row

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/oda/rowdb/internal/dberr"
)

// Layout:
//
//	[0:4)     id, uint32 big endian
//	[4:36)    username, zero padded
//	[36:292)  email, zero padded
const (
	IDSize       = 4
	UsernameSize = 32
	EmailSize    = 256

	IDOffset       = 0
	UsernameOffset = IDOffset + IDSize
	EmailOffset    = UsernameOffset + UsernameSize

	// Size is the serialized size of a row in bytes.
	Size = IDSize + UsernameSize + EmailSize // 292
)

// Row is one logical record.
type Row struct {
	ID       uint32 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (r Row) String() string {
	return fmt.Sprintf("(%d, %s, %s)", r.ID, r.Username, r.Email)
}

// Validate checks that r can be stored and read back unchanged.
func Validate(r Row) error {
	if err := checkField("username", r.Username, UsernameSize); err != nil {
		return err
	}
	return checkField("email", r.Email, EmailSize)
}

func checkField(name, s string, max int) error {
	if len(s) > max {
		return dberr.New(dberr.KindInvalidRow, "validate "+name,
			fmt.Errorf("%d bytes exceeds %d", len(s), max))
	}
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		return dberr.New(dberr.KindInvalidRow, "validate "+name,
			fmt.Errorf("contains a zero byte"))
	}
	if !utf8.ValidString(s) {
		return dberr.New(dberr.KindInvalidRow, "validate "+name,
			fmt.Errorf("not valid UTF-8"))
	}
	return nil
}

// Encode validates r and writes it into buf, which must hold at least Size bytes.
func Encode(r Row, buf []byte) error {
	if err := Validate(r); err != nil {
		return err
	}
	if len(buf) < Size {
		return dberr.New(dberr.KindInvalidRow, "encode",
			fmt.Errorf("buffer of %d bytes, need %d", len(buf), Size))
	}

	binary.BigEndian.PutUint32(buf[IDOffset:UsernameOffset], r.ID)
	writeField(buf[UsernameOffset:EmailOffset], r.Username)
	writeField(buf[EmailOffset:Size], r.Email)
	return nil
}

// Serialize returns the Size-byte encoding of r.
func Serialize(r Row) ([]byte, error) {
	buf := make([]byte, Size)
	if err := Encode(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Deserialize decodes the first Size bytes of buf.
func Deserialize(buf []byte) (Row, error) {
	if len(buf) < Size {
		return Row{}, dberr.New(dberr.KindCorruptRecord, "decode",
			fmt.Errorf("buffer of %d bytes, need %d", len(buf), Size))
	}

	username, err := readField("username", buf[UsernameOffset:EmailOffset])
	if err != nil {
		return Row{}, err
	}
	email, err := readField("email", buf[EmailOffset:Size])
	if err != nil {
		return Row{}, err
	}

	return Row{
		ID:       binary.BigEndian.Uint32(buf[IDOffset:UsernameOffset]),
		Username: username,
		Email:    email,
	}, nil
}

// IsZero reports whether a serialized slot holds only zero bytes.
func IsZero(buf []byte) bool {
	for _, b := range buf[:Size] {
		if b != 0 {
			return false
		}
	}
	return true
}

// writeField copies s left-justified into field and zeroes the rest.
func writeField(field []byte, s string) {
	n := copy(field, s)
	clear(field[n:])
}

// readField reads up to the first zero byte or the end of field.
func readField(name string, field []byte) (string, error) {
	end := bytes.IndexByte(field, 0)
	if end < 0 {
		end = len(field)
	}
	if !utf8.Valid(field[:end]) {
		return "", dberr.New(dberr.KindCorruptRecord, "decode "+name,
			fmt.Errorf("not valid UTF-8"))
	}
	return string(field[:end]), nil
}
