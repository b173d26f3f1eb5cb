package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Palette ids are small unsigned integers.
type ID interface {
	~uint8 | ~uint16
}

// PackRLE encodes ids as (id, run_len) uvarint pairs.
func PackRLE[T ID](ids []T) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(ids) {
		b := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == b && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(b))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return buf.Bytes()
}

// UnpackRLE decodes PackRLE output. limit caps the decoded length so a bad
// run length cannot balloon memory; pass 0 for no cap.
func UnpackRLE[T ID](raw []byte, limit int) ([]T, error) {
	var zero T
	maxID := uint64(^zero)

	var out []T
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if b > maxID {
			return nil, fmt.Errorf("id too large: %d", b)
		}
		if limit > 0 && uint64(len(out))+run > uint64(limit) {
			return nil, fmt.Errorf("run overflows limit %d", limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, T(b))
		}
	}
	return out, nil
}

// EncodeRLE is PackRLE wrapped in standard base64, for JSON transports.
func EncodeRLE[T ID](ids []T) string {
	return base64.StdEncoding.EncodeToString(PackRLE(ids))
}

func DecodeRLE[T ID](b64 string, limit int) ([]T, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return UnpackRLE[T](raw, limit)
}
