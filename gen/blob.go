// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package gen

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

// ErrCorruptBlob is wrapped by every decode error, so callers
// can match the whole family with errors.Is.
var ErrCorruptBlob = errors.New("corrupt tables blob")

// blob layout:
//
//	magic "LXT1"               4 bytes
//	fingerprint                8 bytes, little-endian
//	uncompressed payload size  4 bytes, little-endian
//	zstd-compressed payload
//	blake2b-256 of the above   32 bytes
const blobMagic = "LXT1"

// cap on the uncompressed payload, so a corrupt size field
// cannot force a huge allocation
const maxBlobSize = 1 << 26

// single-goroutine coders: EncodeAll output must be identical
// across runs
var (
	zstdEnc, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	zstdDec, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// EncodeBlob serializes t into a self-describing, checksummed
// blob. The header fingerprint is recomputed from the payload,
// so it always matches what DecodeBlob will verify. Identical
// tables encode to identical bytes.
func EncodeBlob(t *Tables) ([]byte, error) {
	payload := t.appendTo(nil)
	if len(payload) > maxBlobSize {
		return nil, fmt.Errorf("gen: %d-byte tables exceed the blob size cap", len(payload))
	}
	buf := make([]byte, 0, len(blobMagic)+12+len(payload)/2+blake2b.Size256)
	buf = append(buf, blobMagic...)
	buf = binary.LittleEndian.AppendUint64(buf, fingerprint(payload))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = zstdEnc.EncodeAll(payload, buf)
	sum := blake2b.Sum256(buf)
	return append(buf, sum[:]...), nil
}

// DecodeBlob is the inverse of EncodeBlob. Any damage to the
// buffer yields an error wrapping ErrCorruptBlob: the checksum
// catches flipped bits, the fingerprint and the table parser
// catch everything a malicious payload could still try.
func DecodeBlob(buf []byte) (*Tables, error) {
	const headerSize = len(blobMagic) + 8 + 4
	if len(buf) < headerSize+blake2b.Size256 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptBlob, len(buf))
	}
	body, sum := buf[:len(buf)-blake2b.Size256], buf[len(buf)-blake2b.Size256:]
	if string(body[:len(blobMagic)]) != blobMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptBlob)
	}
	if want := blake2b.Sum256(body); !bytes.Equal(sum, want[:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptBlob)
	}
	fp := binary.LittleEndian.Uint64(body[len(blobMagic):])
	size := int(binary.LittleEndian.Uint32(body[len(blobMagic)+8:]))
	if size > maxBlobSize {
		return nil, fmt.Errorf("%w: %d-byte payload exceeds the size cap", ErrCorruptBlob, size)
	}
	payload, err := zstdDec.DecodeAll(body[headerSize:], make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}
	if len(payload) != size {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d",
			ErrCorruptBlob, len(payload), size)
	}
	if got := fingerprint(payload); got != fp {
		return nil, fmt.Errorf("%w: fingerprint 0x%016x does not match header 0x%016x",
			ErrCorruptBlob, got, fp)
	}
	t, err := parseTables(payload)
	if err != nil {
		return nil, err
	}
	t.Fingerprint = fp
	return t, nil
}
