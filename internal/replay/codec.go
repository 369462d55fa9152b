package replay

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// File layout, little-endian: 4-byte magic, 1-byte format version, 1-byte
// game kind, then a u32 length-prefixed JSON payload.
var magic = [4]byte{'A', 'O', 'R', 'P'}

var gameKindCodes = map[protocol.GameKind]byte{
	protocol.GameSnake:       1,
	protocol.GameTicTacToe:   2,
	protocol.GameNumbers:     3,
	protocol.GameStackAttack: 4,
	protocol.GamePuzzle2048:  5,
}

// Encode serializes an artifact to its on-disk byte layout.
func Encode(r ReplayV1) ([]byte, error) {
	kind, ok := gameKindCodes[r.Game]
	if !ok {
		return nil, fmt.Errorf("replay: unknown game kind %q", r.Game)
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("replay: marshal payload: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(Version)
	buf.WriteByte(kind)

	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(payload)))
	buf.Write(length[:])
	buf.Write(payload)

	return buf.Bytes(), nil
}

// Decode parses an artifact, rejecting bad magic, unknown versions and
// truncated payloads.
func Decode(data []byte) (ReplayV1, error) {
	var r ReplayV1

	if len(data) < 10 {
		return r, fmt.Errorf("replay: file too short")
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return r, fmt.Errorf("replay: bad magic")
	}
	if data[4] != Version {
		return r, fmt.Errorf("replay: unsupported format version %d", data[4])
	}

	kindCode := data[5]
	length := binary.LittleEndian.Uint32(data[6:10])
	payload := data[10:]
	if uint32(len(payload)) < length {
		return r, fmt.Errorf("replay: truncated payload: have %d bytes, want %d", len(payload), length)
	}

	if err := json.Unmarshal(payload[:length], &r); err != nil {
		return r, fmt.Errorf("replay: unmarshal payload: %w", err)
	}

	if code, ok := gameKindCodes[r.Game]; !ok || code != kindCode {
		return r, fmt.Errorf("replay: header game kind %d does not match payload %q", kindCode, r.Game)
	}

	return r, nil
}

// Filename suggests a name for a saved artifact.
func Filename(game protocol.GameKind, ts time.Time) string {
	return fmt.Sprintf("%s_%s.%s", game, ts.UTC().Format("20060102_150405"), FileExtension)
}
