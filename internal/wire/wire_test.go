package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func mustDecodeMemo(t *testing.T, b []byte) (uint64, []byte) {
	t.Helper()
	gen, p, err := DecodeMemo(b)
	if err != nil {
		t.Fatalf("DecodeMemo error: %v", err)
	}
	return gen, p
}

func TestMemoRTEmptyAndNonEmpty(t *testing.T) {
	cases := []struct {
		gen     uint64
		payload []byte
	}{
		{0, nil},
		{42, []byte("cards")},
		{math.MaxUint64, []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		enc := EncodeMemo(tc.gen, tc.payload)
		gen, p := mustDecodeMemo(t, enc)
		if gen != tc.gen {
			t.Fatalf("gen mismatch: got %d want %d", gen, tc.gen)
		}
		if !bytes.Equal(p, tc.payload) {
			t.Fatalf("payload mismatch: got %x want %x", p, tc.payload)
		}
	}
}

func TestMemoRejectsTrailingBytes(t *testing.T) {
	enc := EncodeMemo(7, []byte("x"))
	enc = append(enc, 0xDE, 0xAD)
	if _, _, err := DecodeMemo(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestMemoCorruptHeadersAndLengths(t *testing.T) {
	enc := EncodeMemo(1, []byte("abc"))

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, _, err := DecodeMemo(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, _, err := DecodeMemo(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	badKind := append([]byte(nil), enc...)
	badKind[5] = kindMemo + 1
	if _, _, err := DecodeMemo(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// vlen sits at 14..17 (4 magic +1 ver +1 kind +8 gen)
	tooLong := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(tooLong[14:18], uint32(len("abc")+1))
	if _, _, err := DecodeMemo(tooLong); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	if _, _, err := DecodeMemo(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
	if _, _, err := DecodeMemo(enc[:headerLen-1]); err == nil {
		t.Fatalf("expected error on short header")
	}
}

func TestMemoZeroCopyPayload(t *testing.T) {
	enc := EncodeMemo(1, []byte("Z"))
	_, p := mustDecodeMemo(t, enc)
	if len(p) != 1 {
		t.Fatalf("unexpected payload len")
	}
	p[0] = 'Q'
	_, p2 := mustDecodeMemo(t, enc)
	if p2[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}
