package cache

import "testing"

// FuzzSnapshotDecode exercises the binary snapshot decoder with arbitrary inputs.
func FuzzSnapshotDecode(f *testing.F) {
	encoded, err := Encode(testSnapshot())
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:len(encoded)/2])
	}
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte{2, 0xFF, 0xFF})
	f.Add([]byte{255, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		snap, err := Decode(data)
		if err != nil {
			return
		}
		if snap == nil {
			t.Fatal("Decode returned nil snapshot without error")
		}
		again, err := Encode(snap)
		if err != nil {
			t.Fatalf("re-encode failed: %v", err)
		}
		if _, err := Decode(again); err != nil {
			t.Fatalf("decode of re-encoded snapshot failed: %v", err)
		}
	})
}
