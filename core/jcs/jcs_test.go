package jcs

import "testing"

func TestCanonicalize(t *testing.T) {
	out, err := Canonicalize([]byte(`{ "width":2, "crop":"fill" }`))
	if err != nil {
		t.Fatalf("canonicalize error: %v", err)
	}
	if string(out) != `{"crop":"fill","width":2}` {
		t.Fatalf("unexpected canonical form: %s", string(out))
	}
	if _, err := Canonicalize([]byte(`{`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestMarshalSortsMapKeys(t *testing.T) {
	out, err := Marshal(map[string]any{"z": []int{3, 1}, "a": map[string]string{"y": "1", "b": "2"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":{"b":"2","y":"1"},"z":[3,1]}` {
		t.Fatalf("unexpected canonical output: %s", string(out))
	}
}

func TestFingerprintStable(t *testing.T) {
	type key struct {
		PublicID string `json:"public_id"`
		Format   string `json:"format"`
	}
	a, err := Fingerprint(key{PublicID: "sample", Format: "jpg"})
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	b, err := Fingerprint(map[string]string{"format": "jpg", "public_id": "sample"})
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if a != b || len(a) != 64 {
		t.Fatalf("expected equal 64 char digests, got %s and %s", a, b)
	}
	c, _ := Fingerprint(key{PublicID: "sample", Format: "png"})
	if c == a {
		t.Fatalf("expected different digest for different value")
	}
	if _, err := Fingerprint(func() {}); err == nil {
		t.Fatalf("expected marshal error for unsupported value")
	}
}
