package notification

import (
	"testing"
)

func TestKind_Mode(t *testing.T) {
	tests := []struct {
		kind Kind
		want Mode
	}{
		{KindSessionStatus, ModeFireAndForget},
		{KindDeviceStatus, ModeFireAndForget},
		{KindSessionConfig, ModeRequestResponse},
		{KindRangingReport, ModeRequestResponse},
	}
	for _, tt := range tests {
		if got := tt.kind.Mode(); got != tt.want {
			t.Errorf("%s.Mode() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, in := range []string{"ranging_report", "RangingReport", "ranging-report", " RANGING_REPORT "} {
		k, err := ParseKind(in)
		if err != nil {
			t.Fatalf("ParseKind(%q) failed: %v", in, err)
		}
		if k != KindRangingReport {
			t.Errorf("ParseKind(%q) = %s", in, k)
		}
	}

	if _, err := ParseKind("bogus"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestBundle_CloneIsDeep(t *testing.T) {
	orig := Bundle{
		"session_id": int64(7),
		"vendor":     Bundle{"rssi": -40},
		"raw":        map[string]any{"k": "v"},
		"list":       []any{"a", Bundle{"b": 1}},
	}

	cp := orig.Clone()
	if !cp.Equal(orig.Clone()) {
		t.Fatal("clone should equal original")
	}

	nested, _ := cp.Nested("vendor")
	nested["rssi"] = -90
	raw, _ := cp.Nested("raw")
	raw["k"] = "changed"
	cp["list"].([]any)[1].(Bundle)["b"] = 2

	if v, _ := orig.Nested("vendor"); v["rssi"] != -40 {
		t.Error("mutating clone leaked into nested bundle")
	}
	if orig["raw"].(map[string]any)["k"] != "v" {
		t.Error("mutating clone leaked into nested map")
	}
	if orig["list"].([]any)[1].(Bundle)["b"] != 1 {
		t.Error("mutating clone leaked into slice element")
	}

	var nilBundle Bundle
	if nilBundle.Clone() != nil {
		t.Error("nil bundle should clone to nil")
	}
}

func TestBundle_Accessors(t *testing.T) {
	b := Bundle{"name": "ccc", "count": float64(3), "ratio": 0.5}

	if s, ok := b.String("name"); !ok || s != "ccc" {
		t.Errorf("String = %q, %v", s, ok)
	}
	if n, ok := b.Int("count"); !ok || n != 3 {
		t.Errorf("Int = %d, %v", n, ok)
	}
	if _, ok := b.Int("ratio"); ok {
		t.Error("non-integral float should not convert")
	}
	if _, ok := b.Nested("name"); ok {
		t.Error("string should not be a nested bundle")
	}
}

func TestEnvelope_EncodeDecode(t *testing.T) {
	env := NewEnvelope(KindSessionConfig, Bundle{"session_id": 42})
	env.ReplyTo = "oembridge:reply:1"

	data, err := env.Encode()
	if err != nil {
		t.Fatal(err)
	}

	got, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != env.ID || got.Kind != KindSessionConfig || got.ReplyTo != env.ReplyTo {
		t.Errorf("decoded envelope mismatch: %+v", got)
	}
	if id, ok := got.Payload.Int("session_id"); !ok || id != 42 {
		t.Errorf("payload session_id = %d, %v", id, ok)
	}
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("{")); err == nil {
		t.Error("expected error for malformed json")
	}
	if _, err := DecodeEnvelope([]byte(`{"id":"x","kind":"nope"}`)); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := DecodeEnvelope([]byte(`{"kind":"device_status"}`)); err == nil {
		t.Error("expected error for missing id")
	}
}
