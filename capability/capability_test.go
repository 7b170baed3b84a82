package capability

import (
	"context"
	"encoding/json"
	"testing"
)

func TestOkAndFailf(t *testing.T) {
	ok := Ok("created file")
	if !ok.Success {
		t.Error("expected Success=true")
	}
	if ok.Output != "created file" {
		t.Errorf("expected output 'created file', got %q", ok.Output)
	}
	if ok.Error != "" {
		t.Errorf("expected empty error, got %q", ok.Error)
	}

	fail := Failf("unknown method %s.%s", "filesystem", "nope")
	if fail.Success {
		t.Error("expected Success=false")
	}
	if fail.Error != "unknown method filesystem.nope" {
		t.Errorf("unexpected error message: %q", fail.Error)
	}
	if fail.Output != "" {
		t.Errorf("expected empty output, got %q", fail.Output)
	}
}

func TestInvokerFunc(t *testing.T) {
	var got Request
	inv := InvokerFunc(func(ctx context.Context, req Request) (Result, error) {
		got = req
		return Ok("done"), nil
	})

	res, err := inv.Invoke(context.Background(), Request{
		Skill:  "filesystem",
		Method: "write_file",
		Params: map[string]any{"path": "a.txt"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Output != "done" {
		t.Errorf("unexpected result: %+v", res)
	}
	if got.Skill != "filesystem" || got.Method != "write_file" {
		t.Errorf("request not forwarded: %+v", got)
	}
}

func TestStringParam(t *testing.T) {
	params := map[string]any{
		"path":  "notes.txt",
		"count": 3,
		"empty": "",
	}

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"path", "notes.txt", true},
		{"empty", "", true},
		{"count", "", false},
		{"missing", "", false},
	}

	for _, tt := range tests {
		got, ok := StringParam(params, tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("StringParam(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}

	if got, ok := StringParam(nil, "path"); got != "" || ok {
		t.Errorf("StringParam(nil) = (%q, %v), want empty", got, ok)
	}
}

func TestIntParam(t *testing.T) {
	params := map[string]any{
		"exact":   42,
		"float":   float64(7),
		"number":  json.Number("19"),
		"badnum":  json.Number("x"),
		"text":    "5",
		"partial": 2.5,
	}

	tests := []struct {
		key    string
		want   int
		wantOK bool
	}{
		{"exact", 42, true},
		{"float", 7, true},
		{"number", 19, true},
		{"badnum", 0, false},
		{"text", 0, false},
		{"partial", 2, true},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		got, ok := IntParam(params, tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("IntParam(%q) = (%d, %v), want (%d, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestBoolParam(t *testing.T) {
	params := map[string]any{
		"yes":  true,
		"no":   false,
		"text": "true",
	}

	if got, ok := BoolParam(params, "yes"); !got || !ok {
		t.Errorf("BoolParam(yes) = (%v, %v)", got, ok)
	}
	if got, ok := BoolParam(params, "no"); got || !ok {
		t.Errorf("BoolParam(no) = (%v, %v)", got, ok)
	}
	if _, ok := BoolParam(params, "text"); ok {
		t.Error("BoolParam should reject string values")
	}
	if _, ok := BoolParam(params, "missing"); ok {
		t.Error("BoolParam should report false for missing keys")
	}
}
