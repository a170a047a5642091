package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, 404, "no such session")
	if rec.Code != 404 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if ns := rec.Header().Get("X-Content-Type-Options"); ns != "nosniff" {
		t.Fatalf("nosniff header = %q", ns)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not json: %v", err)
	}
	if body["error"] != "no such session" {
		t.Fatalf("error message = %q", body["error"])
	}
}

func TestJSONWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := JSONWrite(rec, 201, map[string]int{"n": 3}); err != nil {
		t.Fatalf("JSONWrite failed: %v", err)
	}
	if rec.Code != 201 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["n"] != 3 {
		t.Fatalf("body = %s err=%v", rec.Body.String(), err)
	}

	// non-positive status defers to the implicit 200
	rec = httptest.NewRecorder()
	if err := JSONWrite(rec, 0, "ok"); err != nil {
		t.Fatalf("JSONWrite failed: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("implicit status = %d", rec.Code)
	}
}
