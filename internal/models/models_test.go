package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestOptionalDistinguishesAbsentNullAndSet(t *testing.T) {
	var payload struct {
		Assignee Optional[int64] `json:"assignee_id"`
		Reviewer Optional[int64] `json:"reviewer_id"`
		Due      Optional[Date]  `json:"due_date"`
	}
	if err := json.Unmarshal([]byte(`{"assignee_id": null, "reviewer_id": 7}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !payload.Assignee.Set || !payload.Assignee.Null {
		t.Errorf("assignee: expected explicit null, got %+v", payload.Assignee)
	}
	if !payload.Reviewer.Set || payload.Reviewer.Null || payload.Reviewer.Value != 7 {
		t.Errorf("reviewer: expected set to 7, got %+v", payload.Reviewer)
	}
	if payload.Due.Set {
		t.Errorf("due_date: expected absent, got %+v", payload.Due)
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2025-03-09"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2025-03-09" {
		t.Errorf("expected 2025-03-09, got %s", d)
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2025-03-09"` {
		t.Errorf("unexpected encoding %s", out)
	}

	if err := json.Unmarshal([]byte(`"09.03.2025"`), &d); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestStatusAndPriorityValid(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"to-do", true},
		{"in-progress", true},
		{"review", true},
		{"done", true},
		{"reviewing", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Status(tt.value).Valid(); got != tt.want {
			t.Errorf("Status(%q).Valid() = %v, want %v", tt.value, got, tt.want)
		}
	}

	if !PriorityHigh.Valid() || Priority("urgent").Valid() {
		t.Error("priority validation mismatch")
	}
}

func TestMalformedDateNamesField(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"pointer", `{"due_date": "09.03.2025"}`, "due_date"},
		{"optional", `{"patch_due": "2025-13-40"}`, "patch_due"},
		{"wrong type", `{"due_date": 20250309}`, "due_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				Due      *Date          `json:"due_date"`
				PatchDue Optional[Date] `json:"patch_due"`
			}
			err := json.Unmarshal([]byte(tt.body), &payload)
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				t.Fatalf("expected *json.UnmarshalTypeError, got %T: %v", err, err)
			}
			if typeErr.Type != reflect.TypeOf(Date{}) {
				t.Errorf("expected Date type, got %v", typeErr.Type)
			}
			if typeErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, typeErr.Field)
			}
		})
	}
}
