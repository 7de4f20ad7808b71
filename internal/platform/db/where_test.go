package db

import (
	"testing"
)

func TestWhere_Empty(t *testing.T) {
	var w Where
	if w.SQL() != "" {
		t.Errorf("expected empty clause, got %q", w.SQL())
	}
	page, args := w.Page(20, 40)
	if page != " LIMIT $1 OFFSET $2" {
		t.Errorf("unexpected page clause %q", page)
	}
	if len(args) != 2 || args[0] != 20 || args[1] != 40 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestWhere_Placeholders(t *testing.T) {
	var w Where
	w.Add("doctor_id = ?", "d1")
	w.Add("status = ?", "agendada")
	w.Add("scheduled_at >= ?", "2025-03-01")

	want := " WHERE doctor_id = $1 AND status = $2 AND scheduled_at >= $3"
	if w.SQL() != want {
		t.Errorf("got %q, want %q", w.SQL(), want)
	}
	if len(w.Args()) != 3 || w.Args()[1] != "agendada" {
		t.Errorf("unexpected args %v", w.Args())
	}

	page, args := w.Page(10, 0)
	if page != " LIMIT $4 OFFSET $5" {
		t.Errorf("unexpected page clause %q", page)
	}
	if len(args) != 5 {
		t.Errorf("expected 5 args, got %d", len(args))
	}
	if len(w.Args()) != 3 {
		t.Error("Page must not modify the filter arguments")
	}
}

func TestWhere_ValueIsNeverInlined(t *testing.T) {
	var w Where
	w.Add("specialty = ?", "x' OR '1'='1")
	if w.SQL() != " WHERE specialty = $1" {
		t.Errorf("value leaked into SQL: %q", w.SQL())
	}
}
