package brief

import (
	"strings"
	"testing"
)

func TestRender_SimpleVars(t *testing.T) {
	tmpl := "Run {{run_id}} finished with status {{status}}."
	vars := Vars{
		"run_id": "run_20250101120000_deadbeef",
		"status": "pass",
	}

	result, err := Render(tmpl, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "Run run_20250101120000_deadbeef finished with status pass."
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRender_MissingVar(t *testing.T) {
	tmpl := "Run {{run_id}} with {{count}} findings."
	vars := Vars{"run_id": "run_x"}

	_, err := Render(tmpl, vars)
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !strings.Contains(err.Error(), "count") {
		t.Errorf("error should mention missing variable, got: %v", err)
	}
}

func TestRender_ConditionalBlock_Present(t *testing.T) {
	tmpl := "Head.{{#if section}}{{section}}{{/if}}Tail."
	result, err := Render(tmpl, Vars{"section": "BODY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Head.BODYTail." {
		t.Errorf("got %q", result)
	}
}

func TestRender_ConditionalBlock_Empty(t *testing.T) {
	tmpl := "Head.{{#if section}}{{section}}{{/if}}Tail."
	result, err := Render(tmpl, Vars{"section": ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Head.Tail." {
		t.Errorf("got %q", result)
	}
}

func TestRender_DanglingClose(t *testing.T) {
	if _, err := Render("text {{/if}} more", Vars{}); err == nil {
		t.Error("expected error for dangling close tag")
	}
}

func TestRender_UnclosedConditional(t *testing.T) {
	if _, err := Render("{{#if a}}body", Vars{"a": "x"}); err == nil {
		t.Error("expected error for unclosed conditional")
	}
}
