// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestValidator_NotEmpty(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"non-empty", "text_transform_v1", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.NotEmpty("field", tt.value)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_OneOf(t *testing.T) {
	v := New()
	v.OneOf("format", "json", []string{"json", "console"})
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}
	v.OneOf("format", "xml", []string{"json", "console"})
	if v.IsValid() {
		t.Fatal("expected error for xml")
	}
}

func TestValidator_Numbers(t *testing.T) {
	tests := []struct {
		name    string
		check   func(v *Validator)
		wantErr bool
	}{
		{"non-negative zero", func(v *Validator) { v.NonNegative("ms", 0) }, false},
		{"non-negative negative", func(v *Validator) { v.NonNegative("ms", -1) }, true},
		{"fraction inside", func(v *Validator) { v.Fraction("rate", 0.5) }, false},
		{"fraction above", func(v *Validator) { v.Fraction("rate", 1.5) }, true},
		{"fraction below", func(v *Validator) { v.Fraction("rate", -0.1) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			tt.check(v)
			if tt.wantErr == v.IsValid() {
				t.Errorf("wantErr=%v, got errors %v", tt.wantErr, v.Errors())
			}
		})
	}
}

func TestValidator_Custom(t *testing.T) {
	v := New()
	v.Custom("field", 3, func(any) error { return errors.New("nope") })
	if v.IsValid() {
		t.Fatal("expected error")
	}
	if got := v.Errors()[0].Message; got != "nope" {
		t.Errorf("message = %q", got)
	}
}

func TestValidationError_JoinsMessages(t *testing.T) {
	v := New()
	if v.Err() != nil {
		t.Fatal("empty validator must not produce an error")
	}
	v.AddError("a", "first", nil)
	v.AddError("b", "second", nil)

	err := v.Err()
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(ve.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(ve.Errors()))
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("expected joined message, got %q", err.Error())
	}
}
