// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package validation

import (
	"strings"
	"testing"
)

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=128"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		form := loginForm{Email: "alice@example.com", Password: "hunter2hunter2"}
		if err := ValidateStruct(&form); err != nil {
			t.Errorf("ValidateStruct() error = %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		err := ValidateStruct(&loginForm{})
		if err == nil {
			t.Fatal("ValidateStruct() = nil, want error")
		}
		if len(err.Errors()) != 2 {
			t.Errorf("Errors() count = %d, want 2", len(err.Errors()))
		}
	})

	t.Run("bad email", func(t *testing.T) {
		err := ValidateStruct(&loginForm{Email: "not-an-email", Password: "hunter2hunter2"})
		if err == nil {
			t.Fatal("ValidateStruct() = nil, want error")
		}
		if got := err.Errors()[0].Field(); got != "Email" {
			t.Errorf("Field() = %q, want Email", got)
		}
	})
}

func TestValidationError_NeverEchoesValue(t *testing.T) {
	secret := "hunter2butTooWeird@@@"
	err := ValidateStruct(&loginForm{Email: secret, Password: "hunter2hunter2"})
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}

	if strings.Contains(err.Error(), secret) {
		t.Errorf("error message echoes the raw value: %q", err.Error())
	}
	apiErr := err.ToAPIError()
	if strings.Contains(apiErr.Message, secret) {
		t.Errorf("API error echoes the raw value: %q", apiErr.Message)
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single failure carries field detail", func(t *testing.T) {
		err := ValidateStruct(&loginForm{Email: "alice@example.com", Password: "short"})
		if err == nil {
			t.Fatal("ValidateStruct() = nil, want error")
		}

		apiErr := err.ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
		}
		if apiErr.Details["field"] != "Password" {
			t.Errorf("Details.field = %v, want Password", apiErr.Details["field"])
		}
	})

	t.Run("multiple failures are aggregated", func(t *testing.T) {
		err := ValidateStruct(&loginForm{})
		if err == nil {
			t.Fatal("ValidateStruct() = nil, want error")
		}

		apiErr := err.ToAPIError()
		if _, ok := apiErr.Details["fields"]; !ok {
			t.Errorf("Details missing fields list: %v", apiErr.Details)
		}
	})
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}
