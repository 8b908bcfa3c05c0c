package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Count int    `json:"count" validate:"min=1"`
}

func decode(t *testing.T, body string) (*samplePayload, error) {
	t.Helper()
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	var dest samplePayload
	err := DecodeJSONBody(r, &dest)
	return &dest, err
}

func TestDecodeJSONBody(t *testing.T) {
	dest, err := decode(t, `{"name":"beaker","count":2}`)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if dest.Name != "beaker" || dest.Count != 2 {
		t.Fatalf("unexpected payload %+v", dest)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	_, err := decode(t, `{"name":"beaker","count":1,"surprise":true}`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsMalformedJSON(t *testing.T) {
	_, err := decode(t, `{"name":`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyFieldMessagesUseJSONNames(t *testing.T) {
	_, err := decode(t, `{"email":"not-an-email","count":0}`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["name"] != "is required" {
		t.Fatalf("unexpected message for name: %q", details["name"])
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("unexpected message for email: %q", details["email"])
	}
	if details["count"] != "must be at least 1" {
		t.Fatalf("unexpected message for count: %q", details["count"])
	}
}
