package validate

import (
	"testing"

	"github.com/deliverpoint/pos/internal/domain"
)

type testPayload struct {
	ProductID string `validate:"required"`
	Quantity  int    `validate:"omitempty,gte=0"`
	Method    string `validate:"omitempty,payment_method"`
	Kind      string `validate:"omitempty,discount_kind"`
}

func TestStruct_Passes(t *testing.T) {
	if fields := Struct(testPayload{ProductID: "p1", Quantity: 2, Method: "cash", Kind: "percentage"}); fields != nil {
		t.Errorf("Struct() = %v, want nil", fields)
	}
}

func TestStruct_ReportsFailedFields(t *testing.T) {
	fields := Struct(testPayload{Quantity: -1, Method: "barter"})
	if len(fields) != 3 {
		t.Fatalf("len(fields) = %d, want 3: %v", len(fields), fields)
	}

	tags := map[string]string{}
	for _, f := range fields {
		tags[f.Field] = f.Tag
	}
	if tags["testPayload.ProductID"] != "required" {
		t.Errorf("ProductID tag = %q, want required", tags["testPayload.ProductID"])
	}
	if tags["testPayload.Quantity"] != "gte" {
		t.Errorf("Quantity tag = %q, want gte", tags["testPayload.Quantity"])
	}
	if tags["testPayload.Method"] != "payment_method" {
		t.Errorf("Method tag = %q, want payment_method", tags["testPayload.Method"])
	}
}

func TestStructError(t *testing.T) {
	if err := StructError("test.op", testPayload{ProductID: "p1"}); err != nil {
		t.Errorf("StructError() = %v, want nil", err)
	}

	err := StructError("test.op", testPayload{})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("ErrorCode(err) = %q, want %q", domain.ErrorCode(err), domain.EINVALID)
	}
}
