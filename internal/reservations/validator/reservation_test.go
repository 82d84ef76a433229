package validator

import (
	"errors"
	"spacedesk/pkg/logger"
	"spacedesk/pkg/model"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestReservationValidator_Validate(t *testing.T) {
	v := NewReservationValidator(time.Hour, logger.NewNop())

	tests := []struct {
		name      string
		req       *model.CreateReservationRequest
		wantField string
	}{
		{name: "nil request", req: nil},
		{name: "empty body uses default ttl", req: &model.CreateReservationRequest{}},
		{name: "valid ttl", req: &model.CreateReservationRequest{TTLSeconds: intPtr(30)}},
		{name: "ttl at max", req: &model.CreateReservationRequest{TTLSeconds: intPtr(3600)}},
		{name: "zero ttl", req: &model.CreateReservationRequest{TTLSeconds: intPtr(0)}, wantField: "ttlSeconds"},
		{name: "negative ttl", req: &model.CreateReservationRequest{TTLSeconds: intPtr(-5)}, wantField: "ttlSeconds"},
		{name: "ttl above max", req: &model.CreateReservationRequest{TTLSeconds: intPtr(3601)}, wantField: "ttlSeconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if len(verrs) != 1 || verrs[0].Field != tt.wantField {
				t.Errorf("expected a single %s error, got %v", tt.wantField, verrs)
			}
			if _, ok := verrs.Details()[tt.wantField]; !ok {
				t.Errorf("expected details to include %s", tt.wantField)
			}
		})
	}
}

func TestReservationValidator_ValidateFilter(t *testing.T) {
	v := NewReservationValidator(time.Hour, logger.NewNop())

	for _, status := range []model.ReservationStatus{"", model.StatusReserved, model.StatusExpired} {
		if err := v.ValidateFilter(&model.ReservationFilter{Status: status}); err != nil {
			t.Errorf("status %q: expected no error, got %v", status, err)
		}
	}

	err := v.ValidateFilter(&model.ReservationFilter{Status: "CANCELLED"})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || verrs[0].Field != "status" {
		t.Errorf("expected status validation error, got %v", err)
	}
}

func TestNewReservationValidator_RegistersMaxTTL(t *testing.T) {
	v := NewReservationValidator(time.Minute, logger.NewNop())

	err := v.Validate(&model.CreateReservationRequest{TTLSeconds: intPtr(61)})

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if got := verrs.Details()["ttlSeconds"]; got != "must be at most 60" {
		t.Errorf("expected maxttl message, got %v", got)
	}
}
