package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleManager, true},
		{RoleAdmin, RoleUser, true},
		{RoleManager, RoleAdmin, false},
		{RoleManager, RoleManager, true},
		{RoleManager, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleUser, RoleManager, false},
		{RoleUser, RoleUser, true},
		// Unknown roles fail-closed.
		{"unknown", RoleUser, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleUser, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"exactly8", false},
		{"a much longer password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestLoanOutstanding(t *testing.T) {
	l := &Loan{QuantityLoaned: 5, QuantityReturned: 2}
	if l.Outstanding() != 3 {
		t.Errorf("expected 3 outstanding, got %d", l.Outstanding())
	}
	if l.Closed() {
		t.Error("loan with outstanding units should not be closed")
	}

	l.QuantityReturned = 5
	if !l.Closed() {
		t.Error("fully returned loan should be closed")
	}
}

func TestValidRequestType(t *testing.T) {
	if !ValidRequestType(RequestTypeLoan) || !ValidRequestType(RequestTypeDisbursement) {
		t.Error("known request types should validate")
	}
	if ValidRequestType("purchase") || ValidRequestType("") {
		t.Error("unknown request types should not validate")
	}
}
