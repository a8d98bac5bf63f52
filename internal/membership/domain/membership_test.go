package domain

import "testing"

func TestRoleValid(t *testing.T) {
	for _, role := range []Role{RoleCompanyAdmin, RoleEmployee} {
		if !role.Valid() {
			t.Errorf("%q should be valid", role)
		}
	}
	for _, role := range []Role{"", "owner", "COMPANY_ADMIN"} {
		if role.Valid() {
			t.Errorf("%q should be invalid", role)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, status := range []Status{StatusActive, StatusInvited, StatusDisabled} {
		if !status.Valid() {
			t.Errorf("%q should be valid", status)
		}
	}
	for _, status := range []Status{"", "pending", "Active"} {
		if status.Valid() {
			t.Errorf("%q should be invalid", status)
		}
	}
}
