package tenancy

import "testing"

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"personal_free", PersonalFree},
		{"personal_pro", PersonalPro},
		{"organization", Organization},
		{"enterprise", Organization},
		{"", PersonalFree},
		{"bogus", PersonalFree},
	}
	for _, tt := range tests {
		if got := ParseTier(tt.in); got != tt.want {
			t.Errorf("ParseTier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMaxDevices(t *testing.T) {
	if got := MaxDevices(PersonalFree, 0); got != 1 {
		t.Errorf("PersonalFree max devices = %d, want 1", got)
	}
	if got := MaxDevices(PersonalPro, 0); got != 10 {
		t.Errorf("PersonalPro max devices = %d, want 10", got)
	}
	if got := MaxDevices(Organization, 37); got != 37 {
		t.Errorf("Organization max devices = %d, want 37 (max_agents passthrough)", got)
	}
}

func TestFlowGating(t *testing.T) {
	if !AllowsPersonalEnroll(PersonalFree) || !AllowsPersonalEnroll(PersonalPro) {
		t.Error("personal tiers must allow personal-enroll")
	}
	if AllowsPersonalEnroll(Organization) {
		t.Error("organization tier must not allow personal-enroll")
	}
	if !AllowsOrgEnroll(Organization) {
		t.Error("organization tier must allow org-enroll")
	}
	if AllowsOrgEnroll(PersonalFree) || AllowsOrgEnroll(PersonalPro) {
		t.Error("personal tiers must not allow org-enroll")
	}
	if CanMintEnrollmentTokens(PersonalFree) || CanMintEnrollmentTokens(PersonalPro) {
		t.Error("personal tiers must not mint enrollment tokens")
	}
	if !CanMintEnrollmentTokens(Organization) {
		t.Error("organization tier must mint enrollment tokens")
	}
}
