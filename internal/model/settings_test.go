package model

import (
	"testing"
	"time"
)

func TestSettingsMigrate(t *testing.T) {
	s := &CreatorSettings{Version: 1, CreatorID: "c1", ChatEnabled: true}
	s.Migrate(5)

	if s.Version != SettingsVersion {
		t.Fatalf("version = %d, want %d", s.Version, SettingsVersion)
	}
	if s.WaitTimeMinutes != 5 {
		t.Fatalf("wait time = %d, want 5", s.WaitTimeMinutes)
	}
	if !s.ChatEnabled {
		t.Fatal("migration must not touch unrelated fields")
	}
}

func TestSettingsMigrateCurrentVersionUntouched(t *testing.T) {
	s := &CreatorSettings{Version: SettingsVersion, CreatorID: "c1", WaitTimeMinutes: 12}
	s.Migrate(5)
	if s.WaitTimeMinutes != 12 {
		t.Fatalf("current-version record was rewritten: %d", s.WaitTimeMinutes)
	}
}

func TestSettingsHasBypass(t *testing.T) {
	s := &CreatorSettings{BypassIdentities: []string{"vip", "mod"}}
	if !s.HasBypass("vip") || !s.HasBypass("mod") {
		t.Fatal("expected bypass for listed identities")
	}
	if s.HasBypass("nobody") {
		t.Fatal("unexpected bypass")
	}
}

func TestUnlockActive(t *testing.T) {
	now := time.Now()
	u := &Unlock{ExpiresAt: now.Add(time.Hour)}
	if !u.Active(now) {
		t.Fatal("expected active unlock")
	}
	if u.Active(now.Add(2 * time.Hour)) {
		t.Fatal("expected expired unlock")
	}
	// Exactly at the boundary the unlock is gone.
	if u.Active(u.ExpiresAt) {
		t.Fatal("boundary must count as expired")
	}
}

func TestBlockActive(t *testing.T) {
	now := time.Now()

	permanent := &Block{}
	if !permanent.Active(now) {
		t.Fatal("permanent block must always be active")
	}

	expires := now.Add(time.Minute)
	timed := &Block{ExpiresAt: &expires}
	if !timed.Active(now) {
		t.Fatal("expected active block")
	}
	if timed.Active(now.Add(2 * time.Minute)) {
		t.Fatal("expected lapsed block")
	}
}

func TestIdentityKey(t *testing.T) {
	a := AccountIdentity("x")
	g := GuestIdentity("x")
	if a.Key() == g.Key() {
		t.Fatal("account and guest with the same id must not collide")
	}
	if !a.IsAccount() || g.IsAccount() {
		t.Fatal("kind predicates are wrong")
	}
}
