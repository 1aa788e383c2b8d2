package authstate

import (
	"bytes"
	"context"
	"testing"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"

	"lingozap/internal/blobstore"
)

func newTestAdapter(t *testing.T) (*Adapter, *blobstore.Memory) {
	t.Helper()
	mem := blobstore.NewMemory()
	a := NewAdapter(mem, zap.NewNop())
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return a, mem
}

func TestInitGeneratesAndPersists(t *testing.T) {
	a, mem := newTestAdapter(t)

	creds := a.Creds()
	if creds == nil {
		t.Fatal("no creds after Init")
	}
	if creds.JID != "" {
		t.Errorf("fresh creds should be unpaired, got JID %q", creds.JID)
	}
	if creds.RegistrationID == 0 || creds.RegistrationID > 16380 {
		t.Errorf("RegistrationID = %d, want 1..16380", creds.RegistrationID)
	}

	// A second adapter over the same store must load the same bundle.
	b := NewAdapter(mem, zap.NewNop())
	if err := b.Init(context.Background()); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if !bytes.Equal(b.Creds().NoiseKey.Private, creds.NoiseKey.Private) {
		t.Error("reloaded creds differ from generated ones")
	}
}

func TestSaveCredsPersistsRotation(t *testing.T) {
	a, mem := newTestAdapter(t)
	ctx := context.Background()

	a.Creds().JID = "5511999990000.0:1@s.whatsapp.net"
	a.Creds().PushName = "Tutor"
	if err := a.SaveCreds(ctx); err != nil {
		t.Fatalf("SaveCreds() error = %v", err)
	}

	b := NewAdapter(mem, zap.NewNop())
	if err := b.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if b.Creds().JID != "5511999990000.0:1@s.whatsapp.net" {
		t.Errorf("JID after reload = %q", b.Creds().JID)
	}
	if b.Creds().PushName != "Tutor" {
		t.Errorf("PushName after reload = %q", b.Creds().PushName)
	}
}

func TestGetKeysOmitsAbsent(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	if err := a.SetKeys(ctx, CategorySession, map[string][]byte{
		"5511888:1": []byte("s1"),
		"5511888:2": []byte("s2"),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := a.GetKeys(ctx, CategorySession, []string{"5511888:1", "5511888:9", "5511888:2"})
	if err != nil {
		t.Fatalf("GetKeys() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetKeys() returned %d entries, want 2", len(got))
	}
	if _, ok := got["5511888:9"]; ok {
		t.Error("absent id present in result")
	}
	if !bytes.Equal(got["5511888:1"], []byte("s1")) {
		t.Errorf("session 1 = %q", got["5511888:1"])
	}
}

func TestSetKeysNilDeletes(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	_ = a.SetKeys(ctx, CategoryPreKey, map[string][]byte{"1": []byte("k")})
	if err := a.SetKeys(ctx, CategoryPreKey, map[string][]byte{"1": nil}); err != nil {
		t.Fatal(err)
	}

	got, err := a.GetKeys(ctx, CategoryPreKey, []string{"1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("record survived nil write: %v", got)
	}
}

func TestWipeDestroysEverything(t *testing.T) {
	a, mem := newTestAdapter(t)
	ctx := context.Background()
	_ = a.SetKeys(ctx, CategorySession, map[string][]byte{"x:1": []byte("s")})

	if err := a.Wipe(ctx); err != nil {
		t.Fatalf("Wipe() error = %v", err)
	}
	if mem.Len() != 0 {
		t.Errorf("store has %d records after Wipe, want 0", mem.Len())
	}

	// Re-initializing mints a brand new bundle.
	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if a.Creds() == nil || a.Creds().JID != "" {
		t.Error("Init after Wipe should produce a fresh unpaired bundle")
	}
}

func TestDeviceStorePreKeyLifecycle(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	ds := &deviceStore{a}

	batch, err := ds.GetOrGenPreKeys(ctx, 5)
	if err != nil {
		t.Fatalf("GetOrGenPreKeys() error = %v", err)
	}
	if len(batch) != 5 {
		t.Fatalf("generated %d prekeys, want 5", len(batch))
	}
	for i, pk := range batch {
		if pk.KeyID != uint32(i+1) {
			t.Errorf("prekey[%d].KeyID = %d, want %d", i, pk.KeyID, i+1)
		}
	}

	// Asking again before upload returns the same ids, not new ones.
	again, err := ds.GetOrGenPreKeys(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].KeyID != 1 || again[4].KeyID != 5 {
		t.Errorf("second batch ids = %d..%d, want 1..5", again[0].KeyID, again[4].KeyID)
	}

	if err := ds.MarkPreKeysAsUploaded(ctx, 5); err != nil {
		t.Fatalf("MarkPreKeysAsUploaded() error = %v", err)
	}
	count, err := ds.UploadedPreKeyCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("UploadedPreKeyCount() = %d, want 5", count)
	}

	// After upload, fresh requests mint new ids.
	next, err := ds.GetOrGenPreKeys(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if next[0].KeyID != 6 {
		t.Errorf("next prekey id = %d, want 6", next[0].KeyID)
	}

	got, err := ds.GetPreKey(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.KeyID != 3 {
		t.Errorf("GetPreKey(3) = %+v", got)
	}
	if err := ds.RemovePreKey(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if got, _ := ds.GetPreKey(ctx, 3); got != nil {
		t.Error("prekey 3 survived removal")
	}
}

func TestDeviceStoreIdentityTrust(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	ds := &deviceStore{a}

	var key [32]byte
	key[0] = 0xaa

	// Unknown addresses are trusted on first use.
	trusted, err := ds.IsTrustedIdentity(ctx, "5511888:1", key)
	if err != nil || !trusted {
		t.Fatalf("IsTrustedIdentity(unknown) = %v, %v", trusted, err)
	}

	if err := ds.PutIdentity(ctx, "5511888:1", key); err != nil {
		t.Fatal(err)
	}
	trusted, _ = ds.IsTrustedIdentity(ctx, "5511888:1", key)
	if !trusted {
		t.Error("stored identity should be trusted")
	}

	var other [32]byte
	other[0] = 0xbb
	trusted, _ = ds.IsTrustedIdentity(ctx, "5511888:1", other)
	if trusted {
		t.Error("mismatched identity should not be trusted")
	}
}

func TestDeviceStoreSessionMigration(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	ds := &deviceStore{a}

	if err := ds.PutSession(ctx, "5511888:1", []byte("pn-session")); err != nil {
		t.Fatal(err)
	}

	pn, err := types.ParseJID("5511888@s.whatsapp.net")
	if err != nil {
		t.Fatal(err)
	}
	lid, err := types.ParseJID("9911223@lid")
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.MigratePNToLID(ctx, pn, lid); err != nil {
		t.Fatalf("MigratePNToLID() error = %v", err)
	}

	migrated, err := ds.GetSession(ctx, "9911223:1")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(migrated, []byte("pn-session")) {
		t.Errorf("migrated session = %q", migrated)
	}
}
