package authstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"lingozap/internal/blobstore"
)

// Record key layout: the credential bundle lives under a fixed key and
// every signal artifact lives under "{category}-{id}".
const credsKey = "creds"

// Signal record categories.
const (
	CategoryIdentity        = "identity"
	CategorySession         = "session"
	CategoryPreKey          = "pre-key"
	CategorySenderKey       = "sender-key"
	CategoryAppStateSyncKey = "app-state-sync-key"
	CategoryAppStateVersion = "app-state-version"
	CategoryMutationMAC     = "app-state-mutation-mac"
	CategoryContact         = "contact"
	CategoryChatSettings    = "chat-settings"
	CategoryMsgSecret       = "msg-secret"
	CategoryPrivacyToken    = "privacy-token"
	CategoryLIDMapping      = "lid-mapping"
)

// Adapter owns the durable auth state: the credential bundle plus every
// keyed signal record. All reads hit the blob store directly so that a
// concurrent wipe is never papered over by stale cached keys.
type Adapter struct {
	store blobstore.Store
	log   *zap.Logger

	mu    sync.Mutex
	creds *Creds
}

// NewAdapter wraps a blob store. Call Init before anything else.
func NewAdapter(store blobstore.Store, log *zap.Logger) *Adapter {
	return &Adapter{store: store, log: log}
}

// Init loads the credential bundle, generating and persisting a fresh one
// when the store holds none. A fresh bundle means the next connection will
// go through QR pairing.
func (a *Adapter) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	payload, err := a.store.Get(ctx, credsKey)
	switch {
	case err == nil:
		var creds Creds
		if err := Unmarshal(payload, &creds); err != nil {
			return fmt.Errorf("decode creds: %w", err)
		}
		a.creds = &creds
		a.log.Info("loaded existing credentials",
			zap.String("jid", creds.JID),
			zap.Bool("paired", creds.JID != ""))
		return nil
	case errors.Is(err, blobstore.ErrNotFound):
		creds, err := NewCreds()
		if err != nil {
			return err
		}
		a.creds = creds
		if err := a.saveCredsLocked(ctx); err != nil {
			return err
		}
		a.log.Info("generated fresh credentials, pairing required")
		return nil
	default:
		return fmt.Errorf("load creds: %w", err)
	}
}

// Creds returns the live credential bundle. Mutations must be followed by
// SaveCreds before the next connection attempt.
func (a *Adapter) Creds() *Creds {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.creds
}

// SaveCreds persists the credential bundle. The transport calls this the
// moment the server rotates any identifier, before acknowledging the
// rotation, so a crash never strands the old identity on disk.
func (a *Adapter) SaveCreds(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saveCredsLocked(ctx)
}

func (a *Adapter) saveCredsLocked(ctx context.Context) error {
	payload, err := Marshal(a.creds)
	if err != nil {
		return fmt.Errorf("encode creds: %w", err)
	}
	if err := a.store.Put(ctx, credsKey, payload); err != nil {
		return fmt.Errorf("save creds: %w", err)
	}
	return nil
}

func recordKey(category, id string) string {
	return category + "-" + id
}

// GetKeys fetches the requested records of one category. Absent ids are
// omitted from the result, never mapped to an empty value.
func (a *Adapter) GetKeys(ctx context.Context, category string, ids []string) (map[string][]byte, error) {
	found := make(map[string][]byte, len(ids))
	for _, id := range ids {
		payload, err := a.store.Get(ctx, recordKey(category, id))
		if errors.Is(err, blobstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s %s: %w", category, id, err)
		}
		found[id] = payload
	}
	return found, nil
}

// SetKeys applies a batch of writes for one category concurrently. A nil
// payload deletes the record. The call returns once every write has
// settled; individual failures are logged per key rather than aggregated,
// so one slow or broken record never blocks the rest of the batch.
func (a *Adapter) SetKeys(ctx context.Context, category string, values map[string][]byte) error {
	var wg sync.WaitGroup
	for id, payload := range values {
		wg.Add(1)
		go func(id string, payload []byte) {
			defer wg.Done()
			key := recordKey(category, id)
			var err error
			if payload == nil {
				err = a.store.Delete(ctx, key)
			} else {
				err = a.store.Put(ctx, key, payload)
			}
			if err != nil {
				a.log.Error("auth state write failed",
					zap.String("category", category),
					zap.String("id", id),
					zap.Error(err))
			}
		}(id, payload)
	}
	wg.Wait()
	return nil
}

// GetRecord decodes one record into v. The bool reports whether the record
// exists.
func (a *Adapter) GetRecord(ctx context.Context, category, id string, v any) (bool, error) {
	payload, err := a.store.Get(ctx, recordKey(category, id))
	if errors.Is(err, blobstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s %s: %w", category, id, err)
	}
	if err := Unmarshal(payload, v); err != nil {
		return false, fmt.Errorf("decode %s %s: %w", category, id, err)
	}
	return true, nil
}

// PutRecord encodes and stores one record.
func (a *Adapter) PutRecord(ctx context.Context, category, id string, v any) error {
	payload, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", category, id, err)
	}
	if err := a.store.Put(ctx, recordKey(category, id), payload); err != nil {
		return fmt.Errorf("put %s %s: %w", category, id, err)
	}
	return nil
}

// DeleteRecord removes one record. Deleting an absent record is not an
// error.
func (a *Adapter) DeleteRecord(ctx context.Context, category, id string) error {
	return a.store.Delete(ctx, recordKey(category, id))
}

// ListIDs returns the ids of every record in a category, optionally
// narrowed by an id prefix.
func (a *Adapter) ListIDs(ctx context.Context, category, idPrefix string) ([]string, error) {
	prefix := recordKey(category, idPrefix)
	keys, err := a.store.ListKeys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", category, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, category+"-"))
	}
	return ids, nil
}

// Wipe destroys the entire auth state, credentials included. The next
// Init will mint a fresh bundle and force re-pairing. This is the recovery
// path for unrecoverable session corruption.
func (a *Adapter) Wipe(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("wipe auth state: %w", err)
	}
	a.creds = nil
	a.log.Warn("auth state wiped, re-pairing required on next start")
	return nil
}
