package authstate

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mau.fi/whatsmeow/proto/waAdv"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/util/keys"
	waLog "go.mau.fi/whatsmeow/util/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"
)

// Device materializes the credential bundle as a whatsmeow device backed
// entirely by the blob store, so every piece of session state the client
// touches lands in the same durable collection as the creds themselves.
func (a *Adapter) Device(ctx context.Context) (*store.Device, error) {
	a.mu.Lock()
	creds := a.creds
	a.mu.Unlock()
	if creds == nil {
		return nil, fmt.Errorf("auth state not initialized")
	}

	noise, err := creds.NoiseKey.KeyPair()
	if err != nil {
		return nil, fmt.Errorf("noise key: %w", err)
	}
	identity, err := creds.IdentityKey.KeyPair()
	if err != nil {
		return nil, fmt.Errorf("identity key: %w", err)
	}
	signedPreKey, err := creds.SignedPreKey.PreKey()
	if err != nil {
		return nil, fmt.Errorf("signed prekey: %w", err)
	}

	ds := &deviceStore{a}
	device := &store.Device{
		Log:            waLog.Noop,
		NoiseKey:       noise,
		IdentityKey:    identity,
		SignedPreKey:   signedPreKey,
		RegistrationID: creds.RegistrationID,
		AdvSecretKey:   creds.AdvSecretKey,
		Platform:       creds.Platform,
		PushName:       creds.PushName,
		Initialized:    true,

		Identities:    ds,
		Sessions:      ds,
		PreKeys:       ds,
		SenderKeys:    ds,
		AppStateKeys:  ds,
		AppState:      ds,
		Contacts:      ds,
		ChatSettings:  ds,
		MsgSecrets:    ds,
		PrivacyTokens: ds,
		LIDs:          ds,
		Container:     ds,
	}

	if creds.JID != "" {
		jid, err := types.ParseJID(creds.JID)
		if err != nil {
			return nil, fmt.Errorf("stored jid: %w", err)
		}
		device.ID = &jid
	}
	if creds.LID != "" {
		lid, err := types.ParseJID(creds.LID)
		if err != nil {
			return nil, fmt.Errorf("stored lid: %w", err)
		}
		device.LID = lid
	}
	if len(creds.Account) > 0 {
		var account waAdv.ADVSignedDeviceIdentity
		if err := proto.Unmarshal(creds.Account, &account); err != nil {
			return nil, fmt.Errorf("stored account identity: %w", err)
		}
		device.Account = &account
	}
	return device, nil
}

// deviceStore adapts the keyed record layer to the whatsmeow store
// interfaces. One value serves every sub-store.
type deviceStore struct {
	a *Adapter
}

// --- device container ---

// PutDevice flows pairing results and server-side identifier rotations
// back into the credential bundle. whatsmeow calls this before it
// acknowledges a rotation, which is what makes restarts safe.
func (ds *deviceStore) PutDevice(ctx context.Context, device *store.Device) error {
	ds.a.mu.Lock()
	creds := ds.a.creds
	if creds == nil {
		ds.a.mu.Unlock()
		return fmt.Errorf("auth state not initialized")
	}
	if device.ID != nil {
		creds.JID = device.ID.String()
	}
	if !device.LID.IsEmpty() {
		creds.LID = device.LID.String()
	}
	creds.Platform = device.Platform
	creds.PushName = device.PushName
	if device.Account != nil {
		raw, err := proto.Marshal(device.Account)
		if err != nil {
			ds.a.mu.Unlock()
			return fmt.Errorf("encode account identity: %w", err)
		}
		creds.Account = raw
	}
	err := ds.a.saveCredsLocked(ctx)
	ds.a.mu.Unlock()
	return err
}

func (ds *deviceStore) DeleteDevice(ctx context.Context, _ *store.Device) error {
	return ds.a.Wipe(ctx)
}

// --- identities ---

type identityRecord struct {
	Key Binary `json:"key"`
}

func (ds *deviceStore) PutIdentity(ctx context.Context, address string, key [32]byte) error {
	return ds.a.PutRecord(ctx, CategoryIdentity, address, identityRecord{Key: key[:]})
}

func (ds *deviceStore) DeleteAllIdentities(ctx context.Context, phone string) error {
	ids, err := ds.a.ListIDs(ctx, CategoryIdentity, phone+":")
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := ds.a.DeleteRecord(ctx, CategoryIdentity, id); err != nil {
			return err
		}
	}
	return nil
}

func (ds *deviceStore) DeleteIdentity(ctx context.Context, address string) error {
	return ds.a.DeleteRecord(ctx, CategoryIdentity, address)
}

// IsTrustedIdentity trusts on first use: an unknown address is accepted,
// a known one must match the stored key exactly.
func (ds *deviceStore) IsTrustedIdentity(ctx context.Context, address string, key [32]byte) (bool, error) {
	var rec identityRecord
	found, err := ds.a.GetRecord(ctx, CategoryIdentity, address, &rec)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return bytes.Equal(rec.Key, key[:]), nil
}

// --- sessions ---

type sessionRecord struct {
	Session Binary `json:"session"`
}

func (ds *deviceStore) GetSession(ctx context.Context, address string) ([]byte, error) {
	var rec sessionRecord
	found, err := ds.a.GetRecord(ctx, CategorySession, address, &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.Session, nil
}

func (ds *deviceStore) HasSession(ctx context.Context, address string) (bool, error) {
	var rec sessionRecord
	return ds.a.GetRecord(ctx, CategorySession, address, &rec)
}

func (ds *deviceStore) PutSession(ctx context.Context, address string, session []byte) error {
	return ds.a.PutRecord(ctx, CategorySession, address, sessionRecord{Session: session})
}

func (ds *deviceStore) DeleteAllSessions(ctx context.Context, phone string) error {
	ids, err := ds.a.ListIDs(ctx, CategorySession, phone+":")
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := ds.a.DeleteRecord(ctx, CategorySession, id); err != nil {
			return err
		}
	}
	return nil
}

func (ds *deviceStore) DeleteSession(ctx context.Context, address string) error {
	return ds.a.DeleteRecord(ctx, CategorySession, address)
}

// MigratePNToLID copies phone-number keyed sessions and identities to
// their LID aliases without clobbering state the LID already has.
func (ds *deviceStore) MigratePNToLID(ctx context.Context, pn, lid types.JID) error {
	for _, category := range []string{CategorySession, CategoryIdentity} {
		ids, err := ds.a.ListIDs(ctx, category, pn.User+":")
		if err != nil {
			return err
		}
		for _, id := range ids {
			target := lid.User + ":" + strings.TrimPrefix(id, pn.User+":")
			var probe map[string]any
			exists, err := ds.a.GetRecord(ctx, category, target, &probe)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			payload, err := ds.a.store.Get(ctx, recordKey(category, id))
			if err != nil {
				return err
			}
			if err := ds.a.store.Put(ctx, recordKey(category, target), payload); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- prekeys ---

type preKeyRecord struct {
	Public   Binary `json:"public"`
	Private  Binary `json:"private"`
	Uploaded bool   `json:"uploaded"`
}

func preKeyID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (rec preKeyRecord) preKey(id uint32) (*keys.PreKey, error) {
	kp, err := KeyPairData{Public: rec.Public, Private: rec.Private}.KeyPair()
	if err != nil {
		return nil, fmt.Errorf("prekey %d: %w", id, err)
	}
	return &keys.PreKey{KeyPair: *kp, KeyID: id}, nil
}

func (ds *deviceStore) genPreKey(ctx context.Context) (*keys.PreKey, error) {
	ds.a.mu.Lock()
	defer ds.a.mu.Unlock()
	if ds.a.creds == nil {
		return nil, fmt.Errorf("auth state not initialized")
	}
	id := ds.a.creds.NextPreKeyID
	kp := keys.NewKeyPair()
	rec := preKeyRecord{
		Public:  append(Binary(nil), kp.Pub[:]...),
		Private: append(Binary(nil), kp.Priv[:]...),
	}
	if err := ds.a.PutRecord(ctx, CategoryPreKey, preKeyID(id), rec); err != nil {
		return nil, err
	}
	ds.a.creds.NextPreKeyID = id + 1
	if err := ds.a.saveCredsLocked(ctx); err != nil {
		return nil, err
	}
	return &keys.PreKey{KeyPair: *kp, KeyID: id}, nil
}

func (ds *deviceStore) GetOrGenPreKeys(ctx context.Context, count uint32) ([]*keys.PreKey, error) {
	ds.a.mu.Lock()
	creds := ds.a.creds
	if creds == nil {
		ds.a.mu.Unlock()
		return nil, fmt.Errorf("auth state not initialized")
	}
	first, next := creds.FirstUnuploadedPreKeyID, creds.NextPreKeyID
	ds.a.mu.Unlock()

	var out []*keys.PreKey
	for id := first; id < next && uint32(len(out)) < count; id++ {
		var rec preKeyRecord
		found, err := ds.a.GetRecord(ctx, CategoryPreKey, preKeyID(id), &rec)
		if err != nil {
			return nil, err
		}
		if !found || rec.Uploaded {
			continue
		}
		pk, err := rec.preKey(id)
		if err != nil {
			return nil, err
		}
		out = append(out, pk)
	}
	for uint32(len(out)) < count {
		pk, err := ds.genPreKey(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, pk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KeyID < out[j].KeyID })
	return out, nil
}

func (ds *deviceStore) GenOnePreKey(ctx context.Context) (*keys.PreKey, error) {
	return ds.genPreKey(ctx)
}

func (ds *deviceStore) GetPreKey(ctx context.Context, id uint32) (*keys.PreKey, error) {
	var rec preKeyRecord
	found, err := ds.a.GetRecord(ctx, CategoryPreKey, preKeyID(id), &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.preKey(id)
}

func (ds *deviceStore) RemovePreKey(ctx context.Context, id uint32) error {
	return ds.a.DeleteRecord(ctx, CategoryPreKey, preKeyID(id))
}

func (ds *deviceStore) MarkPreKeysAsUploaded(ctx context.Context, upToID uint32) error {
	ds.a.mu.Lock()
	creds := ds.a.creds
	if creds == nil {
		ds.a.mu.Unlock()
		return fmt.Errorf("auth state not initialized")
	}
	first := creds.FirstUnuploadedPreKeyID
	ds.a.mu.Unlock()

	for id := first; id <= upToID; id++ {
		var rec preKeyRecord
		found, err := ds.a.GetRecord(ctx, CategoryPreKey, preKeyID(id), &rec)
		if err != nil {
			return err
		}
		if !found || rec.Uploaded {
			continue
		}
		rec.Uploaded = true
		if err := ds.a.PutRecord(ctx, CategoryPreKey, preKeyID(id), rec); err != nil {
			return err
		}
	}

	ds.a.mu.Lock()
	defer ds.a.mu.Unlock()
	if ds.a.creds == nil {
		return fmt.Errorf("auth state not initialized")
	}
	if upToID+1 > ds.a.creds.FirstUnuploadedPreKeyID {
		ds.a.creds.FirstUnuploadedPreKeyID = upToID + 1
	}
	return ds.a.saveCredsLocked(ctx)
}

func (ds *deviceStore) UploadedPreKeyCount(ctx context.Context) (int, error) {
	ids, err := ds.a.ListIDs(ctx, CategoryPreKey, "")
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		var rec preKeyRecord
		found, err := ds.a.GetRecord(ctx, CategoryPreKey, id, &rec)
		if err != nil {
			return 0, err
		}
		if found && rec.Uploaded {
			count++
		}
	}
	return count, nil
}

// --- sender keys ---

type senderKeyRecord struct {
	Session Binary `json:"session"`
}

func senderKeyID(group, user string) string {
	return group + "::" + user
}

func (ds *deviceStore) PutSenderKey(ctx context.Context, group, user string, session []byte) error {
	return ds.a.PutRecord(ctx, CategorySenderKey, senderKeyID(group, user), senderKeyRecord{Session: session})
}

func (ds *deviceStore) GetSenderKey(ctx context.Context, group, user string) ([]byte, error) {
	var rec senderKeyRecord
	found, err := ds.a.GetRecord(ctx, CategorySenderKey, senderKeyID(group, user), &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.Session, nil
}

// --- app state sync keys ---

type appStateSyncKeyRecord struct {
	ID          Binary `json:"id"`
	Data        Binary `json:"data"`
	Fingerprint Binary `json:"fingerprint"`
	Timestamp   int64  `json:"timestamp"`
}

func syncKeyID(id []byte) string {
	return base64.RawURLEncoding.EncodeToString(id)
}

func (ds *deviceStore) PutAppStateSyncKey(ctx context.Context, id []byte, key store.AppStateSyncKey) error {
	return ds.a.PutRecord(ctx, CategoryAppStateSyncKey, syncKeyID(id), appStateSyncKeyRecord{
		ID:          id,
		Data:        key.Data,
		Fingerprint: key.Fingerprint,
		Timestamp:   key.Timestamp,
	})
}

func (ds *deviceStore) GetAppStateSyncKey(ctx context.Context, id []byte) (*store.AppStateSyncKey, error) {
	var rec appStateSyncKeyRecord
	found, err := ds.a.GetRecord(ctx, CategoryAppStateSyncKey, syncKeyID(id), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &store.AppStateSyncKey{
		Data:        rec.Data,
		Fingerprint: rec.Fingerprint,
		Timestamp:   rec.Timestamp,
	}, nil
}

func (ds *deviceStore) GetLatestAppStateSyncKeyID(ctx context.Context) ([]byte, error) {
	ids, err := ds.a.ListIDs(ctx, CategoryAppStateSyncKey, "")
	if err != nil {
		return nil, err
	}
	var latest *appStateSyncKeyRecord
	for _, id := range ids {
		var rec appStateSyncKeyRecord
		found, err := ds.a.GetRecord(ctx, CategoryAppStateSyncKey, id, &rec)
		if err != nil {
			return nil, err
		}
		if found && (latest == nil || rec.Timestamp > latest.Timestamp) {
			cp := rec
			latest = &cp
		}
	}
	if latest == nil {
		return nil, nil
	}
	return latest.ID, nil
}

// --- app state versions and mutation MACs ---

type appStateVersionRecord struct {
	Version uint64 `json:"version"`
	Hash    Binary `json:"hash"`
}

func (ds *deviceStore) PutAppStateVersion(ctx context.Context, name string, version uint64, hash [128]byte) error {
	return ds.a.PutRecord(ctx, CategoryAppStateVersion, name, appStateVersionRecord{
		Version: version,
		Hash:    hash[:],
	})
}

func (ds *deviceStore) GetAppStateVersion(ctx context.Context, name string) (uint64, [128]byte, error) {
	var hash [128]byte
	var rec appStateVersionRecord
	found, err := ds.a.GetRecord(ctx, CategoryAppStateVersion, name, &rec)
	if err != nil || !found {
		return 0, hash, err
	}
	if len(rec.Hash) != len(hash) {
		return 0, hash, fmt.Errorf("app state %s: bad hash length %d", name, len(rec.Hash))
	}
	copy(hash[:], rec.Hash)
	return rec.Version, hash, nil
}

func (ds *deviceStore) DeleteAppStateVersion(ctx context.Context, name string) error {
	return ds.a.DeleteRecord(ctx, CategoryAppStateVersion, name)
}

type mutationMACRecord struct {
	Version  uint64 `json:"version"`
	ValueMAC Binary `json:"valueMac"`
}

func mutationMACID(name string, indexMAC []byte) string {
	return name + ":" + base64.RawURLEncoding.EncodeToString(indexMAC)
}

// App state syncs can carry hundreds of MACs per batch, so writes run
// concurrently with bounded parallelism.
func (ds *deviceStore) PutAppStateMutationMACs(ctx context.Context, name string, version uint64, mutations []store.AppStateMutationMAC) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, m := range mutations {
		g.Go(func() error {
			rec := mutationMACRecord{Version: version, ValueMAC: m.ValueMAC}
			return ds.a.PutRecord(gctx, CategoryMutationMAC, mutationMACID(name, m.IndexMAC), rec)
		})
	}
	return g.Wait()
}

func (ds *deviceStore) DeleteAppStateMutationMACs(ctx context.Context, name string, indexMACs [][]byte) error {
	for _, mac := range indexMACs {
		if err := ds.a.DeleteRecord(ctx, CategoryMutationMAC, mutationMACID(name, mac)); err != nil {
			return err
		}
	}
	return nil
}

func (ds *deviceStore) GetAppStateMutationMAC(ctx context.Context, name string, indexMAC []byte) ([]byte, error) {
	var rec mutationMACRecord
	found, err := ds.a.GetRecord(ctx, CategoryMutationMAC, mutationMACID(name, indexMAC), &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.ValueMAC, nil
}

// --- contacts ---

type contactRecord struct {
	FirstName    string `json:"firstName,omitempty"`
	FullName     string `json:"fullName,omitempty"`
	PushName     string `json:"pushName,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
}

func contactID(user types.JID) string {
	return user.ToNonAD().String()
}

func (ds *deviceStore) getContactRecord(ctx context.Context, user types.JID) (contactRecord, error) {
	var rec contactRecord
	_, err := ds.a.GetRecord(ctx, CategoryContact, contactID(user), &rec)
	return rec, err
}

func (ds *deviceStore) PutPushName(ctx context.Context, user types.JID, pushName string) (bool, string, error) {
	rec, err := ds.getContactRecord(ctx, user)
	if err != nil {
		return false, "", err
	}
	if rec.PushName == pushName {
		return false, "", nil
	}
	previous := rec.PushName
	rec.PushName = pushName
	if err := ds.a.PutRecord(ctx, CategoryContact, contactID(user), rec); err != nil {
		return false, "", err
	}
	return true, previous, nil
}

func (ds *deviceStore) PutBusinessName(ctx context.Context, user types.JID, businessName string) (bool, string, error) {
	rec, err := ds.getContactRecord(ctx, user)
	if err != nil {
		return false, "", err
	}
	if rec.BusinessName == businessName {
		return false, "", nil
	}
	previous := rec.BusinessName
	rec.BusinessName = businessName
	if err := ds.a.PutRecord(ctx, CategoryContact, contactID(user), rec); err != nil {
		return false, "", err
	}
	return true, previous, nil
}

func (ds *deviceStore) PutContactName(ctx context.Context, user types.JID, fullName, firstName string) error {
	rec, err := ds.getContactRecord(ctx, user)
	if err != nil {
		return err
	}
	rec.FullName = fullName
	rec.FirstName = firstName
	return ds.a.PutRecord(ctx, CategoryContact, contactID(user), rec)
}

func (ds *deviceStore) PutAllContactNames(ctx context.Context, contacts []store.ContactEntry) error {
	for _, entry := range contacts {
		if err := ds.PutContactName(ctx, entry.JID, entry.FullName, entry.FirstName); err != nil {
			return err
		}
	}
	return nil
}

func (ds *deviceStore) GetContact(ctx context.Context, user types.JID) (types.ContactInfo, error) {
	var rec contactRecord
	found, err := ds.a.GetRecord(ctx, CategoryContact, contactID(user), &rec)
	if err != nil || !found {
		return types.ContactInfo{}, err
	}
	return types.ContactInfo{
		Found:        true,
		FirstName:    rec.FirstName,
		FullName:     rec.FullName,
		PushName:     rec.PushName,
		BusinessName: rec.BusinessName,
	}, nil
}

func (ds *deviceStore) GetAllContacts(ctx context.Context) (map[types.JID]types.ContactInfo, error) {
	ids, err := ds.a.ListIDs(ctx, CategoryContact, "")
	if err != nil {
		return nil, err
	}
	out := make(map[types.JID]types.ContactInfo, len(ids))
	for _, id := range ids {
		jid, err := types.ParseJID(id)
		if err != nil {
			continue
		}
		var rec contactRecord
		found, err := ds.a.GetRecord(ctx, CategoryContact, id, &rec)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		out[jid] = types.ContactInfo{
			Found:        true,
			FirstName:    rec.FirstName,
			FullName:     rec.FullName,
			PushName:     rec.PushName,
			BusinessName: rec.BusinessName,
		}
	}
	return out, nil
}

// --- chat settings ---

type chatSettingsRecord struct {
	MutedUntil int64 `json:"mutedUntil,omitempty"`
	Pinned     bool  `json:"pinned,omitempty"`
	Archived   bool  `json:"archived,omitempty"`
}

func (ds *deviceStore) getChatSettingsRecord(ctx context.Context, chat types.JID) (chatSettingsRecord, bool, error) {
	var rec chatSettingsRecord
	found, err := ds.a.GetRecord(ctx, CategoryChatSettings, chat.String(), &rec)
	return rec, found, err
}

func (ds *deviceStore) PutMutedUntil(ctx context.Context, chat types.JID, mutedUntil time.Time) error {
	rec, _, err := ds.getChatSettingsRecord(ctx, chat)
	if err != nil {
		return err
	}
	if mutedUntil.IsZero() {
		rec.MutedUntil = 0
	} else {
		rec.MutedUntil = mutedUntil.Unix()
	}
	return ds.a.PutRecord(ctx, CategoryChatSettings, chat.String(), rec)
}

func (ds *deviceStore) PutPinned(ctx context.Context, chat types.JID, pinned bool) error {
	rec, _, err := ds.getChatSettingsRecord(ctx, chat)
	if err != nil {
		return err
	}
	rec.Pinned = pinned
	return ds.a.PutRecord(ctx, CategoryChatSettings, chat.String(), rec)
}

func (ds *deviceStore) PutArchived(ctx context.Context, chat types.JID, archived bool) error {
	rec, _, err := ds.getChatSettingsRecord(ctx, chat)
	if err != nil {
		return err
	}
	rec.Archived = archived
	return ds.a.PutRecord(ctx, CategoryChatSettings, chat.String(), rec)
}

func (ds *deviceStore) GetChatSettings(ctx context.Context, chat types.JID) (types.LocalChatSettings, error) {
	rec, found, err := ds.getChatSettingsRecord(ctx, chat)
	if err != nil || !found {
		return types.LocalChatSettings{}, err
	}
	settings := types.LocalChatSettings{
		Found:    true,
		Pinned:   rec.Pinned,
		Archived: rec.Archived,
	}
	if rec.MutedUntil != 0 {
		settings.MutedUntil = time.Unix(rec.MutedUntil, 0)
	}
	return settings, nil
}

// --- message secrets ---

type msgSecretRecord struct {
	Secret Binary `json:"secret"`
}

func msgSecretID(chat, sender types.JID, id types.MessageID) string {
	return chat.String() + "|" + sender.ToNonAD().String() + "|" + string(id)
}

func (ds *deviceStore) PutMessageSecrets(ctx context.Context, inserts []store.MessageSecretInsert) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, ins := range inserts {
		g.Go(func() error {
			return ds.PutMessageSecret(gctx, ins.Chat, ins.Sender, ins.ID, ins.Secret)
		})
	}
	return g.Wait()
}

func (ds *deviceStore) PutMessageSecret(ctx context.Context, chat, sender types.JID, id types.MessageID, secret []byte) error {
	return ds.a.PutRecord(ctx, CategoryMsgSecret, msgSecretID(chat, sender, id), msgSecretRecord{Secret: secret})
}

func (ds *deviceStore) GetMessageSecret(ctx context.Context, chat, sender types.JID, id types.MessageID) ([]byte, error) {
	var rec msgSecretRecord
	found, err := ds.a.GetRecord(ctx, CategoryMsgSecret, msgSecretID(chat, sender, id), &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.Secret, nil
}

// --- privacy tokens ---

type privacyTokenRecord struct {
	Token     Binary `json:"token"`
	Timestamp int64  `json:"timestamp"`
}

func (ds *deviceStore) PutPrivacyTokens(ctx context.Context, tokens ...store.PrivacyToken) error {
	for _, token := range tokens {
		rec := privacyTokenRecord{Token: token.Token, Timestamp: token.Timestamp.Unix()}
		if err := ds.a.PutRecord(ctx, CategoryPrivacyToken, token.User.ToNonAD().String(), rec); err != nil {
			return err
		}
	}
	return nil
}

func (ds *deviceStore) GetPrivacyToken(ctx context.Context, user types.JID) (*store.PrivacyToken, error) {
	var rec privacyTokenRecord
	found, err := ds.a.GetRecord(ctx, CategoryPrivacyToken, user.ToNonAD().String(), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &store.PrivacyToken{
		User:      user.ToNonAD(),
		Token:     rec.Token,
		Timestamp: time.Unix(rec.Timestamp, 0),
	}, nil
}

// --- LID mappings ---

type lidMappingRecord struct {
	JID string `json:"jid"`
}

func (ds *deviceStore) PutManyLIDMappings(ctx context.Context, mappings []store.LIDMapping) error {
	for _, m := range mappings {
		if err := ds.PutLIDMapping(ctx, m.LID, m.PN); err != nil {
			return err
		}
	}
	return nil
}

func (ds *deviceStore) PutLIDMapping(ctx context.Context, lid, pn types.JID) error {
	lidUser, pnUser := lid.ToNonAD(), pn.ToNonAD()
	if err := ds.a.PutRecord(ctx, CategoryLIDMapping, "pn-"+pnUser.User, lidMappingRecord{JID: lidUser.String()}); err != nil {
		return err
	}
	return ds.a.PutRecord(ctx, CategoryLIDMapping, "lid-"+lidUser.User, lidMappingRecord{JID: pnUser.String()})
}

func (ds *deviceStore) GetPNForLID(ctx context.Context, lid types.JID) (types.JID, error) {
	var rec lidMappingRecord
	found, err := ds.a.GetRecord(ctx, CategoryLIDMapping, "lid-"+lid.ToNonAD().User, &rec)
	if err != nil || !found {
		return types.EmptyJID, err
	}
	pn, err := types.ParseJID(rec.JID)
	if err != nil {
		return types.EmptyJID, fmt.Errorf("stored pn mapping: %w", err)
	}
	return pn, nil
}

func (ds *deviceStore) GetLIDForPN(ctx context.Context, pn types.JID) (types.JID, error) {
	var rec lidMappingRecord
	found, err := ds.a.GetRecord(ctx, CategoryLIDMapping, "pn-"+pn.ToNonAD().User, &rec)
	if err != nil || !found {
		return types.EmptyJID, err
	}
	lid, err := types.ParseJID(rec.JID)
	if err != nil {
		return types.EmptyJID, fmt.Errorf("stored lid mapping: %w", err)
	}
	return lid, nil
}
