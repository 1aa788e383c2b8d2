package authstate

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"go.mau.fi/whatsmeow/util/keys"
)

// KeyPairData is a serializable Curve25519 key pair.
type KeyPairData struct {
	Public  Binary `json:"public"`
	Private Binary `json:"private"`
}

func newKeyPairData(kp *keys.KeyPair) KeyPairData {
	return KeyPairData{
		Public:  append(Binary(nil), kp.Pub[:]...),
		Private: append(Binary(nil), kp.Priv[:]...),
	}
}

// KeyPair reconstructs the runtime key pair. Both halves must be exactly
// 32 bytes.
func (k KeyPairData) KeyPair() (*keys.KeyPair, error) {
	if len(k.Public) != 32 || len(k.Private) != 32 {
		return nil, fmt.Errorf("key pair: bad lengths pub=%d priv=%d", len(k.Public), len(k.Private))
	}
	var pub, priv [32]byte
	copy(pub[:], k.Public)
	copy(priv[:], k.Private)
	return &keys.KeyPair{Pub: &pub, Priv: &priv}, nil
}

// SignedPreKeyData is a serializable signed prekey.
type SignedPreKeyData struct {
	KeyPairData
	KeyID     uint32 `json:"keyId"`
	Signature Binary `json:"signature"`
}

func newSignedPreKeyData(pk *keys.PreKey) SignedPreKeyData {
	return SignedPreKeyData{
		KeyPairData: newKeyPairData(&pk.KeyPair),
		KeyID:       pk.KeyID,
		Signature:   append(Binary(nil), pk.Signature[:]...),
	}
}

// PreKey reconstructs the runtime signed prekey.
func (s SignedPreKeyData) PreKey() (*keys.PreKey, error) {
	kp, err := s.KeyPairData.KeyPair()
	if err != nil {
		return nil, err
	}
	if len(s.Signature) != 64 {
		return nil, fmt.Errorf("signed prekey: bad signature length %d", len(s.Signature))
	}
	var sig [64]byte
	copy(sig[:], s.Signature)
	return &keys.PreKey{KeyPair: *kp, KeyID: s.KeyID, Signature: &sig}, nil
}

// Creds is the durable credential bundle. It is generated once on first
// run, bound to a phone during QR pairing, and updated in place when the
// server rotates identifiers. Losing it invalidates the session.
type Creds struct {
	RegistrationID uint32           `json:"registrationId"`
	NoiseKey       KeyPairData      `json:"noiseKey"`
	IdentityKey    KeyPairData      `json:"signedIdentityKey"`
	SignedPreKey   SignedPreKeyData `json:"signedPreKey"`
	AdvSecretKey   Binary           `json:"advSecretKey"`

	// Filled in during pairing.
	JID      string `json:"me,omitempty"`
	LID      string `json:"lid,omitempty"`
	Platform string `json:"platform,omitempty"`
	PushName string `json:"pushName,omitempty"`
	Account  Binary `json:"account,omitempty"`

	// Prekey upload bookkeeping.
	NextPreKeyID            uint32 `json:"nextPreKeyId"`
	FirstUnuploadedPreKeyID uint32 `json:"firstUnuploadedPreKeyId"`
}

// NewCreds generates a fresh unpaired credential bundle.
func NewCreds() (*Creds, error) {
	noise := keys.NewKeyPair()
	identity := keys.NewKeyPair()
	signedPreKey := identity.CreateSignedPreKey(1)

	regID, err := randomRegistrationID()
	if err != nil {
		return nil, err
	}
	adv := make([]byte, 32)
	if _, err := rand.Read(adv); err != nil {
		return nil, fmt.Errorf("generate adv secret: %w", err)
	}

	return &Creds{
		RegistrationID:          regID,
		NoiseKey:                newKeyPairData(noise),
		IdentityKey:             newKeyPairData(identity),
		SignedPreKey:            newSignedPreKeyData(signedPreKey),
		AdvSecretKey:            adv,
		NextPreKeyID:            1,
		FirstUnuploadedPreKeyID: 1,
	}, nil
}

// Registration ids live in [1, 16380] per the signal registration range.
func randomRegistrationID() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("generate registration id: %w", err)
	}
	return binary.BigEndian.Uint32(buf[:])%16380 + 1, nil
}
