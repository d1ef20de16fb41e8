// Package signer keeps ed25519 account keys in a JWK set, keyed by account address.
package signer

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/logger"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownSigner = errors.New("unknown signer")
	ErrBadKey        = errors.New("key is not an ed25519 private key")
)

// Signs messages on behalf of accounts
type Signer interface {
	Sign(ctx context.Context, addr string, message []byte) (*Signature, error)
	HasKey(addr string) bool
}

type Signature struct {
	PublicKey []byte
	Signature []byte
}

type Account struct {
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key,omitempty"`
}

type Keystore struct {
	log  *logrus.Entry
	path string

	mtx sync.RWMutex
	set jwk.Set
}

// Loads keys from the configured JWK set file. Missing file means an empty keystore
func NewKeystore(config *config.Config) (self *Keystore, err error) {
	self = new(Keystore)
	self.log = logger.NewSublogger("signer")
	self.path = config.Signer.KeysetPath
	self.set = jwk.NewSet()

	if self.path == "" {
		return
	}

	/* #nosec */
	content, err := os.ReadFile(self.path)
	if errors.Is(err, os.ErrNotExist) {
		self.log.WithField("path", self.path).Info("Keyset doesn't exist yet, starting empty")
		return self, nil
	}
	if err != nil {
		return
	}

	self.set, err = jwk.Parse(content)
	if err != nil {
		return
	}

	self.log.WithField("keys", self.set.Len()).Info("Loaded keyset")
	return
}

func (self *Keystore) privateKey(addr string) (out ed25519.PrivateKey, err error) {
	normalized, err := address.Normalize(addr)
	if err != nil {
		return
	}

	self.mtx.RLock()
	key, ok := self.set.LookupKeyID(normalized)
	self.mtx.RUnlock()
	if !ok {
		err = ErrUnknownSigner
		return
	}

	var raw interface{}
	err = key.Raw(&raw)
	if err != nil {
		return
	}

	out, ok = raw.(ed25519.PrivateKey)
	if !ok {
		err = ErrBadKey
	}
	return
}

func (self *Keystore) HasKey(addr string) bool {
	_, err := self.privateKey(addr)
	return err == nil
}

func (self *Keystore) Sign(ctx context.Context, addr string, message []byte) (out *Signature, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	priv, err := self.privateKey(addr)
	if err != nil {
		return
	}

	out = &Signature{
		PublicKey: priv.Public().(ed25519.PublicKey),
		Signature: ed25519.Sign(priv, message),
	}
	return
}

func (self *Keystore) PublicKey(addr string) (out []byte, err error) {
	priv, err := self.privateKey(addr)
	if err != nil {
		return
	}
	return priv.Public().(ed25519.PublicKey), nil
}

// Generates a new key, stores it and derives the account address
func (self *Keystore) Create() (out *Account, err error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return
	}
	return self.add(pub, priv)
}

// Adds an existing private key (hex encoded seed or full key)
func (self *Keystore) Import(privateKeyHex string) (out *Account, err error) {
	buf, err := hexutil.Decode(privateKeyHex)
	if err != nil {
		return
	}

	var priv ed25519.PrivateKey
	switch len(buf) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(buf)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(buf)
	default:
		err = ErrBadKey
		return
	}

	return self.add(priv.Public().(ed25519.PublicKey), priv)
}

func (self *Keystore) add(pub ed25519.PublicKey, priv ed25519.PrivateKey) (out *Account, err error) {
	addr := address.FromPublicKey(pub)

	key, err := jwk.New(priv)
	if err != nil {
		return
	}
	err = key.Set(jwk.KeyIDKey, addr)
	if err != nil {
		return
	}

	self.mtx.Lock()
	if existing, ok := self.set.LookupKeyID(addr); ok {
		self.set.Remove(existing)
	}
	self.set.Add(key)
	self.mtx.Unlock()

	err = self.save()
	if err != nil {
		return
	}

	self.log.WithField("address", addr).Info("Added key")

	out = &Account{
		Address:    addr,
		PublicKey:  hexutil.Encode(pub),
		PrivateKey: hexutil.Encode(priv.Seed()),
	}
	return
}

func (self *Keystore) save() (err error) {
	if self.path == "" {
		return
	}

	self.mtx.RLock()
	buf, err := json.MarshalIndent(self.set, "", "  ")
	self.mtx.RUnlock()
	if err != nil {
		return
	}

	return os.WriteFile(self.path, buf, 0600)
}
