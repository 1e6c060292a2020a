package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherscore/cipherscore-node/db/prefixeddb"
	"github.com/cipherscore/cipherscore-node/types"
)

const registryCacheKey = "registry"

// submitterFlag is the value stored for submitter set membership.
var submitterFlag = []byte{0x01}

// Registry retrieves the access-control registry. Returns ErrNotFound if
// the node has never been initialized.
func (s *Storage) Registry() (*types.Registry, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.registryUnsafe()
}

func (s *Storage) registryUnsafe() (*types.Registry, error) {
	if cached, ok := s.cache.Get(registryCacheKey); ok {
		reg := cached.(types.Registry)
		return &reg, nil
	}
	reg := new(types.Registry)
	if err := s.getArtifact(registryPrefix, registryKey, reg); err != nil {
		return nil, err
	}
	s.cache.Add(registryCacheKey, *reg)
	return reg, nil
}

// SetRegistry stores the access-control registry.
func (s *Storage) SetRegistry(reg *types.Registry) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if err := s.setArtifact(registryPrefix, registryKey, reg); err != nil {
		return fmt.Errorf("store registry: %w", err)
	}
	s.cache.Add(registryCacheKey, *reg)
	return nil
}

// AddSubmitter adds an identity to the submitter set. Adding an identity
// that is already a submitter is a no-op.
func (s *Storage) AddSubmitter(addr common.Address) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), submitterPrefix)
	defer wTx.Discard()
	if err := wTx.Set(addr.Bytes(), submitterFlag); err != nil {
		return err
	}
	return wTx.Commit()
}

// RemoveSubmitter removes an identity from the submitter set. Removing an
// identity that is not a submitter is a no-op.
func (s *Storage) RemoveSubmitter(addr common.Address) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), submitterPrefix)
	defer wTx.Discard()
	if err := wTx.Delete(addr.Bytes()); err != nil {
		return err
	}
	return wTx.Commit()
}

// IsSubmitter reports whether the identity belongs to the submitter set.
func (s *Storage) IsSubmitter(addr common.Address) bool {
	_, err := prefixeddb.NewPrefixedReader(s.db, submitterPrefix).Get(addr.Bytes())
	return err == nil
}

// ListSubmitters returns all identities in the submitter set.
func (s *Storage) ListSubmitters() ([]common.Address, error) {
	keys, err := s.listArtifactKeys(submitterPrefix)
	if err != nil {
		return nil, err
	}
	submitters := make([]common.Address, 0, len(keys))
	for _, k := range keys {
		submitters = append(submitters, common.BytesToAddress(k))
	}
	return submitters, nil
}
