// Package testsuite is the conformance pack for the storage contract.
// Every engine's unit tests must run it through its own provider, so that
// all engines observably agree with the in-memory reference behavior.
package testsuite

import (
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/driftbase/driftdb/internal/docstore"
)

type storageTestSuite struct {
	suite.Suite
	storage  docstore.Storage
	provider StorageProvider
}

// StorageProvider returns a fresh, empty storage for each test.
type StorageProvider func() docstore.Storage

func NewTestSuite(provider StorageProvider) *storageTestSuite {
	return &storageTestSuite{
		provider: provider,
	}
}

func (s *storageTestSuite) SetupTest() {
	s.storage = s.provider()
}

func (s *storageTestSuite) TearDownTest() {
	defer s.storage.Close()
	log.Debug("tear down")
}
