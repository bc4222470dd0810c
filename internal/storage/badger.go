package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// BadgerStore owns the BadgerDB instance shared by the link and filter
// repositories. Records are stored as JSON values under typed key prefixes
// (link:<id>, filter:<id>).
type BadgerStore struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// OpenBadger opens (or creates) the database at dbPath.
func OpenBadger(dbPath string, logger logrus.FieldLogger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}

	return &BadgerStore{
		db:  db,
		log: logger.WithField("component", "storage"),
	}, nil
}

// Links returns the link repository backed by this store.
func (s *BadgerStore) Links() *BadgerLinkRepository {
	return &BadgerLinkRepository{db: s.db, log: s.log.WithField("repository", "links")}
}

// Filters returns the filter repository backed by this store.
func (s *BadgerStore) Filters() *BadgerFilterRepository {
	return &BadgerFilterRepository{db: s.db, log: s.log.WithField("repository", "filters")}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	return nil
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
