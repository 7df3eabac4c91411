package database

import (
	c "github.com/delta-events/whatsapp-service/internal/config"
	"github.com/delta-events/whatsapp-service/internal/logger"
)

// NewRecordStore picks the configured backend: MongoDB when a database host
// is set (ConnectDatabase must have run), memory otherwise.
func NewRecordStore() RecordStore {
	config, err := c.GetConfig()
	if err == nil && config.UseDatabase() && Client != nil {
		logger.Debug("Using database-backed session record store")
		return NewDatabaseStore()
	}
	logger.Debug("Using in-memory session record store")
	return NewMemoryRecordStore()
}
