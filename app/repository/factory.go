package repository

import (
	"sync"

	"gorm.io/gorm"
)

// The process shares one set of repositories over the global pool.
var (
	shared     *Repositories
	sharedOnce sync.Once
)

// InitializeRepositories binds the shared repositories to db. Later calls
// keep the first binding.
func InitializeRepositories(db *gorm.DB) {
	sharedOnce.Do(func() {
		shared = NewRepositories(db)
	})
}

// GetGlobalRepositories returns the shared repositories.
func GetGlobalRepositories() *Repositories {
	if shared == nil {
		panic("repositories not initialized, call InitializeRepositories first")
	}
	return shared
}
