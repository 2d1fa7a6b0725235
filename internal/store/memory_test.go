package store_test

import (
	"testing"

	"respec/internal/store"
	"respec/internal/store/storetest"
)

func TestMemoryRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return store.NewMemoryRepository()
	})
}
