package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/bmark/internal/model"
)

// IdentityCache keeps recently resolved users so session checks from
// every open client do not hit the database.
type IdentityCache struct {
	lru *expirable.LRU[string, model.User]
}

func NewIdentityCache(size int, ttl time.Duration) *IdentityCache {
	return &IdentityCache{lru: expirable.NewLRU[string, model.User](size, nil, ttl)}
}

func (c *IdentityCache) Get(userID string) (model.User, bool) {
	return c.lru.Get(userID)
}

func (c *IdentityCache) Put(user model.User) {
	c.lru.Add(user.ID, user)
}

func (c *IdentityCache) Forget(userID string) {
	c.lru.Remove(userID)
}
