// Copyright 2024 The amacore Authors
// This file is part of the amacore engine.
//
// The amacore engine is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The amacore engine is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the amacore engine. If not, see <http://www.gnu.org/licenses/>.

package sbat

import (
	lru "github.com/hashicorp/golang-lru"
)

// nodeCache is a thin LRU wrapper over node records keyed by their packed
// NodeKey bytes, in the spirit of the teacher's common.Cache (common/cache.go)
// generalized here from account/hash keys to raw byte keys.
type nodeCache struct {
	lru *lru.Cache
}

// NewNodeCache builds a node cache holding up to size records. size <= 0
// disables caching (NewTree treats a nil *nodeCache the same way).
func NewNodeCache(size int) *nodeCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New(size)
	if err != nil {
		return nil
	}
	return &nodeCache{lru: c}
}

func (c *nodeCache) get(key []byte) (*nodeRecord, bool) {
	v, ok := c.lru.Get(string(key))
	if !ok {
		return nil, false
	}
	return v.(*nodeRecord), true
}

func (c *nodeCache) add(key []byte, rec *nodeRecord) {
	c.lru.Add(string(key), rec)
}

func (c *nodeCache) remove(key []byte) {
	c.lru.Remove(string(key))
}
