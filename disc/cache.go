// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disc

import (
	"encoding/binary"
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/cpmech/godae/mdl"
	"github.com/cpmech/godae/msh"
	"github.com/cpmech/godae/prm"
	"github.com/cpmech/gosl/chk"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// Cache holds discretised models keyed by (model, mesh, values). Concurrent requests for the
// same key discretise once.
type Cache struct {
	lru    *lru.Cache         // key => *Model
	group  singleflight.Group // merges concurrent discretisations
	hits   int64              // number of hits
	misses int64              // number of misses
}

// NewCache returns a cache holding up to size discretised models
func NewCache(size int) (o *Cache, err error) {
	o = new(Cache)
	if o.lru, err = lru.New(size); err != nil {
		return nil, chk.Err("cannot allocate cache:\n%v", err)
	}
	return
}

// Key returns the cache key of a discretisation
func Key(model *mdl.Model, mesh *msh.Mesh, vals *prm.Values) uint64 {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:], model.A.Serial())
	binary.LittleEndian.PutUint64(buf[8:], model.Hash())
	binary.LittleEndian.PutUint64(buf[16:], mesh.Hash())
	binary.LittleEndian.PutUint64(buf[24:], vals.Hash())
	return xxhash.Sum64(buf[:])
}

// Get returns the discretisation of model on mesh with vals, discretising it if needed
func (o *Cache) Get(model *mdl.Model, mesh *msh.Mesh, vals *prm.Values) (d *Model, err error) {
	key := Key(model, mesh, vals)
	if v, ok := o.lru.Get(key); ok {
		atomic.AddInt64(&o.hits, 1)
		return v.(*Model), nil
	}
	v, err, _ := o.group.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		if v, ok := o.lru.Get(key); ok {
			return v, nil
		}
		atomic.AddInt64(&o.misses, 1)
		d, err := Discretise(model, mesh, vals)
		if err != nil {
			return nil, err
		}
		o.lru.Add(key, d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Model), nil
}

// Stats returns the number of hits and misses
func (o *Cache) Stats() (hits, misses int) {
	return int(atomic.LoadInt64(&o.hits)), int(atomic.LoadInt64(&o.misses))
}

// Len returns the number of cached models
func (o *Cache) Len() int { return o.lru.Len() }
