/*
Copyright © 2026 the RelDisp authors.
This file is part of RelDisp.

RelDisp is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RelDisp is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RelDisp.  If not, see <http://www.gnu.org/licenses/>.*/

package reldisp

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/reldisp/algebra"
	"github.com/spatialmodel/reldisp/internal/hash"
	"golang.org/x/sync/errgroup"
)

// Request specifies a derivation.
type Request struct {
	Regime *Regime
	Params algebra.Env
	Orders []float64
}

// Deriver derives regimes concurrently and remembers the results.
// The zero value is ready to use.
type Deriver struct {
	// CacheSize is the number of derivations to keep in memory.
	// Zero means no limit.
	CacheSize int

	// Timeout limits the time spent on each derivation. A derivation
	// that runs out of time has its remaining quantities marked as
	// Unevaluated, and is not cached. Zero means no limit.
	Timeout time.Duration

	// Log receives progress messages. It defaults to the
	// standard logger.
	Log logrus.FieldLogger

	cacheInit sync.Once
	cache     *requestcache.Cache
}

func (d *Deriver) log() logrus.FieldLogger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}

// process derives a single request. A request that runs out of time
// returns its partial derivation with an error so that it is not cached.
func (d *Deriver) process(ctx context.Context, payload interface{}) (interface{}, error) {
	req := payload.(Request)
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	start := time.Now()
	p, err := req.Regime.Compile(algebra.New())
	if err != nil {
		return nil, err
	}
	der, err := p.Derive(ctx, req.Params, req.Orders...)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return der, fmt.Errorf("%w: regime %s: %w", ErrNoClosedForm, req.Regime.Name, err)
	}
	d.log().WithFields(logrus.Fields{
		"regime":   req.Regime.Name,
		"params":   der.Params.String(),
		"duration": time.Since(start),
		"complete": der.Complete(),
	}).Info("derived regime")
	return der, nil
}

// Derive derives a single request. The returned derivation may be shared
// with other callers and must not be modified.
func (d *Deriver) Derive(ctx context.Context, req Request) (*Derivation, error) {
	if req.Regime == nil {
		return nil, fmt.Errorf("reldisp: derivation request has no regime")
	}
	d.cacheInit.Do(func() {
		d.cache = requestcache.NewCache(d.process, runtime.GOMAXPROCS(-1),
			requestcache.Memory(d.CacheSize))
	})
	result, err := d.cache.NewRequest(ctx, req, hash.Hash(req)).Result()
	der, _ := result.(*Derivation)
	return der, err
}

// DeriveAll derives the requests in parallel. A request that runs out of
// time is returned with its unevaluated quantities rather than failing the
// batch; any other error cancels the remaining requests.
func (d *Deriver) DeriveAll(ctx context.Context, reqs []Request) ([]*Derivation, error) {
	out := make([]*Derivation, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			der, err := d.Derive(ctx, req)
			if err != nil {
				if errors.Is(err, ErrNoClosedForm) && der != nil && ctx.Err() == nil {
					d.log().WithFields(logrus.Fields{
						"regime":  req.Regime.Name,
						"timeout": d.Timeout,
					}).Warn("no closed form found within the time limit")
					out[i] = der
					return nil
				}
				return err
			}
			out[i] = der
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
