// Copyright 2025 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// srvpool maintains a pool of service endpoints discovered through DNS and
// exposes its state through a management API and prometheus metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/scionproto/srvpool/pkg/endpointpool"
	"github.com/scionproto/srvpool/pkg/log"
	"github.com/scionproto/srvpool/pkg/metrics"
	"github.com/scionproto/srvpool/pkg/private/serrors"
	"github.com/scionproto/srvpool/private/app/launcher"
	"github.com/scionproto/srvpool/private/env"
	"github.com/scionproto/srvpool/srvpool/config"
	"github.com/scionproto/srvpool/srvpool/mgmtapi"
)

// staleFactor is the number of missed intervals after which the endpoint
// list is reported as stale.
const staleFactor = 3

var globalCfg config.Config

func main() {
	application := launcher.Application{
		TOMLConfig: &globalCfg,
		ShortName:  "srvpool",
		Main:       realMain,
		Commands: []*cobra.Command{
			newResolve(),
			newStatus(),
		},
	}
	application.Run()
}

func realMain(ctx context.Context) error {
	tracer, closer, err := globalCfg.Tracing.NewTracer(globalCfg.General.ID)
	if err != nil {
		return serrors.Wrap("creating tracer", err)
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	r, err := globalCfg.Resolver.New()
	if err != nil {
		return serrors.Wrap("creating resolver", err)
	}
	interval := globalCfg.Pool.Interval.Duration
	pool, err := endpointpool.New(endpointpool.Config{
		Hostname: globalCfg.Pool.Hostname,
		Interval: interval,
		Timeout:  globalCfg.Pool.Timeout.Duration,
		Resolver: r,
		Ejection: globalCfg.Pool.Ejection.EjectionConfig(),
		OnFirstResolution: func(err error) {
			if err != nil {
				log.Error("Initial resolution failed", "err", err)
				return
			}
			log.Info("Initial resolution completed")
		},
		Metrics: endpointpool.NewMetrics(metrics.Factory{}),
	})
	if err != nil {
		return serrors.Wrap("creating endpoint pool", err)
	}
	defer pool.Close()
	unsubscribe := pool.OnUpdateError(func(ue endpointpool.UpdateError) {
		if ue.Age > staleFactor*interval {
			log.Error("Endpoint list is stale", "age", ue.Age, "err", ue.Err)
		}
	})
	defer unsubscribe()

	g, errCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-errCtx.Done()
		pool.StopUpdating()
		return nil
	})
	if globalCfg.API.Addr != "" {
		api := mgmtapi.Server{Pool: pool}
		server := &http.Server{
			Addr:              globalCfg.API.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		log.Info("Exposing API", "addr", globalCfg.API.Addr)
		g.Go(func() error {
			defer log.HandlePanic()
			<-errCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				env.ShutdownGraceInterval)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		g.Go(func() error {
			defer log.HandlePanic()
			err := server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return serrors.Wrap("serving management API", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer log.HandlePanic()
		return globalCfg.Metrics.ServePrometheus(errCtx)
	})
	return g.Wait()
}
