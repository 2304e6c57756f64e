package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/bobg/chainblob/ledger/logging"
	"github.com/bobg/chainblob/ledger/metrics"
	"github.com/bobg/chainblob/ledger/rpc"
)

func (c maincmd) serve(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		addr        = fs.String("addr", ":2969", "listen address")
		metricsAddr = fs.String("metrics", "", "address for the Prometheus metrics endpoint (default: none)")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	reg := prometheus.NewRegistry()
	l := metrics.New(logging.New(c.l, c.logger), metrics.NewMetrics(reg))

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				c.logger.Error().Err(err).Str("addr", *metricsAddr).Msg("serving metrics")
			}
		}()
	}

	gs := grpc.NewServer()
	rpc.Register(gs, rpc.NewServer(l))
	defer gs.GracefulStop()

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", *addr)
	}
	defer lis.Close()

	fmt.Printf("Listening on %s\n", lis.Addr())

	return gs.Serve(lis)
}
