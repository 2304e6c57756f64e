// Package metrics implements a ledger that counts and times the calls made to a nested ledger.
package metrics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
)

var _ chainblob.Ledger = &Ledger{}

// Metrics are the collectors a Ledger reports to.
type Metrics struct {
	Calls    *prometheus.CounterVec   // chainblob_ledger_calls_total{method,tier,status}
	Duration *prometheus.HistogramVec // chainblob_ledger_call_duration_seconds{method,tier}
	Bytes    *prometheus.CounterVec   // chainblob_ledger_instruction_bytes_total{method}
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainblob_ledger_calls_total",
			Help: "Ledger calls by method, read tier and status",
		}, []string{"method", "tier", "status"}),

		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chainblob_ledger_call_duration_seconds",
			Help:    "Ledger call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "tier"}),

		Bytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainblob_ledger_instruction_bytes_total",
			Help: "Instruction data bytes sent and received",
		}, []string{"method"}),
	}
}

// Ledger reports each call to a nested chainblob.Ledger to a set of Metrics.
type Ledger struct {
	l chainblob.Ledger
	m *Metrics
}

// New produces a Ledger reporting calls to l in m.
func New(l chainblob.Ledger, m *Metrics) *Ledger {
	return &Ledger{l: l, m: m}
}

// Status is the status label for err.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, chainblob.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func (l *Ledger) observe(method string, tier chainblob.Freshness, start time.Time, err error) {
	l.m.Calls.WithLabelValues(method, string(tier), Status(err)).Inc()
	l.m.Duration.WithLabelValues(method, string(tier)).Observe(time.Since(start).Seconds())
}

func instructionBytes(ixs []chainblob.Instruction) float64 {
	var n int
	for _, ix := range ixs {
		n += len(ix.Data)
	}
	return float64(n)
}

func (l *Ledger) GetAccountInfo(ctx context.Context, addr chainblob.Address, opt chainblob.ReadOption) (*chainblob.Account, error) {
	start := time.Now()
	acct, err := l.l.GetAccountInfo(ctx, addr, opt)
	l.observe("GetAccountInfo", opt.Tier(), start, err)
	return acct, err
}

func (l *Ledger) GetTransaction(ctx context.Context, sig chainblob.Signature, opt chainblob.ReadOption) (*chainblob.Transaction, error) {
	start := time.Now()
	tx, err := l.l.GetTransaction(ctx, sig, opt)
	l.observe("GetTransaction", opt.Tier(), start, err)
	if tx != nil {
		l.m.Bytes.WithLabelValues("GetTransaction").Add(instructionBytes(tx.Instructions))
	}
	return tx, err
}

func (l *Ledger) GetSignaturesForAddress(ctx context.Context, addr chainblob.Address, opts chainblob.SignaturesOptions, opt chainblob.ReadOption) ([]chainblob.SignatureInfo, error) {
	start := time.Now()
	infos, err := l.l.GetSignaturesForAddress(ctx, addr, opts, opt)
	l.observe("GetSignaturesForAddress", opt.Tier(), start, err)
	return infos, err
}

// SendTransaction implements chainblob.Ledger.SendTransaction.
// Writes are labeled with the fresh tier.
func (l *Ledger) SendTransaction(ctx context.Context, payer chainblob.Address, ixs []chainblob.Instruction) (chainblob.Signature, error) {
	start := time.Now()
	sig, err := l.l.SendTransaction(ctx, payer, ixs)
	l.observe("SendTransaction", chainblob.Fresh, start, err)
	if err == nil {
		l.m.Bytes.WithLabelValues("SendTransaction").Add(instructionBytes(ixs))
	}
	return sig, err
}

var defaultMetrics *Metrics

func init() {
	ledger.Register("metrics", func(ctx context.Context, conf map[string]interface{}) (chainblob.Ledger, error) {
		nested, err := ledger.ConfLedger(ctx, conf, "nested")
		if err != nil {
			return nil, errors.Wrap(err, "creating nested ledger")
		}
		if defaultMetrics == nil {
			defaultMetrics = NewMetrics(nil)
		}
		return New(nested, defaultMetrics), nil
	})
}
