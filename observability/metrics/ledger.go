package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics aggregates the counters the RPC surface records per
// operation outcome.
type LedgerMetrics struct {
	transfersTotal     *prometheus.CounterVec
	reversalsTotal     *prometheus.CounterVec
	finalizationsTotal prometheus.Counter
	issuanceTotal      *prometheus.CounterVec
	rpcRequests        *prometheus.CounterVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics, registering them on first
// use.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			transfersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "halo_transfers_total",
				Help: "Count of transfer transitions by outcome.",
			}, []string{"outcome"}),
			reversalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "halo_reversals_total",
				Help: "Count of reversal transitions by path.",
			}, []string{"path"}),
			finalizationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "halo_finalizations_total",
				Help: "Count of finalized pending receipts.",
			}),
			issuanceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "halo_issuance_total",
				Help: "Count of mint and burn transitions.",
			}, []string{"op"}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "halo_rpc_requests_total",
				Help: "Count of RPC requests by method and status.",
			}, []string{"method", "status"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.transfersTotal,
			ledgerRegistry.reversalsTotal,
			ledgerRegistry.finalizationsTotal,
			ledgerRegistry.issuanceTotal,
			ledgerRegistry.rpcRequests,
		)
	})
	return ledgerRegistry
}

// TransferProcessed records a transfer outcome ("ok" or "error").
func (m *LedgerMetrics) TransferProcessed(outcome string) {
	m.transfersTotal.WithLabelValues(outcome).Inc()
}

// ReversalProcessed records a reversal on the named path ("recipient" or
// "sender").
func (m *LedgerMetrics) ReversalProcessed(path string) {
	m.reversalsTotal.WithLabelValues(path).Inc()
}

// FinalizationProcessed records one finalized receipt.
func (m *LedgerMetrics) FinalizationProcessed() {
	m.finalizationsTotal.Inc()
}

// IssuanceProcessed records a mint or burn.
func (m *LedgerMetrics) IssuanceProcessed(op string) {
	m.issuanceTotal.WithLabelValues(op).Inc()
}

// RPCRequest records one RPC request by method and status.
func (m *LedgerMetrics) RPCRequest(method, status string) {
	m.rpcRequests.WithLabelValues(method, status).Inc()
}
