package claim169

import "github.com/prometheus/client_golang/prometheus"

// Package-level collectors for encode/decode timing and verification
// outcomes. They are constructed eagerly but never registered to the
// default registry — importing this package must never have a global
// side effect. Call RegisterMetrics to opt in.
var (
	EncodeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "claim169_encode_duration_seconds",
		Help: "Time spent encoding a Claim 169 credential, per encode call.",
	})
	DecodeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "claim169_decode_duration_seconds",
		Help: "Time spent decoding a Claim 169 credential, per decode call.",
	})
	VerificationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claim169_verification_total",
		Help: "Count of decode verification outcomes, by status.",
	}, []string{"status"})
	DecryptionFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "claim169_decryption_failure_total",
		Help: "Count of COSE_Encrypt0 AEAD authentication failures.",
	})
)

// RegisterMetrics registers this package's collectors with reg. It is
// the caller's responsibility to call this once per registry; this
// package never registers itself implicitly.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		EncodeDuration,
		DecodeDuration,
		VerificationTotal,
		DecryptionFailureTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
