package snipe

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"solana-token-lab/internal/decode"
	"solana-token-lab/internal/execute"
	"solana-token-lab/internal/observability"
	"solana-token-lab/internal/ratelimit"
	"solana-token-lab/internal/signal"
	"solana-token-lab/internal/snipeerr"
	"solana-token-lab/internal/solana"
	"solana-token-lab/internal/validate"
)

// OutcomeSink optionally records the terminal resolution of each
// inbound message for offline analysis, e.g.
// persist.ClickhouseOutcomeSink. An Orchestrator with no configured
// sink only logs outcomes, matching spec §7's "every dispatch attempt
// and every resolution outcome is logged" requirement on its own.
type OutcomeSink interface {
	RecordOutcome(ctx context.Context, o Outcome) error
}

// Outcome is one terminal resolution of a single inbound log message.
type Outcome struct {
	Program     string
	Signature   string
	Tag         string
	Confidence  float64
	Mint        string
	Status      string
	Detail      string
	TimestampMs int64
}

// TxFetcher is the RPC capability the orchestrator's decoders need,
// satisfied by *solana.HTTPClient.
type TxFetcher = decode.TxFetcher

// Orchestrator runs the strictly sequential per-message pipeline spec
// §5 describes: dedup and stale-slot gating happen upstream in
// solana.LogIngestor; from here it is score -> fingerprint -> decode
// -> validate -> execute, one goroutine per inbound message, grounded
// on internal/orchestrator/orchestrator.go's Options-struct
// constructor and phase-logging style.
type Orchestrator struct {
	scorer    *signal.Scorer
	matcher   *signal.Matcher
	decoders  *decode.Registry
	validator *validate.MintValidator
	executor  *execute.Executor
	payer     *solana.Keypair
	metrics   *observability.Metrics
	outcomes  OutcomeSink

	amountNativeLamports int64
	maxSlippageSentinel  int64

	programIDByName map[string]string

	reportInterval time.Duration
	logger         *log.Logger

	counters sync.Map // program name -> *int64
}

// Options configures an Orchestrator.
type Options struct {
	RPC       TxFetcher
	Programs  []solana.ProgramDescriptor
	Scorer    *signal.Scorer
	Matcher   *signal.Matcher
	Validator *validate.MintValidator
	Executor  *execute.Executor
	Payer     *solana.Keypair
	Metrics   *observability.Metrics
	Outcomes  OutcomeSink

	AmountNativeLamports int64
	MaxSlippageSentinel  int64

	ReportInterval time.Duration
	Logger         *log.Logger
}

// New builds an Orchestrator backed by opts, registering the three
// decoder families against the tags DefaultFingerprints uses.
func New(opts Options) *Orchestrator {
	registry := decode.NewRegistry()
	registry.Register(bondingCurveTag, decode.NewBondingCurveDecoder(opts.RPC))
	registry.Register(ammPoolTag, decode.NewAMMPoolDecoder(opts.RPC))
	registry.Register(virtualPoolTag, decode.NewVirtualPoolDecoder(opts.RPC))

	byName := make(map[string]string, len(opts.Programs))
	for _, p := range opts.Programs {
		byName[p.Name] = p.ProgramID.String()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Orchestrator{
		scorer:               opts.Scorer,
		matcher:              opts.Matcher,
		decoders:             registry,
		validator:            opts.Validator,
		executor:             opts.Executor,
		payer:                opts.Payer,
		metrics:              opts.Metrics,
		outcomes:             opts.Outcomes,
		amountNativeLamports: opts.AmountNativeLamports,
		maxSlippageSentinel:  opts.MaxSlippageSentinel,
		programIDByName:      byName,
		reportInterval:       opts.ReportInterval,
		logger:               logger,
	}
}

// Run dispatches one goroutine per inbound notification on ch until
// ch closes or ctx is cancelled. New dispatch stops as soon as ctx is
// done; in-flight goroutines are allowed to finish, matching spec §5's
// cancellation semantics. Run blocks until every dispatched goroutine
// has returned.
func (o *Orchestrator) Run(ctx context.Context, ch <-chan solana.TaggedLogNotification) {
	if o.reportInterval > 0 {
		go o.reportLoop(ctx)
	}

	var wg sync.WaitGroup
dispatch:
	for {
		select {
		case <-ctx.Done():
			break dispatch
		case notif, ok := <-ch:
			if !ok {
				break dispatch
			}
			wg.Add(1)
			go func(n solana.TaggedLogNotification) {
				defer wg.Done()
				o.handle(ctx, n)
			}(notif)
		}
	}
	wg.Wait()
}

// handle runs the sequential score -> fingerprint -> decode -> validate
// -> execute pipeline for one notification.
func (o *Orchestrator) handle(ctx context.Context, notif solana.TaggedLogNotification) {
	o.bumpCounter(notif.Program)

	programID := o.programIDByName[notif.Program]

	score := o.scorer.Score(notif.Logs)
	_ = score // advisory signal alongside the fingerprint match, not itself gating

	match := o.matcher.Match(notif.Logs, programID, nil)
	if match == nil {
		o.record(Outcome{Program: notif.Program, Signature: notif.Signature, Status: "unmatched"})
		return
	}
	if o.metrics != nil {
		o.metrics.ProgramLogsMatched.WithLabelValues(notif.Program, match.Tag).Inc()
	}

	decoder := o.decoders.For(match.Tag)
	if decoder == nil {
		o.record(Outcome{Program: notif.Program, Signature: notif.Signature, Tag: match.Tag, Confidence: match.Confidence, Status: "unresolved", Detail: "no decoder for tag"})
		return
	}

	event, err := decoder.Decode(ctx, notif.Signature, notif.Logs)
	if err != nil {
		o.logger.Printf("decode %s (%s): %v", notif.Signature, match.Tag, err)
		if o.metrics != nil {
			o.metrics.ProgramLogsFailed.WithLabelValues(notif.Program, "decode").Inc()
		}
		o.record(Outcome{Program: notif.Program, Signature: notif.Signature, Tag: match.Tag, Confidence: match.Confidence, Status: "decode_failed", Detail: err.Error()})
		return
	}
	if event == nil || event.Mint.IsZero() {
		if o.metrics != nil {
			o.metrics.ProgramLogsUnresolved.WithLabelValues(notif.Program).Inc()
		}
		o.record(Outcome{Program: notif.Program, Signature: notif.Signature, Tag: match.Tag, Confidence: match.Confidence, Status: "unresolved"})
		return
	}

	valid, err := o.validator.IsValidMint(ctx, event.Mint)
	if err != nil {
		o.logger.Printf("validate mint %s: %v", event.Mint, err)
	} else if !valid {
		// Validation is advisory: the buy proceeds whatever the
		// fingerprint's confidence; only a warning is logged.
		o.logger.Printf("warning: mint %s failed validation, proceeding on confidence %.2f", event.Mint, match.Confidence)
	}

	start := time.Now()
	sig, err := o.executor.Execute(ctx, execute.BuyOrder{
		Payer:               o.payer,
		Mint:                event.Mint,
		AmountNative:        o.amountNativeLamports,
		MaxSlippageSentinel: o.maxSlippageSentinel,
	})
	if o.metrics != nil {
		o.metrics.SnipeExecutionDuration.WithLabelValues(match.Tag).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		o.logger.Printf("execute buy for mint %s: %v", event.Mint, err)
		if o.metrics != nil {
			o.metrics.SnipeOrdersRejected.WithLabelValues(string(rejectReason(err))).Inc()
		}
		o.record(Outcome{Program: notif.Program, Signature: notif.Signature, Tag: match.Tag, Confidence: match.Confidence, Mint: event.Mint.String(), Status: "rejected", Detail: err.Error()})
		return
	}

	o.logger.Printf("submitted buy for mint %s: %s", event.Mint, sig)
	if o.metrics != nil {
		o.metrics.SnipeOrdersSubmitted.Inc()
		o.metrics.SnipeOrdersConfirmed.Inc()
	}
	o.record(Outcome{Program: notif.Program, Signature: notif.Signature, Tag: match.Tag, Confidence: match.Confidence, Mint: event.Mint.String(), Status: "submitted", Detail: sig})
}

// record persists an outcome through the optional sink, off the hot
// path; sink failures are logged and otherwise ignored.
func (o *Orchestrator) record(out Outcome) {
	if o.outcomes == nil {
		return
	}
	out.TimestampMs = time.Now().UnixMilli()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.outcomes.RecordOutcome(ctx, out); err != nil {
			o.logger.Printf("record outcome: %v", err)
		}
	}()
}

// rejectReason extracts the snipeerr.Kind from err for metrics
// labeling, defaulting to ProviderError for unclassified failures.
func rejectReason(err error) snipeerr.Kind {
	var e *snipeerr.Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return snipeerr.ProviderError
}

func (o *Orchestrator) bumpCounter(program string) {
	v, _ := o.counters.LoadOrStore(program, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// reportLoop periodically logs per-source message counters until ctx
// is done.
func (o *Orchestrator) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(o.reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.counters.Range(func(key, value interface{}) bool {
				o.logger.Printf("source=%s messages=%d", key, atomic.LoadInt64(value.(*int64)))
				return true
			})
		}
	}
}

// NewRateLimiter builds the shared limiter used across the ws-message,
// rpc, and mint-validate keys, grounded on Config's rate tuning knobs.
func NewRateLimiter(cfg Config) *ratelimit.Limiter {
	rate := cfg.RateLimitPerSecond
	if rate <= 0 {
		rate = 10
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}
	return ratelimit.New(rate, burst)
}
