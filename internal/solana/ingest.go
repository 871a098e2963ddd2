package solana

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"solana-token-lab/internal/observability"
	"solana-token-lab/internal/ratelimit"
)

// programSubscribeSpacing is the delay between successive
// logsSubscribe calls when fanning out to many programs, avoiding a
// burst of subscribe requests against providers that rate-limit the
// websocket handshake path itself.
const programSubscribeSpacing = 500 * time.Millisecond

// dedupSweepInterval is how often the ingestor purges stale dedup
// entries; dedupTTL is how long a signature is remembered.
const (
	dedupSweepInterval = 10 * time.Second
	dedupTTL           = 60 * time.Second
)

// ProgramDescriptor names one program to subscribe logs for.
type ProgramDescriptor struct {
	Name      string
	ProgramID Address32
}

// TaggedLogNotification is a LogNotification annotated with the
// program subscription that produced it.
type TaggedLogNotification struct {
	LogNotification
	Program string
}

// LogIngestor wraps a WSClient with the behavior a realtime multi-
// program pipeline needs beyond raw subscription: per-signature
// dedup, slot-staleness gating, and a message-rate throttle, on top
// of the teacher's WSClientImpl reconnect/resubscribe machinery.
type LogIngestor struct {
	ws      WSClient
	limiter *ratelimit.Limiter
	metrics *observability.Metrics

	dedupMu    sync.Mutex
	dedup      map[string]time.Time
	dedupCache DedupCache

	currentSlot int64
	slotMu      sync.Mutex

	done chan struct{}
}

// DedupCache optionally persists the dedup map's entries across
// restarts, e.g. persist.PostgresDedupCache. A LogIngestor with no
// configured cache runs the dedup map fully in-memory, per spec §5's
// "no transactions required" resource model.
type DedupCache interface {
	LoadRecent(ctx context.Context, ttlSeconds int64) (map[string]int64, error)
	Save(ctx context.Context, signature string, insertedAtUnix int64) error
}

// IngestorOption configures a LogIngestor.
type IngestorOption func(*LogIngestor)

// WithIngestRateLimiter throttles delivered messages through l, using
// the key "ws-message". Messages dropped by the limiter are counted
// against the program's "failures" metric with stage "rate_limited".
func WithIngestRateLimiter(l *ratelimit.Limiter) IngestorOption {
	return func(i *LogIngestor) { i.limiter = l }
}

// WithIngestMetrics attaches a Metrics instance recording per-program
// received/failure counters.
func WithIngestMetrics(m *observability.Metrics) IngestorOption {
	return func(i *LogIngestor) { i.metrics = m }
}

// WithDedupCache warms the in-memory dedup map from cache at
// construction and persists every newly-seen signature to it going
// forward.
func WithDedupCache(cache DedupCache) IngestorOption {
	return func(i *LogIngestor) { i.dedupCache = cache }
}

// NewLogIngestor wraps ws, an already-connected WSClient.
func NewLogIngestor(ws WSClient, opts ...IngestorOption) *LogIngestor {
	i := &LogIngestor{
		ws:    ws,
		dedup: make(map[string]time.Time),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.dedupCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if recent, err := i.dedupCache.LoadRecent(ctx, int64(dedupTTL.Seconds())); err == nil {
			i.dedupMu.Lock()
			for key, ts := range recent {
				i.dedup[key] = time.Unix(ts, 0)
			}
			i.dedupMu.Unlock()
		}
		cancel()
	}
	go i.dedupSweepLoop()
	return i
}

// UpdateSlot records the highest confirmed slot seen so far, used by
// SubscribeMany's staleness gate to drop notifications referencing a
// slot far behind the chain tip (a sign of a stalled or backfilling
// provider connection).
func (i *LogIngestor) UpdateSlot(slot int64) {
	i.slotMu.Lock()
	defer i.slotMu.Unlock()
	if slot > i.currentSlot {
		i.currentSlot = slot
	}
}

func (i *LogIngestor) staleness() int64 {
	i.slotMu.Lock()
	defer i.slotMu.Unlock()
	return i.currentSlot
}

// SubscribeMany subscribes to logs for every program in programs,
// staggering subscribe requests by programSubscribeSpacing, and
// returns a single merged, tagged, deduplicated channel.
func (i *LogIngestor) SubscribeMany(ctx context.Context, programs []ProgramDescriptor, maxSlotLag int64) (<-chan TaggedLogNotification, error) {
	out := make(chan TaggedLogNotification, 10000)
	var wg sync.WaitGroup

	for idx, prog := range programs {
		if idx > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(programSubscribeSpacing):
			}
		}

		ch, err := i.ws.SubscribeLogs(ctx, LogsFilter{Mentions: []string{prog.ProgramID.String()}})
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", prog.Name, err)
		}

		wg.Add(1)
		go i.forward(prog, ch, out, maxSlotLag, &wg)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

func (i *LogIngestor) forward(prog ProgramDescriptor, ch <-chan LogNotification, out chan<- TaggedLogNotification, maxSlotLag int64, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-i.done:
			return
		case notif, ok := <-ch:
			if !ok {
				return
			}

			if i.metrics != nil {
				i.metrics.ProgramLogsReceived.WithLabelValues(prog.Name).Inc()
			}

			if i.seen(notif.Signature) {
				continue
			}

			if maxSlotLag > 0 {
				tip := i.staleness()
				if tip > 0 && notif.Slot > 0 && tip-notif.Slot > maxSlotLag {
					if i.metrics != nil {
						i.metrics.ProgramLogsFailed.WithLabelValues(prog.Name, "stale_slot").Inc()
					}
					continue
				}
			}

			if i.limiter != nil && !i.limiter.TryAcquire("ws-message", 1) {
				if i.metrics != nil {
					i.metrics.ProgramLogsFailed.WithLabelValues(prog.Name, "rate_limited").Inc()
				}
				continue
			}

			select {
			case out <- TaggedLogNotification{LogNotification: notif, Program: prog.Name}:
			case <-i.done:
				return
			}
		}
	}
}

// seen reports whether signature has already been delivered within
// dedupTTL, recording it if not.
func (i *LogIngestor) seen(signature string) bool {
	key := dedupKey(signature)

	i.dedupMu.Lock()
	defer i.dedupMu.Unlock()

	if _, ok := i.dedup[key]; ok {
		return true
	}
	now := time.Now()
	i.dedup[key] = now
	if i.dedupCache != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = i.dedupCache.Save(ctx, key, now.Unix())
		}()
	}
	return false
}

// dedupKey hashes signature so the dedup map's memory footprint does
// not scale with signature string length under sustained load.
func dedupKey(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(sum[:16])
}

func (i *LogIngestor) dedupSweepLoop() {
	ticker := time.NewTicker(dedupSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-dedupTTL)
			i.dedupMu.Lock()
			for k, t := range i.dedup {
				if t.Before(cutoff) {
					delete(i.dedup, k)
				}
			}
			i.dedupMu.Unlock()
		}
	}
}

// Close stops the ingestor's background goroutines and the
// underlying websocket client.
func (i *LogIngestor) Close() error {
	select {
	case <-i.done:
	default:
		close(i.done)
	}
	return i.ws.Close()
}
