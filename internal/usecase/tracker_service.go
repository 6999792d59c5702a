package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vitos/signal_tracker/internal/domain"
	"go.uber.org/zap"
)

// TrackerService owns the active signal map and runs the reconciliation
// cycle: diff the fresh snapshot against the previous one, resolve each
// detected close against the deal buffer, apply the mutation, and hand fully
// closed records to the archiver.
//
// One mutex serializes whole poll cycles and out-of-band push mutations, so
// all mutations for a given code are strictly ordered. The deal buffer has
// its own lock and keeps accepting events while a cycle runs.
type TrackerService struct {
	source   domain.PositionSource
	repo     domain.SignalRepository
	buffer   *DealBuffer
	differ   *SnapshotDiffer
	matcher  *DealMatcher
	archiver *HistoryArchiver
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	signals map[string]*domain.SignalRecord
	prev    map[string]*domain.PositionSnapshot
}

func NewTrackerService(
	source domain.PositionSource,
	repo domain.SignalRepository,
	buffer *DealBuffer,
	archiver *HistoryArchiver,
	logger *zap.Logger,
) *TrackerService {
	return &TrackerService{
		source:   source,
		repo:     repo,
		buffer:   buffer,
		differ:   NewSnapshotDiffer(),
		matcher:  NewDealMatcher(buffer),
		archiver: archiver,
		logger:   logger,
		now:      time.Now,
		signals:  make(map[string]*domain.SignalRecord),
		prev:     make(map[string]*domain.PositionSnapshot),
	}
}

// Warm loads the active signal set from durable storage at process start.
func (s *TrackerService) Warm(ctx context.Context) error {
	records, err := s.repo.ListSignals(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.signals[r.Code] = r
	}
	s.logger.Info("Warmed active signals", zap.Int("count", len(records)))
	return nil
}

// Poll runs one reconciliation cycle against a fresh snapshot. A fetch
// failure skips the cycle entirely: no snapshot is never treated as all
// positions closed.
func (s *TrackerService) Poll(ctx context.Context) error {
	snapshot, err := s.source.GetPositions(ctx)
	if err != nil {
		s.logger.Warn("Snapshot fetch failed, skipping cycle", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconcile(ctx, snapshot)
	return nil
}

// Sync is the defensive on-demand reconciliation: a normal cycle plus a sweep
// closing any tracked signal the bridge no longer reports open. The sweep
// covers closes that happened while the tracker was down, which a plain poll
// cannot see because its previous snapshot predates them.
func (s *TrackerService) Sync(ctx context.Context) error {
	snapshot, err := s.source.GetPositions(ctx)
	if err != nil {
		s.logger.Warn("Snapshot fetch failed, skipping sync", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconcile(ctx, snapshot)

	for code, record := range s.signals {
		if _, open := s.prev[code]; open {
			continue
		}
		s.applyFullClose(ctx, DiffEvent{
			Kind:       DiffFullClose,
			Code:       code,
			PrevVolume: record.LiveVolume,
			PrevProfit: record.LiveProfit,
			PrevPrice:  record.LivePrice,
		})
	}
	return nil
}

// reconcile applies one snapshot to the tracked state. Caller holds s.mu.
func (s *TrackerService) reconcile(ctx context.Context, snapshot []*domain.PositionSnapshot) {
	events := s.differ.Diff(s.prev, snapshot)
	for _, ev := range events {
		s.apply(ctx, ev)
	}

	current := make(map[string]*domain.PositionSnapshot, len(snapshot))
	for _, entry := range snapshot {
		if entry.Code != "" {
			current[entry.Code] = entry
		}
	}
	s.prev = current
}

// apply executes one diff event as a single mutation. Caller holds s.mu.
func (s *TrackerService) apply(ctx context.Context, ev DiffEvent) {
	switch ev.Kind {
	case DiffOpened:
		s.applyOpened(ctx, ev.Entry)
	case DiffUpdated:
		s.applyUpdated(ctx, ev.Entry)
	case DiffPartialClose:
		s.applyPartialClose(ctx, ev)
	case DiffFullClose:
		s.applyFullClose(ctx, ev)
	}
}

func (s *TrackerService) applyOpened(ctx context.Context, entry *domain.PositionSnapshot) {
	if existing, ok := s.signals[entry.Code]; ok {
		// Already tracked via a push event or warmed state; refresh only.
		s.refreshLive(ctx, existing, entry)
		return
	}

	record := newSignalRecord(entry)
	s.signals[record.Code] = record
	s.persist(ctx, record)
	s.logger.Info("Signal opened",
		zap.String("code", record.Code),
		zap.String("symbol", record.Symbol),
		zap.Float64("volume", record.OpenVolume))
}

func (s *TrackerService) applyUpdated(ctx context.Context, entry *domain.PositionSnapshot) {
	record, ok := s.signals[entry.Code]
	if !ok {
		return
	}
	s.refreshLive(ctx, record, entry)
}

func (s *TrackerService) applyPartialClose(ctx context.Context, ev DiffEvent) {
	record, ok := s.signals[ev.Code]
	if !ok {
		s.logger.Warn("Partial close for untracked code", zap.String("code", ev.Code))
		return
	}

	res := s.matcher.ResolvePartial(ev)
	record.Actions = append(record.Actions, domain.ActionRecord{
		Kind:            domain.ActionPartialClose,
		ClosedVolume:    ev.ClosedVolume,
		RemainingVolume: ev.RemainingVolume,
		Profit:          res.Profit,
		Price:           res.Price,
		Estimated:       res.Estimated,
		OccurredAt:      s.now(),
	})
	record.LiveVolume = ev.Entry.Volume
	record.LivePrice = ev.Entry.CurrentPrice
	record.LiveProfit = ev.Entry.Profit
	s.persist(ctx, record)
	s.logger.Info("Partial close",
		zap.String("code", ev.Code),
		zap.Float64("closedVolume", ev.ClosedVolume),
		zap.Float64("profit", res.Profit),
		zap.Bool("estimated", res.Estimated))
}

func (s *TrackerService) applyFullClose(ctx context.Context, ev DiffEvent) {
	record, ok := s.signals[ev.Code]
	if !ok || record.Status == domain.StatusClosed {
		return
	}

	res := s.matcher.ResolveFull(ev)
	record.Actions = append(record.Actions, domain.ActionRecord{
		Kind:         domain.ActionClosed,
		ClosedVolume: ev.PrevVolume,
		Profit:       res.Profit,
		Price:        res.Price,
		Estimated:    res.Estimated,
		OccurredAt:   s.now(),
	})
	record.Status = domain.StatusClosed
	record.ClosePrice = res.Price
	record.CloseProfit = record.ActionProfitSum()
	record.CloseTime = s.now()

	s.archiver.Archive(ctx, record)
	delete(s.signals, ev.Code)
	if err := s.repo.DeleteSignal(ctx, ev.Code); err != nil {
		s.logger.Error("Failed to delete closed signal", zap.String("code", ev.Code), zap.Error(err))
	}
	s.logger.Info("Signal closed",
		zap.String("code", ev.Code),
		zap.Float64("closeProfit", record.CloseProfit),
		zap.Bool("estimated", res.Estimated))
}

func (s *TrackerService) refreshLive(ctx context.Context, record *domain.SignalRecord, entry *domain.PositionSnapshot) {
	record.LiveVolume = entry.Volume
	record.LivePrice = entry.CurrentPrice
	record.LiveProfit = entry.Profit
	s.persist(ctx, record)
}

// persist writes through to durable storage. Failures are logged and do not
// roll back the in-memory mutation; the next write corrects the store.
func (s *TrackerService) persist(ctx context.Context, record *domain.SignalRecord) {
	if err := s.repo.SaveSignal(ctx, record); err != nil {
		s.logger.Error("Failed to persist signal", zap.String("code", record.Code), zap.Error(err))
	}
}

// HandlePositionOpened upserts a signal from an out-of-band position_opened
// push event, ahead of the poll that will confirm it. Keyed by code, so the
// confirming poll is a no-op.
func (s *TrackerService) HandlePositionOpened(ctx context.Context, entry *domain.PositionSnapshot) {
	if entry.Code == "" {
		s.logger.Warn("Opened event without derivable code", zap.String("rawId", entry.RawID))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyOpened(ctx, entry)
}

// HandleDealClosed buffers a deal-closed push event for matching.
func (s *TrackerService) HandleDealClosed(event *domain.DealEvent) {
	if !s.buffer.Ingest(event) {
		s.logger.Debug("Duplicate deal event ignored", zap.String("key", event.DedupKey()))
		return
	}
	s.logger.Info("Deal buffered",
		zap.String("positionId", event.PositionID),
		zap.Float64("profit", event.Profit),
		zap.Float64("volume", event.Volume))
}

// ActiveSignals returns a point-in-time copy of the active set, most
// recently opened first. Records are deep copies: the reconcile loop keeps
// mutating the tracked originals after the lock is released.
func (s *TrackerService) ActiveSignals() []*domain.SignalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.SignalRecord, 0, len(s.signals))
	for _, r := range s.signals {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenTime.After(out[j].OpenTime)
	})
	return out
}

// ActiveProfit sums unrealized profit across the active set.
func (s *TrackerService) ActiveProfit() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum float64
	for _, r := range s.signals {
		sum += r.LiveProfit
	}
	return sum
}

func newSignalRecord(entry *domain.PositionSnapshot) *domain.SignalRecord {
	return &domain.SignalRecord{
		Code:       entry.Code,
		Symbol:     entry.Symbol,
		Direction:  entry.Direction,
		OpenPrice:  entry.OpenPrice,
		OpenVolume: entry.Volume,
		OpenTime:   entry.OpenTime,
		Status:     domain.StatusActive,
		Actions:    []domain.ActionRecord{},
		LiveVolume: entry.Volume,
		LivePrice:  entry.CurrentPrice,
		LiveProfit: entry.Profit,
	}
}
