package closure

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/domain/models"
	"github.com/dvbernardes/pastelbot/internal/repository/ledger"
	"github.com/dvbernardes/pastelbot/internal/repository/mongodb"
	"github.com/dvbernardes/pastelbot/internal/service/reporting"
)

// ErrNoPendingClosure indicates a decision arrived with no pending closure
// context for the session (expired, cancelled or never started).
var ErrNoPendingClosure = errors.New("no pending closure for session")

// Phase is the closure workflow state.
type Phase int

const (
	PhaseReporting Phase = iota
	PhaseAwaitingDecision
	PhaseDone
	PhaseCancelled
)

// Decision resolves an awaiting closure.
type Decision int

const (
	// DecisionAccept rolls the leftovers into tomorrow's opening stock.
	DecisionAccept Decision = iota
	// DecisionDecline commits the closure and discards the leftovers,
	// removing any carryover a superseded closure of the same date created.
	DecisionDecline
	// DecisionCancel abandons the workflow without persisting anything.
	DecisionCancel
)

// Outcome reports where the workflow landed and the report it produced.
type Outcome struct {
	Phase  Phase
	Report models.DailyReport
}

const pendingTTL = 30 * time.Minute

// Service orchestrates the end-of-day closure: report generation, leftover
// detection, the carryover decision and the durable commit. Closing the same
// date twice replaces the prior closure record.
type Service struct {
	store     *ledger.Store
	reporting *reporting.Service
	sessions  *SessionManager
	archive   mongodb.Archiver
	business  config.BusinessConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs the closure workflow. archive may be nil to disable
// the history mirror.
func NewService(store *ledger.Store, reportingSvc *reporting.Service, archive mongodb.Archiver, business config.BusinessConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		reporting: reportingSvc,
		sessions:  NewSessionManager(pendingTTL),
		archive:   archive,
		business:  business,
		logger:    logger,
		now:       time.Now,
	}
}

// Begin builds today's report and either commits the closure immediately
// (no leftovers, including the stock-undeclared case) or parks it awaiting
// the operator's carryover decision. An I/O failure while reporting aborts
// with nothing persisted.
func (s *Service) Begin(ctx context.Context, sessionID string) (Outcome, error) {
	today := models.CivilDay(s.now(), s.business.Location)

	report, err := s.reporting.BuildDailyReport(ctx, today)
	if err != nil {
		return Outcome{Phase: PhaseReporting}, err
	}

	if report.StockDeclared && report.HasLeftovers() {
		s.sessions.Put(sessionID, report)
		s.logger.Info("closure awaiting carryover decision",
			zap.String("session", sessionID),
			zap.String("date", today.Format(models.DateLayout)))
		return Outcome{Phase: PhaseAwaitingDecision, Report: report}, nil
	}

	err = s.store.Exclusive(func() error {
		return s.replaceClosure(ctx, report.Closure())
	})
	if err != nil {
		return Outcome{Phase: PhaseReporting, Report: report}, err
	}

	s.archiveClosure(ctx, report.Closure())
	s.logger.Info("closure committed without leftovers",
		zap.String("date", today.Format(models.DateLayout)))
	return Outcome{Phase: PhaseDone, Report: report}, nil
}

// Resolve applies the operator's decision to the session's pending closure.
// A persistence failure keeps the pending context so the same decision can
// be retried; cancel discards it without writing anything.
func (s *Service) Resolve(ctx context.Context, sessionID string, decision Decision) (Outcome, error) {
	report, ok := s.sessions.Get(sessionID)
	if !ok {
		return Outcome{}, ErrNoPendingClosure
	}

	if decision == DecisionCancel {
		s.sessions.Clear(sessionID)
		s.logger.Info("closure cancelled", zap.String("session", sessionID))
		return Outcome{Phase: PhaseCancelled, Report: report}, nil
	}

	err := s.store.Exclusive(func() error {
		if err := s.replaceClosure(ctx, report.Closure()); err != nil {
			return err
		}
		return s.applyCarryover(ctx, report, decision == DecisionAccept)
	})
	if err != nil {
		// Pending context stays so the operator can retry the decision.
		return Outcome{Phase: PhaseAwaitingDecision, Report: report}, err
	}

	s.sessions.Clear(sessionID)
	s.archiveClosure(ctx, report.Closure())
	s.logger.Info("closure committed",
		zap.String("date", report.Date.Format(models.DateLayout)),
		zap.Bool("carryover", decision == DecisionAccept))
	return Outcome{Phase: PhaseDone, Report: report}, nil
}

// replaceClosure commits the record, superseding any prior closure of the
// same date. Must run inside the store's exclusive lock.
func (s *Service) replaceClosure(ctx context.Context, record models.ClosureRecord) error {
	closures, err := s.store.LoadClosures(ctx)
	if err != nil {
		return err
	}

	kept := closures[:0]
	for _, existing := range closures {
		if models.SameDay(existing.Date, record.Date) {
			continue
		}
		kept = append(kept, existing)
	}
	return s.store.SaveClosures(ctx, append(kept, record))
}

// applyCarryover writes (accept) or removes (decline) tomorrow's opening
// entries for every flavor with leftover > 0. Flavors with zero leftover are
// never written. Must run inside the store's exclusive lock.
func (s *Service) applyCarryover(ctx context.Context, report models.DailyReport, accept bool) error {
	leftovers := report.Leftovers()
	tomorrow := report.Date.AddDate(0, 0, 1)

	stock, err := s.store.LoadStock(ctx)
	if err != nil {
		return err
	}

	kept := stock[:0]
	for _, entry := range stock {
		if models.SameDay(entry.Date, tomorrow) && leftovers[entry.Flavor] > 0 {
			continue
		}
		kept = append(kept, entry)
	}

	if accept {
		for _, flavor := range s.business.Flavors {
			if qty := leftovers[flavor]; qty > 0 {
				kept = append(kept, models.StockEntry{Date: tomorrow, Flavor: flavor, Initial: qty})
			}
		}
	}

	return s.store.SaveStock(ctx, kept)
}

func (s *Service) archiveClosure(ctx context.Context, record models.ClosureRecord) {
	if s.archive == nil {
		return
	}
	if err := s.archive.ArchiveClosure(ctx, record); err != nil {
		s.logger.Warn("closure archive failed", zap.Error(err))
	}
}
