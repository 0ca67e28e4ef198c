package engine

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine bundles the assembled components for injection into the HTTP layer.
type Engine struct {
	Store    Store
	Calc     *CycleCalculator
	Ledger   *Ledger
	Settler  *SettlementEngine
	Notifier *Notifier
	Sweeper  *Sweeper
}

// Options configures New.
type Options struct {
	Location      *time.Location
	ChatRetention time.Duration
}

// New wires the engine on top of the database with an automatic volatile
// fallback: when the database becomes unreachable the ledger and
// notification stores degrade to in-memory for the rest of the process.
func New(db *gorm.DB, log *zap.SugaredLogger, opts Options) *Engine {
	store := NewFailoverStore(NewGormStore(db), NewMemStore(), log)
	calc := NewCycleCalculator(opts.Location)
	notifier := NewNotifier(store, log)
	settler := NewSettlementEngine(store, calc, notifier, log)
	sweeper := NewSweeper(SweeperDeps{
		Groups:        NewGormGroupSource(db),
		Store:         store,
		Calc:          calc,
		Settler:       settler,
		Notifier:      notifier,
		Log:           log,
		ChatRetention: opts.ChatRetention,
	})
	return &Engine{
		Store:    store,
		Calc:     calc,
		Ledger:   NewLedger(store, calc),
		Settler:  settler,
		Notifier: notifier,
		Sweeper:  sweeper,
	}
}
