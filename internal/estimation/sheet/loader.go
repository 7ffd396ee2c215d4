package sheet

import (
	"errors"
	"sync"

	"github.com/wemb-pms/pms-backend/internal/estimation/calc"
	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
)

// Phase is the state of a SelectionLoader.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCatalogLoading
	PhaseCatalogLoaded
	PhaseSelectionResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCatalogLoading:
		return "catalog_loading"
	case PhaseCatalogLoaded:
		return "catalog_loaded"
	case PhaseSelectionResolved:
		return "selection_resolved"
	}
	return "unknown"
}

var (
	ErrLoaderPhase      = errors.New("selection loader: invalid phase transition")
	ErrSelectionPending = errors.New("selection loader: catalog not loaded")
)

// Weight table sources.
const (
	SourceCatalog = "catalog"
	SourcePayload = "payload"
)

// Resolution describes how a weight table and its selection were settled.
type Resolution struct {
	Source         string `json:"source"`
	RequestedID    *int64 `json:"requested_id,omitempty"`
	StaleSelection bool   `json:"stale_selection"`
}

// SelectionLoader settles a weight selection that may arrive before the table
// it refers to. The saved id is held as pending and applied only once the
// catalog has loaded, and only if the id exists in the winning table. A
// non-empty table stored with the estimation wins over the catalog no matter
// which one arrived first.
//
// Safe for concurrent use.
type SelectionLoader struct {
	mu       sync.Mutex
	phase    Phase
	catalog  []domain.WeightEntry
	payload  []domain.WeightEntry
	pending  *int64
	resolved *calc.WeightTable
	res      Resolution
}

func NewSelectionLoader() *SelectionLoader { return &SelectionLoader{} }

func (l *SelectionLoader) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// BeginCatalog marks the catalog fetch as started.
func (l *SelectionLoader) BeginCatalog() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != PhaseIdle {
		return ErrLoaderPhase
	}
	l.phase = PhaseCatalogLoading
	return nil
}

// CatalogLoaded records the catalog table.
func (l *SelectionLoader) CatalogLoaded(entries []domain.WeightEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != PhaseCatalogLoading {
		return ErrLoaderPhase
	}
	l.catalog = append([]domain.WeightEntry(nil), entries...)
	l.phase = PhaseCatalogLoaded
	return nil
}

// Restore records the table and selection saved with the estimation. It may be
// called in any phase before resolution. An empty table defers to the catalog.
func (l *SelectionLoader) Restore(table []domain.WeightEntry, selected *int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == PhaseSelectionResolved {
		return ErrLoaderPhase
	}
	l.payload = append([]domain.WeightEntry(nil), table...)
	if selected != nil {
		id := *selected
		l.pending = &id
	} else {
		l.pending = nil
	}
	return nil
}

// Resolve applies the pending selection to the winning table.
func (l *SelectionLoader) Resolve() (*calc.WeightTable, Resolution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.phase {
	case PhaseSelectionResolved:
		return l.resolved.Clone(), l.res, nil
	case PhaseCatalogLoaded:
	default:
		return nil, Resolution{}, ErrSelectionPending
	}

	res := Resolution{Source: SourceCatalog}
	entries := l.catalog
	if len(l.payload) > 0 {
		res.Source = SourcePayload
		entries = l.payload
	}
	t := calc.NewWeightTable(entries)
	if l.pending != nil {
		id := *l.pending
		res.RequestedID = &id
		if err := t.Select(id); err != nil {
			res.StaleSelection = true
		}
	}

	l.resolved = t
	l.res = res
	l.phase = PhaseSelectionResolved
	return t.Clone(), res, nil
}
