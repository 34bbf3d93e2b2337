package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory repos backing the full-stack tests. Writes issued inside a
// transaction are staged on the memTx and only applied on Commit, so the
// rollback-on-failed-precondition behavior of the real storage layer holds.
// The transactor serializes transactions with one global lock, a coarse
// stand-in for row-level FOR UPDATE locking.

// --- Transactor ---

type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &memTx{release: &t.mu}, nil
}

// memTx stages writes until Commit. Rollback (and the deferred Rollback that
// follows a Commit) discards whatever is still staged.
type memTx struct {
	noopTx
	release *sync.Mutex
	writes  []func()
	done    bool
}

func (t *memTx) Commit(ctx context.Context) error {
	for _, w := range t.writes {
		w()
	}
	return t.finish()
}

func (t *memTx) Rollback(ctx context.Context) error {
	return t.finish()
}

func (t *memTx) finish() error {
	if t.done {
		return nil
	}
	t.done = true
	t.writes = nil
	t.release.Unlock()
	return nil
}

// stage queues a write on the transaction; writes issued outside any memTx
// apply immediately.
func stage(tx pgx.Tx, w func()) {
	if m, ok := tx.(*memTx); ok {
		m.writes = append(m.writes, w)
		return
	}
	w()
}

// noopTx fills out the pgx.Tx surface the repos never touch.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.Address]; ok {
		return fmt.Errorf("address already exists")
	}
	a := *account
	r.accounts[account.Address] = &a
	return nil
}

func (r *inMemoryAccountRepo) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[address]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, address string) (*domain.Account, error) {
	return r.GetByAddress(ctx, address)
}

func (r *inMemoryAccountRepo) Update(ctx context.Context, tx pgx.Tx, account *domain.Account) error {
	a := *account
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.accounts[a.Address] = &a
	})
	return nil
}

// --- In-Memory Hold Repo ---

type inMemoryHoldRepo struct {
	mu    sync.RWMutex
	holds map[string]*domain.Hold
}

func newInMemoryHoldRepo() *inMemoryHoldRepo {
	return &inMemoryHoldRepo{holds: make(map[string]*domain.Hold)}
}

func (r *inMemoryHoldRepo) Create(ctx context.Context, tx pgx.Tx, hold *domain.Hold) error {
	h := *hold
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.holds[h.OperationID] = &h
	})
	return nil
}

func (r *inMemoryHoldRepo) GetByID(ctx context.Context, operationID string) (*domain.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holds[operationID]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (r *inMemoryHoldRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, operationID string) (*domain.Hold, error) {
	return r.GetByID(ctx, operationID)
}

func (r *inMemoryHoldRepo) Exists(ctx context.Context, operationID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.holds[operationID]
	return ok, nil
}

func (r *inMemoryHoldRepo) Resolve(ctx context.Context, tx pgx.Tx, operationID string, status domain.HoldStatus, reason string, resolvedAt time.Time) error {
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		h, ok := r.holds[operationID]
		if !ok || h.Status != domain.HoldStatusOrdered {
			return
		}
		h.Status = status
		h.ReleaseReason = reason
		h.ResolvedAt = &resolvedAt
	})
	return nil
}

func (r *inMemoryHoldRepo) UpdateExpiration(ctx context.Context, tx pgx.Tx, operationID string, expiration *time.Time) error {
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		h, ok := r.holds[operationID]
		if !ok || h.Status != domain.HoldStatusOrdered {
			return
		}
		h.Expiration = expiration
	})
	return nil
}

// --- In-Memory Operation Repo ---

type inMemoryOperationRepo struct {
	mu  sync.RWMutex
	ops map[string]*domain.Operation
}

func newInMemoryOperationRepo() *inMemoryOperationRepo {
	return &inMemoryOperationRepo{ops: make(map[string]*domain.Operation)}
}

func (r *inMemoryOperationRepo) Create(ctx context.Context, tx pgx.Tx, op *domain.Operation) error {
	o := *op
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.ops[o.OperationID] = &o
	})
	return nil
}

func (r *inMemoryOperationRepo) GetByID(ctx context.Context, operationID string) (*domain.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.ops[operationID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOperationRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, operationID string) (*domain.Operation, error) {
	return r.GetByID(ctx, operationID)
}

func (r *inMemoryOperationRepo) Exists(ctx context.Context, operationID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ops[operationID]
	return ok, nil
}

func (r *inMemoryOperationRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, operationID string, status domain.OperationStatus, reason string) error {
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		o, ok := r.ops[operationID]
		if !ok {
			return
		}
		o.Status = status
		o.Reason = reason
		o.UpdatedAt = time.Now().UTC()
	})
	return nil
}

func (r *inMemoryOperationRepo) List(ctx context.Context, params ports.OperationListParams) ([]domain.Operation, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Operation
	for _, o := range r.ops {
		if params.Address != "" && o.Orderer != params.Address && o.From != params.Address && o.Target != params.Address {
			continue
		}
		if params.Kind != nil && o.Kind != *params.Kind {
			continue
		}
		if params.Status != nil && o.Status != *params.Status {
			continue
		}
		result = append(result, *o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Operation{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Role Repo ---

type inMemoryRoleRepo struct {
	mu        sync.RWMutex
	roles     map[string]map[domain.Role]bool
	approvals map[string]bool
}

func newInMemoryRoleRepo() *inMemoryRoleRepo {
	return &inMemoryRoleRepo{
		roles:     make(map[string]map[domain.Role]bool),
		approvals: make(map[string]bool),
	}
}

func approvalKey(wallet, delegate string, capability domain.Capability) string {
	return wallet + "|" + delegate + "|" + string(capability)
}

func (r *inMemoryRoleRepo) HasRole(ctx context.Context, address string, role domain.Role) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles[address][role], nil
}

func (r *inMemoryRoleRepo) ListRoles(ctx context.Context, address string) ([]domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Role
	for role, ok := range r.roles[address] {
		if ok {
			out = append(out, role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *inMemoryRoleRepo) Grant(ctx context.Context, tx pgx.Tx, address string, role domain.Role) error {
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.roles[address] == nil {
			r.roles[address] = make(map[domain.Role]bool)
		}
		r.roles[address][role] = true
	})
	return nil
}

func (r *inMemoryRoleRepo) Revoke(ctx context.Context, tx pgx.Tx, address string, role domain.Role) error {
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.roles[address], role)
	})
	return nil
}

func (r *inMemoryRoleRepo) IsApprovedOperator(ctx context.Context, wallet, delegate string, capability domain.Capability) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.approvals[approvalKey(wallet, delegate, capability)], nil
}

func (r *inMemoryRoleRepo) Approve(ctx context.Context, tx pgx.Tx, wallet, delegate string, capability domain.Capability) error {
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.approvals[approvalKey(wallet, delegate, capability)] = true
	})
	return nil
}

func (r *inMemoryRoleRepo) RevokeApproval(ctx context.Context, tx pgx.Tx, wallet, delegate string, capability domain.Capability) error {
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.approvals, approvalKey(wallet, delegate, capability))
	})
	return nil
}

// --- In-Memory Event Repo ---

type inMemoryEventRepo struct {
	mu     sync.RWMutex
	events []domain.Event
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{}
}

func (r *inMemoryEventRepo) Append(ctx context.Context, tx pgx.Tx, event *domain.Event) error {
	ev := *event
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	})
	return nil
}

func (r *inMemoryEventRepo) ListByOperation(ctx context.Context, operationID string) ([]domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Event
	for _, ev := range r.events {
		if ev.OperationID == operationID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// --- In-Memory Settings Repo ---

type inMemorySettingsRepo struct {
	mu     sync.RWMutex
	engine string
}

func newInMemorySettingsRepo() *inMemorySettingsRepo {
	return &inMemorySettingsRepo{}
}

func (r *inMemorySettingsRepo) GetInterestEngine(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine, nil
}

func (r *inMemorySettingsRepo) SetInterestEngine(ctx context.Context, tx pgx.Tx, address string) error {
	stage(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.engine = address
	})
	return nil
}
