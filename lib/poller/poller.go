// Package poller drives the fetch -> detect -> dispatch -> advance-cursor
// cycle. Each monitored service gets its own loop on its own timer, so a
// slow or failing service never delays the others; cycles within one
// service never overlap.
package poller

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fiffu/arrwatch/config"
	"github.com/fiffu/arrwatch/lib/detect"
	"github.com/fiffu/arrwatch/lib/models"
	"github.com/fiffu/arrwatch/lib/store"
	"github.com/fiffu/arrwatch/lib/upstream"
	"github.com/fiffu/arrwatch/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// How often the supervisor re-lists connections, so adding or removing a
// service takes effect without a restart.
const superviseInterval = 15 * time.Second

type EventSink interface {
	Dispatch(ctx context.Context, events []models.Event)
}

type Poller struct {
	cfg      *config.Config
	log      *zap.Logger
	conns    *store.ConnectionStore
	cursors  *store.CursorStore
	detector *detect.Detector
	sink     EventSink

	newClient func(models.ServiceConnection) (upstream.Client, error)

	mu     sync.Mutex
	loops  map[uint]*loop
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type loop struct {
	conn   models.ServiceConnection
	client upstream.Client
	state  *serviceState
	cancel context.CancelFunc
}

func NewPoller(
	lc fx.Lifecycle,
	log *zap.Logger,
	cfg *config.Config,
	conns *store.ConnectionStore,
	cursors *store.CursorStore,
	detector *detect.Detector,
	dispatcher *senders.Dispatcher,
	transport http.RoundTripper,
) *Poller {
	p := &Poller{
		cfg:      cfg,
		log:      log,
		conns:    conns,
		cursors:  cursors,
		detector: detector,
		sink:     dispatcher,
		newClient: func(conn models.ServiceConnection) (upstream.Client, error) {
			return upstream.NewClient(conn, transport, log)
		},
		loops: make(map[uint]*loop),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Stop()
			return nil
		},
	})

	return p
}

func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.supervise(ctx)
	p.log.Sugar().Info("Poller started")
}

// Stop quits issuing new cycles and waits for in-flight ones up to the
// grace period. An abandoned cycle persists nothing: its context is
// cancelled, so the cursor write fails instead of committing partially.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Sugar().Info("Poller stopped")
	case <-time.After(p.cfg.ShutdownGrace()):
		p.log.Sugar().Warn("Poller shutdown grace elapsed, abandoning in-flight cycles")
	}
}

func (p *Poller) supervise(ctx context.Context) {
	defer p.wg.Done()

	p.reconcile(ctx)
	ticker := time.NewTicker(superviseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reconcile(ctx)
		}
	}
}

// reconcile aligns running loops with the connection table: new connections
// get a loop, removed ones are cancelled, edited ones are restarted.
func (p *Poller) reconcile(ctx context.Context) {
	conns, err := p.conns.List(ctx)
	if err != nil {
		p.log.Sugar().Errorw("Failed to list service connections", "err", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	want := make(map[uint]models.ServiceConnection, len(conns))
	for _, conn := range conns {
		want[conn.ID] = conn
	}

	for id, lp := range p.loops {
		conn, ok := want[id]
		if ok && conn.UpdatedAt.Equal(lp.conn.UpdatedAt) {
			continue
		}
		lp.cancel()
		delete(p.loops, id)
		if !ok {
			p.log.Sugar().Infow("Stopped polling removed service", "service", lp.conn.Name)
		}
	}

	for id, conn := range want {
		if _, ok := p.loops[id]; ok {
			continue
		}
		client, err := p.newClient(conn)
		if err != nil {
			p.log.Sugar().Errorw("Failed to build upstream client", "service", conn.Name, "err", err)
			continue
		}

		loopCtx, cancel := context.WithCancel(ctx)
		lp := &loop{conn: conn, client: client, state: &serviceState{}, cancel: cancel}
		p.loops[id] = lp

		p.wg.Add(1)
		go p.run(loopCtx, lp)
		p.log.Sugar().Infow("Started polling service", "service", conn.Name, "kind", conn.Kind)
	}
}

func (p *Poller) run(ctx context.Context, lp *loop) {
	defer p.wg.Done()

	p.tick(ctx, lp)
	for {
		// The interval is re-read every iteration so a settings change
		// applies on the next tick.
		timer := time.NewTimer(p.cfg.PollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.tick(ctx, lp)
		}
	}
}

func (p *Poller) tick(ctx context.Context, lp *loop) {
	if !lp.state.tryBegin(time.Now().UTC()) {
		p.log.Sugar().Warnw("Skipping tick, previous cycle still running", "service", lp.conn.Name)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		err := p.runCycle(ctx, lp)
		lp.state.end(time.Now().UTC(), err)
	}()
}
