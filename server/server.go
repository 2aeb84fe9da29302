package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"gridmdp/atomic_float"
	"gridmdp/grid_world"
	"gridmdp/planning"
	"gridmdp/server/cell_views"
	"gridmdp/server/fastview"
	"gridmdp/server/root_view"

	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
)

const shutdownGracePeriod = 5 * time.Second

// Server serves a live view of a solve: the index page with the board's views, a websocket
// publishing their updates, and a json status of the solver's progress.
// The ele-update channel is shared, so updates are split among concurrently open pages.
type Server struct {
	addr     string
	rootView *root_view.RootView
	convert  func(planning.Snapshot) [][]cell_views.Cell
	progress *Progress

	mu         sync.Mutex
	lastUpdate [][]cell_views.Cell
}

// NewServer builds the views of board and starts consuming snapshots, which are
// dropped rather than blocking the sender while the views are busy.
func NewServer(
	ctx context.Context,
	addr string,
	board *grid_world.Board,
	tieEpsilon float64,
	snapshots <-chan planning.Snapshot,
) (*Server, error) {
	viewSnapshots := make(chan planning.Snapshot)
	rootView, err := root_view.NewRootView(ctx, board, tieEpsilon, viewSnapshots)
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}

	server := &Server{
		addr:     addr,
		rootView: rootView,
		convert:  cell_views.NewConverter(board, tieEpsilon),
		progress: NewProgress(),
	}
	server.lastUpdate = server.convert(planning.Snapshot{Values: board.InitialValues()})

	go func() {
		defer close(viewSnapshots)
		for snap := range channerics.OrDone(ctx.Done(), snapshots) {
			server.observe(snap)
			select {
			case viewSnapshots <- snap:
			default:
			}
		}
	}()

	return server, nil
}

// observe records snap as the latest state, for the gauges and for newly loaded pages.
func (server *Server) observe(snap planning.Snapshot) {
	server.progress.Observe(snap)
	cells := server.convert(snap)
	server.mu.Lock()
	server.lastUpdate = cells
	server.mu.Unlock()
}

func (server *Server) cells() [][]cell_views.Cell {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.lastUpdate
}

// Router returns the server's routes.
func (server *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	router.HandleFunc("/status", server.serveStatus).Methods(http.MethodGet)
	return router
}

// Serve listens on the server's address until ctx is cancelled.
func (server *Server) Serve(ctx context.Context) (err error) {
	srv := &http.Server{
		Addr:              server.addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Println("serving on", server.addr)
	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveWebsocket publishes the views' ele-updates to the client until it disconnects.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(server.rootView.Updates(), w, r)
	if err != nil {
		log.Println(err)
		return
	}
	if err = cli.Sync(); err != nil {
		log.Println("websocket:", err)
	}
}

// Serve the index.html main page, rendered with the latest state.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := renderTemplate(w, server.rootView, server.cells()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (server *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(server.progress.Status()); err != nil {
		log.Println("status:", err)
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}

// Progress holds gauges of the latest snapshots, readable while the solver runs.
type Progress struct {
	phase     atomic.Value
	round     *atomic_float.AtomicFloat64
	sweep     *atomic_float.AtomicFloat64
	delta     *atomic_float.AtomicFloat64
	peak      *atomic_float.AtomicFloat64
	snapshots *atomic_float.AtomicFloat64
}

func NewProgress() *Progress {
	p := &Progress{
		round:     atomic_float.NewAtomicFloat64(0),
		sweep:     atomic_float.NewAtomicFloat64(0),
		delta:     atomic_float.NewAtomicFloat64(0),
		peak:      atomic_float.NewAtomicFloat64(0),
		snapshots: atomic_float.NewAtomicFloat64(0),
	}
	p.phase.Store(planning.Phase(""))
	return p
}

// Observe updates the gauges from snap.
func (p *Progress) Observe(snap planning.Snapshot) {
	p.phase.Store(snap.Phase)
	p.round.AtomicSet(float64(snap.Round))
	p.sweep.AtomicSet(float64(snap.Sweep))
	p.delta.AtomicSet(snap.Delta)
	for _, row := range snap.Values {
		for _, val := range row {
			p.peak.AtomicMax(math.Abs(val))
		}
	}
	for {
		if _, ok := p.snapshots.AtomicAdd(1); ok {
			break
		}
	}
}

// Status is the json body of the /status endpoint.
type Status struct {
	Phase     planning.Phase `json:"phase"`
	Round     int            `json:"round"`
	Sweep     int            `json:"sweep"`
	Delta     float64        `json:"delta"`
	PeakValue float64        `json:"peakValue"`
	Snapshots int            `json:"snapshots"`
}

func (p *Progress) Status() Status {
	return Status{
		Phase:     p.phase.Load().(planning.Phase),
		Round:     int(p.round.AtomicRead()),
		Sweep:     int(p.sweep.AtomicRead()),
		Delta:     p.delta.AtomicRead(),
		PeakValue: p.peak.AtomicRead(),
		Snapshots: int(p.snapshots.AtomicRead()),
	}
}
