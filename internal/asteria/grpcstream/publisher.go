package grpcstream

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Config holds the gRPC publisher's listen address and client limits.
type Config struct {
	ListenAddr string
	MaxClients int
}

// DefaultConfig returns sensible defaults for a single-station deployment.
func DefaultConfig() Config {
	return Config{ListenAddr: "localhost:50151", MaxClients: 5}
}

// clientStream is one connected StreamClips subscriber.
type clientStream struct {
	id     string
	events chan ClipEvent
	doneCh chan struct{}
}

// Publisher runs a gRPC server that fans ClipEvents out to every
// connected StreamClips subscriber, grounded on
// internal/lidar/visualiser/publisher.go's Publisher (buffered
// frameChan, per-client buffered channel, broadcastLoop goroutine,
// atomic running/client counters).
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	eventChan chan ClipEvent
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	eventCount  atomic.Uint64
	clientCount atomic.Int32
	running     atomic.Bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewPublisher creates a Publisher with cfg, not yet listening.
func NewPublisher(cfg Config) *Publisher {
	return &Publisher{
		config:    cfg,
		eventChan: make(chan ClipEvent, 100),
		clients:   make(map[string]*clientStream),
		stopCh:    make(chan struct{}),
	}
}

// Start opens the listener, registers the ClipStream service, and begins
// serving and broadcasting in background goroutines.
func (p *Publisher) Start() error {
	if p.running.Load() {
		return fmt.Errorf("grpcstream: publisher already running")
	}

	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("grpcstream: listen on %s: %w", p.config.ListenAddr, err)
	}
	p.listener = lis

	p.server = grpc.NewServer()
	RegisterClipStreamServer(p.server, p)
	p.running.Store(true)

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		opsf("grpc server listening on %s", p.config.ListenAddr)
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			opsf("grpc server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the gRPC server down and waits for its goroutines.
func (p *Publisher) Stop() {
	if !p.running.Load() {
		return
	}
	p.running.Store(false)
	close(p.stopCh)

	if p.server != nil {
		p.server.GracefulStop()
	}
	if p.listener != nil {
		p.listener.Close()
	}
	p.wg.Wait()
	diagf("grpc server stopped")
}

// Publish fans a ClipEvent out to every connected subscriber, dropping
// (not blocking) if the shared channel is full.
func (p *Publisher) Publish(event ClipEvent) {
	if !p.running.Load() {
		return
	}
	select {
	case p.eventChan <- event:
		p.eventCount.Add(1)
	default:
		opsf("dropping clip event %s, publish channel full", event.ClipID)
	}
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case event := <-p.eventChan:
			p.clientsMu.RLock()
			for _, c := range p.clients {
				select {
				case c.events <- event:
				default:
					opsf("client %s slow, dropping clip event %s", c.id, event.ClipID)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

func (p *Publisher) addClient(id string) *clientStream {
	c := &clientStream{id: id, events: make(chan ClipEvent, 10), doneCh: make(chan struct{})}
	p.clientsMu.Lock()
	p.clients[id] = c
	p.clientsMu.Unlock()
	p.clientCount.Add(1)
	diagf("client connected: %s (total %d)", id, p.clientCount.Load())
	return c
}

func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if c, ok := p.clients[id]; ok {
		close(c.doneCh)
		delete(p.clients, id)
		p.clientCount.Add(-1)
		diagf("client disconnected: %s (remaining %d)", id, p.clientCount.Load())
	}
}

// Stats reports current publisher counters, for wiring into
// internal/asteria/telemetry if an operator wants a combined dashboard.
type Stats struct {
	EventCount  uint64
	ClientCount int32
	Running     bool
}

// Stats returns a snapshot of the publisher's counters.
func (p *Publisher) Stats() Stats {
	return Stats{
		EventCount:  p.eventCount.Load(),
		ClientCount: p.clientCount.Load(),
		Running:     p.running.Load(),
	}
}

// StreamClips implements ClipStreamServer, registered via the hand-built
// ServiceDesc in service.go. req is currently unused (no filter fields
// defined yet) but kept to match the RPC's request/response shape.
func (p *Publisher) StreamClips(req *wrapperspb.StringValue, stream ClipStreamSendStream) error {
	clientID := req.GetValue()
	if clientID == "" {
		clientID = fmt.Sprintf("client-%d", p.clientCount.Load()+1)
	}
	c := p.addClient(clientID)
	defer p.removeClient(clientID)

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case <-p.stopCh:
			return nil
		case event := <-c.events:
			msg, err := event.ToStruct()
			if err != nil {
				opsf("encode clip event %s: %v", event.ClipID, err)
				continue
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}
