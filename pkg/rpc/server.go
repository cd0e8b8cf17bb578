// Package rpc is a small JSON-over-TCP RPC layer for service-to-service
// calls. Frames are newline-delimited JSON on a persistent connection.
// Errors travel as a code plus message, and the client maps codes back to
// the sentinels in pkg/errors so errors.Is keeps working across the wire.
//
//	s := rpc.NewServer()
//	s.Register("Catalog.Resolve", func(ctx context.Context, params json.RawMessage) (any, error) {...})
//	go s.Serve(":9100")
//
//	c, _ := rpc.Dial("localhost:9100")
//	var resp proto.ResolveResponse
//	err := c.Call(ctx, "Catalog.Resolve", &proto.ResolveRequest{Title: "Avatar"}, &resp)
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/goccy/go-json"

	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

// HandlerFunc processes one call and returns a JSON-encodable result.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

type Request struct {
	Method string          `json:"method"`
	ID     string          `json:"id"`
	Params json.RawMessage `json:"params"`
}

type Response struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

const (
	codeNotFound      = "not_found"
	codeInvalidIndex  = "invalid_index"
	codeInvalidInput  = "invalid_input"
	codeUnknownMethod = "unknown_method"
	codeUpstream      = "upstream"
	codeInternal      = "internal"
)

var codeSentinels = map[string]error{
	codeNotFound:     apperrors.ErrNotFound,
	codeInvalidIndex: apperrors.ErrInvalidIndex,
	codeInvalidInput: apperrors.ErrInvalidInput,
	codeUpstream:     apperrors.ErrUpstream,
	codeInternal:     apperrors.ErrInternal,
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return codeNotFound
	case errors.Is(err, apperrors.ErrInvalidIndex):
		return codeInvalidIndex
	case errors.Is(err, apperrors.ErrInvalidInput):
		return codeInvalidInput
	case errors.Is(err, apperrors.ErrUpstream):
		return codeUpstream
	default:
		return codeInternal
	}
}

type Server struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	listener net.Listener
	logger   *slog.Logger
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	connsMu  sync.Mutex
	conns    map[net.Conn]struct{}
}

func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handlers: make(map[string]HandlerFunc),
		logger:   slog.Default().With("component", "rpc-server"),
		ctx:      ctx,
		cancel:   cancel,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Register adds a handler. Method names follow "Service.Method".
func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
	s.logger.Debug("method registered", "method", method)
}

// Serve listens on addr and blocks until Stop.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.ServeListener(ln)
}

// ServeListener accepts on ln and blocks until Stop.
func (s *Server) ServeListener(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("rpc server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		s.track(conn, true)
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.track(conn, false)
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			return
		}
		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			s.logger.Error("write error", "method", req.Method, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{ID: req.ID}

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		resp.Error = fmt.Sprintf("unknown method: %s", req.Method)
		resp.Code = codeUnknownMethod
		return resp
	}

	data, err := handler(s.ctx, req.Params)
	if err != nil {
		resp.Error = err.Error()
		resp.Code = codeFor(err)
		return resp
	}
	raw, err := json.Marshal(data)
	if err != nil {
		resp.Error = fmt.Sprintf("encoding result: %v", err)
		resp.Code = codeInternal
		return resp
	}
	resp.Data = raw
	return resp
}

// MethodCount reports how many methods are registered.
func (s *Server) MethodCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// Stop closes the listener and open connections, then waits for
// in-flight calls to finish.
func (s *Server) Stop() {
	s.cancel()
	s.mu.RLock()
	ln := s.listener
	s.mu.RUnlock()
	if ln != nil {
		ln.Close()
	}
	s.connsMu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.connsMu.Unlock()
	s.wg.Wait()
	s.logger.Info("rpc server stopped")
}
