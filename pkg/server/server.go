// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

// Package server publishes notification documents to gRPC subscribers.
package server

import (
	"context"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	pb "github.com/nttcom/dhcp6notify/api/notify/v1"
	"github.com/nttcom/dhcp6notify/pkg/document"
	"github.com/nttcom/dhcp6notify/pkg/notifier"
)

const DefaultQueueSize = 16

type Options struct {
	GrpcAddr  string
	GrpcPort  string
	Object    string // e.g. odhcp6c.wan
	QueueSize int
}

// Source builds a document from the current state. The caller releases it.
type Source func() (*document.Document, error)

type SubscriberGauge interface {
	SetSubscribers(n int)
}

// Server is the notification bus. Every open Subscribe stream is a Session
// with its own queue; a session that falls a full queue behind is closed.
type Server struct {
	mu        sync.RWMutex
	sessions  map[uint64]*Session
	nextID    uint64
	object    string
	queueSize int
	source    Source
	gauge     SubscriberGauge
	logger    *zap.Logger
}

var _ notifier.Bus = (*Server)(nil)

func NewServer(o *Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := o.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Server{
		sessions:  make(map[uint64]*Session),
		object:    o.Object,
		queueSize: size,
		logger:    logger.With(zap.String("server", "grpc")),
	}
}

// SetSource sets what GetState answers with.
func (s *Server) SetSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

func (s *Server) SetSubscriberGauge(g SubscriberGauge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gauge = g
}

func (s *Server) HasSubscribers() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions) > 0
}

// Notify queues doc, wrapped with status and the object name, on every
// open session. doc is converted before Notify returns.
func (s *Server) Notify(ctx context.Context, status string, doc *document.Table) error {
	n := &pb.Notification{Type: status, Object: s.object, Data: doc.Struct()}
	msg := n.Struct()

	s.mu.RLock()
	sessions := slices.Collect(maps.Values(s.sessions))
	s.mu.RUnlock()

	for _, ss := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ss.enqueue(msg) {
			s.logger.Warn("subscriber queue is full, closing stream", zap.Uint64("session", ss.id), zap.Object("notification", n))
			s.closeSession(ss)
		}
	}
	return nil
}

func (s *Server) state() (*document.Document, error) {
	s.mu.RLock()
	src := s.source
	s.mu.RUnlock()
	if src == nil {
		return nil, errNoSource
	}
	return src()
}

func (s *Server) openSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ss := newSession(s.nextID, s.queueSize)
	s.sessions[ss.id] = ss
	s.updateGauge()
	return ss
}

func (s *Server) closeSession(ss *Session) {
	ss.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, ss.id)
	s.updateGauge()
}

// must be called with s.mu held
func (s *Server) updateGauge() {
	if s.gauge != nil {
		s.gauge.SetSubscribers(len(s.sessions))
	}
}

// Close ends every open stream once its queued notifications are sent.
func (s *Server) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uint64]*Session)
	s.updateGauge()
	s.mu.Unlock()

	for _, ss := range sessions {
		ss.Close()
	}
}
