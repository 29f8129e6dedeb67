// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package server

import (
	"context"
	"sync"

	"google.golang.org/protobuf/types/known/structpb"
)

// Session is one subscriber.
type Session struct {
	id    uint64
	queue chan *structpb.Struct
	done  chan struct{}
	once  sync.Once
}

func newSession(id uint64, size int) *Session {
	return &Session{
		id:    id,
		queue: make(chan *structpb.Struct, size),
		done:  make(chan struct{}),
	}
}

// enqueue reports false when the queue is full. Messages for a closed
// session are dropped.
func (ss *Session) enqueue(msg *structpb.Struct) bool {
	select {
	case <-ss.done:
		return true
	default:
	}
	select {
	case ss.queue <- msg:
		return true
	default:
		return false
	}
}

func (ss *Session) Close() {
	ss.once.Do(func() { close(ss.done) })
}

func (ss *Session) Done() <-chan struct{} {
	return ss.done
}

// run sends queued messages until ctx ends or the session is closed. A closed
// session first flushes what is already queued.
func (ss *Session) run(ctx context.Context, send func(*structpb.Struct) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ss.queue:
			if err := send(msg); err != nil {
				return err
			}
		case <-ss.done:
			return ss.flush(send)
		}
	}
}

func (ss *Session) flush(send func(*structpb.Struct) error) error {
	for {
		select {
		case msg := <-ss.queue:
			if err := send(msg); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
