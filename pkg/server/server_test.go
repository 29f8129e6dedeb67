// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/nttcom/dhcp6notify/api/notify/v1"
	"github.com/nttcom/dhcp6notify/internal/pkg/snapshot"
	"github.com/nttcom/dhcp6notify/pkg/document"
	"github.com/nttcom/dhcp6notify/pkg/notifier"
	"github.com/nttcom/dhcp6notify/pkg/packet/dhcpv6"
)

type gauge struct {
	mu sync.Mutex
	n  int
}

func (g *gauge) SetSubscribers(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = n
}

func (g *gauge) get() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func testDocument(t *testing.T) *document.Document {
	t.Helper()
	doc := document.New(0)
	arr, err := doc.Root().AddArray("RDNSS")
	require.NoError(t, err)
	require.NoError(t, arr.AddString("2001:db8::53"))
	require.NoError(t, doc.Root().AddUint32("RA_MTU", 1500))
	return doc
}

func startServer(t *testing.T, bus *Server) pb.NotifyServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	api := NewAPIServer(bus, grpc.NewServer())
	go func() {
		_ = api.grpcServer.Serve(lis)
	}()
	t.Cleanup(api.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return pb.NewNotifyServiceClient(conn)
}

func TestSubscribe(t *testing.T) {
	g := &gauge{}
	bus := NewServer(&Options{Object: "odhcp6c.wan"}, zaptest.NewLogger(t))
	bus.SetSubscriberGauge(g)
	client := startServer(t, bus)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := client.Subscribe(ctx, &empty.Empty{})
	require.NoError(t, err)
	require.Eventually(t, bus.HasSubscribers, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, g.get())

	doc := testDocument(t)
	defer doc.Release()
	for _, st := range []string{"started", "bound"} {
		require.NoError(t, bus.Notify(ctx, st, doc.Root()))
	}

	for _, want := range []string{"started", "bound"} {
		msg, err := stream.Recv()
		require.NoError(t, err)
		n, err := pb.ParseNotification(msg)
		require.NoError(t, err)
		assert.Equal(t, want, n.Type)
		assert.Equal(t, "odhcp6c.wan", n.Object)
		assert.Equal(t, float64(1500), n.Data.GetFields()["RA_MTU"].GetNumberValue())
		assert.Equal(t, "2001:db8::53", n.Data.GetFields()["RDNSS"].GetListValue().GetValues()[0].GetStringValue())
	}

	cancel()
	assert.Eventually(t, func() bool { return !bus.HasSubscribers() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, g.get())
}

func TestSubscribe_Close(t *testing.T) {
	bus := NewServer(&Options{Object: "odhcp6c.wan"}, nil)
	client := startServer(t, bus)

	stream, err := client.Subscribe(context.Background(), &empty.Empty{})
	require.NoError(t, err)
	require.Eventually(t, bus.HasSubscribers, time.Second, 10*time.Millisecond)

	doc := testDocument(t)
	defer doc.Release()
	require.NoError(t, bus.Notify(context.Background(), "stopped", doc.Root()))
	bus.Close()

	msg, err := stream.Recv()
	require.NoError(t, err)
	n, err := pb.ParseNotification(msg)
	require.NoError(t, err)
	assert.Equal(t, "stopped", n.Type)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGetState(t *testing.T) {
	tests := []struct {
		name     string
		source   func(t *testing.T) Source
		wantCode codes.Code
	}{
		{
			name:     "no source",
			source:   func(*testing.T) Source { return nil },
			wantCode: codes.Unavailable,
		},
		{
			name: "source error",
			source: func(*testing.T) Source {
				return func() (*document.Document, error) { return nil, errors.New("boom") }
			},
			wantCode: codes.Internal,
		},
		{
			name: "document",
			source: func(t *testing.T) Source {
				return func() (*document.Document, error) { return testDocument(t), nil }
			},
			wantCode: codes.OK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewServer(&Options{}, nil)
			bus.SetSource(tt.source(t))
			client := startServer(t, bus)

			got, err := client.GetState(context.Background(), &empty.Empty{})
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode != codes.OK {
				return
			}
			assert.Equal(t, float64(1500), got.GetFields()["RA_MTU"].GetNumberValue())
		})
	}
}

func TestNotify_SlowSubscriber(t *testing.T) {
	bus := NewServer(&Options{QueueSize: 1}, nil)
	ss := bus.openSession()

	doc := testDocument(t)
	defer doc.Release()
	require.NoError(t, bus.Notify(context.Background(), "updated", doc.Root()))
	assert.True(t, bus.HasSubscribers())

	require.NoError(t, bus.Notify(context.Background(), "updated", doc.Root()))
	assert.False(t, bus.HasSubscribers())
	select {
	case <-ss.Done():
	default:
		t.Fatal("slow session was not closed")
	}
}

func TestNotify_Canceled(t *testing.T) {
	bus := NewServer(&Options{}, nil)
	bus.openSession()

	doc := testDocument(t)
	defer doc.Release()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, bus.Notify(ctx, "updated", doc.Root()), context.Canceled)
}

func TestNotify_RepeatedSoftwireFields(t *testing.T) {
	rule := &dhcpv6.S46Record{
		Mechanism:  dhcpv6.S46MAPE,
		IPv4Prefix: netip.MustParseAddr("192.0.2.0"),
		Prefix4Len: 24,
		IPv6Prefix: netip.MustParseAddr("2001:db8:100::"),
		Prefix6Len: 40,
		Flags:      1,
		EALen:      16,
		PortParams: []dhcpv6.PortParams{
			{Offset: 6, PSIDLen: 8, PSID: 0x34},
			{Offset: 4, PSIDLen: 4, PSID: 2},
		},
	}
	brs := []netip.Addr{netip.MustParseAddr("2001:db8::1"), netip.MustParseAddr("2001:db8::2")}
	state := snapshot.NewState()
	state.SetBuffer(notifier.StateS46MAPE, dhcpv6.SerializeS46([]*dhcpv6.S46Record{rule}, brs, nil))

	bus := NewServer(&Options{Object: "odhcp6c.wan"}, zaptest.NewLogger(t))
	ss := bus.openSession()
	defer bus.closeSession(ss)

	assembler := notifier.NewAssembler(state, bus, zaptest.NewLogger(t))
	require.NoError(t, assembler.Notify(context.Background(), notifier.StatusUpdated))

	var msg *structpb.Struct
	select {
	case msg = <-ss.queue:
	case <-time.After(time.Second):
		t.Fatal("no notification queued")
	}
	n, err := pb.ParseNotification(msg)
	require.NoError(t, err)
	assert.Equal(t, notifier.StatusUpdated, n.Type)

	mape := n.Data.AsMap()["MAPE"].([]any)
	require.Len(t, mape, 1)
	got := mape[0].(map[string]any)
	assert.Equal(t, []any{"2001:db8::1", "2001:db8::2"}, got["br"])
	assert.Equal(t, []any{float64(6), float64(4)}, got["offset"])
	assert.Equal(t, []any{float64(8), float64(4)}, got["psidlen"])
	assert.Equal(t, []any{float64(0x34), float64(2)}, got["psid"])
	assert.Equal(t, "192.0.2.0", got["ipv4prefix"])
	assert.Equal(t, float64(16), got["ealen"])
}
