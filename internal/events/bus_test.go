package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func TestPublishSubscribe(t *testing.T) {
	srv := startTestNATSServer(t)
	bus, err := Connect(srv.ClientURL(), nil)
	require.NoError(t, err)
	defer bus.Close()

	type completed struct {
		TodoID string `json:"todo_id"`
	}

	received := make(chan completed, 1)
	_, err = bus.Subscribe(SubjectTodoCompleted, func(subject string, data []byte) {
		assert.Equal(t, SubjectTodoCompleted, subject)
		var ev completed
		if err := json.Unmarshal(data, &ev); err == nil {
			received <- ev
		}
	})
	require.NoError(t, err)

	err = bus.Publish(context.Background(), SubjectTodoCompleted, completed{TodoID: "t-1"})
	require.NoError(t, err)

	select {
	case ev := <-received:
		assert.Equal(t, "t-1", ev.TodoID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received in time")
	}
}

func TestNilBusPublishes(t *testing.T) {
	var bus *Bus
	assert.NoError(t, bus.Publish(context.Background(), SubjectTicketRedeemed, map[string]string{"id": "x"}))
	bus.Close()

	_, err := bus.Subscribe(SubjectTicketRedeemed, func(string, []byte) {})
	assert.Error(t, err)
}

func TestPublishRespectsContext(t *testing.T) {
	srv := startTestNATSServer(t)
	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	bus := NewBus(nc, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, bus.Publish(ctx, SubjectArticlePublished, nil), context.Canceled)
}

func TestPublishRejectsUnencodable(t *testing.T) {
	srv := startTestNATSServer(t)
	bus, err := Connect(srv.ClientURL(), nil)
	require.NoError(t, err)
	defer bus.Close()

	err = bus.Publish(context.Background(), SubjectTodoCompleted, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding event")
}
