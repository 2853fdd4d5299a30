// Package util provides helpers shared by integration tests that need a real
// MQTT broker.
package util

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const readyTimeout = 5 * time.Second

// RequireDocker skips the test unless DOCKER_AVAILABLE is set.
func RequireDocker(t *testing.T) {
	t.Helper()
	if v := os.Getenv("DOCKER_AVAILABLE"); v != "true" && v != "1" {
		t.Skip("docker not available")
	}
}

// Mosquitto is a disposable broker accepting anonymous clients.
type Mosquitto struct {
	URL string
}

// StartMosquitto runs a broker for the duration of the test. The test is
// skipped when the container cannot be started.
func StartMosquitto(t *testing.T) *Mosquitto {
	t.Helper()
	ctx := context.Background()

	conf := filepath.Join(t.TempDir(), "mosquitto.conf")
	if err := os.WriteFile(conf, []byte("listener 1883\nallow_anonymous true\npersistence false\n"), 0o644); err != nil {
		t.Fatalf("write mosquitto.conf: %v", err)
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
			Files: []tc.ContainerFile{{
				HostFilePath:      conf,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0o644,
			}},
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("mosquitto not started: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	endpoint, err := cont.PortEndpoint(ctx, "1883/tcp", "tcp")
	if err != nil {
		t.Fatalf("mosquitto endpoint: %v", err)
	}
	m := &Mosquitto{URL: endpoint}

	waitCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := m.waitReady(waitCtx); err != nil {
		t.Fatalf("mosquitto not ready: %v", err)
	}
	return m
}

// Subscribe connects a separate client and forwards every message published
// under filter.
func (m *Mosquitto) Subscribe(t *testing.T, filter string) <-chan paho.Message {
	t.Helper()
	out := make(chan paho.Message, 16)
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(m.URL).SetClientID(fmt.Sprintf("observer-%d", time.Now().UnixNano())))
	if tok := cli.Connect(); !tok.WaitTimeout(readyTimeout) || tok.Error() != nil {
		t.Fatalf("observer connect: %v", tok.Error())
	}
	t.Cleanup(func() { cli.Disconnect(100) })
	tok := cli.Subscribe(filter, 1, func(_ paho.Client, msg paho.Message) { out <- msg })
	if !tok.WaitTimeout(readyTimeout) || tok.Error() != nil {
		t.Fatalf("observer subscribe: %v", tok.Error())
	}
	return out
}

func (m *Mosquitto) waitReady(ctx context.Context) error {
	opts := paho.NewClientOptions().AddBroker(m.URL).SetClientID("probe")
	for {
		cli := paho.NewClient(opts)
		tok := cli.Connect()
		tok.Wait()
		if tok.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
