package events

import (
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer is an in-process NATS server for single-host deployments,
// so surfaces on the same machine can share the bus without external
// infrastructure.
type EmbeddedServer struct {
	srv *natsserver.Server
}

// StartEmbedded starts a NATS server on host:port. A port of -1 picks a
// random free port.
func StartEmbedded(host string, port int) (*EmbeddedServer, error) {
	srv, err := natsserver.NewServer(&natsserver.Options{
		ServerName: "qrm-embedded",
		Host:       host,
		Port:       port,
		NoSigs:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedded NATS: %w", err)
	}
	srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("embedded NATS not ready on %s:%d", host, port)
	}
	return &EmbeddedServer{srv: srv}, nil
}

// ClientURL is the URL clients should connect to.
func (e *EmbeddedServer) ClientURL() string { return e.srv.ClientURL() }

// Shutdown stops the server and waits for it to exit.
func (e *EmbeddedServer) Shutdown() {
	e.srv.Shutdown()
	e.srv.WaitForShutdown()
}
