package main

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	htmlprint "github.com/printable/go-htmlprint"
)

// serve loads the configured document into a surface and exposes the
// command protocol on a websocket endpoint. Inbound messages are raw
// command payloads; acknowledgments and export status events are written
// back as JSON to every connected client.
func serve(ctx context.Context, addr string, src htmlprint.Source, outputDir string) error {
	surface := htmlprint.NewSurface()
	defer surface.Close()

	hub := newCommandHub(surface, outputDir)

	if err := surface.SetSource(ctx, src); err != nil {
		return err
	}
	log.Printf("document %q loaded, surface ready", src.Title)

	mux := http.NewServeMux()
	mux.HandleFunc("/commands", hub.handleCommands)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("command endpoint listening on ws://%s/commands", addr)
	return server.ListenAndServe()
}

// commandHub fans acknowledgments and status events out to every connected
// websocket client and feeds inbound payloads to the command state machine.
type commandHub struct {
	commander *htmlprint.Commander

	mu    sync.Mutex
	conns map[*websocket.Conn]*sync.Mutex
}

func newCommandHub(surface *htmlprint.Surface, outputDir string) *commandHub {
	h := &commandHub{conns: make(map[*websocket.Conn]*sync.Mutex)}

	exporter := htmlprint.NewExporter(surface,
		htmlprint.WithOutputDir(outputDir),
		htmlprint.WithStatusFunc(func(st htmlprint.Status) {
			h.broadcast(st)
		}),
	)
	printer := htmlprint.NewPrinter(surface, outputDir)
	h.commander = htmlprint.NewCommander(surface, exporter, printer,
		htmlprint.WithAckFunc(func(ack htmlprint.Ack) {
			h.broadcast(ack)
		}),
	)

	// Queued commands retry when the surface becomes ready.
	surface.OnChange(func() {
		h.commander.Notify(context.Background())
	})

	return h
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *commandHub) handleCommands(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	log.Printf("command connection from %s", r.RemoteAddr)

	h.mu.Lock()
	h.conns[conn] = &sync.Mutex{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		if err := conn.Close(); err != nil {
			log.Printf("closing command connection: %v", err)
		}
	}()

	conn.SetReadLimit(4096)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Printf("command connection closed: %v", err)
			return
		}
		// Background context: an in-flight export is not cancellable and
		// must not die with the connection that triggered it.
		h.commander.Submit(context.Background(), raw)
	}
}

// broadcast writes v as JSON to every connection, one writer at a time per
// connection. Write failures are logged; the read loop notices the broken
// connection and cleans up.
func (h *commandHub) broadcast(v any) {
	h.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.conns))
	for c, l := range h.conns {
		conns[c] = l
	}
	h.mu.Unlock()

	for conn, lock := range conns {
		lock.Lock()
		err := conn.WriteJSON(v)
		lock.Unlock()
		if err != nil {
			log.Printf("writing to command connection: %v", err)
		}
	}
}
