package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/bbernstein/lacylights-ddp/internal/database/models"
	"github.com/bbernstein/lacylights-ddp/internal/database/repositories"
	"github.com/bbernstein/lacylights-ddp/internal/services/bridge"
	"github.com/bbernstein/lacylights-ddp/internal/services/grid"
	"github.com/bbernstein/lacylights-ddp/internal/services/network"
	"github.com/bbernstein/lacylights-ddp/internal/services/pubsub"
	"github.com/bbernstein/lacylights-ddp/internal/services/receiver"
	"github.com/bbernstein/lacylights-ddp/pkg/ddp"
)

const (
	sseKeepAlive   = 15 * time.Second
	wsPingInterval = 10 * time.Second
	wsPongWait     = 30 * time.Second
	wsWriteWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for WebSocket
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// app holds the dependencies of the HTTP handlers.
type app struct {
	receiver   *receiver.Service
	pubsub     *pubsub.PubSub
	settings   *repositories.SettingRepository
	outputs    *repositories.OutputRepository
	bridge     *bridge.Service
	gatherer   prometheus.Gatherer
	corsOrigin string
	debug      bool
	started    time.Time
}

func newRouter(a *app) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{a.corsOrigin, "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		Debug:            a.debug,
	})
	router.Use(corsMiddleware.Handler)

	router.Get("/", a.handleIndex)
	router.Get("/index.html", a.handleIndex)
	router.Get("/events", a.handleEvents)
	router.Get("/ws", a.handleWebSocket)
	router.Get("/health", a.handleHealth)
	if a.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/status", a.handleGetStatus)
		r.Put("/status", a.handlePutStatus)
		r.Get("/outputs", a.handleListOutputs)
		r.Post("/outputs", a.handleCreateOutput)
		r.Get("/outputs/{id}", a.handleGetOutput)
		r.Delete("/outputs/{id}", a.handleDeleteOutput)
		r.Get("/interfaces", a.handleInterfaces)
	})

	return router
}

type healthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version"`
	Uptime    string        `json:"uptime"`
	Packets   uint64        `json:"packets"`
	Frames    uint64        `json:"frames"`
	Clients   int           `json:"clients"`
	ArtNet    *artNetHealth `json:"artnet,omitempty"`
}

type artNetHealth struct {
	Enabled   bool `json:"enabled"`
	Universes int  `json:"universes"`
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	packets, frames := a.receiver.Stats()
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
		Uptime:    time.Since(a.started).Round(time.Second).String(),
		Packets:   packets,
		Frames:    frames,
		Clients:   a.pubsub.SubscriberCount(pubsub.TopicFrame),
	}
	if a.bridge != nil {
		resp.ArtNet = &artNetHealth{
			Enabled:   a.bridge.IsEnabled(),
			Universes: a.bridge.Universes(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *app) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	ifaces, err := network.Interfaces()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ifaces == nil {
		ifaces = []network.Interface{}
	}
	writeJSON(w, http.StatusOK, ifaces)
}

func (a *app) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, indexData{PixelCount: a.receiver.PixelCount()}); err != nil {
		log.Printf("index render error: %v", err)
	}
}

// Stream event types. Frames go out as unnamed SSE events so the grid page's
// onmessage handler sees them; status and outputs changes are named events.
const (
	eventFrame   = "frame"
	eventStatus  = "status"
	eventOutputs = "outputs"
)

// streamEvent is one message for a grid client. Over the websocket it is sent
// as {"type":...,"data":...}.
type streamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// gridSubscription follows pushed frames for one device plus status and
// output changes.
type gridSubscription struct {
	ps      *pubsub.PubSub
	id      byte
	frames  *pubsub.Subscriber
	status  *pubsub.Subscriber
	outputs *pubsub.Subscriber
}

func (a *app) subscribeGrid(id byte) *gridSubscription {
	return &gridSubscription{
		ps:      a.pubsub,
		id:      id,
		frames:  a.pubsub.Subscribe(pubsub.TopicFrame, strconv.Itoa(int(id)), 16),
		status:  a.pubsub.Subscribe(pubsub.TopicStatus, "", 4),
		outputs: a.pubsub.Subscribe(pubsub.TopicOutputs, "", 4),
	}
}

func (g *gridSubscription) close() {
	g.ps.Unsubscribe(g.frames)
	g.ps.Unsubscribe(g.status)
	g.ps.Unsubscribe(g.outputs)
}

// follow passes events from sub to emit until done closes, emit fails or a
// subscription channel closes. onTick runs on every tick.
func (a *app) follow(ctx context.Context, sub *gridSubscription, done <-chan struct{},
	tick <-chan time.Time, onTick func() error, emit func(streamEvent) error) {
	for {
		var events []streamEvent
		select {
		case <-done:
			return
		case msg, open := <-sub.frames.Channel:
			if !open {
				return
			}
			if frame, ok := msg.(receiver.Frame); ok {
				events = append(events, streamEvent{Type: eventFrame, Data: grid.Update{Colors: frame.Colors}})
			}
		case msg, open := <-sub.status.Channel:
			if !open {
				return
			}
			if payload, ok := msg.([]byte); ok {
				events = append(events, streamEvent{Type: eventStatus, Data: statusDocument(payload)})
			}
		case msg, open := <-sub.outputs.Channel:
			if !open {
				return
			}
			outputs, ok := msg.([]ddp.Output)
			if !ok {
				continue
			}
			resp, err := a.outputResponses(ctx, outputs)
			if err != nil {
				log.Printf("output list error: %v", err)
				continue
			}
			events = append(events, streamEvent{Type: eventOutputs, Data: resp})
			if !hasOutput(outputs, sub.id) {
				events = append(events, streamEvent{Type: eventFrame, Data: grid.Blank(a.receiver.PixelCount())})
			}
		case <-tick:
			if err := onTick(); err != nil {
				return
			}
		}

		for _, ev := range events {
			if err := emit(ev); err != nil {
				return
			}
		}
	}
}

// handleEvents streams grid updates for one output as server-sent events.
func (a *app) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := a.subscribeGrid(id)
	defer sub.close()

	emit := func(ev streamEvent) error {
		if err := writeEvent(w, ev); err != nil {
			return err
		}
		return rc.Flush()
	}
	if err := emit(streamEvent{Type: eventFrame, Data: grid.Update{Colors: a.receiver.Colors(id)}}); err != nil {
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	a.follow(r.Context(), sub, r.Context().Done(), keepAlive.C, func() error {
		if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
			return err
		}
		return rc.Flush()
	}, emit)
}

func writeEvent(w io.Writer, ev streamEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	if ev.Type != eventFrame {
		if _, err := fmt.Fprintf(w, "event: %s\n", ev.Type); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// handleWebSocket streams the same events as /events over a websocket.
func (a *app) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub := a.subscribeGrid(id)
	defer sub.close()

	// the read loop only services control frames and notices the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	emit := func(ev streamEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(ev)
	}
	if err := emit(streamEvent{Type: eventFrame, Data: grid.Update{Colors: a.receiver.Colors(id)}}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	a.follow(r.Context(), sub, done, ping.C, func() error {
		return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
	}, emit)
}

// statusDocument returns payload as JSON for stream clients: null when no
// status is set, and a JSON string when the payload is not JSON.
func statusDocument(payload []byte) json.RawMessage {
	if payload == nil {
		return json.RawMessage("null")
	}
	if json.Valid(payload) {
		return json.RawMessage(payload)
	}
	quoted, _ := json.Marshal(string(payload))
	return quoted
}

func hasOutput(outputs []ddp.Output, id byte) bool {
	for _, o := range outputs {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (a *app) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	status := a.receiver.Status()
	if status == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(status)
}

// handlePutStatus replaces the status payload. An empty body clears it so
// status queries receive an empty acknowledgment.
func (a *app) handlePutStatus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, ddp.MaxStatusLen))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "status payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	ctx := r.Context()
	if len(body) == 0 {
		if err := a.receiver.SetStatus(nil); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := a.settings.ClearStatus(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "status payload must be JSON")
		return
	}
	if err := a.receiver.SetStatus(body); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err := a.settings.SaveStatus(ctx, body); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type outputResponse struct {
	ID         int      `json:"id"`
	Size       int      `json:"size"`
	Configured bool     `json:"configured"`
	Name       string   `json:"name,omitempty"`
	Data       string   `json:"data,omitempty"`
	Colors     []string `json:"colors,omitempty"`
}

type createOutputRequest struct {
	ID   *int   `json:"id"`
	Size int    `json:"size"`
	Name string `json:"name"`
}

func (a *app) handleListOutputs(w http.ResponseWriter, r *http.Request) {
	resp, err := a.outputResponses(r.Context(), a.receiver.Outputs())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// outputResponses describes outputs, adding the names of saved outputs.
func (a *app) outputResponses(ctx context.Context, outputs []ddp.Output) ([]outputResponse, error) {
	saved, err := a.outputs.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(saved))
	for _, o := range saved {
		names[o.DeviceID] = o.Name
	}

	resp := make([]outputResponse, 0, len(outputs))
	for _, o := range outputs {
		resp = append(resp, outputResponse{
			ID:         int(o.ID),
			Size:       o.Size,
			Configured: o.HasCallback,
			Name:       names[int(o.ID)],
		})
	}
	return resp, nil
}

func (a *app) handleCreateOutput(w http.ResponseWriter, r *http.Request) {
	var req createOutputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == nil {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	id, ok := dataDeviceID(*req.ID)
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be a data device id (0-254, not 250 or 251)")
		return
	}
	maxBuffer := a.receiver.MaxBufferSize()
	if req.Size <= 0 || req.Size > maxBuffer {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("size must be between 1 and %d", maxBuffer))
		return
	}

	output := &models.Output{DeviceID: int(id), Name: req.Name, Size: req.Size}
	if err := a.outputs.Save(r.Context(), output); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.receiver.ConfigureOutput(id, req.Size)

	writeJSON(w, http.StatusCreated, outputResponse{
		ID:         int(id),
		Size:       req.Size,
		Configured: true,
		Name:       req.Name,
	})
}

func (a *app) handleGetOutput(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || n < 0 || n > 255 {
		writeError(w, http.StatusBadRequest, "invalid device id")
		return
	}
	id := byte(n)

	buf, ok := a.receiver.Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, "output not found")
		return
	}

	configured := false
	for _, o := range a.receiver.Outputs() {
		if o.ID == id {
			configured = o.HasCallback
			break
		}
	}

	writeJSON(w, http.StatusOK, outputResponse{
		ID:         n,
		Size:       len(buf),
		Configured: configured,
		Data:       hex.EncodeToString(buf),
		Colors:     grid.Colors(buf, len(buf)/3),
	})
}

// handleDeleteOutput forgets a saved output and drops its buffer. The display
// output is reset to the size derived from the pixel count instead.
func (a *app) handleDeleteOutput(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device id")
		return
	}
	id, ok := dataDeviceID(n)
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be a data device id (0-254, not 250 or 251)")
		return
	}

	ctx := r.Context()
	saved, err := a.outputs.FindByDeviceID(ctx, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if saved != nil {
		if err := a.outputs.Delete(ctx, n); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if id == ddp.IDDisplay {
		a.receiver.ConfigureOutput(id, a.receiver.PixelCount()*3)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !a.receiver.RemoveOutput(id) && saved == nil {
		writeError(w, http.StatusNotFound, "output not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deviceQuery reads the optional ?id= parameter, defaulting to the display id.
func deviceQuery(r *http.Request) (byte, bool) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		return ddp.IDDisplay, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 255 {
		return 0, false
	}
	return byte(n), true
}

// dataDeviceID validates an id that pixel data can be addressed to.
func dataDeviceID(n int) (byte, bool) {
	if n < 0 || n >= int(ddp.IDAll) {
		return 0, false
	}
	id := byte(n)
	if id == ddp.IDConfig || id == ddp.IDStatus {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
