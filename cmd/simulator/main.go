// Command simulator runs a stand-in for the booking API's notification
// endpoint. It accepts WebSocket connections at the real path, plays back a
// canned appointment scenario, and exposes an HTTP trigger for pushing
// arbitrary frames, so client behavior (routing, dedup, reconnect) can be
// exercised without a backend.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medibook/realtime/internal/slogging"
	"github.com/medibook/realtime/notify"
)

var framesSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "medibook_simulator_frames_sent_total",
	Help: "Frames pushed to connected clients, labeled by wire type.",
}, []string{"type"})

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// hub tracks live notification sockets per user id
type hub struct {
	logger *slogging.Logger

	mu    sync.Mutex
	conns map[string][]*websocket.Conn
}

func newHub(logger *slogging.Logger) *hub {
	return &hub{logger: logger, conns: make(map[string][]*websocket.Conn)}
}

func (h *hub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = append(h.conns[userID], conn)
}

func (h *hub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := h.conns[userID][:0]
	for _, c := range h.conns[userID] {
		if c != conn {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		delete(h.conns, userID)
	} else {
		h.conns[userID] = live
	}
}

// send delivers one frame to every socket of one user; dead sockets are dropped
func (h *hub) send(userID string, frame notify.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Failed to encode frame: %v", err)
		return
	}

	h.mu.Lock()
	conns := append([]*websocket.Conn(nil), h.conns[userID]...)
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("Write to %s failed, dropping socket: %v", userID, err)
			_ = conn.Close()
			h.unregister(userID, conn)
			continue
		}
		framesSent.WithLabelValues(frame.Type).Inc()
	}
}

// broadcast delivers one frame to every connected user
func (h *hub) broadcast(frame notify.Frame) {
	h.mu.Lock()
	users := make([]string, 0, len(h.conns))
	for userID := range h.conns {
		users = append(users, userID)
	}
	h.mu.Unlock()

	for _, userID := range users {
		h.send(userID, frame)
	}
}

func (h *hub) handleSocket(c *gin.Context) {
	userID := c.Param("userID")
	if c.Query("token") == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "unauthorized",
			"error_description": "Missing session token",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed for user %s: %v", userID, err)
		return
	}

	h.register(userID, conn)
	h.logger.Info("Notification socket opened for user %s", userID)

	// Clients never send application frames; the read loop only detects closes
	go func() {
		defer func() {
			h.unregister(userID, conn)
			_ = conn.Close()
			h.logger.Info("Notification socket closed for user %s", userID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// handleTrigger pushes one caller-supplied frame to a user's sockets
func (h *hub) handleTrigger(c *gin.Context) {
	userID := c.Param("userID")

	var frame notify.Frame
	if err := c.ShouldBindJSON(&frame); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": err.Error(),
		})
		return
	}
	if frame.Timestamp == "" {
		frame.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	h.send(userID, frame)
	c.JSON(http.StatusAccepted, gin.H{"delivered": true})
}

// scenario is the canned appointment lifecycle played back in demo mode. The
// cancelled frame is delivered twice to exercise client-side deduplication.
func scenario() []notify.Frame {
	appointmentID := notify.FlexibleID(uuid.New().String())
	created := notify.Frame{
		Type:          notify.WireTypeAppointmentCreated,
		AppointmentID: appointmentID,
		DoctorName:    "Smith",
		Date:          time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		Time:          "09:00",
	}
	confirmed := notify.Frame{
		Type:          notify.WireTypeStatusChanged,
		AppointmentID: appointmentID,
		OldStatus:     "pending",
		NewStatus:     "confirmed",
	}
	cancelled := notify.Frame{
		Type:          notify.WireTypeAppointmentCancelled,
		AppointmentID: appointmentID,
		DoctorName:    "Smith",
	}
	note := notify.Frame{
		Type:    notify.WireTypeNotification,
		Title:   "Clinic Notice",
		Message: "The clinic will open late on Friday.",
	}
	return []notify.Frame{created, confirmed, cancelled, cancelled, note}
}

func runDemoLoop(h *hub, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := scenario()
	next := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame := frames[next]
			frame.Timestamp = time.Now().UTC().Format(time.RFC3339)
			h.broadcast(frame)
			next++
			if next == len(frames) {
				frames = scenario()
				next = 0
			}
		}
	}
}

func main() {
	var (
		listenAddr   string
		demo         bool
		demoInterval time.Duration
	)

	flag.StringVar(&listenAddr, "listen", ":8080", "Listen address")
	flag.BoolVar(&demo, "demo", false, "Continuously broadcast a canned appointment scenario")
	flag.DurationVar(&demoInterval, "demo-interval", 5*time.Second, "Delay between demo frames")
	flag.Parse()

	if err := slogging.Initialize(slogging.Config{
		Level:            slogging.ParseLogLevel(os.Getenv("MEDIBOOK_LOGGING_LEVEL")),
		IsDev:            true,
		AlsoLogToConsole: true,
	}); err != nil {
		slogging.Get().Error("Failed to initialize logging: %v", err)
		os.Exit(1)
	}
	logger := slogging.Get()

	h := newHub(logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/api/v1/notifications/ws/:userID", h.handleSocket)
	router.POST("/api/v1/notifications/trigger/:userID", h.handleTrigger)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{Addr: listenAddr, Handler: router}

	stop := make(chan struct{})
	if demo {
		logger.Info("Demo mode: broadcasting scenario frames every %s", demoInterval)
		go runDemoLoop(h, demoInterval, stop)
	}

	go func() {
		logger.Info("Notification simulator listening on %s", listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed: %v", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	close(stop)
	_ = server.Close()
}
