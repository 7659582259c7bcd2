// Command watch connects to a booking API notification socket and prints every
// notification it receives. It is the headless counterpart of the booking
// client's notification panel and doubles as a live diagnostics tool.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/medibook/realtime/internal/config"
	"github.com/medibook/realtime/internal/slogging"
	"github.com/medibook/realtime/notify"
)

func main() {
	var (
		configPath string
		serverURL  string
		token      string
		userID     string
		sendTest   bool
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&serverURL, "server", "", "Booking API origin (overrides config)")
	flag.StringVar(&token, "token", "", "Session bearer token")
	flag.StringVar(&userID, "user", "", "User id (derived from the token's subject claim when omitted)")
	flag.BoolVar(&sendTest, "send-test", false, "Inject a test notification once connected")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slogging.Get().Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}
	if err := cfg.Validate(); err != nil {
		slogging.Get().Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	if err := slogging.Initialize(cfg.SloggingConfig()); err != nil {
		slogging.Get().Error("Failed to initialize logging: %v", err)
		os.Exit(1)
	}
	logger := slogging.Get()
	defer func() { _ = logger.Close() }()

	if token == "" {
		token = os.Getenv("MEDIBOOK_TOKEN")
	}

	var creds notify.CredentialSource
	if userID != "" {
		creds = notify.StaticCredentials{Token: token, UserID: userID}
	} else {
		creds = notify.BearerTokenCredentials{Token: token}
	}

	service := notify.NewService(notify.ServiceConfig{
		BaseURL:          cfg.Server.BaseURL,
		Credentials:      creds,
		RetryInterval:    cfg.Notifications.RetryInterval,
		DedupWindow:      cfg.Notifications.DedupWindow,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		Alerter:          notify.NewLogAlerter(logger),
		Logger:           logger,
	})
	defer service.Shutdown()

	for _, category := range []notify.Category{
		notify.CategoryAppointmentCreated,
		notify.CategoryAppointmentCancelled,
		notify.CategoryStatusChanged,
		notify.CategoryGeneric,
	} {
		category := category
		service.Subscribe(category, func(frame notify.Frame) {
			logger.GetSlogger().Info("Frame received",
				"category", string(category),
				"type", frame.Type,
				"appointment_id", frame.AppointmentID.String())
		})
	}
	service.Subscribe(notify.CategoryConnect, func(notify.Frame) {
		logger.Info("Connected to %s", slogging.RedactURL(cfg.Server.BaseURL))
		logger.GetSlogger().Info("Unread notifications", "count", service.Store().UnreadCount())
		if sendTest {
			service.SendTestNotification()
		}
	})
	service.Subscribe(notify.CategoryDisconnect, func(notify.Frame) {
		logger.Warn("Disconnected; retrying every %s", cfg.Notifications.RetryInterval)
	})

	service.Connect()
	if !service.Connected() {
		logger.Warn("Initial connection not established; waiting for retry timer")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	summarize(logger, service)
}

// summarize prints the session's notification history, newest first
func summarize(logger *slogging.Logger, service *notify.Service) {
	history := service.Store().Notifications()
	logger.GetSlogger().Info("Session summary",
		"notifications", len(history),
		"unread", service.Store().UnreadCount())
	for _, n := range history {
		logger.GetSlogger().Info("Notification",
			"id", n.ID,
			"category", string(n.Category),
			"title", n.Title,
			"message", n.Message,
			"read", n.Read,
			"timestamp", n.Timestamp.Format("15:04:05"))
	}
}
