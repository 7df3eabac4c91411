package main

import (
	"github.com/delta-events/whatsapp-service/internal/broadcast"
	"github.com/delta-events/whatsapp-service/internal/config"
	"github.com/delta-events/whatsapp-service/internal/credentials"
	"github.com/delta-events/whatsapp-service/internal/database"
	"github.com/delta-events/whatsapp-service/internal/event"
	"github.com/delta-events/whatsapp-service/internal/logger"
	"github.com/delta-events/whatsapp-service/internal/queue"
	"github.com/delta-events/whatsapp-service/internal/server"
	"github.com/delta-events/whatsapp-service/internal/session"
	"github.com/delta-events/whatsapp-service/internal/transport"
	"github.com/delta-events/whatsapp-service/internal/utils"
)

func main() {
	conf, err := config.ReadConfig()
	if err != nil {
		logger.FatalF("Error occured while reading config %v", err)
		return
	}
	loggerCallback := logger.Init()
	logger.Debug("Application initializing...")
	cleaner := event.NewCleaner()
	cleaner.Init(loggerCallback)

	if conf.UseDatabase() {
		if err := database.ConnectDatabase(); err != nil {
			logger.FatalF("Error occured while initializing database, details: %v", err)
			return
		}
	} else {
		logger.Info("No database configured, session records stay in memory")
	}

	creds, err := credentials.NewStore(conf.WhatsApp.SessionsDir)
	if err != nil {
		logger.FatalF("Error occured while preparing sessions directory, details: %v", err)
		return
	}

	adapter := transport.NewLoopback()
	adapter.AutoPair = conf.WhatsApp.LoopbackAutoPair

	bus := broadcast.New()
	records := database.NewRecordStore()
	sessions := session.NewManager(adapter, creds, records, bus, utils.ParseStringTime(conf.WhatsApp.ReconnectBackoff))
	deliveryQueue := queue.NewManager(sessions, utils.ParseStringTime(conf.WhatsApp.MessageDelay))
	cleaner.Add(sessions.ShutdownCallback())

	// Bring the default user up on boot; pairing may still be pending, the
	// UI drives that through /qr.
	if err := sessions.Initialize(conf.WhatsApp.DefaultUser); err != nil {
		logger.WarnF("[%s] Auto-connect failed: %v", conf.WhatsApp.DefaultUser, err)
	}

	srv := server.NewServer(sessions, deliveryQueue, records, bus, conf.WhatsApp.DefaultUser, conf.AllowedOrigins)
	cleaner.Add(srv.ShutdownCallback())
	srv.StartServer(conf.AppPort)
}
