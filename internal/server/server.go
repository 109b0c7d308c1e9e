package server

import (
	"fmt"
	"log"
	"net/http"

	"cfadmin/internal/auth"
	"cfadmin/internal/config"
	"cfadmin/internal/database"
	"cfadmin/internal/handler"
	"cfadmin/internal/service"
	"cfadmin/web"
)

func Start(cfg *config.Config, version string) error {
	db, err := database.Open(cfg.Database.DSN, web.MigrationsFS())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.SeedCredentials(cfg.Auth.BootstrapLoginKey); err != nil {
		return fmt.Errorf("failed to seed credentials: %w", err)
	}

	secret, err := db.EnsureSessionSecret()
	if err != nil {
		return fmt.Errorf("failed to load session secret: %w", err)
	}
	sessionMgr := auth.NewSessionManager(db, secret)

	dns := service.NewDNSService(db, cfg.Cloudflare.APIBase)

	authH := handler.NewAuthHandler(sessionMgr, db)
	configH := handler.NewConfigHandler(db, dns, db)
	zoneH := handler.NewZoneHandler(dns)
	recH := handler.NewRecordHandler(dns, db)
	auditH := handler.NewAuditHandler(db)

	mux := newMux(sessionMgr, authH, configH, zoneH, recH, auditH)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("cfadmin server (%s) starting on %s", version, addr)
	return http.ListenAndServe(addr, mux)
}

func newMux(
	sessionMgr *auth.SessionManager,
	authH *handler.AuthHandler,
	configH *handler.ConfigHandler,
	zoneH *handler.ZoneHandler,
	recH *handler.RecordHandler,
	auditH *handler.AuditHandler,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Unauthenticated surface
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("GET /api/health", handler.Health)

	mux.HandleFunc("POST /api/auth/logout", sessionMgr.RequireAuth(authH.Logout))

	mux.HandleFunc("GET /api/config", sessionMgr.RequireAuth(configH.GetConfig))
	mux.HandleFunc("PUT /api/config/cloudflare-token", sessionMgr.RequireAuth(configH.SetAPIToken))
	mux.HandleFunc("PUT /api/config/login-key", sessionMgr.RequireAuth(configH.SetLoginKey))
	mux.HandleFunc("POST /api/config/test-cloudflare", sessionMgr.RequireAuth(configH.TestConnection))

	mux.HandleFunc("GET /api/dns/zones", sessionMgr.RequireAuth(zoneH.List))
	mux.HandleFunc("GET /api/dns/zones/{zoneID}/records", sessionMgr.RequireAuth(recH.List))
	mux.HandleFunc("POST /api/dns/zones/{zoneID}/records", sessionMgr.RequireAuth(recH.Create))
	mux.HandleFunc("PUT /api/dns/zones/{zoneID}/records/{recordID}", sessionMgr.RequireAuth(recH.Update))
	mux.HandleFunc("DELETE /api/dns/zones/{zoneID}/records/{recordID}", sessionMgr.RequireAuth(recH.Delete))
	mux.HandleFunc("POST /api/dns/zones/{zoneID}/records/{recordID}/toggle-proxied", sessionMgr.RequireAuth(recH.ToggleProxied))

	mux.HandleFunc("GET /api/audit", sessionMgr.RequireAuth(auditH.List))

	return mux
}
