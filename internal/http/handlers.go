package httpapi

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/example/food-rescue/internal/config"
	"github.com/example/food-rescue/internal/dispatch"
	"github.com/example/food-rescue/internal/geo"
	"github.com/example/food-rescue/internal/ingest"
	"github.com/example/food-rescue/internal/logging"
	"github.com/example/food-rescue/internal/matcher"
	"github.com/example/food-rescue/internal/models"
	"github.com/example/food-rescue/internal/observability"
	"github.com/example/food-rescue/internal/storage"
)

type Server struct {
	Carriers geo.CarrierIndex
	Sites    geo.SiteIndex
	Matcher  *matcher.Service
	Store    storage.DonationStore
	Kafka    *ingest.KafkaProducer
	WSReg    *dispatch.WSRegistry

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires the service graph from config: redis-backed geo
// indexes and postgres when configured, in-memory fallbacks otherwise.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	var carriers geo.CarrierIndex
	var sites geo.SiteIndex
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		carriers = geo.NewRedisCarrierIndex(rc, cfg.CarrierGeoKey)
		sites = geo.NewRedisSiteIndex(rc, cfg.SiteGeoKey)
	} else {
		carriers = geo.NewCarrierMemIndex()
		sites = geo.NewSiteMemIndex()
	}

	var store storage.DonationStore
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Error("postgres unavailable, using memory store", "error", err)
		}
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	wsreg := dispatch.NewWSRegistry()
	var disp dispatch.Dispatcher = wsreg
	if cfg.FCMEndpoint != "" {
		disp = dispatch.NewPushDispatcher(wsreg, dispatch.NewFCMDispatcher(cfg.FCMEndpoint, cfg.FCMKey))
	}

	m := &matcher.Service{
		Carriers:           carriers,
		Sites:              sites,
		Store:              store,
		Dispatch:           disp,
		Logger:             logging.Component(logger, "matcher"),
		SearchRadiusMeters: cfg.SearchRadiusMeters,
		CarrierLimit:       cfg.CarrierLimit,
		SiteLimit:          cfg.SiteLimit,
	}
	s := &Server{
		Carriers: carriers,
		Sites:    sites,
		Matcher:  m,
		Store:    store,
		Kafka:    kp,
		WSReg:    wsreg,
		logger:   logging.Component(logger, "http"),
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/donations", s.handleCreateDonation).Methods("POST")
	s.mux.HandleFunc("/api/v1/donations/{id}", s.handleGetDonation).Methods("GET")
	s.mux.HandleFunc("/api/v1/donations/{id}/pickup", s.handleMarkPicked).Methods("POST")
	s.mux.HandleFunc("/api/v1/donations/{id}/delivered", s.handleMarkDelivered).Methods("POST")
	s.mux.HandleFunc("/api/v1/donations/{id}/cancel", s.handleCancel).Methods("POST")
	s.mux.HandleFunc("/api/v1/carriers/{carrier_id}/tasks", s.handleCarrierTasks).Methods("GET")
	s.mux.HandleFunc("/api/v1/sites", s.handleCreateSite).Methods("POST")
	s.mux.HandleFunc("/api/v1/sites/nearby", s.handleNearbySites).Methods("GET")
	s.mux.HandleFunc("/api/v1/stats/deliveries", s.handleDeliveryStats).Methods("GET")
	s.mux.HandleFunc("/internal/carrier/locations", s.handleCarrierLocation).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{carrier_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Close flushes and releases the outbound kafka producer; buffered
// location messages would otherwise be dropped on shutdown.
func (s *Server) Close() error {
	if s.Kafka != nil {
		return s.Kafka.Close()
	}
	return nil
}

// handleCreateDonation is the intake entry point: persist, match,
// respond. Unassigned is 202, not a failure.
func (s *Server) handleCreateDonation(w http.ResponseWriter, r *http.Request) {
	var in models.DonationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	res, err := s.Matcher.Match(r.Context(), in)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			http.Error(w, err.Error(), 400)
			return
		}
		s.logger.Error("match failed", "error", err)
		http.Error(w, "internal error", 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if res.Status == models.MatchUnassigned {
		w.WriteHeader(202)
	}
	json.NewEncoder(w).Encode(res)
}

func (s *Server) handleGetDonation(w http.ResponseWriter, r *http.Request) {
	d, err := s.Store.GetDonation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "donation not found", 404)
			return
		}
		http.Error(w, "internal error", 500)
		return
	}
	writeJSON(w, d)
}

func (s *Server) handleMarkPicked(w http.ResponseWriter, r *http.Request) {
	s.advanceDonation(w, r, models.StatusPicked)
}

func (s *Server) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	s.advanceDonation(w, r, models.StatusDelivered)
}

// advanceDonation applies a carrier-driven lifecycle step, keeping the
// assignment log timeline in sync. Delivery also returns the carrier to
// the available pool.
func (s *Server) advanceDonation(w http.ResponseWriter, r *http.Request, next models.DonationStatus) {
	var body struct {
		CarrierID string `json:"carrier_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CarrierID == "" {
		http.Error(w, "carrier_id required", 400)
		return
	}
	d, err := s.Store.GetDonation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "donation not found", 404)
			return
		}
		http.Error(w, "internal error", 500)
		return
	}
	if d.AssignedCarrier != body.CarrierID {
		http.Error(w, "not your task", 401)
		return
	}
	if !d.Status.CanTransition(next) {
		http.Error(w, "illegal status transition", 409)
		return
	}
	now := time.Now()
	d.Status = next
	d.UpdatedAt = now
	if err := s.Store.UpdateDonation(r.Context(), d); err != nil {
		s.logger.Error("status update failed", "donation_id", d.ID, "error", err)
		http.Error(w, "internal error", 500)
		return
	}
	switch next {
	case models.StatusPicked:
		if err := s.Store.MarkPickedUp(r.Context(), d.ID, now); err != nil {
			s.logger.Error("timeline update failed", "donation_id", d.ID, "error", err)
		}
	case models.StatusDelivered:
		if err := s.Store.MarkDelivered(r.Context(), d.ID, now); err != nil {
			s.logger.Error("timeline update failed", "donation_id", d.ID, "error", err)
		}
		// delivery frees the carrier for the next match
		if err := s.Carriers.Release(r.Context(), body.CarrierID); err != nil {
			s.logger.Error("carrier release failed", "carrier_id", body.CarrierID, "error", err)
		}
	}
	writeJSON(w, d)
}

// handleCancel voids a donation before pickup. An already-assigned
// carrier goes back to the available pool; the assignment log stays as
// audit trail.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	d, err := s.Store.GetDonation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "donation not found", 404)
			return
		}
		http.Error(w, "internal error", 500)
		return
	}
	if !d.Status.CanTransition(models.StatusCancelled) {
		http.Error(w, "illegal status transition", 409)
		return
	}
	carrier := d.AssignedCarrier
	d.Status = models.StatusCancelled
	d.AssignedCarrier = ""
	d.DeliveredTo = ""
	d.UpdatedAt = time.Now()
	if err := s.Store.UpdateDonation(r.Context(), d); err != nil {
		s.logger.Error("cancel failed", "donation_id", d.ID, "error", err)
		http.Error(w, "internal error", 500)
		return
	}
	if carrier != "" {
		if err := s.Carriers.Release(r.Context(), carrier); err != nil {
			s.logger.Error("carrier release failed", "carrier_id", carrier, "error", err)
		}
	}
	writeJSON(w, d)
}

func (s *Server) handleCarrierTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Store.ListCarrierTasks(r.Context(), mux.Vars(r)["carrier_id"])
	if err != nil {
		http.Error(w, "internal error", 500)
		return
	}
	writeJSON(w, tasks)
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var site models.Site
	if err := json.NewDecoder(r.Body).Decode(&site); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if err := models.ValidCoord(site.Loc); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if site.ID == "" {
		site.ID = newID()
	}
	if err := s.Sites.Upsert(r.Context(), site); err != nil {
		s.logger.Error("site upsert failed", "site_id", site.ID, "error", err)
		http.Error(w, "internal error", 500)
		return
	}
	w.WriteHeader(201)
	writeJSON(w, site)
}

func (s *Server) handleNearbySites(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		http.Error(w, "lat and lon required", 400)
		return
	}
	radius := 5000.0
	if v := r.URL.Query().Get("radius"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			radius = f
		}
	}
	sites, err := s.Sites.Nearby(r.Context(), lat, lon, radius, 20)
	if err != nil {
		http.Error(w, "internal error", 500)
		return
	}
	writeJSON(w, sites)
}

func (s *Server) handleDeliveryStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.CountDelivered(r.Context())
	if err != nil {
		http.Error(w, "internal error", 500)
		return
	}
	writeJSON(w, map[string]int{"total_deliveries": n})
}

func (s *Server) handleCarrierLocation(w http.ResponseWriter, r *http.Request) {
	var c models.Carrier
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if c.ID == "" {
		http.Error(w, "id required", 400)
		return
	}
	if err := models.ValidCoord(c.Loc); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	// publish to kafka if configured
	if s.Kafka != nil {
		if err := s.Kafka.PublishLocation(c); err != nil {
			s.logger.Warn("kafka publish failed", "carrier_id", c.ID, "error", err)
		}
	}
	if err := s.Carriers.Upsert(r.Context(), c); err != nil {
		s.logger.Error("carrier upsert failed", "carrier_id", c.ID, "error", err)
		http.Error(w, "internal error", 500)
		return
	}
	observability.CarriersOnline.Inc()
	w.WriteHeader(204)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["carrier_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", 400)
		return
	}
	s.WSReg.Add(id, conn)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.WSReg.Remove(id)
				_ = conn.Close()
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }

// RunMigrations applies the bundled SQL when MIGRATE=true; failures are
// logged, not fatal, matching how operators run it ad hoc.
func RunMigrations(dsn, path string, logger *slog.Logger) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("migration db open", "error", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Error("migration read", "path", path, "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logger.Error("migration exec", "path", path, "error", err)
		return
	}
	logger.Info("migration applied", "path", path)
}
