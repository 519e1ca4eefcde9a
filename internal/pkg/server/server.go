// Package server exposes the provider endpoints the smart home platform calls
// to list and query devices.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	shutdownTimeout = 10 * time.Second
	maxBodySize     = 1 << 20
)

type deviceRegistry interface {
	FindDevice(id string) (model.DeviceSnapshot, error)
	AllDevices() []model.DeviceSnapshot
}

type Server struct {
	cfg     config.ServerConfig
	userID  string
	devices deviceRegistry
	logger  *zap.Logger
}

func New(cfg config.ServerConfig, userID string, devices deviceRegistry) *Server {
	return &Server{
		cfg:     cfg,
		userID:  userID,
		devices: devices,
		logger:  zap.L().With(zap.String("component", "server")),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(RecoveryMiddleware(s.logger))

	r.Route("/provider/v1.0", func(r chi.Router) {
		r.Head("/", s.ping)
		r.Get("/", s.ping)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware([]byte(s.cfg.JWTSecret), s.logger))
			r.Get("/user/devices", s.listDevices)
			r.Post("/user/devices/query", s.queryDevices)
			r.Post("/user/unlink", s.unlink)
		})
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("provider api listening", zap.String("addr", s.cfg.Addr), zap.Bool("tls", s.cfg.CertFile != ""))
		if s.cfg.CertFile != "" {
			errCh <- srv.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DevicesResponse{
		RequestID: RequestID(r.Context()),
		Payload: DevicesPayload{
			UserID:  s.userID,
			Devices: s.devices.AllDevices(),
		},
	})
}

func (s *Server) queryDevices(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[QueryRequest](w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, InvalidRequest, err.Error())
		return
	}

	devices := lo.Map(req.Devices, func(q QueryDevice, _ int) model.DeviceState {
		snapshot, err := s.devices.FindDevice(q.ID)
		if err != nil {
			s.logger.Debug("queried unknown device", zap.String("device_id", q.ID))
			return model.DeviceState{ID: q.ID, ErrorCode: DeviceNotFound.String()}
		}
		return snapshot.States()
	})

	writeJSON(w, http.StatusOK, QueryResponse{
		RequestID: RequestID(r.Context()),
		Payload:   QueryPayload{Devices: devices},
	})
}

func (s *Server) unlink(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("account unlinked", zap.String("subject", Subject(r.Context())))
	writeJSON(w, http.StatusOK, UnlinkResponse{RequestID: RequestID(r.Context())})
}

func unmarshalPayload[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	var out T
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
