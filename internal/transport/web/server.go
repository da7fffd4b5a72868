package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ym-bot/internal/fetch"
	"ym-bot/internal/services/delivery"
	"ym-bot/internal/services/music"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Resolver supplies metadata with a fresh download link.
type Resolver interface {
	FullInfo(ctx context.Context, trackID string) (music.TrackMetadata, bool)
}

// Opener starts a streaming GET of a direct link.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Webhook receives Telegram updates.
type Webhook struct {
	Path    string
	Secret  string
	Handler http.Handler
}

// Server exposes the track download proxy and, optionally, the webhook.
type Server struct {
	resolver Resolver
	opener   Opener
	logger   *zap.Logger
	router   *mux.Router
}

// NewServer wires the routes. webhook may be nil.
func NewServer(resolver Resolver, opener Opener, webhook *Webhook, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		resolver: resolver,
		opener:   opener,
		logger:   logger,
		router:   mux.NewRouter(),
	}

	s.router.Use(s.recoverer)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/track/{id}.mp3", s.handleTrack).Methods(http.MethodGet, http.MethodHead)
	if webhook != nil && webhook.Handler != nil {
		s.router.Handle(webhook.Path, requireSecret(webhook.Secret, webhook.Handler)).Methods(http.MethodPost)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["id"]
	logger := s.logger.With(zap.String("trackID", trackID))

	meta, ok := s.resolver.FullInfo(r.Context(), trackID)
	if !ok {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	// HEAD is answered from metadata alone; the link stays unused.
	if r.Method == http.MethodHead {
		setAudioHeaders(w, meta.Title)
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := s.opener.Open(r.Context(), meta.DownloadLink)
	if err != nil {
		logger.Warn("proxy download failed", zap.Error(err))
		http.Error(w, "Failed to download track", http.StatusBadGateway)
		return
	}
	defer body.Close()

	setAudioHeaders(w, meta.Title)
	w.WriteHeader(http.StatusOK)
	written, err := fetch.Copy(w, body)
	if err != nil {
		// Headers are gone already; the client sees a truncated body.
		logger.Warn("proxy stream interrupted", zap.Int64("written", written), zap.Error(err))
	}
}

func setAudioHeaders(w http.ResponseWriter, title string) {
	filename := delivery.SanitizeFilename(title) + ".mp3"
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("http handler panicked", zap.String("path", r.URL.Path), zap.Any("panic", rec), zap.Stack("stack"))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requireSecret(secret string, next http.Handler) http.Handler {
	if secret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
