package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
)

// cacheItem stores one rendered document and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	contentType  string
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// routeTable maps a URL path to its current document. A table is never
// mutated after it has been stored.
type routeTable map[string]*cacheItem

// PreviewServer serves the rendered email preview and the birthday calendar
// on the loopback interface.
type PreviewServer struct {
	// routes uses atomic.Pointer for lock-free reads; Publish swaps in a copy.
	routes atomic.Pointer[routeTable]
	// publishMu serialises writers so that no Publish is lost.
	publishMu sync.Mutex
	Port      string
}

// NewPreviewServer creates a new instance of the server.
func NewPreviewServer(port string) *PreviewServer {
	return &PreviewServer{
		Port: port,
	}
}

// URL returns the address of the root route.
func (s *PreviewServer) URL() string {
	return "http://" + config.LocalhostBindAddr + config.AddrSeparator + s.Port + config.RouteRoot
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *PreviewServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	logger := log.With().Str(config.LogKeyComponent, config.CompServer).Logger()

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      http.HandlerFunc(s.handleRequest),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		logger.Info().Str(config.LogKeyPort, s.Port).Msg(config.MsgServerListen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg(config.MsgServerStop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Publish atomically replaces the document served at route.
func (s *PreviewServer) Publish(route, contentType string, data []byte) {
	hash := sha256.Sum256(data)
	item := &cacheItem{
		data:         data,
		contentType:  contentType,
		etag:         fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:])),
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}

	s.publishMu.Lock()
	next := routeTable{}
	if current := s.routes.Load(); current != nil {
		next = maps.Clone(*current)
	}
	next[route] = item
	s.routes.Store(&next)
	s.publishMu.Unlock()

	log.Debug().
		Str(config.LogKeyComponent, config.CompServer).
		Str(config.LogKeyRoute, route).
		Int(config.LogKeySizeBytes, len(data)).
		Str(config.LogKeyETag, item.etag).
		Msg(config.MsgCacheUpdated)
}

// handleRequest serves a published document with HTTP caching support.
func (s *PreviewServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	table := s.routes.Load()
	if table == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	item, ok := (*table)[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set(config.HeaderContentType, item.contentType)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				// If server content is not newer than client cache, return 304.
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			log.Error().
				Str(config.LogKeyComponent, config.CompServer).
				Err(err).
				Msg(config.ErrWriteResp)
		}
	}
}
