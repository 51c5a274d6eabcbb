package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"modstream/internal/frame"
)

// ContentType is the media type of a frame stream.
const ContentType = "application/x-modstream"

// BundleInfo describes one target in the bundle listing
type BundleInfo struct {
	Name        string `json:"name"`
	Entrypoint  string `json:"entrypoint"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// handleListBundles lists the configured targets
func (s *Server) handleListBundles(w http.ResponseWriter, r *http.Request) {
	bundles := make([]BundleInfo, 0, len(s.manifest.Targets))
	for _, t := range s.manifest.Targets {
		bundles = append(bundles, BundleInfo{
			Name:        t.Name,
			Entrypoint:  t.Entrypoint,
			Description: t.Description,
			URL:         "/bundles/" + t.Name,
		})
	}
	WriteJSON(w, map[string]interface{}{"bundles": bundles}, http.StatusOK)
}

// handleBundle streams the frames of one target. Errors raised before the
// first frame become JSON error responses; later errors abort the
// connection so the client sees a truncated stream rather than a
// well-formed but incomplete bundle.
func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "target")
	target, err := s.manifest.Get(name)
	if err != nil {
		WriteBundleError(w, err)
		return
	}

	compression := frame.Negotiate(r.Header.Get("Accept-Encoding"))
	fw := &frameWriter{w: w, compression: compression}
	cw, err := frame.NewCompressedWriter(fw, compression)
	if err != nil {
		InternalError(w, "cannot create stream encoder", err)
		return
	}

	reqID := GetRequestID(r.Context())
	stats, err := s.builder.Build(r.Context(), target.Entrypoint, frame.NewEncoder(cw))
	if err == nil {
		err = cw.Close()
	}
	if err != nil {
		s.logger.Warn("Bundle build failed",
			"target", name,
			"requestID", reqID,
			"emitted", stats.Modules,
			"error", err,
		)
		if fw.started || r.Context().Err() != nil {
			panic(http.ErrAbortHandler)
		}
		WriteBundleError(w, err)
		return
	}

	s.logger.Info("Bundle served",
		"target", name,
		"requestID", reqID,
		"build", stats.BuildID,
		"modules", stats.Modules,
		"bytes", stats.Bytes,
		"compression", string(compression),
		"elapsed", stats.Elapsed,
	)
}

// frameWriter defers the response header until the first frame is written,
// so a build that fails early can still answer with an error status.
type frameWriter struct {
	w           http.ResponseWriter
	compression frame.Compression
	started     bool
}

func (fw *frameWriter) Write(p []byte) (int, error) {
	if !fw.started {
		fw.start()
	}
	return fw.w.Write(p)
}

// Flush pushes the written frames to the client.
func (fw *frameWriter) Flush() error {
	if !fw.started {
		return nil
	}
	err := http.NewResponseController(fw.w).Flush()
	if err == http.ErrNotSupported {
		return nil
	}
	return err
}

func (fw *frameWriter) start() {
	fw.started = true
	h := fw.w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Add("Vary", "Accept-Encoding")
	if enc := fw.compression.ContentEncoding(); enc != "" {
		h.Set("Content-Encoding", enc)
	}
	fw.w.WriteHeader(http.StatusOK)
}

