package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/realms/internal/events"
	"github.com/koustreak/realms/internal/feed"
	"github.com/koustreak/realms/internal/realm"
	"github.com/koustreak/realms/internal/render"
	"github.com/koustreak/realms/internal/upload"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]string{"status": "ok"})
}

// realmParam resolves the {realm} path segment, writing a 404 when it is
// not a known realm.
func (s *Server) realmParam(w http.ResponseWriter, r *http.Request) (realm.ID, bool) {
	id, err := realm.Parse(chi.URLParam(r, "realm"))
	if err != nil {
		fail(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return id, true
}

// load reloads id and returns the result that reached the board for it.
// When a newer load supersedes this one, load serves the newer result
// instead of its own discarded output. The second value is false when the
// caller went away first.
func (s *Server) load(ctx context.Context, id realm.ID) (feed.Result, bool) {
	for {
		res, emitted := s.deps.Feeds.Reload(ctx, id)
		if ctx.Err() != nil {
			return feed.Result{}, false
		}
		if emitted {
			return res, true
		}

		waitCtx, cancel := context.WithTimeout(ctx, s.cfg.SupersededWait)
		latest, found := s.deps.Board.Wait(waitCtx, id, res.Generation)
		cancel()
		if found {
			return latest, true
		}
		if ctx.Err() != nil {
			return feed.Result{}, false
		}
		// The newer load ended without rendering, load again.
		s.log.Debugf("superseding load of %s never rendered, reloading", id)
	}
}

func (s *Server) handleRealms(w http.ResponseWriter, r *http.Request) {
	ok(w, s.deps.Policies.Describe())
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	id, found := s.realmParam(w, r)
	if !found {
		return
	}
	res, done := s.load(r.Context(), id)
	if !done {
		return
	}

	view := render.View(res)
	if !res.OK() {
		writeJSON(w, http.StatusBadGateway, Envelope{Success: false, Data: view, Error: view.ErrorKind})
		return
	}
	ok(w, view)
}

func (s *Server) handleFeedCSV(w http.ResponseWriter, r *http.Request) {
	id, found := s.realmParam(w, r)
	if !found {
		return
	}
	res, done := s.load(r.Context(), id)
	if !done {
		return
	}

	var buf bytes.Buffer
	if err := render.WriteCSV(&buf, res); err != nil {
		failErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(id)+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	id, found := s.realmParam(w, r)
	if !found {
		return
	}
	folders, err := s.deps.Folders.Folders(r.Context(), id)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, folders)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, found := s.realmParam(w, r)
	if !found {
		return
	}
	if s.deps.Uploads == nil {
		fail(w, http.StatusNotFound, "uploads are disabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.upload.MaxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit))
			return
		}
		fail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, http.StatusBadRequest, "no file chosen")
		return
	}
	defer file.Close()

	f, err := s.deps.Uploads.Upload(r.Context(), upload.Request{
		Realm:       id,
		Folder:      r.FormValue("folder"),
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		failErr(w, err)
		return
	}
	created(w, f)
}

// handleEvents streams broadcaster events as server-sent events. An
// optional ?realm= query narrows the stream to one realm.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		fail(w, http.StatusNotFound, "events are disabled")
		return
	}
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		fail(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var only realm.ID
	if q := r.URL.Query().Get("realm"); q != "" {
		id, err := realm.Parse(q)
		if err != nil {
			fail(w, http.StatusNotFound, err.Error())
			return
		}
		only = id
	}

	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.deps.Events.Subscribe()
	defer s.deps.Events.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}
			if only != "" && event.Realm != string(only) {
				continue
			}
			data, err := events.MarshalEvent(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	id, err := realm.Parse(chi.URLParam(r, "realm"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	res, done := s.load(r.Context(), id)
	if !done {
		return
	}

	var buf bytes.Buffer
	if err := s.deps.Page.Render(&buf, res, s.deps.Uploads != nil); err != nil {
		s.log.ErrorWith("render page", err, nil)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if !res.OK() {
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
