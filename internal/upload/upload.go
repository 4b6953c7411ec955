// Package upload accepts new files for a realm: it validates them against
// the realm policy, stores them in the object store, records them in the
// catalog and announces the change so the realm feed reloads.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/koustreak/realms/internal/catalog"
	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/events"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/logger"
	"github.com/koustreak/realms/internal/metrics"
	"github.com/koustreak/realms/internal/realm"
)

// DefaultFolder receives uploads that name no folder.
const DefaultFolder = "root"

// Request is one file to upload.
type Request struct {
	Realm       realm.ID
	Folder      string
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Recorder stores file metadata. *catalog.Repository implements it.
type Recorder interface {
	Insert(ctx context.Context, f *catalog.File) error
}

// Service runs uploads. It is safe for concurrent use.
type Service struct {
	writer    filestore.Writer
	files     Recorder
	policies  *realm.Table
	publisher events.Publisher
	log       *logger.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher announces each stored file as an events.TypeInvalidated event.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the upload logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New returns an upload Service storing bytes through writer and records
// through files. A nil policies table means realm.DefaultTable().
func New(writer filestore.Writer, files Recorder, policies *realm.Table, opts ...Option) *Service {
	if policies == nil {
		policies = realm.DefaultTable()
	}
	s := &Service{
		writer:   writer,
		files:    files,
		policies: policies,
		log:      logger.Global(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates req, stores the body and records it. The returned record
// carries the catalog id and public URL.
func (s *Service) Upload(ctx context.Context, req Request) (f *catalog.File, err error) {
	defer func() {
		metrics.RecordUpload(string(req.Realm), req.Size, err == nil)
	}()

	folder, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%d_%s", folder, s.now().UnixMilli(), req.Filename)
	body, mime := detectMime(req)
	log := s.log.With().Str("realm", string(req.Realm)).Str("key", key).Logger()

	err = s.writer.Put(ctx, req.Realm, key, body, req.Size, mime, false)
	if errs.IsConflict(err) {
		log.Debug("object exists, overwriting")
		err = s.writer.Put(ctx, req.Realm, key, body, req.Size, mime, true)
	}
	if err != nil {
		log.ErrorWith("store upload", err, nil)
		return nil, err
	}

	f = &catalog.File{
		Realm:     req.Realm,
		Folder:    folder,
		Filename:  req.Filename,
		ObjectKey: key,
		URL:       s.writer.PublicURL(req.Realm, key),
		Mime:      mime,
		Size:      req.Size,
	}
	if err = s.files.Insert(ctx, f); err != nil {
		if rmErr := s.writer.Remove(context.WithoutCancel(ctx), req.Realm, key); rmErr != nil {
			log.WarnWith("orphaned object after failed insert", rmErr, nil)
		}
		log.ErrorWith("record upload", err, nil)
		return nil, err
	}

	log.InfoWith("file uploaded", logger.Fields{"id": f.ID, "size": f.Size, "mime": f.Mime})
	if s.publisher != nil {
		s.publisher.Publish(events.Event{
			Type:  events.TypeInvalidated,
			Realm: string(req.Realm),
			Name:  req.Filename,
		})
	}
	return f, nil
}

// validate checks the request and returns the normalised folder.
func (s *Service) validate(req Request) (string, error) {
	if !req.Realm.Valid() {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unknown realm %q", req.Realm)
	}
	if req.Body == nil {
		return "", errs.New(errs.ErrKindInvalidInput, "no file chosen")
	}
	if req.Size < 0 {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid size %d", req.Size)
	}
	name := req.Filename
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid file name %q", name)
	}
	if filestore.IsPlaceholder(name) {
		return "", errs.Newf(errs.ErrKindInvalidInput, "reserved file name %q", name)
	}
	if !s.policies.IsAllowed(req.Realm, name) {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid file type .%s for realm %q", realm.Ext(name), req.Realm)
	}

	folder := strings.Trim(req.Folder, "/")
	if folder == "" {
		return DefaultFolder, nil
	}
	for _, seg := range strings.Split(folder, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", errs.Newf(errs.ErrKindInvalidInput, "invalid folder %q", req.Folder)
		}
	}
	return folder, nil
}

// detectMime returns the body to store and its MIME type: the declared
// type, else the sniffed one, else the extension's.
func detectMime(req Request) (io.Reader, string) {
	declared := strings.TrimSpace(req.ContentType)
	if declared != "" && declared != "application/octet-stream" {
		return req.Body, declared
	}

	head := make([]byte, filestore.SniffLen)
	n, err := io.ReadFull(req.Body, head)
	head = head[:n]
	body := io.MultiReader(bytes.NewReader(head), req.Body)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		// let Put surface the read error
		return body, declared
	}

	if mime := filestore.SniffMime(head); mime != "" {
		return body, mime
	}
	if mime := filestore.MimeByExt(realm.Ext(req.Filename)); mime != "" {
		return body, mime
	}
	return body, declared
}
