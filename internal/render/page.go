package render

import (
	"bytes"
	"html/template"
	"io"
	"strings"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/feed"
	"github.com/koustreak/realms/internal/realm"
)

const (
	EmptyMessage = "No files found in this realm yet. Be the first to upload!"
	ErrorMessage = "Failed to load realm content."
)

// PageData is what the gallery template sees.
type PageData struct {
	Title     string
	Realm     string
	Accepts   string
	CanUpload bool
	Feed      FeedView
	Empty     string
	Failure   string
}

// Page renders the HTML gallery of one realm.
type Page struct {
	tpl      *template.Template
	policies *realm.Table
}

// NewPage parses the gallery template. A nil policies table means
// realm.DefaultTable().
func NewPage(policies *realm.Table) *Page {
	if policies == nil {
		policies = realm.DefaultTable()
	}
	tpl := template.Must(template.New("realm").Funcs(template.FuncMap{
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}).Parse(pageTpl))
	return &Page{tpl: tpl, policies: policies}
}

// Render writes the page for r. canUpload shows the upload form.
func (p *Page) Render(w io.Writer, r feed.Result, canUpload bool) error {
	data := PageData{
		Realm:     string(r.Realm),
		Accepts:   accepts(p.policies.Policy(r.Realm)),
		CanUpload: canUpload,
		Feed:      View(r),
		Empty:     EmptyMessage,
		Failure:   ErrorMessage,
	}
	data.Title = data.Realm

	// render into a buffer so a template error never leaves half a page
	var buf bytes.Buffer
	if err := p.tpl.Execute(&buf, data); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "render page", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func accepts(p realm.Policy) string {
	if p.AllowAll {
		return "any file"
	}
	exts := p.Extensions()
	if len(exts) == 0 {
		return "nothing"
	}
	return "." + strings.Join(exts, ", .")
}

const pageTpl = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{title .Title}} · realms</title>
<link rel="stylesheet" href="/assets/realm.css">
</head>
<body data-realm="{{.Realm}}">
<header>
  <h1>{{title .Title}}</h1>
  <p class="accepts">Accepts: {{.Accepts}}</p>
</header>
{{if .CanUpload}}
<form class="uploader" method="post" enctype="multipart/form-data" action="/api/v1/realms/{{.Realm}}/files">
  <input type="file" name="file">
  <input type="text" name="folder" placeholder="root">
  <button type="submit">Upload</button>
  <span class="upload-status">No file chosen.</span>
</form>
{{end}}
<main id="feed">
{{- if eq .Feed.Status "error"}}
  <div class="feed-error">{{.Failure}}<br><small>{{.Feed.ErrorKind}}</small></div>
{{- else if eq .Feed.Status "empty"}}
  <div class="feed-empty">{{.Empty}}</div>
{{- else}}
{{- range .Feed.Items}}
  <article class="card{{if .Degraded}} degraded{{end}}">
    <div class="card-thumb">
    {{- if eq .Thumb "image"}}
      <img loading="lazy" src="{{.AccessURL}}" alt="{{.Name}}">
    {{- else if eq .Thumb "video"}}
      <video src="{{.AccessURL}}" muted playsinline loop autoplay preload="metadata"></video>
    {{- else}}
      <img class="icon" src="{{.IconRef}}" alt="file" width="56" height="56">
    {{- end}}
    </div>
    <div class="card-meta">
      <div class="file-icon ft-{{.Category}}"><img src="{{.IconRef}}" alt="" width="22" height="22"></div>
      <div class="meta-text">
        <div class="meta-title">{{.Name}}</div>
        <div class="meta-sub">{{.Meta}}</div>
      </div>
    </div>
    <div class="card-actions">
    {{- if .Degraded}}
      <span class="unavailable">link unavailable</span>
    {{- else}}
      <a class="btn" href="{{.AccessURL}}" target="_blank" rel="noopener">Open / Download</a>
      <button class="btn copy" type="button" data-url="{{.AccessURL}}">Copy link</button>
    {{- end}}
    </div>
  </article>
{{- end}}
{{- end}}
</main>
<script>
document.querySelectorAll('button.copy').forEach(function (b) {
  b.addEventListener('click', function () {
    navigator.clipboard.writeText(b.dataset.url).then(function () {
      b.textContent = 'Copied';
    }, function () {
      b.textContent = 'Copy failed';
    });
  });
});
var form = document.querySelector('form.uploader');
if (form) {
  var status = form.querySelector('.upload-status');
  form.addEventListener('submit', function (e) {
    e.preventDefault();
    if (!form.file.files.length) { status.textContent = 'No file chosen.'; return; }
    status.textContent = 'Uploading...';
    fetch(form.action, { method: 'POST', body: new FormData(form) })
      .then(function (r) { return r.json(); })
      .then(function (body) {
        if (!body.success) { throw new Error(body.error || 'unknown error'); }
        status.textContent = 'Upload complete.';
      })
      .catch(function (err) { status.textContent = 'Upload failed: ' + err.message; });
  });
}
new EventSource('/api/v1/events').addEventListener('rendered', function (e) {
  var ev = JSON.parse(e.data);
  if (ev.realm === document.body.dataset.realm) { location.reload(); }
});
</script>
</body>
</html>
`
