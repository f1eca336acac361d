package httpserver

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/webdav"

	"dirshare/internal/auth"
	"dirshare/internal/config"
	"dirshare/internal/fsutil"
	"dirshare/internal/logging"
	"dirshare/internal/metrics"
	"dirshare/internal/session"
	"dirshare/internal/upload"
)

// Reserved routes. Double underscores keep them clear of ordinary file
// names in the served tree.
const (
	loginRoute  = "/__login__"
	logoutRoute = "/__logout__"
	thumbRoute  = "/__thumb__"
)

type Options struct {
	Config config.Config
}

type Server struct {
	cfg      config.Config
	sessions *session.Store
}

func New(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg.Root == "" {
		return nil, errors.New("root is required")
	}
	st, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", cfg.Root)
	}
	return &Server{
		cfg:      cfg,
		sessions: session.New(cfg.SessionTTL()),
	}, nil
}

// Handler builds the root handler. /healthz, /metrics, and /dav/ are
// reserved: files or directories in the served root with those exact
// names are shadowed and not reachable over plain HTTP.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// health and metrics stay outside the session gate
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", metrics.Handler())

	if s.cfg.EnableDAV {
		mux.Handle("/dav/", s.davHandler())
	}

	mux.HandleFunc("/", s.handle)

	return metrics.Middleware(mux)
}

// handle is the per-request state machine. Transition order: logout route,
// login route, session gate, then the tagged action dispatch.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path == logoutRoute {
		s.handleLogout(w, r)
		return
	}
	if r.URL.Path == loginRoute {
		s.handleLogin(w, r)
		return
	}

	if s.cfg.HasPassword() {
		s.sessions.SweepExpired()
		metrics.SetActiveSessions(s.sessions.Len())
		if !s.authed(r) {
			s.renderLogin(w, r, r.URL.RequestURI(), "")
			return
		}
	}

	if r.URL.Path == thumbRoute {
		s.handleThumb(w, r)
		return
	}

	if r.Method == http.MethodPost {
		s.handleUpload(w, r)
		return
	}

	switch act := resolveAction(r.URL); act.kind {
	case actionDelete:
		s.handleDelete(w, r, act.name)
	case actionCreateFolder:
		s.handleCreateFolder(w, r, act.name)
	case actionDownload:
		s.handleDownload(w, r)
	default:
		s.handleServe(w, r)
	}
}

// --- action dispatch ---

type actionKind int

const (
	actionServe actionKind = iota
	actionDelete
	actionCreateFolder
	actionDownload
)

type action struct {
	kind actionKind
	name string
}

// resolveAction classifies the request once, in precedence order, instead
// of string-searching the URL in every handler.
func resolveAction(u *url.URL) action {
	q := u.Query()
	if v := q.Get("deletefile"); v != "" {
		return action{actionDelete, v}
	}
	if v := q.Get("createfolder"); v != "" {
		return action{actionCreateFolder, v}
	}
	if u.RawQuery == "download" {
		return action{kind: actionDownload}
	}
	return action{kind: actionServe}
}

// --- sessions ---

func (s *Server) authed(r *http.Request) bool {
	c, err := r.Cookie(s.cfg.Cookie())
	return err == nil && s.sessions.Validate(c.Value)
}

type loginPage struct {
	Action string
	Next   string
	Error  string
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, next, errMsg string) {
	renderHTML(w, r, http.StatusUnauthorized, "login.html", loginPage{
		Action: loginRoute,
		Next:   sanitizeNext(next),
		Error:  errMsg,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.HasPassword() {
		if r.Method == http.MethodPost {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if r.Method != http.MethodPost {
		s.renderLogin(w, r, r.URL.Query().Get("next"), "")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderLogin(w, r, "/", "malformed form submission")
		return
	}
	next := sanitizeNext(r.PostFormValue("next"))
	if !auth.VerifyPassword(s.cfg, r.PostFormValue("password")) {
		metrics.RecordAuthAttempt("failure")
		logging.Warn("login failed", zap.String("remote", r.RemoteAddr))
		s.renderLogin(w, r, next, "wrong password, try again")
		return
	}
	tok, err := s.sessions.Create()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	metrics.RecordAuthAttempt("success")
	metrics.SetActiveSessions(s.sessions.Len())
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Cookie(),
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.SessionTTL().Seconds()),
	})
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.cfg.Cookie()); err == nil {
		s.sessions.Invalidate(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Cookie(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	http.Redirect(w, r, loginRoute, http.StatusSeeOther)
}

// sanitizeNext keeps post-login redirects on this host. Anything that is
// not a local absolute path collapses to "/".
func sanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// --- action handlers ---

type resultPage struct {
	Title   string
	Heading string
	OK      bool
	Message string
	Back    string
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	dir := fsutil.Resolve(s.cfg.Root, r.URL.Path)
	var res upload.Result
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		res = upload.Result{Message: "upload destination is not a directory"}
	} else {
		res = upload.ParseTo(dir, r.Header.Get("Content-Type"), r.Body)
	}
	metrics.RecordUploadBytes(res.Bytes)
	if res.OK {
		logging.Info("upload finished",
			zap.String("dir", dir),
			zap.Strings("files", res.Files),
			zap.Int64("bytes", res.Bytes))
	} else {
		logging.Warn("upload failed", zap.String("dir", dir), zap.String("reason", res.Message))
	}

	back := r.Referer()
	if back == "" {
		back = r.URL.Path
	}
	// The transport-level response always succeeds; failure travels in the
	// rendered body, which is what form-driven callers key off.
	renderHTML(w, r, http.StatusOK, "result.html", resultPage{
		Title:   "Upload Result Page",
		Heading: "Upload Result Page",
		OK:      res.OK,
		Message: res.Message,
		Back:    back,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, name string) {
	target := fsutil.Resolve(s.cfg.Root, path.Join(r.URL.Path, name))
	ok := true
	msg := fmt.Sprintf("%q was removed. (No backup had been made!)", name)
	if _, err := os.Lstat(target); err != nil {
		ok = false
		msg = fmt.Sprintf("no such file or folder %q", name)
	} else if err := os.Remove(target); err != nil {
		ok = false
		msg = fmt.Sprintf("can't remove %q: %v", name, removeReason(err))
		logging.Warn("delete failed", zap.String("target", target), zap.Error(err))
	} else {
		logging.Info("deleted", zap.String("target", target))
	}
	renderHTML(w, r, http.StatusOK, "result.html", resultPage{
		Title:   "File removed",
		Heading: fmt.Sprintf("Delete %q", name),
		OK:      ok,
		Message: msg,
		Back:    r.URL.Path,
	})
}

func removeReason(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return "permission denied"
	default:
		return "directory not empty or in use"
	}
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request, name string) {
	target := fsutil.Resolve(s.cfg.Root, path.Join(r.URL.Path, name))
	ok := true
	msg := fmt.Sprintf("folder %q created", name)
	if err := os.Mkdir(target, 0o755); err != nil {
		ok = false
		if errors.Is(err, fs.ErrExist) {
			msg = fmt.Sprintf("folder %q already exists", name)
		} else {
			msg = fmt.Sprintf("can't create folder %q", name)
			logging.Warn("mkdir failed", zap.String("target", target), zap.Error(err))
		}
	} else {
		logging.Info("folder created", zap.String("target", target))
	}
	renderHTML(w, r, http.StatusOK, "result.html", resultPage{
		Title:   "Folder Created Page",
		Heading: fmt.Sprintf("Folder %q Create Page", name),
		OK:      ok,
		Message: msg,
		Back:    r.URL.Path,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	dir := fsutil.Resolve(s.cfg.Root, r.URL.Path)
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	name := filepath.Base(dir)
	if name == "/" || name == "." || name == string(filepath.Separator) {
		name = "archive"
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	metrics.RecordArchive()
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	logging.Info("zip download", zap.String("dir", dir))
	if err := writeZip(w, dir, s.cfg.StateDir); err != nil {
		// headers are gone; all we can do is cut the stream and log
		logging.Warn("zip stream aborted", zap.String("dir", dir), zap.Error(err))
	}
}

// --- GET/HEAD serving ---

func (s *Server) handleServe(w http.ResponseWriter, r *http.Request) {
	abs := fsutil.Resolve(s.cfg.Root, r.URL.Path)
	st, err := os.Stat(abs)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if !st.IsDir() {
		s.serveFile(w, r, abs, st)
		return
	}

	if !strings.HasSuffix(r.URL.Path, "/") {
		// redirect browser, doing basically what apache does
		loc := r.URL.Path + "/"
		if r.URL.RawQuery != "" {
			loc += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, loc, http.StatusMovedPermanently)
		return
	}
	for _, idx := range []string{"index.html", "index.htm"} {
		p := filepath.Join(abs, idx)
		if st2, err := os.Stat(p); err == nil && st2.Mode().IsRegular() {
			s.serveFile(w, r, p, st2)
			return
		}
	}
	s.serveListing(w, r, abs)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, abs string, st os.FileInfo) {
	f, err := os.Open(abs)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	if ct := contentTypeForName(st.Name()); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

type sortLink struct {
	Label string
	Href  string
}

type listingRow struct {
	Href       string
	Display    string
	SizeLabel  string
	DeleteHref string
	ThumbHref  string
}

type listingPage struct {
	Display      string
	Parent       bool
	DownloadHref string
	SortLinks    []sortLink
	Entries      []listingRow
}

func (s *Server) serveListing(w http.ResponseWriter, r *http.Request, abs string) {
	q := r.URL.Query()
	key := ParseSortKey(q.Get("sort"))
	order := ParseSortOrder(q.Get("order"))

	ents, err := listDir(abs, key, order)
	if err != nil {
		http.Error(w, "No permission to list directory", http.StatusNotFound)
		return
	}

	page := listingPage{
		Display:      r.URL.Path,
		Parent:       r.URL.Path != "/",
		DownloadHref: "?download",
		SortLinks:    sortLinks(key, order),
		Entries:      make([]listingRow, 0, len(ents)),
	}
	for _, e := range ents {
		row := listingRow{
			Href:       e.LinkName(),
			Display:    e.DisplayName(),
			DeleteHref: "?deletefile=" + url.QueryEscape(e.Name),
		}
		if !e.IsDir {
			row.SizeLabel = humanSize(e.Size)
			if isImageExt(strings.ToLower(filepath.Ext(e.Name))) {
				row.ThumbHref = thumbRoute + "?path=" + url.QueryEscape(path.Join(r.URL.Path, e.Name))
			}
		}
		page.Entries = append(page.Entries, row)
	}
	renderHTML(w, r, http.StatusOK, "listing.html", page)
}

func sortLinks(cur SortKey, curOrder SortOrder) []sortLink {
	keys := []SortKey{SortName, SortSize, SortCreated, SortUpdated}
	links := make([]sortLink, 0, len(keys))
	for _, k := range keys {
		ord := OrderAsc
		if k == cur && curOrder == OrderAsc {
			ord = OrderDesc
		}
		links = append(links, sortLink{
			Label: k.String(),
			Href:  fmt.Sprintf("?sort=%s&order=%s", k, ord),
		})
	}
	return links
}

// --- WebDAV ---

// davHandler mounts the served root for WebDAV clients. Those can't run
// the cookie login flow, so the shared password is also accepted as Basic
// auth with any username.
func (s *Server) davHandler() http.Handler {
	dav := &webdav.Handler{
		Prefix:     "/dav",
		FileSystem: webdav.Dir(s.cfg.Root),
		LockSystem: webdav.NewMemLS(),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.HasPassword() && !s.authed(r) {
			_, pass, ok := auth.ParseBasicAuth(r.Header.Get("Authorization"))
			if !ok || !auth.VerifyPassword(s.cfg, pass) {
				w.Header().Set("WWW-Authenticate", `Basic realm="dirshare"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		dav.ServeHTTP(w, r)
	})
}

// --- helpers ---

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}

func contentTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	// Fallbacks for systems with sparse mime tables.
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".pdf":
		return "application/pdf"
	case ".txt", ".log", ".md", ".json", ".yaml", ".yml", ".ini", ".cfg", ".conf",
		".go", ".py", ".c", ".h", ".js", ".css", ".sh":
		return "text/plain; charset=utf-8"
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	default:
		return "application/octet-stream"
	}
}
