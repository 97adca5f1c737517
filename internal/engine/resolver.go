package engine

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourusername/mini-httpd/internal/statcache"
)

// Resolution is the outcome of resolving a request to a servable file, per
// spec.md §4.4.
type Resolution struct {
	CanonicalPath string
	Info          os.FileInfo
	ContentType   string
}

// ResolveHost applies spec.md §4.4's Host-resolution rule, realising the
// "stated intent" behind the original's dead-branch fallback (spec.md §9
// Open Questions): Host header first, then the absolute-URI host, then the
// configured default host for HTTP/1.0 only, else missing.
func ResolveHost(req *Request, cfg *Config) (host string, port uint16, ok bool) {
	if req.Host != "" {
		return strings.ToLower(req.Host), req.Port, true
	}
	if req.URL.Host != "" {
		return strings.ToLower(req.URL.Host), req.URL.Port, true
	}
	isHTTP10 := req.MajorVersion == 0 || (req.MajorVersion == 1 && req.MinorVersion == 0)
	if isHTTP10 && cfg.DefaultHost != "" {
		return strings.ToLower(cfg.DefaultHost), 0, true
	}
	return "", 0, false
}

// Resolve maps (host, url-path) to a filesystem path, canonicalises it,
// enforces the sandbox, stats it, and applies the directory-index rewrite,
// per spec.md §4.4. statCache may be nil to bypass caching. A directory
// requested without a trailing slash comes back as ErrIsDirectoryNoSlash;
// the caller is expected to emit a 301 to the slash-suffixed URL.
//
// Grounded on original_source/http-daemon.cpp's respond(): document_root
// construction, is_path_in_hierarchy() sandbox check, and the single
// stat-again retry after appending the default page.
func Resolve(host, urlPath string, cfg *Config, cache *statcache.Cache) (Resolution, error) {
	decodedPath := URLDecode(urlPath)
	documentRoot := filepath.Join(cfg.DocumentRoot, host)
	filename := filepath.Join(documentRoot, decodedPath)

	canonicalRoot, err := filepath.EvalSymlinks(documentRoot)
	if err != nil {
		return Resolution{}, ErrNotFound
	}

	key := statcache.Key{Host: host, Path: urlPath}
	fill := func() statcache.Result {
		return resolveOnce(filename, canonicalRoot)
	}
	var result statcache.Result
	if cache != nil {
		result = cache.Resolve(key, fill)
	} else {
		result = fill()
	}
	if result.Err != nil {
		return Resolution{}, result.Err
	}

	if result.Info.IsDir() {
		if !strings.HasSuffix(urlPath, "/") {
			return Resolution{}, ErrIsDirectoryNoSlash
		}
		indexPath := filepath.Join(result.CanonicalPath, cfg.DefaultPage)
		indexResult := resolveOnce(indexPath, canonicalRoot)
		if indexResult.Err != nil {
			return Resolution{}, indexResult.Err
		}
		result = indexResult
	}

	return Resolution{
		CanonicalPath: result.CanonicalPath,
		Info:          result.Info,
	}, nil
}

// resolveOnce canonicalises filename, enforces the sandbox against
// canonicalRoot, and stats the result. A canonicalisation or stat failure
// yields ErrNotFound and a sandbox failure yields ErrSandboxViolation; the
// caller answers both with a 404, matching spec.md §4.4: "Failure → 404.
// Any canonicalisation error also → 404."
func resolveOnce(filename, canonicalRoot string) statcache.Result {
	canonical, err := filepath.EvalSymlinks(filename)
	if err != nil {
		return statcache.Result{Err: ErrNotFound}
	}
	if !isPathInHierarchy(canonical, canonicalRoot) {
		return statcache.Result{Err: ErrSandboxViolation}
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return statcache.Result{Err: ErrNotFound}
	}
	return statcache.Result{CanonicalPath: canonical, Info: info}
}

// isPathInHierarchy reports whether canonical path p has canonical root as
// a prefix, by length then bytewise, per spec.md §4.4.
func isPathInHierarchy(p, root string) bool {
	if p == root {
		return true
	}
	if len(p) <= len(root) {
		return false
	}
	if p[:len(root)] != root {
		return false
	}
	return p[len(root)] == filepath.Separator
}

// IsNotModified implements spec.md §4.4's conditional-GET comparison.
func IsNotModified(req *Request, mtime time.Time) bool {
	if req.IfModifiedSince == nil {
		return false
	}
	return !mtime.After(*req.IfModifiedSince)
}
