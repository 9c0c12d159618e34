package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const indexFile = "index.html"

// spaHandler serves a single-page app build. Paths that match no file fall
// back to index.html so client-side routes resolve.
type spaHandler struct {
	root   string
	logger *zap.Logger
}

func newStaticHandler(root string, logger *zap.Logger) fiber.Handler {
	return adaptor.HTTPHandler(&spaHandler{root: root, logger: logger})
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if name == "/" {
		name = "/" + indexFile
	}

	err := h.serveFile(w, r, name)
	if errors.Is(err, fs.ErrNotExist) {
		err = h.serveFile(w, r, "/"+indexFile)
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "404 Not Found", http.StatusNotFound)
			return
		}
	}
	if err != nil {
		h.logger.Error("failed to serve static file", zap.String("path", name), zap.Error(err))
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
	}
}

// serveFile writes the file at the slash-separated name under root. Only
// fs.ErrNotExist and open or stat failures are returned; nothing has been
// written when it returns an error.
func (h *spaHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) error {
	full := filepath.Join(h.root, filepath.FromSlash(strings.TrimPrefix(name, "/")))

	f, err := os.Open(full)
	if errors.Is(err, syscall.ENOTDIR) {
		return fs.ErrNotExist
	}
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fs.ErrNotExist
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return nil
}
