package gateway

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/filegate/pkg/storage"
)

const (
	formFieldFile = "file"
	formFieldPath = "path"

	// multipartMemory is the part of the form kept in memory, the rest is
	// spooled to temporary files by net/http
	multipartMemory = 32 << 20
	// formOverhead is the body allowance on top of the file size ceiling
	// for boundaries, part headers and the path field
	formOverhead = 1 << 20
)

type (
	errorResponse struct {
		Error string `json:"error"`
	}

	// clientError carries a status code and a message meant for the caller
	clientError struct {
		status int
		msg    string
	}
)

func (c clientError) Error() string { return c.msg }

func (g *Gateway) handleUpload(w http.ResponseWriter, r *http.Request) {
	key, size, err := g.processUpload(r.Context(), w, r)
	if err != nil {
		status := http.StatusInternalServerError

		var cErr clientError
		if errors.As(err, &cErr) {
			status = cErr.status
		} else {
			logrus.WithError(err).Error("storing upload failed")
		}

		g.metrics.recordUpload(status, 0)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{
		"key":  key,
		"size": size,
	}).Debug("stored upload")

	g.metrics.recordUpload(http.StatusOK, size)
	writeJSON(w, http.StatusOK, fmt.Sprintf("https://%s/%s", g.cfg.Domain, key))
}

func (g *Gateway) processUpload(ctx context.Context, w http.ResponseWriter, r *http.Request) (key string, size int64, err error) {
	if err = g.authorize(r); err != nil {
		return "", 0, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, g.maxSizeBytes()+formOverhead)
	if err = r.ParseMultipartForm(multipartMemory); err != nil {
		var mbErr *http.MaxBytesError
		if errors.As(err, &mbErr) {
			return "", 0, g.errTooLarge()
		}
		return "", 0, errors.Wrap(err, "parse form")
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logrus.WithError(err).Error("removing temporary form files")
		}
	}()

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", 0, errors.New("missing file")
		}
		return "", 0, errors.Wrap(err, "open form file")
	}
	defer func() {
		if err := file.Close(); err != nil {
			logrus.WithError(err).Error("closing form file (leaked fd)")
		}
	}()

	if header.Size > g.maxSizeBytes() {
		return "", 0, g.errTooLarge()
	}

	key = deriveKey(header.Filename, r.PostFormValue(formFieldPath), g.now())

	if err = g.store.StoreFile(ctx, key, metaFromHeader(header), file); err != nil {
		return "", 0, errors.Wrap(err, "store file")
	}

	return key, header.Size, nil
}

func (g *Gateway) authorize(r *http.Request) error {
	if g.cfg.SharedSecret == "" {
		return nil
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return clientError{http.StatusUnauthorized, "missing Authorization header"}
	}

	if subtle.ConstantTimeCompare([]byte(auth), []byte(g.cfg.SharedSecret)) != 1 {
		return clientError{http.StatusUnauthorized, "Authorization verification failed"}
	}

	return nil
}

func (g *Gateway) errTooLarge() error {
	return clientError{
		http.StatusRequestEntityTooLarge,
		fmt.Sprintf("file size exceeds %dMB limit", g.cfg.MaxSizeMB),
	}
}

func metaFromHeader(header *multipart.FileHeader) *storage.Meta {
	return &storage.Meta{
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(payload); err != nil {
		logrus.WithError(err).Error("encoding JSON response")
		writePlain(w, http.StatusInternalServerError, "Unable to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}
