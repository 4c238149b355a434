package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"audioscribe/internal/apperr"
	"audioscribe/internal/model"
	"audioscribe/internal/utils"
)

// Uploader runs one upload end to end. Begin arms the processing deadline
// before the request body is read.
type Uploader interface {
	Begin(ctx context.Context) (context.Context, context.CancelFunc)
	Process(ctx context.Context, req model.UploadRequest) (*model.UploadResult, error)
}

const maxMultipartMemory = 32 << 20

type Handler struct {
	uploader Uploader
	log      *logrus.Entry
}

func NewHandler(uploader Uploader, log *logrus.Entry) *Handler {
	return &Handler{uploader: uploader, log: log}
}

// NewRouter builds the engine with the middleware chain and every route.
func NewRouter(h *Handler, maxBodyBytes int64) *gin.Engine {
	r := gin.New()
	r.Use(requestID(), recovery(h.log), requestLogger(h.log), cors(), bodyLimit(maxBodyBytes))
	RegisterRoutes(r, h)
	return r
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.healthCheck)
	r.POST("/upload", h.upload)
}

// healthCheck returns server health status
func (h *Handler) healthCheck(c *gin.Context) {
	utils.JSON(c, http.StatusOK, gin.H{
		"status":  "ok",
		"service": "audioscribe",
	})
}

// upload handles POST /upload
func (h *Handler) upload(c *gin.Context) {
	ctx, cancel := h.uploader.Begin(c.Request.Context())
	defer cancel()

	form, err := readForm(ctx, c)
	switch {
	case err == nil:
		defer func() { _ = form.RemoveAll() }()
	case errors.Is(err, os.ErrDeadlineExceeded):
		// the connection read deadline can land just ahead of ctx
		h.fail(c, apperr.Timeout())
		return
	case ctx.Err() != nil:
		h.fail(c, timeoutOr(ctx, err))
		return
	case isTooLarge(err):
		utils.Error(c, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	default:
		// not multipart or malformed: no file part can be found
		h.log.WithError(err).Debug("multipart form not parsed")
		form = nil
	}

	req, closeFile, err := uploadRequest(form)
	if err != nil {
		utils.Error(c, apperr.HTTPStatus(err), err.Error())
		return
	}
	defer closeFile()

	res, err := h.uploader.Process(ctx, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.JSON(c, http.StatusOK, res)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"kind":       apperr.KindOf(err),
		}).WithError(err).Error("upload failed")
	}
	utils.Error(c, status, err.Error())
}

type formResult struct {
	form *multipart.Form
	err  error
}

// readForm parses the multipart body, giving up when ctx is done. Only the
// request body is touched off the handler goroutine; an abandoned parse
// removes its own temp files.
func readForm(ctx context.Context, c *gin.Context) (*multipart.Form, error) {
	mr, err := c.Request.MultipartReader()
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		// unblocks a stalled body read on a live connection
		_ = http.NewResponseController(c.Writer).SetReadDeadline(deadline)
	}

	done := make(chan formResult, 1)
	go func() {
		form, err := mr.ReadForm(maxMultipartMemory)
		done <- formResult{form: form, err: err}
	}()

	select {
	case res := <-done:
		return res.form, res.err
	case <-ctx.Done():
		go func() {
			if res := <-done; res.form != nil {
				_ = res.form.RemoveAll()
			}
		}()
		return nil, ctx.Err()
	}
}

func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Timeout()
	}
	return err
}

// uploadRequest extracts the file and name fields. A file part sent with an
// empty filename is stored by the multipart reader as a plain value, so it
// surfaces here as a file with no name.
func uploadRequest(form *multipart.Form) (model.UploadRequest, func(), error) {
	noop := func() {}
	var req model.UploadRequest
	if form == nil {
		return req, noop, nil
	}
	if names := form.Value["name"]; len(names) > 0 {
		req.Name = names[0]
	}

	if files := form.File["file"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return req, noop, apperr.Storage("staging", err)
		}
		req.File = f
		req.Filename = files[0].Filename
		return req, func() { _ = f.Close() }, nil
	}
	if values, ok := form.Value["file"]; ok && len(values) > 0 {
		req.File = strings.NewReader(values[0])
	}
	return req, noop, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge)
}
