// Package pipeline runs one upload from validation to the stored
// transcription record under a single processing deadline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"audioscribe/internal/apperr"
	"audioscribe/internal/model"
	"audioscribe/internal/storage"
)

// Validation messages returned to the client.
const (
	MsgNoFilePart      = "No file part"
	MsgNoSelectedFile  = "No selected file"
	MsgInvalidFilename = "Invalid file name"
)

// Stager writes the uploaded bytes to a request-private location.
type Stager interface {
	Stage(ctx context.Context, src io.Reader, filename string) (*storage.Staged, error)
}

// Normalizer returns a path holding the upload in the canonical format.
type Normalizer interface {
	Normalize(ctx context.Context, path string) (string, error)
}

// Transcriber turns canonical audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Store persists blobs and records.
type Store interface {
	PutBlob(ctx context.Context, r io.Reader, filename string) (string, error)
	InsertRecord(ctx context.Context, rec *model.TranscriptionRecord) (string, error)
}

// Pipeline processes uploads against its stores and speech provider.
type Pipeline struct {
	stager      Stager
	normalizer  Normalizer
	transcriber Transcriber
	store       Store
	timeout     time.Duration
	log         *logrus.Entry
}

// New returns a Pipeline that gives each upload timeout to complete.
func New(stager Stager, normalizer Normalizer, transcriber Transcriber, store Store, timeout time.Duration, log *logrus.Entry) *Pipeline {
	return &Pipeline{
		stager:      stager,
		normalizer:  normalizer,
		transcriber: transcriber,
		store:       store,
		timeout:     timeout,
		log:         log,
	}
}

type outcome struct {
	res *model.UploadResult
	err error
}

// Begin arms the processing deadline. Callers that do work before Process,
// such as reading the request body, start the clock here and pass the
// returned context on to Process.
func (p *Pipeline) Begin(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

// Process handles one upload. The deadline covers every step up to and
// including the record insert, and an earlier deadline already on ctx (see
// Begin) wins. When it fires Process returns a timeout error straight away,
// and the abandoned run stops at its next step boundary. An insert already
// under way is waited for: its result decides the outcome.
func (p *Pipeline) Process(ctx context.Context, req model.UploadRequest) (*model.UploadResult, error) {
	ctx, cancel := p.Begin(ctx)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	inserting := make(chan struct{})
	go func() {
		res, err := p.run(ctx, req, inserting)
		done <- outcome{res: res, err: err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		select {
		case <-inserting:
			// the insert owns the outcome once it has started
			o = <-done
		default:
			o.err = ctx.Err()
		}
	}
	if o.err == nil {
		return o.res, nil
	}
	err := o.err

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		p.log.WithFields(logrus.Fields{
			"filename":   req.Filename,
			"elapsed_ms": time.Since(start).Milliseconds(),
		}).Warn("processing deadline exceeded")
		return nil, apperr.Timeout()
	}
	return nil, err
}

func (p *Pipeline) run(ctx context.Context, req model.UploadRequest, inserting chan<- struct{}) (*model.UploadResult, error) {
	if req.File == nil {
		return nil, apperr.Validation(MsgNoFilePart)
	}
	if req.Filename == "" {
		return nil, apperr.Validation(MsgNoSelectedFile)
	}
	filename := storage.SecureFilename(req.Filename)
	if filename == "" {
		return nil, apperr.Validation(MsgInvalidFilename)
	}
	name := req.Name
	if name == "" {
		name = model.DefaultName
	}
	log := p.log.WithField("filename", filename)

	staged, err := p.stager.Stage(ctx, req.File, filename)
	if err != nil {
		return nil, p.abort(ctx, apperr.Storage("staging", err))
	}
	defer func() {
		if err := staged.Cleanup(); err != nil {
			log.WithError(err).Warn("failed to remove scratch directory")
		}
	}()
	log.WithField("size", staged.Size).Debug("upload staged")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	audioPath, err := p.normalizer.Normalize(ctx, staged.Path)
	if err != nil {
		return nil, p.abort(ctx, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blobID, err := p.putBlob(ctx, audioPath, filename)
	if err != nil {
		return nil, p.abort(ctx, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		// the blob stays; there is no compensation
		log.WithField("blob_id", blobID).Warn("transcription failed after blob write")
		return nil, p.abort(ctx, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	close(inserting)
	recordID, err := p.store.InsertRecord(ctx, &model.TranscriptionRecord{
		Name:     name,
		Filename: filename,
		BlobID:   blobID,
		Text:     text,
	})
	if err != nil {
		return nil, p.abort(ctx, err)
	}

	log.WithFields(logrus.Fields{
		"record_id": recordID,
		"blob_id":   blobID,
	}).Info("upload processed")
	return &model.UploadResult{Filename: filename, Transcription: text, ID: recordID}, nil
}

func (p *Pipeline) putBlob(ctx context.Context, path, filename string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperr.Storage("blob write", fmt.Errorf("open %s: %w", filepath.Base(path), err))
	}
	defer f.Close()
	return p.store.PutBlob(ctx, f, filename)
}

// abort prefers the context error once the deadline has passed, so a step
// that failed because it was canceled is not reported as its own failure.
func (p *Pipeline) abort(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
