/*
Copyright © 2026 the Upstream authors.
This file is part of Upstream.

Upstream is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Upstream is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Upstream.  If not, see <http://www.gnu.org/licenses/>.
*/


package cloud

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Log receives retry notifications.
var Log logrus.FieldLogger = logrus.StandardLogger()

// MaxRetries is the number of times a failed remote read is retried.
var MaxRetries uint64 = 5

// newBackOff returns the retry policy for remote operations. It is a
// variable so tests can shorten the waits.
var newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }

// retry runs op until it succeeds, returns a permanent error, the retries
// run out, or ctx is done.
func retry(ctx context.Context, name string, op backoff.Operation) error {
	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), MaxRetries), ctx)
	return backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		Log.WithFields(logrus.Fields{
			"file":  name,
			"error": err,
		}).Warnf("read failed; retrying in %v", d)
	})
}

// Open opens the named file for reading. name may be a local path, an
// http(s) URL, or a blob URL (see IsBlob). Remote reads are retried with
// exponential backoff.
func Open(ctx context.Context, name string) (io.ReadCloser, error) {
	switch {
	case IsHTTP(name):
		return openHTTP(ctx, name)
	case IsBlob(name):
		return openBlob(ctx, name)
	default:
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("cloud: %v", err)
		}
		return f, nil
	}
}

func openHTTP(ctx context.Context, name string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := retry(ctx, name, func() error {
		req, err := http.NewRequest(http.MethodGet, name, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := http.DefaultClient.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			err := fmt.Errorf("%s: %s", name, resp.Status)
			if resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cloud: downloading %s: %v", name, err)
	}
	return body, nil
}

func openBlob(ctx context.Context, name string) (io.ReadCloser, error) {
	loc, err := ParseLocation(name)
	if err != nil {
		return nil, err
	}
	bucket, err := loc.OpenBucket(ctx)
	if err != nil {
		return nil, err
	}
	var r *blob.Reader
	err = retry(ctx, name, func() error {
		var err error
		r, err = bucket.NewReader(ctx, loc.Key, nil)
		if err != nil {
			switch gcerrors.Code(err) {
			case gcerrors.NotFound, gcerrors.PermissionDenied, gcerrors.InvalidArgument:
				return backoff.Permanent(err)
			}
		}
		return err
	})
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("cloud: reading %s: %v", name, err)
	}
	return &bucketCloser{ReadCloser: r, bucket: bucket}, nil
}

// bucketCloser closes the bucket along with the object reader.
type bucketCloser struct {
	io.ReadCloser
	bucket *blob.Bucket
}

func (b *bucketCloser) Close() error {
	err := b.ReadCloser.Close()
	if err2 := b.bucket.Close(); err == nil {
		err = err2
	}
	return err
}

// Create returns a writer for the named file. Nothing is visible at
// name until Close returns without error: local files are written to a
// temporary file in the same directory and renamed, and blob objects are
// committed by the bucket on Close. Abort discards the output instead.
func Create(ctx context.Context, name string) (*Writer, error) {
	if IsHTTP(name) {
		return nil, fmt.Errorf("cloud: cannot write to %s", name)
	}
	if IsBlob(name) {
		return createBlob(ctx, name)
	}
	f, err := ioutil.TempFile(filepath.Dir(name), "."+filepath.Base(name)+".")
	if err != nil {
		return nil, fmt.Errorf("cloud: %v", err)
	}
	return &Writer{
		w: f,
		commit: func() error {
			if err := f.Close(); err != nil {
				os.Remove(f.Name())
				return err
			}
			return os.Rename(f.Name(), name)
		},
		abort: func() {
			f.Close()
			os.Remove(f.Name())
		},
	}, nil
}

func createBlob(ctx context.Context, name string) (*Writer, error) {
	loc, err := ParseLocation(name)
	if err != nil {
		return nil, err
	}
	bucket, err := loc.OpenBucket(ctx)
	if err != nil {
		return nil, err
	}
	wctx, cancel := context.WithCancel(ctx)
	w, err := bucket.NewWriter(wctx, loc.Key, &blob.WriterOptions{})
	if err != nil {
		cancel()
		bucket.Close()
		return nil, fmt.Errorf("cloud: opening writer for '%s': %v", name, err)
	}
	return &Writer{
		w: w,
		commit: func() error {
			defer cancel()
			err := w.Close()
			if err2 := bucket.Close(); err == nil {
				err = err2
			}
			return err
		},
		abort: func() {
			// Canceling the context before Close discards the object.
			cancel()
			w.Close()
			bucket.Close()
		},
	}, nil
}

// Writer is an output file that only appears once it is closed.
type Writer struct {
	w      io.Writer
	commit func() error
	abort  func()
	done   bool
}

func (w *Writer) Write(p []byte) (int, error) { return w.w.Write(p) }

// Close commits the output.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.commit(); err != nil {
		return fmt.Errorf("cloud: committing output: %v", err)
	}
	return nil
}

// Abort discards the output. It does nothing after Close.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.abort()
}
