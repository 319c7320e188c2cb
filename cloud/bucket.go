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


// Package cloud opens rasters and their headers wherever they are stored:
// on the local file system, at an http(s) URL, or in blob storage.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// DefaultS3Region is used for S3 buckets when neither the environment
// nor the shared AWS configuration names a region.
var DefaultS3Region = "us-east-2"

// bucketOpeners open the bucket or directory named by a Location, by
// scheme.
var bucketOpeners = map[string]func(ctx context.Context, name string) (*blob.Bucket, error){
	"file": func(_ context.Context, dir string) (*blob.Bucket, error) {
		return fileblob.OpenBucket(dir, nil)
	},
	"gs": openGCS,
	"s3": openS3,
}

// IsBlob returns whether name is a blob URL: one with a "file", "gs" or
// "s3" scheme.
func IsBlob(name string) bool {
	i := strings.Index(name, "://")
	if i < 0 {
		return false
	}
	_, ok := bucketOpeners[name[:i]]
	return ok
}

// IsHTTP returns whether name is an http or https URL.
func IsHTTP(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

// Location is an object in blob storage.
type Location struct {
	Scheme string // "file", "gs" or "s3"

	// Bucket is the bucket name, or for "file" locations the directory
	// holding the file.
	Bucket string

	Key string
}

// ParseLocation parses a blob URL. "file:///data/dem.flt" is the object
// "dem.flt" in the directory "/data"; "gs://b/dir/dem.flt" is the object
// "dir/dem.flt" in bucket "b".
func ParseLocation(blobURL string) (Location, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return Location{}, fmt.Errorf("cloud: parsing blob url '%s': %v", blobURL, err)
	}
	l := Location{Scheme: u.Scheme}
	switch u.Scheme {
	case "file":
		dir, file := path.Split(u.Host + u.Path)
		if file == "" {
			return l, fmt.Errorf("cloud: blob url '%s' has no file name", blobURL)
		}
		if dir != "/" {
			dir = strings.TrimSuffix(dir, "/")
		}
		l.Bucket, l.Key = dir, file
	case "gs", "s3":
		l.Bucket, l.Key = u.Host, strings.TrimPrefix(u.Path, "/")
		if l.Key == "" {
			return l, fmt.Errorf("cloud: blob url '%s' has no object key", blobURL)
		}
	default:
		return l, fmt.Errorf("cloud: invalid provider '%s' in '%s'", u.Scheme, blobURL)
	}
	return l, nil
}

// String returns l as a blob URL.
func (l Location) String() string {
	return l.Scheme + "://" + path.Join(l.Bucket, l.Key)
}

// OpenBucket opens the bucket holding l. The caller must close it.
func (l Location) OpenBucket(ctx context.Context) (*blob.Bucket, error) {
	open, ok := bucketOpeners[l.Scheme]
	if !ok {
		return nil, fmt.Errorf("cloud: invalid provider '%s'", l.Scheme)
	}
	b, err := open(ctx, l.Bucket)
	if err != nil {
		return nil, fmt.Errorf("cloud: opening bucket for '%s': %v", l, err)
	}
	return b, nil
}

// openGCS opens a Google Cloud Storage bucket with the application
// default credentials.
func openGCS(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, client, name, nil)
}

// openS3 opens an S3 bucket. Credentials and region come from the
// environment or the shared AWS configuration files.
func openS3(ctx context.Context, name string) (*blob.Bucket, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, err
	}
	if aws.StringValue(sess.Config.Region) == "" {
		sess = sess.Copy(&aws.Config{Region: aws.String(DefaultS3Region)})
	}
	return s3blob.OpenBucket(ctx, sess, name, nil)
}
