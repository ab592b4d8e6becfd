package s3

import (
	"fmt"
	"net/url"
	"strings"
)

const expectedScheme = "s3"

// Location is a bucket plus key (or key prefix) parsed from an s3:// URI.
type Location struct {
	Bucket string `errorTxt:"bucket name" mandatory:"yes"`
	Key    string `errorTxt:"bucket key"`
}

// String returns the location in s3://bucket/key form.
func (l Location) String() string {
	if l.Key == "" {
		return fmt.Sprintf("%v://%v", expectedScheme, l.Bucket)
	}
	return fmt.Sprintf("%v://%v/%v", expectedScheme, l.Bucket, l.Key)
}

// ParseURI expects uri to be of the form s3://<bucket>[/<key>].
// It returns a Location populated with the components of uri.
// The scheme is mandatory since Redshift COPY will not accept anything else.
func ParseURI(uri string) (retval Location, err error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return retval, fmt.Errorf("error parsing S3 URI %q: %v", uri, err)
	}
	if u.Scheme != expectedScheme {
		return retval, fmt.Errorf("expected S3 URI scheme %q in %q but got %q", expectedScheme, uri, u.Scheme)
	}
	retval.Bucket = u.Host
	if retval.Bucket == "" {
		return retval, fmt.Errorf("S3 URI %q is missing a bucket name", uri)
	}
	retval.Key = strings.TrimLeft(u.Path, "/")
	return
}
