// Package fetcher retrieves dataset and boundary files from local paths,
// HTTP(S) and FTP, and parses CSV, XLSX and ZIP payloads.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Opener resolves a location (path, file://, http(s)://, ftp://) to a reader.
type Opener struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewOpener returns an Opener with default HTTP and FTP fetchers.
func NewOpener(httpOpts HTTPOptions, ftpOpts FTPOptions) *Opener {
	return &Opener{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// Scheme returns the lower-cased URL scheme of location, or "file" for plain paths.
func Scheme(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 { // "C:" drive letters
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// IsRemote reports whether location must be downloaded.
func IsRemote(location string) bool {
	switch Scheme(location) {
	case "http", "https", "ftp":
		return true
	default:
		return false
	}
}

// Open returns a reader for location. The caller closes it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch Scheme(location) {
	case "http", "https":
		if o.HTTP == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", location)
		}
		return o.HTTP.Download(ctx, location)
	case "ftp":
		if o.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher for %s", location)
		}
		return o.FTP.Download(ctx, location)
	case "file":
		f, err := os.Open(strings.TrimPrefix(location, "file://"))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", location)
		}
		return f, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme in %q", location)
	}
}

// Localize makes location available as a local file, downloading remote
// resources into dir. Local paths are returned unchanged.
func (o *Opener) Localize(ctx context.Context, location, dir string) (string, error) {
	if !IsRemote(location) {
		return strings.TrimPrefix(location, "file://"), nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse %s", location)
	}
	name := u.Path[strings.LastIndex(u.Path, "/")+1:]
	if name == "" {
		name = "download"
	}
	dest := dir + string(os.PathSeparator) + name

	var f Fetcher = o.HTTP
	if Scheme(location) == "ftp" {
		f = o.FTP
	}
	if f == nil {
		return "", eris.Errorf("fetcher: no fetcher for %s", location)
	}
	if _, err := f.DownloadToFile(ctx, location, dest); err != nil {
		return "", err
	}
	return dest, nil
}
