// Package fetcher opens reference tables from local paths, HTTP or FTP and
// parses them as CSV or XLSX rows.
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
	// Download fetches the URL and returns the body. The caller closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Sources holds the fetchers used for remote schemes. A nil entry disables
// that scheme.
type Sources struct {
	HTTP Fetcher
	FTP  Fetcher
}

// DefaultSources returns HTTP and FTP fetchers with default options.
func DefaultSources() Sources {
	return Sources{
		HTTP: NewHTTPFetcher(HTTPOptions{}),
		FTP:  NewFTPFetcher(FTPOptions{}),
	}
}

// Open returns a reader for source, which is either a local path or an
// http(s):// or ftp:// URL.
func Open(ctx context.Context, source string, src Sources) (io.ReadCloser, error) {
	scheme := ""
	if u, err := url.Parse(source); err == nil {
		scheme = strings.ToLower(u.Scheme)
	}

	switch scheme {
	case "http", "https":
		if src.HTTP == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", source)
		}
		return src.HTTP.Download(ctx, source)
	case "ftp":
		if src.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher for %s", source)
		}
		return src.FTP.Download(ctx, source)
	case "", "file":
		path := strings.TrimPrefix(source, "file://")
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		return f, nil
	default:
		// Windows drive letters parse as a one-letter scheme.
		if len(scheme) == 1 {
			f, err := os.Open(source)
			if err != nil {
				return nil, eris.Wrapf(err, "fetcher: open %s", source)
			}
			return f, nil
		}
		return nil, eris.Errorf("fetcher: unsupported scheme %q", scheme)
	}
}

// ReadAll opens source and reads it fully.
func ReadAll(ctx context.Context, source string, src Sources) ([]byte, error) {
	rc, err := Open(ctx, source, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", source)
	}
	return data, nil
}
