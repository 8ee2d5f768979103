package fetcher

import (
	"context"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote files. Implementations exist for HTTP(S) and
// anonymous FTP; ForURL picks one by scheme.
type Fetcher interface {
	// Download fetches the URL and returns the body. The caller must close
	// the returned ReadCloser.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ForURL returns a fetcher for the URL's scheme with default options. Roll
// archives are published both on the DOR FTP drop and on county GIS servers
// over HTTPS, so sync sources carry their scheme in config.
func ForURL(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	switch u.Scheme {
	case "ftp":
		return NewFTPFetcher(FTPOptions{}), nil
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{}), nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
