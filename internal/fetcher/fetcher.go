package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// StdinSource names standard input as a source.
const StdinSource = "-"

// Opener resolves a source string to a readable stream: "-" for stdin,
// http(s):// and ftp:// URLs through their fetchers, anything else as a local path.
type Opener struct {
	HTTP  Fetcher
	FTP   Fetcher
	Stdin io.Reader
}

// NewOpener creates an Opener with HTTP and FTP fetchers built from the given options.
func NewOpener(httpOpts HTTPOptions, ftpOpts FTPOptions) *Opener {
	return &Opener{
		HTTP:  NewHTTPFetcher(httpOpts),
		FTP:   NewFTPFetcher(ftpOpts),
		Stdin: os.Stdin,
	}
}

// Open returns the source's content. The caller must close it.
func (o *Opener) Open(ctx context.Context, src string) (io.ReadCloser, error) {
	if src == StdinSource {
		if o.Stdin == nil {
			return nil, eris.New("fetcher: stdin not available")
		}
		return io.NopCloser(o.Stdin), nil
	}

	switch scheme(src) {
	case "http", "https":
		if o.HTTP == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", src)
		}
		return o.HTTP.Download(ctx, src)
	case "ftp":
		if o.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher for %s", src)
		}
		return o.FTP.Download(ctx, src)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", src)
	}
	return f, nil
}

// IsXLSX reports whether src names a workbook, judged by its extension.
func IsXLSX(src string) bool {
	p := src
	if scheme(src) != "" {
		if u, err := url.Parse(src); err == nil {
			p = u.Path
		}
	}
	return strings.EqualFold(path.Ext(p), ".xlsx")
}

// BaseName returns the last path element of a local path or URL, or "stdin".
func BaseName(src string) string {
	if src == StdinSource {
		return "stdin"
	}
	p := src
	if scheme(src) != "" {
		if u, err := url.Parse(src); err == nil {
			p = u.Path
		}
	}
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Base(p)
}

func scheme(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	switch s := strings.ToLower(u.Scheme); s {
	case "http", "https", "ftp":
		return s
	}
	return ""
}
