package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/renatojobal/fomoff/internal/model"
	"github.com/renatojobal/fomoff/internal/store"
)

// maxDocumentBytes bounds a remote data store body.
const maxDocumentBytes = 16 << 20

// LoadDocument reads the data store from a file path or an http(s) URL.
// A missing local file is an error here: the viewer has nothing to show.
func LoadDocument(ctx context.Context, client *http.Client, src string) (*model.Document, error) {
	if src == "" {
		return nil, fmt.Errorf("no data source configured")
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return loadFile(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch data store: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, err
	}
	return store.Decode(body)
}

func loadFile(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data store: %w", err)
	}
	return store.Decode(data)
}
