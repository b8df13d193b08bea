package eru

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PuerkitoBio/goquery"
)

// SampleFetcher reads licence pages saved to disk as `<Dir>/<licence id>.html`
// instead of fetching them.
type SampleFetcher struct {
	Dir string
}

func (f SampleFetcher) FetchLicence(ctx context.Context, licenceId string) (*goquery.Document, error) {
	path := filepath.Join(f.Dir, licenceId+".html")
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("licence %s: %w", licenceId, err)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("licence %s: parse html: %w", licenceId, err)
	}
	return doc, nil
}
