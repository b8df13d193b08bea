package eru

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"erulicence/lib/restyutil"
	"erulicence/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var tracer = telemetry.Tracer("erulicence.lib.scrapers.eru")

const (
	report_client_fetch_licence = "client.fetch-licence"
	report_client_find_roster   = "client.find-roster"
	report_client_fetch_roster  = "client.fetch-roster"
)

const (
	DefaultLicenceUrl = "http://licence.eru.cz/detail.php"
	DefaultHoldersUrl = "https://www.eru.cz/cs/licence/informace-o-drzitelich"
	DefaultUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	DefaultTimeout    = 3 * time.Second
)

// Fetcher retrieves the detail page of a licence.
type Fetcher interface {
	FetchLicence(ctx context.Context, licenceId string) (*goquery.Document, error)
}

type Options struct {
	LicenceUrl string
	HoldersUrl string
	UserAgent  string
	Timeout    time.Duration
	// RequestsPerSecond <= 0 disables rate limiting.
	RequestsPerSecond float64
	// Dump receives every request/response pair, it can be nil.
	Dump restyutil.InstrumentOutput
}

type Client struct {
	Http *resty.Client

	licenceUrl string
	holdersUrl *url.URL
	tel        telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	if opts.LicenceUrl == "" {
		opts.LicenceUrl = DefaultLicenceUrl
	}
	if opts.HoldersUrl == "" {
		opts.HoldersUrl = DefaultHoldersUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	tel = telemetry.NewScopedAPI("eru_scraper", tel)

	holdersUrl, err := url.Parse(opts.HoldersUrl)
	if err != nil {
		return nil, fmt.Errorf("holders url: %w", err)
	}
	_, err = url.Parse(opts.LicenceUrl)
	if err != nil {
		return nil, fmt.Errorf("licence url: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetTimeout(opts.Timeout)

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	rateLimiter := rate.NewLimiter(limit, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tracer, tel)
	restyutil.DumpExchanges(httpClient, opts.Dump)

	return &Client{
		Http:       httpClient,
		licenceUrl: opts.LicenceUrl,
		holdersUrl: holdersUrl,
		tel:        tel,
	}, nil
}

func (c *Client) get(ctx context.Context, link string, query map[string]string) (*resty.Response, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(link)
	if err != nil {
		return nil, &TransportError{Url: link, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &TransportError{Url: res.Request.URL, Status: res.StatusCode()}
	}
	return res, nil
}

// LicenceQuery selects the detail page of one licence.
type LicenceQuery struct {
	LicenceID string
}

func (q LicenceQuery) Params() map[string]string {
	return map[string]string{"lic-id": q.LicenceID}
}

// FetchLicence gets the detail page of `licenceId`, the page is always
// decoded as utf-8.
func (c *Client) FetchLicence(ctx context.Context, licenceId string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "FetchLicence")
	defer span.End()

	res, err := c.get(ctx, c.licenceUrl, LicenceQuery{LicenceID: licenceId}.Params())
	if err != nil {
		var transport *TransportError
		if errors.As(err, &transport) {
			transport.LicenceID = licenceId
		}
		c.tel.ReportWarning(report_client_fetch_licence, licenceId, err)
		return nil, fmt.Errorf("licence %s: %w", licenceId, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_licence, licenceId, err)
		return nil, fmt.Errorf("licence %s: parse html: %w", licenceId, err)
	}
	return doc, nil
}
