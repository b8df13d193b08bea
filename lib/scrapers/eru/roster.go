package eru

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"erulicence/lib/holders"
	"erulicence/lib/htmlutil"
	"erulicence/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// anchors that are this similar to the business label still count as a
// match, the holders page is edited by hand and the labels drift.
const rosterSimilarity = 0.93

var ErrRosterNotFound = errors.New("roster link not found")

// FindRosterURL looks up the link to the holder roster of `business` on the
// holders page.
func (c *Client) FindRosterURL(ctx context.Context, business Business) (string, error) {
	ctx, span := tracer.Start(ctx, "FindRosterURL")
	defer span.End()
	span.SetAttributes(attribute.String("business", string(business)))

	label := business.Label()
	if label == "" {
		return "", fmt.Errorf("unknown business %q", business)
	}

	res, err := c.get(ctx, c.holdersUrl.String(), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch holders page")
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return "", fmt.Errorf("holders page: %w", err)
	}

	base := c.holdersUrl
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		base = res.RawResponse.Request.URL
	}
	anchors := htmlutil.GetAnchors(ctx, base, doc.Find("a[href]"))

	link, ok := matchRoster(label, anchors)
	if !ok {
		c.tel.ReportBroken(report_client_find_roster, business, len(anchors))
		return "", fmt.Errorf("%s: %w", label, ErrRosterNotFound)
	}
	return link, nil
}

func matchRoster(label string, anchors []htmlutil.Anchor) (string, bool) {
	for _, a := range anchors {
		if a.Name == label {
			return a.Href, true
		}
	}
	for _, a := range anchors {
		if textutil.MatchName(a.Name, []string{label}) {
			return a.Href, true
		}
	}

	best := -1
	bestScore := 0.0
	normalized := textutil.NormalizeName(label)
	for i, a := range anchors {
		score := matchr.JaroWinkler(textutil.NormalizeName(a.Name), normalized, false)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 || bestScore < rosterSimilarity {
		return "", false
	}
	return anchors[best].Href, true
}

// FetchRoster downloads and parses the holder roster of `business`.
func (c *Client) FetchRoster(ctx context.Context, business Business) ([]holders.Holder, error) {
	ctx, span := tracer.Start(ctx, "FetchRoster")
	defer span.End()

	link, err := c.FindRosterURL(ctx, business)
	if err != nil {
		return nil, err
	}
	res, err := c.get(ctx, link, nil)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_roster, business, err)
		return nil, err
	}

	result, err := holders.Parse(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse roster")
		return nil, fmt.Errorf("roster of %s: %w", business, err)
	}
	span.SetAttributes(attribute.Int("holders", len(result)))
	return result, nil
}
