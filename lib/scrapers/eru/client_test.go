package eru

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"erulicence/lib/telemetry"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func newMockedClient(t testing.TB) *Client {
	t.Helper()
	client, err := NewClient(Options{}, telemetry.SlogAPI{})
	require.NoError(t, err)

	httpmock.ActivateNonDefault(client.Http.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

const licencePage = `<html><body>
<table class="lic-tez-total-table">
	<tr><th>Druh</th></tr><tr><th>MW</th></tr>
	<tr><th>Celkový</th><td>1</td><td>2</td></tr>
</table>
</body></html>`

func TestFetchLicence(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:eru")
	defer cleanup()

	client := newMockedClient(t)

	httpmock.RegisterResponderWithQuery(
		http.MethodGet, DefaultLicenceUrl, "lic-id=110100054",
		func(req *http.Request) (*http.Response, error) {
			require.Equal(t, DefaultUserAgent, req.Header.Get("user-agent"))
			return httpmock.NewStringResponse(http.StatusOK, licencePage), nil
		},
	)

	doc, err := client.FetchLicence(context.Background(), "110100054")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("table.lic-tez-total-table").Length())
	require.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestFetchLicenceStatus(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponderWithQuery(
		http.MethodGet, DefaultLicenceUrl, "lic-id=1",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"),
	)

	_, err := client.FetchLicence(context.Background(), "1")
	var transport *TransportError
	require.True(t, errors.As(err, &transport), err)
	require.Equal(t, http.StatusServiceUnavailable, transport.Status)
	require.Equal(t, "1", transport.LicenceID)
}

func TestFetchLicenceNetworkError(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponderWithQuery(
		http.MethodGet, DefaultLicenceUrl, "lic-id=1",
		httpmock.NewErrorResponder(errors.New("connection reset")),
	)

	_, err := client.FetchLicence(context.Background(), "1")
	var transport *TransportError
	require.True(t, errors.As(err, &transport), err)
	require.Zero(t, transport.Status)
}

const holdersPage = `<html><body>
<ul>
	<li><a href="/documents/rozvod.xml">Rozvod tepelné energie</a></li>
	<li><a href="/documents/vyroba-elektriny.xml">
		výroba elektřiny
	</a></li>
	<li><a href="https://www.eru.cz/documents/plyn.xml">Výroba plynu (XML)</a></li>
</ul>
</body></html>`

func TestFindRosterURL(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder(
		http.MethodGet, DefaultHoldersUrl,
		httpmock.NewStringResponder(http.StatusOK, holdersPage),
	)

	testCases := []struct {
		business Business
		expected string
	}{
		{business: Electricity, expected: "https://www.eru.cz/documents/vyroba-elektriny.xml"},
		{business: HeatDistribution, expected: "https://www.eru.cz/documents/rozvod.xml"},
		{business: Gas, expected: "https://www.eru.cz/documents/plyn.xml"},
	}
	for _, test := range testCases {
		link, err := client.FindRosterURL(context.Background(), test.business)
		require.NoError(t, err, test.business)
		require.Equal(t, test.expected, link, test.business)
	}

	_, err := client.FindRosterURL(context.Background(), GasTrade)
	require.True(t, errors.Is(err, ErrRosterNotFound))
}

const rosterXml = `<?xml version="1.0" encoding="windows-1250"?>
<licence>
	<drzitel cislo_licence="110100009" version="18" version_status="platná"
		subjekt_IC="70889953" subjekt_nazev="Povodí Vltavy, státní podnik"
		subjekt_cislo_dom="2329" subjekt_cislo_or="8" subjekt_ulice_nazev="Holečkova"
		subjekt_obec_cast="Smíchov" subjekt_obec_nazev="Praha" subjekt_PSC="15000"
		subjekt_okres="Hlavní město Praha" subjekt_kraj="Hlavní město Praha" subjekt_zeme="CZ"
		subjekt_den_opravneni="2001-07-01" subjekt_den_zahajeni="2001-07-01"
		subjekt_den_zaniku="2026-07-16" subjekt_den_nabyti_pravni_moci="-----"
		odpovedny_zast="" />
</licence>`

func TestFetchRoster(t *testing.T) {
	client := newMockedClient(t)

	encoded, err := charmap.Windows1250.NewEncoder().String(rosterXml)
	require.NoError(t, err)

	httpmock.RegisterResponder(
		http.MethodGet, DefaultHoldersUrl,
		httpmock.NewStringResponder(http.StatusOK, holdersPage),
	)
	httpmock.RegisterResponder(
		http.MethodGet, "https://www.eru.cz/documents/vyroba-elektriny.xml",
		httpmock.NewBytesResponder(http.StatusOK, []byte(encoded)),
	)

	result, err := client.FetchRoster(context.Background(), Electricity)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "110100009", result[0].ID)
	require.Equal(t, "Povodí Vltavy, státní podnik", *result[0].Name)
}

func TestSampleFetcher(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "110100054.html"), []byte(licencePage), 0644)
	require.NoError(t, err)

	fetcher := SampleFetcher{Dir: dir}
	doc, err := fetcher.FetchLicence(context.Background(), "110100054")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("table").Length())

	_, err = fetcher.FetchLicence(context.Background(), "1")
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestBusiness(t *testing.T) {
	b, err := ParseBusiness(" Heat-Dist ")
	require.NoError(t, err)
	require.Equal(t, HeatDistribution, b)
	require.Equal(t, "rozvod tepelné energie", b.Label())

	_, err = ParseBusiness("nuclear")
	require.Error(t, err)

	businesses := Businesses()
	require.Len(t, businesses, 8)
	require.True(t, strings.Compare(string(businesses[0]), string(businesses[1])) < 0)
}
