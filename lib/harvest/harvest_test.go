package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"erulicence/lib/licence"
	"erulicence/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const business = "výroba elektřiny"

func page(mw int) string {
	return fmt.Sprintf(`<html><body>
	<table class="lic-tez-total-table">
		<tr><th>Druh</th></tr><tr><th>MW</th></tr>
		<tr><th>Celkový</th><td>%d</td><td></td></tr>
	</table>
	</body></html>`, mw)
}

type fakeFetcher struct {
	pages map[string]string
	calls atomic.Int64
	delay time.Duration
}

var errNotFound = errors.New("not found")

func (f *fakeFetcher) FetchLicence(ctx context.Context, id string) (*goquery.Document, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	html, ok := f.pages[id]
	if !ok {
		return nil, errNotFound
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func roster(n int) ([]string, *fakeFetcher) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("1101%05d", i)
		fetcher.pages[ids[i]] = page(i + 1)
	}
	return ids, fetcher
}

func ids(result Result) []string {
	out := make([]string, len(result.Licences))
	for i, lic := range result.Licences {
		out[i] = lic.ID
	}
	return out
}

func TestRunKeepsRosterOrder(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:harvest")
	defer cleanup()

	roster, fetcher := roster(40)
	result, err := Run(context.Background(), Options{
		IDs:      roster,
		Business: business,
		Fetcher:  fetcher,
		Workers:  8,
	})
	require.NoError(t, err)
	require.Equal(t, roster, ids(result))
	require.Empty(t, result.Failures)

	for i, lic := range result.Licences {
		require.Equal(t, business, lic.Business)
		require.Equal(t, []licence.LicenceCapacity{{
			LicenceID: lic.ID,
			Capacity: licence.Capacity{
				Kind:       licence.Electrical,
				Technology: "Celkový",
				Megawatts:  float64(i + 1),
			},
		}}, lic.Capacities)
	}
}

func TestRunWindow(t *testing.T) {
	roster, fetcher := roster(10)

	testCases := []struct {
		start, end int
		expected   []string
	}{
		{start: 2, end: 5, expected: roster[2:5]},
		{start: 7, end: 0, expected: roster[7:]},
		{start: 0, end: 100, expected: roster},
		{start: 12, end: 0, expected: []string{}},
		{start: -3, end: 1, expected: roster[:1]},
	}
	for _, test := range testCases {
		result, err := Run(context.Background(), Options{
			IDs:      roster,
			Start:    test.start,
			End:      test.end,
			Business: business,
			Fetcher:  fetcher,
			Workers:  3,
		})
		require.NoError(t, err)
		require.Equal(t, test.expected, ids(result), "%d:%d", test.start, test.end)
	}
}

func TestRunSkipPolicy(t *testing.T) {
	roster, fetcher := roster(6)
	delete(fetcher.pages, roster[1])
	fetcher.pages[roster[4]] = `<html><body>
		<table class="lic-tez-total-table">
			<tr><th>Druh</th></tr><tr><th>MW</th></tr>
			<tr><th>Celkový</th><td>1,5</td><td></td></tr>
		</table></body></html>`

	result, err := Run(context.Background(), Options{
		IDs:      roster,
		Start:    1,
		Business: business,
		Fetcher:  fetcher,
		Workers:  4,
		Policy:   PolicySkip,
	})
	require.NoError(t, err)
	require.Equal(t, []string{roster[2], roster[3], roster[5]}, ids(result))

	require.Len(t, result.Failures, 2)
	require.Equal(t, 1, result.Failures[0].Index)
	require.Equal(t, roster[1], result.Failures[0].LicenceID)
	require.True(t, errors.Is(result.Failures[0].Err, errNotFound))

	require.Equal(t, 4, result.Failures[1].Index)
	var numeric *licence.NumericParseError
	require.True(t, errors.As(result.Failures[1].Err, &numeric))
}

func TestRunAbortPolicy(t *testing.T) {
	roster, fetcher := roster(200)
	delete(fetcher.pages, roster[3])
	fetcher.delay = time.Millisecond

	_, err := Run(context.Background(), Options{
		IDs:      roster,
		Business: business,
		Fetcher:  fetcher,
		Workers:  2,
		Policy:   PolicyAbort,
	})
	require.True(t, errors.Is(err, errNotFound), err)
	require.ErrorContains(t, err, roster[3])
	require.ErrorContains(t, err, "#3")
	require.Less(t, fetcher.calls.Load(), int64(len(roster)))
}

func TestRunAbortKeepsParsedLicences(t *testing.T) {
	short, fetcher := roster(10)
	delete(fetcher.pages, short[9])

	result, err := Run(context.Background(), Options{
		IDs:      short,
		Business: business,
		Fetcher:  fetcher,
		Workers:  1,
		Policy:   PolicyAbort,
	})
	require.True(t, errors.Is(err, errNotFound), err)
	require.Equal(t, short[:9], ids(result))
	require.Empty(t, result.Failures)

	// concurrent workers still hand back an unbroken run from the window start
	long, fetcher := roster(50)
	delete(fetcher.pages, long[20])
	result, err = Run(context.Background(), Options{
		IDs:      long,
		Start:    10,
		Business: business,
		Fetcher:  fetcher,
		Workers:  4,
		Policy:   PolicyAbort,
	})
	require.True(t, errors.Is(err, errNotFound), err)
	got := ids(result)
	require.LessOrEqual(t, len(got), 10)
	require.Equal(t, long[10:10+len(got)], got)
}

func TestRunCancelled(t *testing.T) {
	roster, fetcher := roster(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{IDs: roster, Business: business, Fetcher: fetcher})
	require.True(t, errors.Is(err, context.Canceled), err)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicyAbort, p)

	p, err = ParsePolicy("skip")
	require.NoError(t, err)
	require.Equal(t, PolicySkip, p)

	_, err = ParsePolicy("retry")
	require.Error(t, err)
}

func TestRunWithoutFetcher(t *testing.T) {
	_, err := Run(context.Background(), Options{IDs: []string{"110100001"}})
	require.EqualError(t, err, "harvest: no fetcher")
}
