package scheduler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func brokenSources(url string) []Source {
	return []Source{
		{Name: "a", URL: url, Parse: parseBibleAPI},
		{Name: "b", URL: url, Parse: parseLabsBible},
		{Name: "c", URL: url, Parse: parseOurManna},
	}
}

func TestFetchFallsBackWhenAllSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(nil, nil, brokenSources(srv.URL), time.Second, time.Second)

	for i := 0; i < 3; i++ {
		s.FetchAndPublish()
		snap := s.Current()
		require.Equal(t, "fallback", snap.Verse.Source)
		require.NotEmpty(t, snap.Verse.Reference)
		require.NotEmpty(t, snap.Verse.Text)
		require.EqualValues(t, i+1, snap.FetchCount)
	}
}

func TestFetchPublishesNewSessionToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reference":"John 3:16","text":"For God so loved the world","translation_name":"WEB","verses":[{"book_name":"John"}]}`))
	}))
	defer srv.Close()

	s := New(nil, nil, []Source{{Name: "test", URL: srv.URL, Parse: parseBibleAPI}}, time.Second, time.Second)

	before := s.Current().SessionToken
	s.FetchAndPublish()
	after := s.Current()
	require.NotEqual(t, before, after.SessionToken)
	require.Equal(t, "John 3:16", after.Verse.Reference)
	require.Equal(t, "John", after.Verse.Book)
	// Persistence is down (no repo), so the verse still carries a usable
	// placeholder id.
	require.GreaterOrEqual(t, after.Verse.ID, int64(1_000_000_000))
}

func TestSourcesRotate(t *testing.T) {
	var got []string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Query().Get("src"))
		w.WriteHeader(http.StatusInternalServerError)
	})

	sources := []Source{
		{Name: "a", URL: srv.URL + "/?src=a", Parse: parseBibleAPI},
		{Name: "b", URL: srv.URL + "/?src=b", Parse: parseBibleAPI},
		{Name: "c", URL: srv.URL + "/?src=c", Parse: parseBibleAPI},
	}
	s := New(nil, nil, sources, time.Second, time.Second)

	for i := 0; i < 4; i++ {
		s.FetchAndPublish()
	}
	require.Equal(t, []string{"a", "b", "c", "a"}, got)
}

func TestSetIntervalRejectsOutOfRange(t *testing.T) {
	s := New(nil, nil, DefaultSources(), time.Second, time.Second)

	require.ErrorIs(t, s.SetInterval(MinInterval-1), ErrIntervalOutOfRange)
	require.ErrorIs(t, s.SetInterval(MaxInterval+1), ErrIntervalOutOfRange)
	require.Equal(t, DefaultInterval, s.Current().Interval)

	require.NoError(t, s.SetInterval(MinInterval))
	require.Equal(t, MinInterval, s.Current().Interval)
	require.NoError(t, s.SetInterval(MaxInterval))
	require.Equal(t, MaxInterval, s.Current().Interval)
}

func TestSetIntervalShortensCountdown(t *testing.T) {
	s := New(nil, nil, DefaultSources(), time.Second, time.Second)
	s.mu.Lock()
	s.timeLeft = 300
	s.mu.Unlock()

	require.NoError(t, s.SetInterval(30))
	require.Equal(t, 30, s.TimeLeft())

	// Growing the interval leaves a shorter countdown alone.
	require.NoError(t, s.SetInterval(600))
	require.Equal(t, 30, s.TimeLeft())
}

func TestCurrentForCachesPerUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(nil, nil, brokenSources(srv.URL), time.Second, time.Minute)
	s.FetchAndPublish()

	first := s.CurrentFor(1)
	s.FetchAndPublish()

	// User 1 still sees the cached snapshot; a fresh user sees the new one.
	require.Equal(t, first.SessionToken, s.CurrentFor(1).SessionToken)
	require.NotEqual(t, first.SessionToken, s.CurrentFor(2).SessionToken)
}

func TestParseLabsBibleArrayShape(t *testing.T) {
	v, err := parseLabsBible([]byte(`[{"bookname":"John","chapter":"3","verse":"16","text":"For God so loved the world"}]`))
	require.NoError(t, err)
	require.Equal(t, "John 3:16", v.Reference)
	require.Equal(t, "NET", v.Translation)
	require.Equal(t, "John", v.Book)

	_, err = parseLabsBible([]byte(`[]`))
	require.Error(t, err)
}

func TestParseOurMannaNestedShape(t *testing.T) {
	v, err := parseOurManna([]byte(`{"verse":{"details":{"text":"Trust in the LORD","reference":"Proverbs 3:5","version":"NIV"}}}`))
	require.NoError(t, err)
	require.Equal(t, "Proverbs 3:5", v.Reference)
	require.Equal(t, "NIV", v.Translation)
	require.Equal(t, "Proverbs", v.Book)

	_, err = parseOurManna([]byte(`{"verse":{"details":{}}}`))
	require.Error(t, err)
}

func TestParseBibleAPIMissingFields(t *testing.T) {
	_, err := parseBibleAPI([]byte(`{"reference":"","text":""}`))
	require.Error(t, err)
	_, err = parseBibleAPI([]byte(`not json`))
	require.Error(t, err)
}

func TestBookFromReference(t *testing.T) {
	require.Equal(t, "1 John", bookFromReference("1 John 4:19"))
	require.Equal(t, "Psalm", bookFromReference("Psalm 23:1"))
	require.Equal(t, "Obadiah", bookFromReference("Obadiah"))
}
