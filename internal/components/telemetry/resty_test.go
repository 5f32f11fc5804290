package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestInstrumentResty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	rec := &Recorder{}
	client := resty.New().SetBaseURL(srv.URL)
	InstrumentResty(client, rec)

	res, err := client.R().Get("/tea")
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, res.StatusCode())

	debug := rec.Reports(LevelDebug)
	require.Len(t, debug, 2)
	require.Equal(t, report_resty_request, debug[0].ID)
	require.Equal(t, []any{"request_id", uint64(1), "method", http.MethodGet}, debug[0].Params[:4])
	require.Equal(t, report_resty_response, debug[1].ID)
	require.Contains(t, debug[1].Params, http.StatusTeapot)
	require.Empty(t, rec.Reports(LevelBroken))
}

func TestInstrumentRestyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	rec := &Recorder{}
	client := resty.New().SetBaseURL(srv.URL)
	InstrumentResty(client, rec)

	_, err := client.R().Get("/")
	require.Error(t, err)
	require.True(t, rec.Has(LevelBroken, report_resty_response))
}
