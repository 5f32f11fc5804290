package browser

import (
	"compress/gzip"
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/httptest"
	"testing"
	"tigerscraper/internal/components/chrono"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/intercept"
	"time"

	"github.com/stretchr/testify/require"
)

var withChromeDP = flag.String("with-chromedp", "", "The url of the remote debugging port")

const gamePage = `<!doctype html>
<html>
<body style="margin:0">
<div id="__startedButton"><div style="width:200px;height:50px" onclick="start()">start</div></div>
<script>
function start() {
	document.getElementById("__startedButton").remove();
	const canvas = document.createElement("canvas");
	canvas.id = "GameCanvas";
	canvas.width = 400;
	canvas.height = 300;
	canvas.getContext("2d").fillRect(0, 0, 400, 300);
	document.body.appendChild(canvas);
	fetch("/game-api/fortune-tiger/v2/Spin?traceId=T", {
		method: "POST",
		headers: {"Content-Type": "application/x-www-form-urlencoded"},
		body: "cs=0.3&ml=10",
	});
}
</script>
</body>
</html>`

func gameServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/game", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(gamePage))
	})
	mux.HandleFunc("/game-api/fortune-tiger/v2/Spin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		gz.Write([]byte(`{"dt": {"si": {"gid": 126, "tb": 0.3, "bl": 99.7}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSession(t *testing.T) {
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}

	srv := gameServer(t)
	tel := &telemetry.Recorder{}

	config := DefaultConfig()
	config.RemoteURL = *withChromeDP
	config.Scope = `.*/game-api/fortune-tiger/v2/.*`
	launcher, err := NewLauncher(config, chrono.NewStandardImpl(), tel)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	session, err := launcher.Launch(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Start(ctx, srv.URL+"/game"))

	game := session.Game()
	width, height, err := game.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, 400, width)
	require.Equal(t, 300, height)

	shot, err := game.Screenshot(ctx)
	require.NoError(t, err)
	require.NoError(t, shot.Validate())
	_, err = shot.Decode()
	require.NoError(t, err)

	_, err = game.ClickIn(ctx, Band{Left: -3, Right: 0, Top: 36, Bottom: 39})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return session.Exchanges().Len() > 0 }, 10*time.Second, 100*time.Millisecond)
	require.NoError(t, session.Settle(ctx))
	outcomes := intercept.NewDecoder("", tel).DecodeAll(session.Exchanges())
	records := intercept.Records(outcomes)
	require.Len(t, records, 1)
	require.Equal(t, int64(126), records[0].GameID())
	require.Equal(t, session.ID(), records[0].SessionID())

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
}

func TestSessionStartTimeout(t *testing.T) {
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}

	srv := gameServer(t)

	config := DefaultConfig()
	config.RemoteURL = *withChromeDP
	config.StartButton = `//div[@id='missing']`
	config.StartTimeout = 1
	launcher, err := NewLauncher(config, chrono.NewStandardImpl(), &telemetry.Recorder{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := launcher.Launch(ctx)
	require.NoError(t, err)
	defer session.Close()

	err = session.Start(ctx, srv.URL+"/game")
	require.True(t, errors.Is(err, ErrElementTimeout), err)
}

func TestNewLauncherInvalidScope(t *testing.T) {
	config := DefaultConfig()
	config.Scope = "("
	_, err := NewLauncher(config, chrono.NewStandardImpl(), &telemetry.Recorder{})
	require.Error(t, err)
}
