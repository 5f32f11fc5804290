package mongodb

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"tigerscraper/internal/model"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
)

func setup(t *testing.T) (Repository, func()) {
	t.Helper()

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mongo:7",
				ExposedPorts: []string{"27017/tcp"},
				WaitingFor:   wait.ForLog("Waiting for connections"),
			},
		},
	)
	if err != nil {
		t.Skipf("mongodb container is not available: %v", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "27017/tcp", "mongodb")
	require.NoError(t, err)

	repo, err := Open(ctx, Config{
		ConnectionString: endpoint,
		Database:         "data",
		Collection:       "fortune_tiger_logs",
	})
	require.NoError(t, err)

	return repo, func() {
		require.NoError(t, repo.Close(ctx))
		require.NoError(t, container.Terminate(ctx))
	}
}

func TestRepository(t *testing.T) {
	repo, cleanup := setup(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	cursor, err := repo.collection.Indexes().List(ctx)
	require.NoError(t, err)
	var indexes []bson.M
	require.NoError(t, cursor.All(ctx, &indexes))
	var names []string
	for _, idx := range indexes {
		names = append(names, fmt.Sprint(idx["name"]))
	}
	for _, field := range model.IndexedFields {
		require.Contains(t, names, indexName(field, 1))
		require.Contains(t, names, indexName(field, -1))
	}

	res, err := model.NewResponse(200, nil, map[string]any{
		"dt": map[string]any{"si": map[string]any{"gid": 126.0, "bl": 90.5}},
	}, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	rec, err := model.NewRecord("session", model.Request{
		Method: "POST",
		Path:   "/game-api/fortune-tiger/v2/Spin",
		Host:   "api.pg-demo.com",
		URL:    "https://api.pg-demo.com/game-api/fortune-tiger/v2/Spin",
	}, res)
	require.NoError(t, err)

	id, err := repo.Save(ctx, rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	docs, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, id, docs[0].ID)
	require.Equal(t, int64(126), docs[0].GameID)
	require.Equal(t, 90.5, docs[0].Balance)
	require.Equal(t, "Form Value", docs[0].Request.BodyFormat)
}

func TestPingUnreachable(t *testing.T) {
	ctx := context.Background()
	repo, err := Open(ctx, Config{
		ConnectionString: "mongodb://127.0.0.1:1/?connectTimeoutMS=100",
		Database:         "data",
		Collection:       "records",
	})
	require.NoError(t, err)
	defer repo.Close(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.Error(t, repo.Ping(pingCtx))
}
