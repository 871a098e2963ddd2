package persist

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	chstore "solana-token-lab/internal/storage/clickhouse"
	"solana-token-lab/internal/storage/migrations"
)

func setupClickhouse(t *testing.T) (*chstore.Conn, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}
	return conn, cleanup
}

func TestClickhouseOutcomeSink_RecordOutcome(t *testing.T) {
	conn, cleanup := setupClickhouse(t)
	defer cleanup()

	sink := NewClickhouseOutcomeSink(conn)
	ctx := context.Background()

	out := Outcome{
		Program:     "pumpfun",
		Signature:   "sig123",
		Tag:         "bonding_curve_launch",
		Confidence:  0.92,
		Mint:        "mintXYZ",
		Status:      "submitted",
		Detail:      "sigOut",
		TimestampMs: time.Now().UnixMilli(),
	}
	require.NoError(t, sink.RecordOutcome(ctx, out))

	rows, err := conn.Query(ctx, `SELECT program, signature, status FROM snipe_outcomes WHERE signature = ?`, "sig123")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var program, signature, status string
	require.NoError(t, rows.Scan(&program, &signature, &status))
	require.Equal(t, "pumpfun", program)
	require.Equal(t, "sig123", signature)
	require.Equal(t, "submitted", status)
}
