package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "postgres:16-alpine"
	mailpitImage  = "ghcr.io/axllent/mailpit:v1.21"
)

// StartPostgres starts a disposable PostgreSQL server and returns its
// connection string. The test is skipped when Docker is unavailable and the
// container is removed when the test ends.
func StartPostgres(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("statuspage"),
		postgres.WithUsername("statuspage"),
		postgres.WithPassword("statuspage"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres container")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "postgres connection string")
	return dsn
}

// Mailpit is a running Mailpit SMTP sink.
type Mailpit struct {
	SMTPHost string
	SMTPPort int
	apiBase  string
}

// MessagesURL is the REST endpoint listing received messages.
func (m Mailpit) MessagesURL() string {
	return m.apiBase + "/api/v1/messages"
}

// StartMailpit starts a Mailpit SMTP sink with its REST API exposed.
func StartMailpit(t *testing.T) Mailpit {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        mailpitImage,
			ExposedPorts: []string{"1025/tcp", "8025/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("1025/tcp"),
				wait.ForHTTP("/api/v1/info").WithPort("8025/tcp"),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start mailpit container")

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	smtpPort, err := ctr.MappedPort(ctx, "1025/tcp")
	require.NoError(t, err)
	apiPort, err := ctr.MappedPort(ctx, "8025/tcp")
	require.NoError(t, err)

	return Mailpit{
		SMTPHost: host,
		SMTPPort: smtpPort.Int(),
		apiBase:  fmt.Sprintf("http://%s:%d", host, apiPort.Int()),
	}
}
