package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

type fakeRuns struct {
	runs  []entity.Run
	items map[uuid.UUID][]review.Item
	err   error
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]entity.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeRuns) ListReviewItems(_ context.Context, id uuid.UUID) ([]review.Item, error) {
	return f.items[id], f.err
}

func start(t *testing.T, svc *ReviewService) (*Server, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := New(nil, svc)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return srv, conn
}

func TestServer_Health(t *testing.T) {
	srv, conn := start(t, nil)
	hc := healthpb.NewHealthClient(conn)
	ctx := context.Background()

	resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	srv.SetServing(false)
	resp, err = hc.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestServer_WatchHealth(t *testing.T) {
	srv, conn := start(t, nil)
	hc := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.WatchHealth(ctx, 5*time.Millisecond, func(context.Context) error { return errors.New("db down") })

	require.Eventually(t, func() bool {
		resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 5*time.Millisecond)
}

func TestReviewService_RPC(t *testing.T) {
	runID := uuid.New()
	runs := &fakeRuns{
		runs:  []entity.Run{{ID: runID, InputDir: "/in", Total: 3}, {ID: uuid.New()}},
		items: map[uuid.UUID][]review.Item{runID: {{FilePath: "/in/a.pdf", Reason: "missing amount"}}},
	}
	live := review.NewQueue(nil)
	live.AddFailure("/in/b.pdf", errors.New("no text extracted"), "")

	_, conn := start(t, NewReviewService(runs, live, nil))
	client := NewReviewClient(conn)
	ctx := context.Background()

	lr, err := client.ListRuns(ctx, &ListRunsRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, lr.Runs, 1)
	assert.Equal(t, runID, lr.Runs[0].ID)
	assert.Equal(t, 3, lr.Runs[0].Total)

	rv, err := client.ListReview(ctx, &ListReviewRequest{RunID: runID.String()})
	require.NoError(t, err)
	require.Len(t, rv.Items, 1)
	assert.Equal(t, "missing amount", rv.Items[0].Reason)
	assert.Nil(t, rv.Summary)

	rv, err = client.ListReview(ctx, &ListReviewRequest{})
	require.NoError(t, err)
	require.Len(t, rv.Items, 1)
	require.NotNil(t, rv.Summary)
	assert.Equal(t, 1, rv.Summary.Failures)

	_, err = client.ListReview(ctx, &ListReviewRequest{RunID: "nope"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ListRuns(ctx, &ListRunsRequest{Limit: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestReviewService_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewReviewService(nil, nil, nil).ListReview(ctx, &ListReviewRequest{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = NewReviewService(nil, nil, nil).ListRuns(ctx, &ListRunsRequest{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	failing := &fakeRuns{err: common.NewAppError(common.CodeDatabase, "list runs", errors.New("connection refused"))}
	_, err = NewReviewService(failing, nil, nil).ListRuns(ctx, &ListRunsRequest{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
