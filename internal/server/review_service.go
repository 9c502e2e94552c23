package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

const reviewServiceName = "receipts.v1.ReviewService"

// RunReader is the read side of the run store.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]entity.Run, error)
	ListReviewItems(ctx context.Context, runID uuid.UUID) ([]review.Item, error)
}

// LiveQueue is the in-memory review queue of the running daemon.
type LiveQueue interface {
	Items() []review.Item
	Summary() review.Summary
}

type ListRunsRequest struct {
	Limit int `json:"limit"`
}

type ListRunsResponse struct {
	Runs []entity.Run `json:"runs"`
}

// ListReviewRequest selects a stored run; an empty RunID means the live queue.
type ListReviewRequest struct {
	RunID string `json:"run_id"`
}

type ListReviewResponse struct {
	Items   []review.Item   `json:"items"`
	Summary *review.Summary `json:"summary,omitempty"`
}

// ReviewServer is implemented by ReviewService.
type ReviewServer interface {
	ListRuns(ctx context.Context, req *ListRunsRequest) (*ListRunsResponse, error)
	ListReview(ctx context.Context, req *ListReviewRequest) (*ListReviewResponse, error)
}

type ReviewService struct {
	runs   RunReader
	live   LiveQueue
	logger *slog.Logger
}

// NewReviewService serves stored runs from runs (may be nil) and the current
// queue from live (may be nil).
func NewReviewService(runs RunReader, live LiveQueue, logger *slog.Logger) *ReviewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewService{runs: runs, live: live, logger: logger}
}

func (s *ReviewService) ListRuns(ctx context.Context, req *ListRunsRequest) (*ListRunsResponse, error) {
	if req.Limit < 0 {
		return nil, common.InvalidArgumentError("limit must not be negative")
	}
	if s.runs == nil {
		return nil, common.NotFoundError("no run store configured")
	}
	runs, err := s.runs.ListRuns(ctx, req.Limit)
	if err != nil {
		s.logger.Warn("server.list_runs.failed", "error", err)
		return nil, common.StatusFromError(err)
	}
	return &ListRunsResponse{Runs: runs}, nil
}

func (s *ReviewService) ListReview(ctx context.Context, req *ListReviewRequest) (*ListReviewResponse, error) {
	rid := strings.TrimSpace(req.RunID)
	if rid == "" {
		if s.live == nil {
			return nil, common.NotFoundError("no live review queue")
		}
		sum := s.live.Summary()
		return &ListReviewResponse{Items: s.live.Items(), Summary: &sum}, nil
	}

	runID, err := uuid.Parse(rid)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("run_id must be a UUID: %q", rid)
	}
	if s.runs == nil {
		return nil, common.NotFoundError("no run store configured")
	}
	items, err := s.runs.ListReviewItems(ctx, runID)
	if err != nil {
		s.logger.Warn("server.list_review.failed", "run_id", runID, "error", err)
		return nil, common.StatusFromError(err)
	}
	return &ListReviewResponse{Items: items}, nil
}

func listRunsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListRunsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReviewServer).ListRuns(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + reviewServiceName + "/ListRuns"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReviewServer).ListRuns(ctx, req.(*ListRunsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listReviewHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListReviewRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReviewServer).ListReview(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + reviewServiceName + "/ListReview"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReviewServer).ListReview(ctx, req.(*ListReviewRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var reviewServiceDesc = grpc.ServiceDesc{
	ServiceName: reviewServiceName,
	HandlerType: (*ReviewServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListRuns", Handler: listRunsHandler},
		{MethodName: "ListReview", Handler: listReviewHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "receipts/v1/review.json",
}

// ReviewClient calls the review service with the JSON codec.
type ReviewClient struct {
	cc grpc.ClientConnInterface
}

func NewReviewClient(cc grpc.ClientConnInterface) *ReviewClient {
	return &ReviewClient{cc: cc}
}

func (c *ReviewClient) ListRuns(ctx context.Context, req *ListRunsRequest, opts ...grpc.CallOption) (*ListRunsResponse, error) {
	out := new(ListRunsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+reviewServiceName+"/ListRuns", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReviewClient) ListReview(ctx context.Context, req *ListReviewRequest, opts ...grpc.CallOption) (*ListReviewResponse, error) {
	out := new(ListReviewResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+reviewServiceName+"/ListReview", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
