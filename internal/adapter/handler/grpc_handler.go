package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/core/service"
)

// JSONCodecName is the content-subtype clients must select, for example with
// grpc.CallContentSubtype(JSONCodecName).
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type CancelOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type CancelOrderReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PlaceOrderReply struct {
	Order *domain.Order `json:"order"`
}

type EvaluateCouponRequest struct {
	Code  string          `json:"code"`
	Total decimal.Decimal `json:"total"`
}

type EvaluateCouponReply struct {
	FinalTotal decimal.Decimal `json:"final_total"`
}

// OrderServiceServer is the server API of shop.v1.OrderService.
type OrderServiceServer interface {
	PlaceOrder(context.Context, *service.PlaceOrderRequest) (*PlaceOrderReply, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*CancelOrderReply, error)
	EvaluateCoupon(context.Context, *EvaluateCouponRequest) (*EvaluateCouponReply, error)
}

const orderServiceName = "shop.v1.OrderService"

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: placeOrderHandler},
		{MethodName: "CancelOrder", Handler: cancelOrderHandler},
		{MethodName: "EvaluateCoupon", Handler: evaluateCouponHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

func placeOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(service.PlaceOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).PlaceOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderServiceName + "/PlaceOrder"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).PlaceOrder(ctx, req.(*service.PlaceOrderRequest))
	})
}

func cancelOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CancelOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).CancelOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderServiceName + "/CancelOrder"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).CancelOrder(ctx, req.(*CancelOrderRequest))
	})
}

func evaluateCouponHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EvaluateCouponRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).EvaluateCoupon(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderServiceName + "/EvaluateCoupon"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).EvaluateCoupon(ctx, req.(*EvaluateCouponRequest))
	})
}

// OrderServiceClient calls shop.v1.OrderService over a connection using the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) PlaceOrder(ctx context.Context, in *service.PlaceOrderRequest, opts ...grpc.CallOption) (*PlaceOrderReply, error) {
	out := new(PlaceOrderReply)
	if err := c.invoke(ctx, "PlaceOrder", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) CancelOrder(ctx context.Context, in *CancelOrderRequest, opts ...grpc.CallOption) (*CancelOrderReply, error) {
	out := new(CancelOrderReply)
	if err := c.invoke(ctx, "CancelOrder", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) EvaluateCoupon(ctx context.Context, in *EvaluateCouponRequest, opts ...grpc.CallOption) (*EvaluateCouponReply, error) {
	out := new(EvaluateCouponReply)
	if err := c.invoke(ctx, "EvaluateCoupon", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+orderServiceName+"/"+method, in, out, opts...)
}

type GRPCHandler struct {
	orders  *service.OrderService
	coupons *service.CouponEngine
	logger  *zap.Logger
}

func NewGRPCHandler(orders *service.OrderService, coupons *service.CouponEngine, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{orders: orders, coupons: coupons, logger: logger}
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *service.PlaceOrderRequest) (*PlaceOrderReply, error) {
	order, err := h.orders.PlaceOrder(ctx, *req)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &PlaceOrderReply{Order: order}, nil
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*CancelOrderReply, error) {
	if err := h.orders.CancelOrder(ctx, req.OrderID); err != nil {
		return nil, h.toStatus(err)
	}
	return &CancelOrderReply{Success: true, Message: "order cancelled"}, nil
}

func (h *GRPCHandler) EvaluateCoupon(ctx context.Context, req *EvaluateCouponRequest) (*EvaluateCouponReply, error) {
	final, err := h.coupons.Evaluate(ctx, req.Code, req.Total)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &EvaluateCouponReply{FinalTotal: final}, nil
}

func (h *GRPCHandler) toStatus(err error) error {
	code := grpcCode(err)
	if code == codes.Internal {
		h.logger.Error("rpc failed", zap.Error(err))
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidCoupon):
		return codes.NotFound
	case errors.Is(err, domain.ErrInvalidParam):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrInvalidCoupon):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrInsufficientStock):
		return codes.ResourceExhausted
	case errors.Is(err, domain.ErrAlreadyExists):
		return codes.AlreadyExists
	}
	return codes.Internal
}
