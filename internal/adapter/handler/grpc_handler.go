package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/core/service"
	"github.com/rl1809/barcode-registry/internal/logger"
)

const barcodeServiceName = "barcode.v1.BarcodeService"

// BarcodeServiceServer is the server API for barcode.v1.BarcodeService.
// Messages travel as google.protobuf.Struct.
type BarcodeServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Lookup(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deregister(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var BarcodeServiceDesc = grpc.ServiceDesc{
	ServiceName: barcodeServiceName,
	HandlerType: (*BarcodeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler("Register", BarcodeServiceServer.Register)},
		{MethodName: "Lookup", Handler: unaryHandler("Lookup", BarcodeServiceServer.Lookup)},
		{MethodName: "Deregister", Handler: unaryHandler("Deregister", BarcodeServiceServer.Deregister)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "barcode/v1/barcode.proto",
}

func unaryHandler(method string, call func(BarcodeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	fullMethod := "/" + barcodeServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BarcodeServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BarcodeServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterBarcodeServiceServer attaches srv to s.
func RegisterBarcodeServiceServer(s grpc.ServiceRegistrar, srv BarcodeServiceServer) {
	s.RegisterService(&BarcodeServiceDesc, srv)
}

type GRPCHandler struct {
	registry BarcodeRegistry
	log      *logger.Logger
}

func NewGRPCHandler(registry BarcodeRegistry, log *logger.Logger) *GRPCHandler {
	return &GRPCHandler{registry: registry, log: log.With("handler", "grpc")}
}

func (h *GRPCHandler) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	reg := domain.BarcodeRegistration{
		Value:            fields["value"].GetStringValue(),
		LinkedEntityID:   fields["linked_entity_id"].GetStringValue(),
		LinkedEntityKind: domain.EntityKind(fields["linked_entity_kind"].GetStringValue()),
		OrganizationID:   fields["organization_id"].GetStringValue(),
		Global:           fields["global"].GetBoolValue(),
	}
	if v, ok := fields["quantity"]; ok {
		if q, err := domain.QuantityFromNumber(v.GetNumberValue()); err == nil {
			reg.Quantity = q
		}
	}

	created, err := h.registry.Create(ctx, fields["request_id"].GetStringValue(), reg)
	if err != nil {
		return nil, h.statusError(err)
	}
	return structpb.NewStruct(map[string]any{
		"id":                 created.ID,
		"value":              created.Value,
		"quantity":           created.Quantity,
		"linked_entity_id":   created.LinkedEntityID,
		"linked_entity_kind": string(created.LinkedEntityKind),
		"organization_id":    created.OrganizationID,
		"global":             created.Global,
	})
}

func (h *GRPCHandler) Lookup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	value := fields["value"].GetStringValue()
	if value == "" {
		return nil, status.Error(codes.InvalidArgument, "missing value")
	}

	reg, err := h.registry.Lookup(ctx, fields["organization_id"].GetStringValue(), value)
	if err != nil {
		return nil, h.statusError(err)
	}
	return structpb.NewStruct(reg.Summary())
}

func (h *GRPCHandler) Deregister(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "missing id")
	}
	if err := h.registry.Delete(ctx, id); err != nil {
		return nil, h.statusError(err)
	}
	return structpb.NewStruct(map[string]any{"id": id, "deleted": true})
}

func (h *GRPCHandler) statusError(err error) error {
	var verrs domain.ValidationErrors
	var derr *domain.Error

	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "duplicate request")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDanglingReference):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &verrs):
		if len(verrs) == 1 && errors.Is(verrs[0], domain.ErrDuplicateValue) {
			return status.Error(codes.AlreadyExists, err.Error())
		}
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &derr):
		if derr.Kind == domain.KindDuplicateValue {
			return status.Error(codes.AlreadyExists, err.Error())
		}
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		h.log.Error("grpc request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
