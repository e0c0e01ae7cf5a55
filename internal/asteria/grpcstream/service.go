package grpcstream

import (
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ClipStreamSendStream is the narrowed send-only view of the stream a
// StreamClips implementation writes ClipEvents to, matching the shape a
// generated VisualiserService_StreamFramesServer exposes (a typed Send
// method over the raw grpc.ServerStream).
type ClipStreamSendStream interface {
	grpc.ServerStream
	Send(*structpb.Struct) error
}

// ClipStreamServer is implemented by Publisher; split out as an interface
// so the ServiceDesc handler below doesn't depend on Publisher's internal
// fields.
type ClipStreamServer interface {
	StreamClips(req *wrapperspb.StringValue, stream ClipStreamSendStream) error
}

type streamClipsServerStream struct {
	grpc.ServerStream
}

func (s *streamClipsServerStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func streamClipsHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(ClipStreamServer).StreamClips(req, &streamClipsServerStream{stream})
}

// serviceName is the gRPC service name clients dial, mirroring the
// "lidar.visualiser.VisualiserService" naming convention the teacher uses
// for its own hand-registered service.
const serviceName = "asteria.grpcstream.ClipStream"

// ServiceDesc is registered on a *grpc.Server via grpc.RegisterService,
// the same mechanism generated code uses, just assembled by hand since no
// .proto/.pb.go pair for this contract exists in the retrieval pack.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ClipStreamServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamClips",
			Handler:       streamClipsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "internal/asteria/grpcstream/service.go",
}

// RegisterClipStreamServer registers srv's StreamClips method on s.
func RegisterClipStreamServer(s *grpc.Server, srv ClipStreamServer) {
	s.RegisterService(&ServiceDesc, srv)
}
