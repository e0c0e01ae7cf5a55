// Package grpcstream streams clip-ready notifications (ClipEvents) to
// GUI/remote subscribers over gRPC; it carries no live-view images.
// Grounded on
// internal/lidar/visualiser/publisher.go's Publisher (fan-out broadcast
// loop, per-client buffered channel, atomic running/client counters) and
// grpc_server.go's server-streaming RPC shape. That teacher package
// depends on a generated pb package (internal/lidar/visualiser/pb) that
// is not present in the retrieval pack, so this package registers its
// RPC by hand with a grpc.ServiceDesc instead, carrying payloads as
// google.golang.org/protobuf/types/known/structpb.Struct /
// wrapperspb.StringValue — real, already-compiled protobuf messages —
// rather than generating a bespoke .pb.go pair without the protobuf
// toolchain.
package grpcstream

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// ClipEvent is the Go-native notification a clip publishes when the
// persister finishes writing it (spec §4.4's atomicity contract: a clip
// is only notified once it is durably on disk).
type ClipEvent struct {
	ClipID       string
	StartUTC     time.Time
	EndUTC       time.Time
	TriggerCount int
	FrameCount   int
	DirPath      string
}

// ToStruct converts a ClipEvent into the wire-level structpb.Struct sent
// over the stream.
func (e ClipEvent) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"clip_id":       e.ClipID,
		"start_utc":     e.StartUTC.UTC().Format(time.RFC3339Nano),
		"end_utc":       e.EndUTC.UTC().Format(time.RFC3339Nano),
		"trigger_count": float64(e.TriggerCount),
		"frame_count":   float64(e.FrameCount),
		"dir_path":      e.DirPath,
	})
}
