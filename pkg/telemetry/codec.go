package telemetry

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/chainlink/pkg/chain/frame"
)

// Struct converts the report to a protobuf Struct.
func (r Report) Struct() *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"ap":       stringValue(r.AP),
			"x":        numberValue(float64(r.Node.X)),
			"y":        numberValue(float64(r.Node.Y)),
			"tick":     numberValue(float64(r.Tick)),
			"received": stringValue(r.Received.UTC().Format(time.RFC3339Nano)),
		},
	}
}

// EncodeReport encodes a report in protobuf wire format.
func EncodeReport(r Report) ([]byte, error) {
	return proto.Marshal(r.Struct())
}

// DecodeReport decodes a report encoded by EncodeReport.
func DecodeReport(data []byte) (Report, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ReportFromStruct(&s)
}

// ReportFromStruct converts a protobuf Struct back to a report.
func ReportFromStruct(s *structpb.Struct) (r Report, err error) {
	fields := s.GetFields()
	if r.AP, err = stringField(fields, "ap"); err != nil {
		return
	}
	var x, y, tick float64
	if x, err = numberField(fields, "x", math.MaxUint8); err != nil {
		return
	}
	if y, err = numberField(fields, "y", math.MaxUint8); err != nil {
		return
	}
	if tick, err = numberField(fields, "tick", math.MaxUint32); err != nil {
		return
	}
	r.Node = frame.Addr{X: byte(x), Y: byte(y)}
	r.Tick = uint32(tick)
	received, err := stringField(fields, "received")
	if err != nil {
		return
	}
	if r.Received, err = time.Parse(time.RFC3339Nano, received); err != nil {
		err = fmt.Errorf("%w: received: %v", ErrMalformed, err)
	}
	return
}

// ReportJSON renders a report as JSON using the protobuf JSON mapping.
func ReportJSON(r Report) (string, error) {
	m := jsonpb.Marshaler{}
	return m.MarshalToString(r.Struct())
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func stringField(fields map[string]*structpb.Value, key string) (string, error) {
	v, ok := fields[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformed, key)
	}
	return v.StringValue, nil
}

func numberField(fields map[string]*structpb.Value, key string, max float64) (float64, error) {
	v, ok := fields[key].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrMalformed, key)
	}
	n := v.NumberValue
	if n < 0 || n > max || n != math.Trunc(n) {
		return 0, fmt.Errorf("%w: %s out of range: %v", ErrMalformed, key, n)
	}
	return n, nil
}
