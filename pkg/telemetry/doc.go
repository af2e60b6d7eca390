// Package telemetry carries what the aggregator learns about the chain
// (which node reported, and when) to whoever is interested: MQTT
// subscribers, the operator shell or an in-process table.
//
// Reports travel as protobuf encoded google.protobuf.Struct messages so
// generic tools can decode them without a schema:
//
//	{ap: string, x: number, y: number, tick: number, received: string}
//
// where received is an RFC 3339 timestamp with nanoseconds.
package telemetry
